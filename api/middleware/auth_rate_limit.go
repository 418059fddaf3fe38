package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

// fixedWindowLimiter is satisfied by the Redis client.
type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy caps attempts per client IP and per submitted email address
// within one fixed window. A zero limit disables that dimension.
type RateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0)
}

func (p RateLimitPolicy) scope(kind, value string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "auth"
	}
	return name + ":" + kind + ":" + value
}

// bucket is one counter a request is charged against.
type bucket struct {
	kind  string
	value string
	limit int
}

// buckets lists the counters for r. Emails are hashed so addresses never
// land in Redis keys.
func (p RateLimitPolicy) buckets(r *http.Request) ([]bucket, error) {
	var out []bucket
	if ip := clientIP(r); p.IPLimit > 0 && ip != "" {
		out = append(out, bucket{kind: "ip", value: ip, limit: p.IPLimit})
	}
	if p.EmailLimit > 0 {
		body, err := bufferBody(r)
		if err != nil {
			return nil, err
		}
		if email := emailFromBody(body); email != "" {
			out = append(out, bucket{kind: "email", value: hashValue(email), limit: p.EmailLimit})
		}
	}
	return out, nil
}

// RateLimit enforces policy on auth endpoints such as login and register.
func RateLimit(policy RateLimitPolicy, limiter fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			buckets, err := policy.buckets(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			for _, b := range buckets {
				allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope(b.kind, b.value), int64(b.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					rejectLimited(ctx, w, logg, policy, b, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectLimited(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, policy RateLimitPolicy, b bucket, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":   policy.Name,
			"scope":    b.kind,
			"attempts": count,
			"limit":    b.limit,
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP prefers the left-most forwarded address, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
