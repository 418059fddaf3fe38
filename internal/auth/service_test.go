package auth

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/internal/users"
	pkgAuth "github.com/farmersbracket/farmersbracket-backend/pkg/auth"
	"github.com/farmersbracket/farmersbracket-backend/pkg/auth/session"
	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/dbtest"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/security"
	"github.com/farmersbracket/farmersbracket-backend/pkg/redis"
)

var (
	testJWT      = config.JWTConfig{Secret: "secret", Issuer: "farmersbracket", ExpirationMinutes: 15}
	testPassword = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32, ResetTokenTTL: time.Hour}
)

type memoryTokens struct {
	values map[string]string
}

func (m *memoryTokens) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryTokens) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	return value, nil
}

func (m *memoryTokens) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryTokens) PasswordResetKey(token string) string { return "reset:" + token }
func (m *memoryTokens) ConfirmationKey(token string) string  { return "confirm:" + token }

type fakeSessions struct {
	sessions map[string]session.Identity
	refresh  map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]session.Identity{}, refresh: map[string]string{}}
}

func (f *fakeSessions) Create(_ context.Context, identity session.Identity) (session.Issued, error) {
	id := session.NewAccessID()
	token := "refresh-" + id
	f.sessions[id] = identity
	f.refresh[id] = token
	return session.Issued{AccessID: id, RefreshToken: token, Identity: identity}, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldAccessID, provided string) (session.Issued, error) {
	identity, ok := f.sessions[oldAccessID]
	if !ok || f.refresh[oldAccessID] != provided {
		return session.Issued{}, session.ErrInvalidRefreshToken
	}
	delete(f.sessions, oldAccessID)
	return f.Create(ctx, identity)
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.sessions, accessID)
	return nil
}

type harness struct {
	svc      Service
	conn     *gorm.DB
	tokens   *memoryTokens
	sessions *fakeSessions
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t, dbtest.UsersDDL, dbtest.OutboxEventsDDL)
	tokens := &memoryTokens{values: map[string]string{}}
	sessions := newFakeSessions()
	svc, err := NewService(ServiceParams{
		Tx:          db.FromGorm(conn),
		Users:       users.NewRepository(conn),
		Sessions:    sessions,
		Tokens:      tokens,
		Outbox:      outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		JWTConfig:   testJWT,
		PasswordCfg: testPassword,
		PublicURL:   "https://farmersbracket.test/",
		Logger:      logger.Nop(),
	})
	require.NoError(t, err)
	return &harness{svc: svc, conn: conn, tokens: tokens, sessions: sessions}
}

func (h *harness) events(t *testing.T, eventType enums.OutboxEventType) []outbox.PayloadEnvelope {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, h.conn.Where("event_type = ?", eventType).Order("created_at").Find(&rows).Error)
	out := make([]outbox.PayloadEnvelope, 0, len(rows))
	for _, row := range rows {
		var env outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(row.Payload, &env))
		out = append(out, env)
	}
	return out
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

func TestRegisterCreatesUserAndQueuesConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user, err := h.svc.Register(ctx, RegisterRequest{
		Email:    "Farmer@Example.com",
		Password: "correct-horse",
		FullName: "Lerato Farmer",
		Role:     enums.RoleFarmer,
	})
	require.NoError(t, err)
	assert.Equal(t, "farmer@example.com", user.Email)
	assert.Equal(t, enums.RoleFarmer, user.Role)
	assert.False(t, user.EmailConfirmed)

	events := h.events(t, enums.EventEmailConfirmationRequested)
	require.Len(t, events, 1)
	var payload struct {
		ConfirmURL string `json:"confirm_url"`
	}
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	assert.True(t, strings.HasPrefix(payload.ConfirmURL, "https://farmersbracket.test/confirm-email?token="))

	require.NoError(t, h.svc.ConfirmEmail(ctx, tokenFromLink(t, payload.ConfirmURL)))
	profile, err := h.svc.Session(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, profile.EmailConfirmed)

	err = h.svc.ConfirmEmail(ctx, tokenFromLink(t, payload.ConfirmURL))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "token is single use")
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "long-enough", FullName: "A"})
	require.NoError(t, err)

	_, err = h.svc.Register(ctx, RegisterRequest{Email: "A@example.com", Password: "long-enough", FullName: "A"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))

	_, err = h.svc.Register(ctx, RegisterRequest{Email: "b@example.com", Password: "short", FullName: "", Role: enums.RoleAdmin})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	fields, ok := pkgerrors.As(err).Details().(pkgerrors.FieldErrors)
	require.True(t, ok)
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "role")
}

func TestLoginRefreshLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Register(ctx, RegisterRequest{Email: "shopper@example.com", Password: "green-beans", FullName: "Shopper"})
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, LoginRequest{Email: "shopper@example.com", Password: "wrong-pass"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
	_, err = h.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "green-beans"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	resp, err := h.svc.Login(ctx, LoginRequest{Email: "SHOPPER@example.com", Password: "green-beans"})
	require.NoError(t, err)
	assert.Equal(t, 15*60, resp.ExpiresIn)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, enums.RoleCustomer, claims.Role)
	assert.Contains(t, h.sessions.sessions, claims.ID)

	pair, err := h.svc.Refresh(ctx, claims.ID, resp.RefreshToken)
	require.NoError(t, err)
	rotated, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, rotated.ID)
	assert.Equal(t, "shopper@example.com", rotated.Email)

	_, err = h.svc.Refresh(ctx, claims.ID, resp.RefreshToken)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized), "rotated token cannot be reused")

	require.NoError(t, h.svc.Logout(ctx, rotated.ID))
	assert.NotContains(t, h.sessions.sessions, rotated.ID)
	assert.True(t, pkgerrors.Is(h.svc.Logout(ctx, ""), pkgerrors.CodeUnauthorized))
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Register(ctx, RegisterRequest{Email: "reset@example.com", Password: "first-password", FullName: "Reset Me"})
	require.NoError(t, err)

	require.NoError(t, h.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, h.events(t, enums.EventPasswordResetRequested))

	require.NoError(t, h.svc.RequestPasswordReset(ctx, "reset@example.com"))
	events := h.events(t, enums.EventPasswordResetRequested)
	require.Len(t, events, 1)
	var payload struct {
		ResetURL string `json:"reset_url"`
	}
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	token := tokenFromLink(t, payload.ResetURL)

	err = h.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "short"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	require.NoError(t, h.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "second-password"}))
	_, err = h.svc.Login(ctx, LoginRequest{Email: "reset@example.com", Password: "second-password"})
	require.NoError(t, err)

	err = h.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "third-password"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestResendConfirmationSkipsConfirmedUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user, err := h.svc.Register(ctx, RegisterRequest{Email: "resend@example.com", Password: "password-1", FullName: "Resend"})
	require.NoError(t, err)

	require.NoError(t, h.svc.ResendConfirmation(ctx, "resend@example.com"))
	assert.Len(t, h.events(t, enums.EventEmailConfirmationRequested), 2)

	require.NoError(t, users.NewRepository(h.conn).MarkEmailConfirmed(ctx, user.ID, time.Now()))
	require.NoError(t, h.svc.ResendConfirmation(ctx, "resend@example.com"))
	require.NoError(t, h.svc.ResendConfirmation(ctx, "ghost@example.com"))
	assert.Len(t, h.events(t, enums.EventEmailConfirmationRequested), 2)

	_, err = h.svc.Session(ctx, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestLoginUpgradesStaleHash(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.svc.Register(ctx, RegisterRequest{Email: "grower@example.com", Password: "green-beans", FullName: "Grower"})
	require.NoError(t, err)

	older := testPassword
	older.ArgonTime = 2
	stale, err := security.HashPassword("green-beans", older)
	require.NoError(t, err)
	require.NoError(t, h.conn.Model(&models.User{}).Where("id = ?", created.ID).Update("password_hash", stale).Error)

	_, err = h.svc.Login(ctx, LoginRequest{Email: "grower@example.com", Password: "green-beans"})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, h.conn.First(&stored, "id = ?", created.ID).Error)
	assert.NotEqual(t, stale, stored.PasswordHash)
	assert.False(t, security.NeedsRehash(stored.PasswordHash, testPassword))
}
