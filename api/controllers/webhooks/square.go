package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	squarewebhook "github.com/farmersbracket/farmersbracket-backend/internal/webhooks/square"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const squareSignatureHeader = "X-Square-Hmacsha256-Signature"

type SquareWebhookService interface {
	HandleEvent(ctx context.Context, event *squarewebhook.SquareWebhookEvent) error
}

// squareSigner is satisfied by *pkg/square.Client.
type squareSigner interface {
	SigningSecret() string
	NotificationURL() string
}

// SquareWebhook applies payment.created and payment.updated notifications.
func SquareWebhook(svc SquareWebhookService, client squareSigner, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := unavailable(map[string]bool{
			"webhook service":   svc != nil,
			"square client":     client != nil,
			"idempotency guard": guard != nil,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := readBody(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := verifySquare(payload, client, r.Header.Get(squareSignatureHeader)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var event squarewebhook.SquareWebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}
		eventID := squareEventID(event)
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "square event id missing"))
			return
		}

		settle(w, r, guard, logg, delivery{
			consumer:  squareConsumer,
			eventID:   eventID,
			eventType: event.Type,
			apply:     func(ctx context.Context) error { return svc.HandleEvent(ctx, &event) },
		})
	}
}

// squareEventID prefers the notification id and falls back to the object id.
func squareEventID(event squarewebhook.SquareWebhookEvent) string {
	if id := strings.TrimSpace(event.EventID); id != "" {
		return id
	}
	return strings.TrimSpace(event.Data.ID)
}

func verifySquare(payload []byte, client squareSigner, signature string) error {
	if signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "square signature missing")
	}
	if !validSquareSignature(payload, client.NotificationURL(), client.SigningSecret(), signature) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid square signature")
	}
	return nil
}

// validSquareSignature checks base64(HMAC-SHA256(key, notificationURL+body)).
func validSquareSignature(payload []byte, notificationURL, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(notificationURL))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
