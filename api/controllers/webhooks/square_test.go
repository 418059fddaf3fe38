package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	squarewebhook "github.com/farmersbracket/farmersbracket-backend/internal/webhooks/square"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const (
	squareSecret = "sq-signature-key"
	squareURL    = "https://api.farmersbracket.test/api/v1/webhooks/square"
)

func postSquare(handler http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(squareSignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSquareWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildSquareEvent(t, "payment.updated")
	signature := buildSquareSignature(payload, squareURL, squareSecret)
	service := &fakeSquareWebhookService{}
	handler := SquareWebhook(service, &fakeSquareSigner{secret: squareSecret, url: squareURL}, newGuard(t), logger.Nop())

	rec := postSquare(handler, payload, signature)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	rec = postSquare(handler, payload, signature)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
	if service.last == nil || service.last.Data.Object.Payment == nil {
		t.Fatalf("expected decoded payment in event")
	}
}

func TestSquareWebhook_SignatureCoversNotificationURL(t *testing.T) {
	payload := buildSquareEvent(t, "payment.created")
	signature := buildSquareSignature(payload, "https://elsewhere.test/hook", squareSecret)
	service := &fakeSquareWebhookService{}
	handler := SquareWebhook(service, &fakeSquareSigner{secret: squareSecret, url: squareURL}, newGuard(t), logger.Nop())

	rec := postSquare(handler, payload, signature)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for signature over another url, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestSquareWebhook_InvalidSignature(t *testing.T) {
	payload := buildSquareEvent(t, "payment.updated")
	service := &fakeSquareWebhookService{}
	handler := SquareWebhook(service, &fakeSquareSigner{secret: squareSecret, url: squareURL}, newGuard(t), logger.Nop())

	if rec := postSquare(handler, payload, "invalid"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", rec.Code)
	}
	if rec := postSquare(handler, payload, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func buildSquareEvent(t *testing.T, eventType string) []byte {
	t.Helper()
	event := &squarewebhook.SquareWebhookEvent{
		EventID: "evt_" + uuid.NewString(),
		Type:    eventType,
		Data: squarewebhook.SquareWebhookData{
			Type: "payment",
			ID:   "pay_" + uuid.NewString(),
			Object: squarewebhook.SquareWebhookObject{
				Payment: &squarewebhook.SquarePayment{
					ID:          "pay_1",
					Status:      "COMPLETED",
					ReferenceID: uuid.NewString(),
					AmountMoney: &squarewebhook.SquareMoney{Amount: 12500, Currency: "ZAR"},
				},
			},
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func buildSquareSignature(payload []byte, notificationURL, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(notificationURL))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type fakeSquareWebhookService struct {
	calls int
	last  *squarewebhook.SquareWebhookEvent
}

func (f *fakeSquareWebhookService) HandleEvent(ctx context.Context, event *squarewebhook.SquareWebhookEvent) error {
	f.calls++
	f.last = event
	return nil
}

type fakeSquareSigner struct {
	secret string
	url    string
}

func (s *fakeSquareSigner) SigningSecret() string   { return s.secret }
func (s *fakeSquareSigner) NotificationURL() string { return s.url }

func TestSquareEventIDFallsBackToObjectID(t *testing.T) {
	cases := []struct {
		event squarewebhook.SquareWebhookEvent
		want  string
	}{
		{squarewebhook.SquareWebhookEvent{EventID: " evt-1 ", Data: squarewebhook.SquareWebhookData{ID: "pay-1"}}, "evt-1"},
		{squarewebhook.SquareWebhookEvent{Data: squarewebhook.SquareWebhookData{ID: "pay-1"}}, "pay-1"},
		{squarewebhook.SquareWebhookEvent{}, ""},
	}
	for _, tc := range cases {
		if got := squareEventID(tc.event); got != tc.want {
			t.Fatalf("squareEventID = %q, want %q", got, tc.want)
		}
	}
}

func TestSquareWebhookWithoutGuardIsInternalError(t *testing.T) {
	handler := SquareWebhook(&fakeSquareWebhookService{}, &fakeSquareSigner{}, nil, logger.Nop())
	if rec := postSquare(handler, []byte(`{}`), "sig"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without guard, got %d", rec.Code)
	}
}
