// Package payfast builds signed PayFast redirect payloads and verifies ITN
// callbacks.
package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
)

const (
	sandboxProcessURL = "https://sandbox.payfast.co.za/eng/process"
	liveProcessURL    = "https://www.payfast.co.za/eng/process"

	fieldSignature = "signature"
	fieldPaymentID = "pf_payment_id"
	fieldOrderID   = "custom_str1"
	fieldAmount    = "amount_gross"
	fieldStatus    = "payment_status"
	fieldMerchant  = "merchant_id"

	StatusComplete = "COMPLETE"
	StatusFailed   = "FAILED"
	StatusCanceled = "CANCELLED"
)

var (
	errMerchantRequired  = errors.New("payfast merchant id and key are required")
	ErrInvalidSignature  = errors.New("payfast signature mismatch")
	ErrMerchantMismatch  = errors.New("payfast merchant id mismatch")
	errOrderIDRequired   = errors.New("payfast custom_str1 (order id) is required")
	errAmountRequired    = errors.New("payfast amount_gross is required")
	errSignatureRequired = errors.New("payfast signature is required")
)

// Field is one ordered form value. PayFast signs fields in submission order,
// so a map cannot be used.
type Field struct {
	Name  string
	Value string
}

// Client signs checkout redirects for one merchant account.
type Client struct {
	merchantID  string
	merchantKey string
	passphrase  string
	processURL  string
	returnURL   string
	cancelURL   string
	notifyURL   string
}

// NewClient validates merchant credentials and picks the sandbox or live host.
func NewClient(cfg config.PayFastConfig) (*Client, error) {
	merchantID := strings.TrimSpace(cfg.MerchantID)
	merchantKey := strings.TrimSpace(cfg.MerchantKey)
	if merchantID == "" || merchantKey == "" {
		return nil, errMerchantRequired
	}
	processURL := liveProcessURL
	if cfg.Sandbox {
		processURL = sandboxProcessURL
	}
	return &Client{
		merchantID:  merchantID,
		merchantKey: merchantKey,
		passphrase:  strings.TrimSpace(cfg.Passphrase),
		processURL:  processURL,
		returnURL:   strings.TrimSpace(cfg.ReturnURL),
		cancelURL:   strings.TrimSpace(cfg.CancelURL),
		notifyURL:   strings.TrimSpace(cfg.NotifyURL),
	}, nil
}

// PaymentRequest describes the order a customer is redirected to pay.
type PaymentRequest struct {
	OrderID     string
	AmountCents int64
	ItemName    string
	FirstName   string
	LastName    string
	Email       string
}

// RedirectURL returns the process URL with the signed payment fields as query values.
func (c *Client) RedirectURL(req PaymentRequest) (string, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return "", errOrderIDRequired
	}
	if req.AmountCents <= 0 {
		return "", errAmountRequired
	}
	itemName := strings.TrimSpace(req.ItemName)
	if itemName == "" {
		itemName = "FarmersBracket order " + req.OrderID
	}

	fields := []Field{
		{Name: "merchant_id", Value: c.merchantID},
		{Name: "merchant_key", Value: c.merchantKey},
		{Name: "return_url", Value: c.returnURL},
		{Name: "cancel_url", Value: c.cancelURL},
		{Name: "notify_url", Value: c.notifyURL},
		{Name: "name_first", Value: req.FirstName},
		{Name: "name_last", Value: req.LastName},
		{Name: "email_address", Value: req.Email},
		{Name: "m_payment_id", Value: req.OrderID},
		{Name: "amount", Value: money.Format(req.AmountCents)},
		{Name: "item_name", Value: itemName},
		{Name: fieldOrderID, Value: req.OrderID},
	}
	fields = compact(fields)
	fields = append(fields, Field{Name: fieldSignature, Value: Signature(fields, c.passphrase)})

	return c.processURL + "?" + encode(fields), nil
}

// Signature is the lowercase MD5 of the url-encoded, ampersand-joined fields
// with the passphrase appended when one is configured.
func Signature(fields []Field, passphrase string) string {
	payload := encode(compact(fields))
	if passphrase != "" {
		payload += "&passphrase=" + quote(passphrase)
	}
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Notification is a verified ITN callback.
type Notification struct {
	PaymentID     string
	OrderID       string
	PaymentStatus string
	AmountCents   int64
}

// Completed reports whether PayFast settled the payment.
func (n Notification) Completed() bool {
	return strings.EqualFold(n.PaymentStatus, StatusComplete)
}

// VerifyNotification parses a raw ITN body, checks its signature against the
// fields in the order they were posted, and decodes the order reference.
func (c *Client) VerifyNotification(body string) (*Notification, error) {
	fields, err := ParseFields(body)
	if err != nil {
		return nil, err
	}

	var provided string
	signed := make([]Field, 0, len(fields))
	values := make(map[string]string, len(fields))
	for _, field := range fields {
		if field.Name == fieldSignature {
			provided = field.Value
			continue
		}
		signed = append(signed, field)
		values[field.Name] = field.Value
	}
	if provided == "" {
		return nil, errSignatureRequired
	}
	if !strings.EqualFold(Signature(signed, c.passphrase), provided) {
		return nil, ErrInvalidSignature
	}
	if merchant := values[fieldMerchant]; merchant != "" && merchant != c.merchantID {
		return nil, ErrMerchantMismatch
	}

	notification, err := decodeReturn(values[fieldPaymentID], values[fieldOrderID], values[fieldAmount])
	if err != nil {
		return nil, err
	}
	notification.PaymentStatus = values[fieldStatus]
	return notification, nil
}

// ParseReturn decodes the success-page query parameters PayFast appends on return.
func ParseReturn(query url.Values) (*Notification, error) {
	return decodeReturn(query.Get(fieldPaymentID), query.Get(fieldOrderID), query.Get(fieldAmount))
}

func decodeReturn(paymentID, orderID, amount string) (*Notification, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errOrderIDRequired
	}
	if strings.TrimSpace(amount) == "" {
		return nil, errAmountRequired
	}
	cents, err := money.ParseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("payfast amount_gross: %w", err)
	}
	return &Notification{
		PaymentID:   strings.TrimSpace(paymentID),
		OrderID:     orderID,
		AmountCents: cents,
	}, nil
}

// ParseFields splits an application/x-www-form-urlencoded body preserving order.
func ParseFields(body string) ([]Field, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.New("payfast body is empty")
	}
	parts := strings.Split(body, "&")
	fields := make([]Field, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		rawName, rawValue, _ := strings.Cut(part, "=")
		name, err := url.QueryUnescape(rawName)
		if err != nil {
			return nil, fmt.Errorf("decode field name %q: %w", rawName, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decode field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Value: value})
	}
	return fields, nil
}

func compact(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, field := range fields {
		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}
		out = append(out, Field{Name: field.Name, Value: value})
	}
	return out
}

func encode(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field.Name+"="+quote(field.Value))
	}
	return strings.Join(parts, "&")
}

func quote(value string) string {
	return url.QueryEscape(value)
}
