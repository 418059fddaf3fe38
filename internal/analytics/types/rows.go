package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema. One row is written
// per order lifecycle event; columns that do not apply to an event are null.
type OrderEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	OrderID       string             `bigquery:"order_id"`
	UserID        *string            `bigquery:"user_id"`
	PaymentMethod *string            `bigquery:"payment_method"`
	Gateway       *string            `bigquery:"gateway"`
	StatusFrom    *string            `bigquery:"status_from"`
	StatusTo      *string            `bigquery:"status_to"`
	PaymentStatus *string            `bigquery:"payment_status"`
	Currency      *string            `bigquery:"currency"`
	SubtotalCents *int64             `bigquery:"subtotal_cents"`
	TotalCents    *int64             `bigquery:"total_cents"`
	PaidCents     *int64             `bigquery:"paid_cents"`
	ItemCount     *int64             `bigquery:"item_count"`
	PromoCode     *string            `bigquery:"promo_code"`
	Lines         cbigquery.NullJSON `bigquery:"lines"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}
