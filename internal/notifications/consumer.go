package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
)

const farmerAlertsConsumer = "farmer-order-alerts"

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message, link string) error
}

type deliveryGuard interface {
	Claim(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

// Consumer tells farmers when a new order contains their produce.
type Consumer struct {
	notifier     notifier
	subscription *pubsub.Subscriber
	guard        deliveryGuard
	logg         *logger.Logger
}

// NewConsumer builds the farmer alert consumer. The subscription may be nil
// when only Handle is used.
func NewConsumer(notifier notifier, subscription *pubsub.Subscriber, guard deliveryGuard, logg *logger.Logger) (*Consumer, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{notifier: notifier, subscription: subscription, guard: guard, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("farmer alerts subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logCtx := c.logg.WithField(ctx, "message_id", msg.ID)
		if err := c.Handle(logCtx, msg.Attributes["event_type"], msg.Data); err != nil {
			c.logg.Error(logCtx, "farmer alert failed", err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Handle processes one outbox envelope. Malformed messages are dropped;
// a returned error means the delivery should be retried.
func (c *Consumer) Handle(ctx context.Context, eventType string, body []byte) error {
	logCtx := c.logg.WithField(ctx, "event_type", eventType)
	if eventType != enums.EventOrderCreated.String() {
		c.logg.Debug(logCtx, "skipping event")
		return nil
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return nil
	}
	var event payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to parse order payload", err)
		return nil
	}
	logCtx = c.logg.WithOrderID(logCtx, event.OrderID.String())

	eventID := envelope.EventID.String()
	claimed, err := c.guard.Claim(ctx, farmerAlertsConsumer, eventID)
	if err != nil {
		return fmt.Errorf("idempotency claim: %w", err)
	}
	if !claimed {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	for _, alert := range farmerAlerts(event) {
		if err := c.notifier.Notify(ctx, alert.farmerID, enums.NotificationTypeOrderPlaced, alert.title, alert.message, alert.link); err != nil {
			_ = c.guard.Release(ctx, farmerAlertsConsumer, eventID)
			return fmt.Errorf("notify farmer %s: %w", alert.farmerID, err)
		}
	}
	c.logg.Info(logCtx, "farmers notified of new order")
	return nil
}

type farmerAlert struct {
	farmerID uuid.UUID
	title    string
	message  string
	link     string
}

// farmerAlerts groups order lines per farmer, preserving first-seen order.
func farmerAlerts(event payloads.OrderCreatedEvent) []farmerAlert {
	type tally struct {
		units int
		cents int64
	}
	order := make([]uuid.UUID, 0)
	totals := make(map[uuid.UUID]*tally)
	for _, line := range event.Lines {
		if line.FarmerID == uuid.Nil {
			continue
		}
		t, ok := totals[line.FarmerID]
		if !ok {
			t = &tally{}
			totals[line.FarmerID] = t
			order = append(order, line.FarmerID)
		}
		t.units += line.Quantity
		t.cents += int64(line.Quantity) * line.UnitPriceCents
	}

	alerts := make([]farmerAlert, 0, len(order))
	for _, farmerID := range order {
		t := totals[farmerID]
		alerts = append(alerts, farmerAlert{
			farmerID: farmerID,
			title:    "New order received",
			message:  fmt.Sprintf("A customer ordered %d item(s) worth R%s from you.", t.units, money.Format(t.cents)),
			link:     "/farmer/orders/" + event.OrderID.String(),
		})
	}
	return alerts
}
