package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
)

type alert struct {
	userID  uuid.UUID
	message string
	link    string
}

type captureNotifier struct {
	alerts []alert
	err    error
}

func (n *captureNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message, link string) error {
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, alert{userID: userID, message: message, link: link})
	return nil
}

type memoryGuard struct {
	claimed  map[string]bool
	released int
}

func (g *memoryGuard) Claim(ctx context.Context, consumer, id string) (bool, error) {
	if g.claimed == nil {
		g.claimed = map[string]bool{}
	}
	key := consumer + ":" + id
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

func (g *memoryGuard) Release(ctx context.Context, consumer, id string) error {
	delete(g.claimed, consumer+":"+id)
	g.released++
	return nil
}

func orderCreatedBody(t *testing.T, event payloads.OrderCreatedEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentVersion,
		EventID:    uuid.New(),
		EventType:  enums.EventOrderCreated.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return body
}

func TestConsumerNotifiesEachFarmerOnce(t *testing.T) {
	notifier := &captureNotifier{}
	guard := &memoryGuard{}
	consumer, err := NewConsumer(notifier, nil, guard, logger.Nop())
	require.NoError(t, err)

	orderID := uuid.New()
	farmerA, farmerB := uuid.New(), uuid.New()
	body := orderCreatedBody(t, payloads.OrderCreatedEvent{
		OrderID: orderID,
		Lines: []payloads.OrderLine{
			{ProductID: uuid.New(), FarmerID: farmerA, Quantity: 2, UnitPriceCents: 1000},
			{ProductID: uuid.New(), FarmerID: farmerB, Quantity: 1, UnitPriceCents: 550},
			{ProductID: uuid.New(), FarmerID: farmerA, Quantity: 1, UnitPriceCents: 250},
		},
	})

	require.NoError(t, consumer.Handle(context.Background(), enums.EventOrderCreated.String(), body))
	require.Len(t, notifier.alerts, 2)
	assert.Equal(t, farmerA, notifier.alerts[0].userID)
	assert.Contains(t, notifier.alerts[0].message, "3 item(s) worth R22.50")
	assert.Equal(t, "/farmer/orders/"+orderID.String(), notifier.alerts[0].link)
	assert.Equal(t, farmerB, notifier.alerts[1].userID)

	require.NoError(t, consumer.Handle(context.Background(), enums.EventOrderCreated.String(), body))
	assert.Len(t, notifier.alerts, 2, "redelivery is ignored")
}

func TestConsumerReleasesClaimOnFailure(t *testing.T) {
	notifier := &captureNotifier{err: errors.New("db down")}
	guard := &memoryGuard{}
	consumer, err := NewConsumer(notifier, nil, guard, logger.Nop())
	require.NoError(t, err)

	body := orderCreatedBody(t, payloads.OrderCreatedEvent{
		OrderID: uuid.New(),
		Lines:   []payloads.OrderLine{{FarmerID: uuid.New(), Quantity: 1, UnitPriceCents: 100}},
	})

	err = consumer.Handle(context.Background(), enums.EventOrderCreated.String(), body)
	require.Error(t, err)
	assert.Equal(t, 1, guard.released)
	assert.Empty(t, guard.claimed)
}

func TestConsumerSkipsOtherEventsAndGarbage(t *testing.T) {
	notifier := &captureNotifier{}
	consumer, err := NewConsumer(notifier, nil, &memoryGuard{}, logger.Nop())
	require.NoError(t, err)

	assert.NoError(t, consumer.Handle(context.Background(), enums.EventOrderPaid.String(), []byte(`{}`)))
	assert.NoError(t, consumer.Handle(context.Background(), enums.EventOrderCreated.String(), []byte(`not json`)))
	assert.Empty(t, notifier.alerts)
}
