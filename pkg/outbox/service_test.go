package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/dbtest"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t, dbtest.OutboxEventsDDL, dbtest.OutboxOrderPaidIndexDDL)
	repo := NewRepository(conn)
	return NewService(repo, logger.Nop()), repo, conn
}

func TestEmitWritesEnvelope(t *testing.T) {
	svc, repo, conn := newTestService(t)
	orderID := uuid.New()
	actor := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: actor, Role: enums.RoleCustomer},
			Data:          map[string]any{"total_cents": 4550},
		})
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)

	var env PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	assert.Equal(t, rows[0].ID, env.EventID)
	assert.Equal(t, "order.created", env.EventType)
	assert.Equal(t, CurrentVersion, env.Version)
	assert.Equal(t, actor, env.Actor.UserID)
	assert.JSONEq(t, `{"total_cents":4550}`, string(env.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	svc, repo, conn := newTestService(t)

	boom := errors.New("insert items failed")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitValidation(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()

	assert.Error(t, svc.Emit(ctx, nil, DomainEvent{EventType: enums.EventOrderPaid, AggregateID: uuid.New()}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: "nope", AggregateID: uuid.New()}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventOrderPaid}))
}

func TestEmitOnceDeduplicatesOrderPaid(t *testing.T) {
	svc, repo, conn := newTestService(t)
	orderID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          map[string]string{"gateway": "stripe"},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitOnce(context.Background(), tx, event)
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRepositoryLifecycle(t *testing.T) {
	_, repo, conn := newTestService(t)
	now := time.Now().UTC()

	old := models.OutboxEvent{ID: uuid.New(), OutboxRecord: orderRecord(), CreatedAt: now.Add(-time.Hour)}
	fresh := models.OutboxEvent{ID: uuid.New(), OutboxRecord: orderRecord(), CreatedAt: now}
	require.NoError(t, repo.Insert(conn, &old))
	require.NoError(t, repo.Insert(conn, &fresh))

	rows, err := repo.FetchUnpublishedForPublish(conn, 1, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, old.ID, rows[0].ID, "oldest first")

	require.NoError(t, repo.MarkFailedTx(conn, old.ID, errors.New("pubsub unavailable")))
	require.NoError(t, repo.MarkTerminalTx(conn, fresh.ID, errors.New("bad payload"), 3))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "pubsub unavailable", *rows[0].LastError)

	require.NoError(t, repo.MarkPublishedTx(conn, old.ID))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the terminal row stays unpublished")
	assert.Equal(t, fresh.ID, rows[0].ID)

	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", old.ID).
		Update("published_at", now.Add(-40*24*time.Hour)).Error)
	deleted, err := repo.DeletePublishedBefore(now.Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestRepositoryRequiresTransaction(t *testing.T) {
	_, repo, _ := newTestService(t)

	_, err := repo.FetchUnpublishedForPublish(nil, 10, 0)
	assert.ErrorIs(t, err, errTxRequired)
	assert.ErrorIs(t, repo.MarkPublishedTx(nil, uuid.New()), errTxRequired)
	assert.ErrorIs(t, NewDLQRepository(nil).InsertTx(nil, models.OutboxDLQ{}), errTxRequired)
}

func TestDLQInsertTruncatesMessage(t *testing.T) {
	conn := dbtest.Open(t, dbtest.OutboxDLQDDL)
	repo := NewDLQRepository(conn)
	eventID := uuid.New()
	long := strings.Repeat("x", lastErrorMaxLen+50)

	require.NoError(t, repo.InsertTx(conn, models.OutboxDLQ{
		EventID:      eventID,
		OutboxRecord: orderRecord(),
		ErrorReason:  enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage: &long,
		AttemptCount: 10,
	}))

	var stored models.OutboxDLQ
	require.NoError(t, conn.Where("event_id = ?", eventID).First(&stored).Error)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, stored.ErrorReason)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, lastErrorMaxLen)
	assert.Equal(t, 10, stored.AttemptCount)
}

func TestDLQInsertRejectsUnknownReason(t *testing.T) {
	conn := dbtest.Open(t, dbtest.OutboxDLQDDL)
	err := NewDLQRepository(conn).InsertTx(conn, models.OutboxDLQ{
		EventID:      uuid.New(),
		OutboxRecord: orderRecord(),
		ErrorReason:  "gave_up",
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxDLQ{}).Count(&count).Error)
	assert.Zero(t, count)
}

func orderRecord() models.OutboxRecord {
	return models.OutboxRecord{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
	}
}
