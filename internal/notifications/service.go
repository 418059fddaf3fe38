package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Broadcaster pushes realtime payloads to a user's channel. The redis client satisfies it.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload any) error
	NotificationChannel(userID string) string
}

// Service defines notification operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*NotificationDTO, error)
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message, link string) error
	List(ctx context.Context, params ListParams) (*pagination.Page[NotificationDTO], error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// CreateInput is a new in-app notification.
type CreateInput struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Pagination pagination.Params
}

// NotificationDTO is the payload returned by the API and pushed over the stream.
type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
}

func newDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt,
	}
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	broadcast Broadcaster
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires notifications dependencies. The broadcaster is optional;
// without it notifications are only persisted.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, broadcast Broadcaster, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, outbox: outbox, broadcast: broadcast, logg: logg, now: time.Now}, nil
}

// Create persists the notification with its outbox event and then pushes it
// to any open streams for the user.
func (s *service) Create(ctx context.Context, input CreateInput) (*NotificationDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"type": "unknown notification type"})
	}
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message required")
	}

	row := models.Notification{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Type:      input.Type,
		Title:     title,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if link := strings.TrimSpace(input.Link); link != "" {
		row.Link = &link
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationCreated,
			AggregateType: enums.AggregateNotification,
			AggregateID:   row.ID,
			Data: payloads.NotificationCreatedEvent{
				NotificationID: row.ID,
				UserID:         row.UserID,
				Type:           row.Type,
				Title:          row.Title,
				Message:        row.Message,
				Link:           input.Link,
			},
			OccurredAt: row.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	dto := newDTO(row)
	s.push(ctx, dto, input.UserID)
	return &dto, nil
}

func (s *service) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message, link string) error {
	_, err := s.Create(ctx, CreateInput{UserID: userID, Type: kind, Title: title, Message: message, Link: link})
	return err
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[NotificationDTO], error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.Parse(params.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": "invalid cursor"})
	}

	rows, err := s.repo.List(ctx, listNotificationsParams{
		UserID:     params.UserID,
		Limit:      params.Pagination.Limit,
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	page := pagination.Build(rows, params.Pagination.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	out := &pagination.Page[NotificationDTO]{Items: make([]NotificationDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, row := range page.Items {
		out.Items = append(out.Items, newDTO(row))
	}
	return out, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	found, err := s.repo.MarkRead(ctx, userID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	count, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) push(ctx context.Context, dto NotificationDTO, userID uuid.UUID) {
	if s.broadcast == nil {
		return
	}
	body, err := json.Marshal(dto)
	if err != nil {
		s.logg.Error(ctx, "encode realtime notification", err)
		return
	}
	if err := s.broadcast.Publish(ctx, s.broadcast.NotificationChannel(userID.String()), string(body)); err != nil {
		// The row is committed; clients catch up through List.
		s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "realtime notification publish failed: "+err.Error())
	}
}
