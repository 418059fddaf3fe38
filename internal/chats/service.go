package chats

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

const (
	maxMessageLength = 2000
	previewLength    = 80
)

type chatStore interface {
	FindOrCreate(ctx context.Context, customerID, farmerID uuid.UUID, now time.Time) (*models.Chat, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Chat, error)
	AddMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, chatID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, chatID, readerID uuid.UUID, at time.Time) (int64, error)
	UnreadCounts(ctx context.Context, chatIDs []uuid.UUID, readerID uuid.UUID) (map[uuid.UUID]int64, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Names(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message, link string) error
}

// Service is customer to farmer messaging.
type Service interface {
	Open(ctx context.Context, customerID, farmerID uuid.UUID) (*ChatDTO, error)
	Send(ctx context.Context, input SendInput) (*MessageDTO, error)
	ListChats(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[ChatDTO], error)
	ListMessages(ctx context.Context, chatID, userID uuid.UUID, params pagination.Params) (*pagination.Page[MessageDTO], error)
	MarkRead(ctx context.Context, chatID, userID uuid.UUID) (int64, error)
}

// SendInput is a message from one chat participant.
type SendInput struct {
	ChatID   uuid.UUID
	SenderID uuid.UUID
	Body     string
}

// ServiceParams wires chat dependencies. Notifier is optional.
type ServiceParams struct {
	Repo     chatStore
	Users    userDirectory
	Notifier notifier
	Logger   *logger.Logger
}

type service struct {
	repo     chatStore
	users    userDirectory
	notifier notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the messaging service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: params.Repo, users: params.Users, notifier: params.Notifier, logg: logg, now: time.Now}, nil
}

// Open returns the single chat for the pair; repeated calls return the same chat.
func (s *service) Open(ctx context.Context, customerID, farmerID uuid.UUID) (*ChatDTO, error) {
	if farmerID == uuid.Nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"farmer_id": "is required"})
	}
	if customerID == farmerID {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"farmer_id": "cannot open a chat with yourself"})
	}
	farmer, err := s.users.FindByID(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	if farmer.Role != enums.RoleFarmer {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"farmer_id": "is not a farmer"})
	}

	chat, _, err := s.repo.FindOrCreate(ctx, customerID, farmerID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	dto := newChatDTO(*chat, customerID)
	dto.CounterpartName = farmer.FullName
	return &dto, nil
}

func (s *service) Send(ctx context.Context, input SendInput) (*MessageDTO, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"body": "is required"})
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"body": fmt.Sprintf("must be at most %d characters", maxMessageLength)})
	}
	chat, err := s.participantChat(ctx, input.ChatID, input.SenderID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ChatID:    chat.ID,
		SenderID:  input.SenderID,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.AddMessage(ctx, message); err != nil {
		return nil, err
	}

	s.notifyRecipient(ctx, chat, input.SenderID, body)
	dto := newMessageDTO(*message, input.SenderID)
	return &dto, nil
}

func (s *service) ListChats(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[ChatDTO], error) {
	cursor, err := pagination.Parse(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": "invalid cursor"})
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListForUser(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	page := pagination.Build(rows, limit, func(c models.Chat) pagination.Cursor {
		return pagination.Cursor{CreatedAt: activity(c), ID: c.ID}
	})

	chatIDs := make([]uuid.UUID, 0, len(page.Items))
	counterparts := make([]uuid.UUID, 0, len(page.Items))
	for _, chat := range page.Items {
		chatIDs = append(chatIDs, chat.ID)
		counterparts = append(counterparts, chat.Counterpart(userID))
	}
	names, err := s.users.Names(ctx, counterparts)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.UnreadCounts(ctx, chatIDs, userID)
	if err != nil {
		return nil, err
	}

	items := make([]ChatDTO, 0, len(page.Items))
	for _, chat := range page.Items {
		dto := newChatDTO(chat, userID)
		dto.CounterpartName = names[dto.CounterpartID]
		dto.Unread = unread[chat.ID]
		items = append(items, dto)
	}
	return &pagination.Page[ChatDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) ListMessages(ctx context.Context, chatID, userID uuid.UUID, params pagination.Params) (*pagination.Page[MessageDTO], error) {
	cursor, err := pagination.Parse(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": "invalid cursor"})
	}
	if _, err := s.participantChat(ctx, chatID, userID); err != nil {
		return nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListMessages(ctx, chatID, cursor, limit)
	if err != nil {
		return nil, err
	}
	page := pagination.Build(rows, limit, func(m models.Message) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	items := make([]MessageDTO, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, newMessageDTO(row, userID))
	}
	return &pagination.Page[MessageDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) MarkRead(ctx context.Context, chatID, userID uuid.UUID) (int64, error) {
	if _, err := s.participantChat(ctx, chatID, userID); err != nil {
		return 0, err
	}
	return s.repo.MarkRead(ctx, chatID, userID, s.now().UTC())
}

func (s *service) participantChat(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	if chatID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chat id required")
	}
	chat, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant in this chat")
	}
	return chat, nil
}

// notifyRecipient is best effort; the message is already stored.
func (s *service) notifyRecipient(ctx context.Context, chat *models.Chat, senderID uuid.UUID, body string) {
	if s.notifier == nil {
		return
	}
	recipient := chat.Counterpart(senderID)
	title := "New message"
	if names, err := s.users.Names(ctx, []uuid.UUID{senderID}); err == nil && names[senderID] != "" {
		title = "New message from " + names[senderID]
	}
	err := s.notifier.Notify(ctx, recipient, enums.NotificationTypeMessage, title, preview(body), "/messages/"+chat.ID.String())
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"chat_id": chat.ID.String(), "recipient_id": recipient.String()})
		s.logg.Error(logCtx, "chat notification failed", err)
	}
}

func activity(chat models.Chat) time.Time {
	if chat.LastMessageAt != nil {
		return *chat.LastMessageAt
	}
	return chat.CreatedAt
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= previewLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewLength]) + "..."
}
