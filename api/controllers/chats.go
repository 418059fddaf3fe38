package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	"github.com/farmersbracket/farmersbracket-backend/api/validators"
	"github.com/farmersbracket/farmersbracket-backend/internal/chats"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

type openChatRequest struct {
	FarmerID uuid.UUID `json:"farmer_id" validate:"required"`
}

type sendMessageRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

func chatsUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable")
}

// ChatOpen returns the caller's conversation with a farmer, creating it once.
func ChatOpen(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, chatsUnavailable())
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body openChatRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		chat, err := svc.Open(r.Context(), userID, body.FarmerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, chat)
	}
}

func ChatList(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, chatsUnavailable())
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListChats(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ChatMessages(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, chatsUnavailable())
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		chatID, err := pathUUID(r, "chatId", "chat id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMessages(r.Context(), chatID, userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ChatSend posts a message and notifies the other participant.
func ChatSend(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, chatsUnavailable())
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		chatID, err := pathUUID(r, "chatId", "chat id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body sendMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		message, err := svc.Send(r.Context(), chats.SendInput{
			ChatID:   chatID,
			SenderID: userID,
			Body:     body.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

func ChatMarkRead(svc chats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, chatsUnavailable())
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		chatID, err := pathUUID(r, "chatId", "chat id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkRead(r.Context(), chatID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
