// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/efchatnet/efdm/backend/chat"
	"github.com/efchatnet/efdm/backend/crypto"
	"github.com/efchatnet/efdm/backend/middleware"
	"github.com/efchatnet/efdm/backend/models"
	"github.com/efchatnet/efdm/backend/storage"
)

type MessageHandler struct {
	dispatcher *chat.Dispatcher
	reader     *chat.Reader
	users      storage.UserStore
}

func NewMessageHandler(dispatcher *chat.Dispatcher, reader *chat.Reader, users storage.UserStore) *MessageHandler {
	return &MessageHandler{dispatcher: dispatcher, reader: reader, users: users}
}

// Register creates the caller's messaging record, minting their message key
// on first contact. Repeat calls only refresh display metadata.
func (h *MessageHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		writeError(w, err)
		return
	}
	err = h.users.EnsureUser(r.Context(), models.User{
		ID:          claims.UserID,
		DisplayName: claims.DisplayName,
		AvatarURL:   claims.AvatarURL,
		MessageKey:  key,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

// Send accepts a plaintext message for one receiver. The sender identity
// always comes from the token, never the body.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	senderID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ReceiverID string `json:"receiver_id"`
		Text       string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.dispatcher.Send(r.Context(), senderID, req.ReceiverID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message_id": msg.ID,
		"sent_at":    msg.SentAt,
		"status":     "sent",
	})
}

// Inbox returns the latest message of every conversation the caller is in.
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := h.reader.Inbox(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": entries,
		"count":         len(entries),
	})
}

// History returns the full conversation between the caller and one partner.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	partnerID := mux.Vars(r)["userId"]

	msgs, err := h.reader.Between(r.Context(), userID, partnerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// MarkSeen clears the caller's durable unseen flag.
func (h *MessageHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.dispatcher.MarkSeen(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "seen"})
}

// Unseen reports the caller's current unseen flag; the unreadMessages push
// event tells clients to hit this.
func (h *MessageHandler) Unseen(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"unseen_messages": user.UnseenMessages})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the core error taxonomy onto HTTP statuses. Storage
// outages surface as 503 so clients can retry; everything unexpected is a
// logged 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation), errors.Is(err, chat.ErrSelfMessage):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, chat.ErrMissingKey):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrUnavailable):
		http.Error(w, "Service unavailable, retry later", http.StatusServiceUnavailable)
	default:
		logrus.WithError(err).Error("request failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
