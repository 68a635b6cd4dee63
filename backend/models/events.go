// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import "time"

// Client-facing event names. These are wire compatibility, not style:
// deployed clients subscribe to them verbatim.
const (
	// EventConnected acknowledges a websocket bind; payload: ConnectedEvent.
	EventConnected = "connected"
	// EventNewMessage delivers a message live; payload: NewMessageEvent.
	EventNewMessage = "newMessage"
	// EventFetchMessages tells an open inbox view to refetch. No payload.
	EventFetchMessages = "fetchMessages"
	// EventUnreadMessages tells the client to refetch its unseen flag. No payload.
	EventUnreadMessages = "unreadMessages"
	// EventError reports a failed websocket command back to its own
	// connection; payload: ErrorEvent.
	EventError = "error"
)

// ErrorEvent carries the failure text for a rejected websocket command.
type ErrorEvent struct {
	Message string `json:"message"`
}

// ConnectedEvent carries the server-assigned connection id.
type ConnectedEvent struct {
	ConnectionID string `json:"connection_id"`
}

// NewMessageEvent is pushed to the receiver's live connections. Text is the
// decrypted plaintext: the push happens inside the send, where the
// plaintext is still at hand, so the client never decrypts.
type NewMessageEvent struct {
	SenderID          string    `json:"sender_id"`
	Text              string    `json:"text"`
	SentAt            time.Time `json:"sent_at"`
	SenderDisplayName string    `json:"sender_display_name"`
	SenderAvatarURL   string    `json:"sender_avatar_url"`
}
