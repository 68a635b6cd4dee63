// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import "time"

// Message is a private message stored once, encrypted twice: one ciphertext
// per participant, each decryptable only with that participant's own key.
// Rows are append-only; only the two acknowledgement flags ever change.
type Message struct {
	ID                int64     `json:"id" db:"id"`
	ConversationKey   string    `json:"conversation_key" db:"conversation_key"`
	SenderID          string    `json:"sender_id" db:"sender_id"`
	ReceiverID        string    `json:"receiver_id" db:"receiver_id"`
	CipherForSender   string    `json:"-" db:"cipher_for_sender"`
	CipherForReceiver string    `json:"-" db:"cipher_for_receiver"`
	SentAt            time.Time `json:"sent_at" db:"sent_at"`
	Rendered          bool      `json:"rendered" db:"rendered"`
	ReadByReceiver    bool      `json:"read_by_receiver" db:"read_by_receiver"`
}

// CipherFor returns the ciphertext readable by userID, which must be one of
// the two participants. The zero string means userID is not a participant.
func (m *Message) CipherFor(userID string) string {
	switch userID {
	case m.SenderID:
		return m.CipherForSender
	case m.ReceiverID:
		return m.CipherForReceiver
	}
	return ""
}

// ChatMessage is a decrypted message as returned to a participant.
type ChatMessage struct {
	ID             int64     `json:"id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sent_at"`
	Rendered       bool      `json:"rendered"`
	ReadByReceiver bool      `json:"read_by_receiver"`
}

// StoredInboxRow is what the store hands back for an inbox query: the
// still-encrypted newest message of one conversation plus the counterpart's
// display metadata. Decryption happens in the read side, not the store.
type StoredInboxRow struct {
	Message              Message
	CounterpartID        string
	CounterpartName      string
	CounterpartAvatarURL string
}

// InboxEntry is the newest message of one conversation, decrypted for the
// requesting user and enriched with the counterpart's display metadata.
type InboxEntry struct {
	Message              ChatMessage `json:"message"`
	CounterpartID        string      `json:"counterpart_id"`
	CounterpartName      string      `json:"counterpart_name"`
	CounterpartAvatarURL string      `json:"counterpart_avatar_url"`
}
