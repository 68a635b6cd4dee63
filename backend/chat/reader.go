// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/efchatnet/efdm/backend/crypto"
	"github.com/efchatnet/efdm/backend/models"
	"github.com/efchatnet/efdm/backend/storage"
)

// Reader is the decrypt-on-read query side. Listing queries skip individual
// rows that fail to decrypt (logged, not fatal): one corrupt row must not
// blank a whole inbox.
type Reader struct {
	store storage.Store
}

func NewReader(store storage.Store) *Reader {
	return &Reader{store: store}
}

// Inbox returns the newest message of every conversation involving userID,
// newest conversation first, each decrypted with userID's own key using
// whichever ciphertext matches the user's role in that message.
func (r *Reader) Inbox(ctx context.Context, userID string) ([]models.InboxEntry, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	key, err := crypto.DecodeKey(user.MessageKey)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("stored message key is corrupt")
		return nil, err
	}

	rows, err := r.store.LatestPerConversation(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]models.InboxEntry, 0, len(rows))
	for _, row := range rows {
		text, err := crypto.Decrypt(row.Message.CipherFor(userID), key)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":    userID,
				"message_id": row.Message.ID,
			}).WithError(err).Warn("skipping undecryptable inbox message")
			continue
		}
		entries = append(entries, models.InboxEntry{
			Message:              toChatMessage(row.Message, text),
			CounterpartID:        row.CounterpartID,
			CounterpartName:      row.CounterpartName,
			CounterpartAvatarURL: row.CounterpartAvatarURL,
		})
	}
	return entries, nil
}

// Between returns the full history between two users, oldest first. Every
// message is decrypted with the key of its receiver, regardless of which
// participant is asking. That works only because both ciphertexts of a
// message carry the same plaintext; decrypting a message's receiver copy
// with the sender's key would fail, so the key must be chosen per message
// by the message's own receiver, not by the caller.
func (r *Reader) Between(ctx context.Context, userA, userB string) ([]models.ChatMessage, error) {
	keys := make(map[string][]byte, 2)
	for _, id := range []string{userA, userB} {
		user, err := r.store.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		key, err := crypto.DecodeKey(user.MessageKey)
		if err != nil {
			logrus.WithField("user_id", id).WithError(err).Error("stored message key is corrupt")
			return nil, err
		}
		keys[id] = key
	}

	msgs, err := r.store.MessagesBetween(ctx, DeriveConversationKey(userA, userB))
	if err != nil {
		return nil, err
	}

	out := make([]models.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		key, ok := keys[msg.ReceiverID]
		if !ok {
			// Participant closure is guaranteed by the conversation key;
			// a stray row here means the key collided, which is a bug.
			return nil, fmt.Errorf("message %d receiver %s is not a conversation participant", msg.ID, msg.ReceiverID)
		}
		text, err := crypto.Decrypt(msg.CipherForReceiver, key)
		if err != nil {
			logrus.WithField("message_id", msg.ID).
				WithError(err).Warn("skipping undecryptable message")
			continue
		}
		out = append(out, toChatMessage(msg, text))
	}
	return out, nil
}

func toChatMessage(msg models.Message, text string) models.ChatMessage {
	return models.ChatMessage{
		ID:             msg.ID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Text:           text,
		SentAt:         msg.SentAt,
		Rendered:       msg.Rendered,
		ReadByReceiver: msg.ReadByReceiver,
	}
}
