// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package postgres

import (
	"context"

	"github.com/efchatnet/efdm/backend/models"
)

func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_key, sender_id, receiver_id,
			cipher_for_sender, cipher_for_receiver, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		msg.ConversationKey, msg.SenderID, msg.ReceiverID,
		msg.CipherForSender, msg.CipherForReceiver, msg.SentAt).Scan(&msg.ID)
	return classify(err)
}

func (s *Store) LatestPerConversation(ctx context.Context, userID string) ([]models.StoredInboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_key, m.sender_id, m.receiver_id,
			m.cipher_for_sender, m.cipher_for_receiver, m.sent_at,
			m.rendered, m.read_by_receiver,
			u.id, u.display_name, u.avatar_url
		FROM conversations c
		JOIN messages m ON m.id = c.last_message_id
		JOIN users u ON u.id = CASE WHEN c.user_lo = $1 THEN c.user_hi ELSE c.user_lo END
		WHERE c.user_lo = $1 OR c.user_hi = $1
		ORDER BY c.last_message_at DESC`, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var entries []models.StoredInboxRow
	for rows.Next() {
		var e models.StoredInboxRow
		m := &e.Message
		if err := rows.Scan(&m.ID, &m.ConversationKey, &m.SenderID, &m.ReceiverID,
			&m.CipherForSender, &m.CipherForReceiver, &m.SentAt,
			&m.Rendered, &m.ReadByReceiver,
			&e.CounterpartID, &e.CounterpartName, &e.CounterpartAvatarURL); err != nil {
			return nil, classify(err)
		}
		entries = append(entries, e)
	}
	return entries, classify(rows.Err())
}

func (s *Store) MessagesBetween(ctx context.Context, conversationKey string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_key, sender_id, receiver_id,
			cipher_for_sender, cipher_for_receiver, sent_at,
			rendered, read_by_receiver
		FROM messages
		WHERE conversation_key = $1
		ORDER BY sent_at ASC, id ASC`, conversationKey)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationKey, &m.SenderID, &m.ReceiverID,
			&m.CipherForSender, &m.CipherForReceiver, &m.SentAt,
			&m.Rendered, &m.ReadByReceiver); err != nil {
			return nil, classify(err)
		}
		msgs = append(msgs, m)
	}
	return msgs, classify(rows.Err())
}

// MarkRendered is a best-effort client acknowledgement; the receiver check
// stops a sender (or anyone else) from acking another user's copy.
func (s *Store) MarkRendered(ctx context.Context, messageID int64, receiverID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET rendered = TRUE
		WHERE id = $1 AND receiver_id = $2`,
		messageID, receiverID)
	return classify(err)
}

func (s *Store) MarkReadByReceiver(ctx context.Context, conversationKey, receiverID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read_by_receiver = TRUE
		WHERE conversation_key = $1 AND receiver_id = $2 AND read_by_receiver = FALSE`,
		conversationKey, receiverID)
	return classify(err)
}
