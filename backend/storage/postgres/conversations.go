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

func (s *Store) UpsertConversation(ctx context.Context, conv models.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (conversation_key, user_lo, user_hi,
			last_message_id, last_message_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (conversation_key) DO UPDATE
		SET last_message_id = $4, last_message_at = $5`,
		conv.ConversationKey, conv.UserLo, conv.UserHi,
		conv.LastMessageID, conv.LastMessageAt)
	return classify(err)
}
