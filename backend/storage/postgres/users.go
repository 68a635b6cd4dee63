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

// EnsureUser inserts the messaging record on first contact. On conflict
// only the display metadata is refreshed; message_key is deliberately
// absent from the update list, keeping the key immutable after mint.
func (s *Store) EnsureUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, avatar_url, message_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET display_name = $2, avatar_url = $3`,
		user.ID, user.DisplayName, user.AvatarURL, user.MessageKey)
	return classify(err)
}

func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, avatar_url, message_key, unseen_messages, created_at
		FROM users WHERE id = $1`, userID).Scan(
		&user.ID, &user.DisplayName, &user.AvatarURL,
		&user.MessageKey, &user.UnseenMessages, &user.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

// SetUnseen writes the durable unseen flag. Writing the value it already
// holds is harmless, which is what makes MarkSeen idempotent.
func (s *Store) SetUnseen(ctx context.Context, userID string, unseen bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET unseen_messages = $2 WHERE id = $1`,
		userID, unseen)
	return classify(err)
}
