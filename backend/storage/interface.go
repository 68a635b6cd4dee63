// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"context"

	"github.com/efchatnet/efdm/backend/models"
)

type UserStore interface {
	// EnsureUser creates the messaging record for a user on first contact
	// and refreshes display metadata on subsequent calls. The message key
	// is written only on creation; it is immutable afterward.
	EnsureUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SetUnseen(ctx context.Context, userID string, unseen bool) error
}

type MessageStore interface {
	// SaveMessage persists the message and fills in its assigned id.
	SaveMessage(ctx context.Context, msg *models.Message) error
	// LatestPerConversation returns, for every conversation involving the
	// user, its newest message joined with the counterpart's display
	// metadata, ordered newest conversation first.
	LatestPerConversation(ctx context.Context, userID string) ([]models.StoredInboxRow, error)
	// MessagesBetween returns the full history for one conversation key,
	// oldest first.
	MessagesBetween(ctx context.Context, conversationKey string) ([]models.Message, error)
	// MarkRendered flags one message as rendered by its receiver.
	MarkRendered(ctx context.Context, messageID int64, receiverID string) error
	// MarkReadByReceiver flags every message of a conversation addressed to
	// receiverID as read.
	MarkReadByReceiver(ctx context.Context, conversationKey, receiverID string) error
}

type ConversationStore interface {
	// UpsertConversation refreshes the denormalized summary row for a pair.
	UpsertConversation(ctx context.Context, conv models.Conversation) error
}

type Store interface {
	UserStore
	MessageStore
	ConversationStore
}
