// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import "time"

// Conversation is a denormalized summary row for one user pair, keyed by
// the derived conversation key. UserLo < UserHi always holds; both columns
// and the key itself are recomputed from the participants on every write,
// never taken from a client. The row is a read optimization only: it can be
// rebuilt from the messages table at any time.
type Conversation struct {
	ConversationKey string    `json:"conversation_key" db:"conversation_key"`
	UserLo          string    `json:"user_lo" db:"user_lo"`
	UserHi          string    `json:"user_hi" db:"user_hi"`
	LastMessageID   int64     `json:"last_message_id" db:"last_message_id"`
	LastMessageAt   time.Time `json:"last_message_at" db:"last_message_at"`
}
