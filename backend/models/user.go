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

package models

import "time"

// User is the messaging view of an account: the server-held symmetric key
// used to encrypt that user's copy of every message, the durable unseen
// flag, and the display metadata pushed alongside live message events.
//
// MessageKey is minted once at registration (hex-encoded 32 bytes) and is
// immutable afterward; there is no rotation path.
type User struct {
	ID             string    `json:"id" db:"id"`
	DisplayName    string    `json:"display_name" db:"display_name"`
	AvatarURL      string    `json:"avatar_url" db:"avatar_url"`
	MessageKey     string    `json:"-" db:"message_key"`
	UnseenMessages bool      `json:"unseen_messages" db:"unseen_messages"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
