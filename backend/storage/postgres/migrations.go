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

package postgres

func (s *Store) Migrate() error {
	migrations := []string{
		// Messaging users: server-held message key, durable unseen flag,
		// display metadata pushed with live events
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			avatar_url VARCHAR(1024) NOT NULL DEFAULT '',
			message_key VARCHAR(64) NOT NULL,
			unseen_messages BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Messages: append-only, one ciphertext per participant.
		// id is the monotonic message identity assigned at persistence
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			conversation_key VARCHAR(128) NOT NULL,
			sender_id VARCHAR(255) NOT NULL,
			receiver_id VARCHAR(255) NOT NULL,
			cipher_for_sender TEXT NOT NULL,
			cipher_for_receiver TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL,
			rendered BOOLEAN NOT NULL DEFAULT FALSE,
			read_by_receiver BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		// History reads are always per conversation in time order
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_key, sent_at, id)`,

		// Denormalized per-pair summary, rebuilt on every send. user_lo and
		// user_hi are the canonically ordered participants; the key is
		// always re-derivable from them
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_key VARCHAR(128) PRIMARY KEY,
			user_lo VARCHAR(255) NOT NULL,
			user_hi VARCHAR(255) NOT NULL,
			last_message_id BIGINT NOT NULL,
			last_message_at TIMESTAMPTZ NOT NULL,
			CONSTRAINT ordered_users CHECK (user_lo < user_hi)
		)`,

		// Inbox lookups scan by either participant
		`CREATE INDEX IF NOT EXISTS idx_conversations_lo
		ON conversations(user_lo, last_message_at DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_conversations_hi
		ON conversations(user_hi, last_message_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return classify(err)
		}
	}

	return nil
}
