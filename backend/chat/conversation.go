// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

import (
	"crypto/sha256"
	"encoding/hex"
)

// maxRawKeyLen keeps the raw pair form inside the conversation_key column
// (VARCHAR(128)) with room to spare.
const maxRawKeyLen = 120

// DeriveConversationKey returns the canonical identifier for the
// conversation between two users. The pair is sorted before joining, so
// DeriveConversationKey(a, b) == DeriveConversationKey(b, a). Identity
// pairs too long for the raw form collapse into a fixed-width hash with a
// distinguishing prefix; ":" never appears in user ids, so the two forms
// cannot collide. The key is always recomputed server-side from the
// participants, never accepted from a client.
func DeriveConversationKey(userA, userB string) string {
	lo, hi := OrderPair(userA, userB)
	raw := lo + ":" + hi
	if len(raw) <= maxRawKeyLen {
		return raw
	}
	sum := sha256.Sum256([]byte(raw))
	return "h:" + hex.EncodeToString(sum[:])
}

// OrderPair returns the two ids in canonical (lexicographic) order.
func OrderPair(userA, userB string) (lo, hi string) {
	if userA < userB {
		return userA, userB
	}
	return userB, userA
}
