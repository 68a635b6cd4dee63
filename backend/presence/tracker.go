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

// Package presence tracks which users currently have the messages list or a
// specific conversation open. The state is ephemeral and best-effort: it
// lives in process memory, starts empty, is rebuilt from live client events
// and is never persisted. Losing it only affects future unseen decisions,
// never stored data.
package presence

import "sync"

// Tracker is the presence query/update surface. Every operation is
// idempotent and error-free; a user with no entry is simply away.
type Tracker interface {
	EnterList(userID string)
	LeaveList(userID string)
	EnterConversation(userID, partnerID string)
	LeaveConversation(userID string)
	// Drop clears all presence for a user, used on transport disconnect.
	Drop(userID string)

	IsOnList(userID string) bool
	IsViewing(userID, partnerID string) bool
}

// state is one user's position in the Away -> OnList -> OnList+Viewing
// machine. A nil map entry means Away; onList is implied true while a
// partner is set, because a conversation can only be opened from the list.
type state struct {
	onList  bool
	partner string // empty when no conversation is open
}

// MemoryTracker is the single-instance Tracker backed by a process-wide
// map. Cross-user operations never contend beyond the map lock itself.
type MemoryTracker struct {
	mu    sync.RWMutex
	users map[string]state
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{users: make(map[string]state)}
}

func (t *MemoryTracker) EnterList(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.users[userID]
	s.onList = true
	t.users[userID] = s
}

// LeaveList drops the user back to Away entirely: leaving the list closes
// any conversation opened from it.
func (t *MemoryTracker) LeaveList(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.users, userID)
}

func (t *MemoryTracker) EnterConversation(userID, partnerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.users[userID] = state{onList: true, partner: partnerID}
}

func (t *MemoryTracker) LeaveConversation(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.users[userID]
	if !ok {
		return
	}
	s.partner = ""
	t.users[userID] = s
}

func (t *MemoryTracker) Drop(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.users, userID)
}

func (t *MemoryTracker) IsOnList(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.users[userID].onList
}

func (t *MemoryTracker) IsViewing(userID, partnerID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.users[userID]
	return s.partner != "" && s.partner == partnerID
}
