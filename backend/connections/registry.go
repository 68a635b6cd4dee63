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

// Package connections maps user identities to their live transport
// connections. A user may hold several connections at once (multiple tabs,
// multiple devices); the registry always stores a set per user, never a
// single most-recent handle, and never writes anything durable.
package connections

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Conn is one live transport connection able to receive pushed events.
type Conn interface {
	ID() string
	Push(event string, payload any) error
}

// Registry is the process-wide user -> connection-set map. It starts empty
// and is rebuilt purely from connect/disconnect events.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]map[string]Conn)}
}

// Bind registers a connection for a user. Rebinding the same connection id
// overwrites it.
func (r *Registry) Bind(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]Conn)
		r.users[userID] = set
	}
	set[conn.ID()] = conn
}

// Unbind removes one connection. Removing the last connection removes the
// user's entry entirely, so the map never accumulates empty sets.
func (r *Registry) Unbind(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
	}
}

// ConnectionsFor returns a snapshot of the user's live connections; empty
// when the user is offline.
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[userID]
	conns := make([]Conn, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

// IsOnline reports whether the user has at least one bound connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// PushToUser delivers an event to every connection the user has bound.
// Delivery is best-effort: a connection that fails (typically one racing
// its own disconnect) is logged and skipped, and the failure never reaches
// the caller.
func (r *Registry) PushToUser(userID, event string, payload any) {
	for _, conn := range r.ConnectionsFor(userID) {
		if err := conn.Push(event, payload); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":       userID,
				"connection_id": conn.ID(),
				"event":         event,
			}).WithError(err).Warn("push to connection failed")
		}
	}
}
