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

package integration

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/efchatnet/efdm/backend/chat"
	"github.com/efchatnet/efdm/backend/connections"
	"github.com/efchatnet/efdm/backend/handlers"
	"github.com/efchatnet/efdm/backend/middleware"
	"github.com/efchatnet/efdm/backend/presence"
	"github.com/efchatnet/efdm/backend/storage/postgres"
	redisstore "github.com/efchatnet/efdm/backend/storage/redis"
)

// Messaging packages the private-messaging subsystem as a component a host
// platform embeds: it owns the core wiring but borrows the host's database,
// redis and token settings. The host's own domain (listings, bids,
// favorites) never enters this package.
type Messaging struct {
	store      *postgres.Store
	registry   *connections.Registry
	tracker    presence.Tracker
	relay      *redisstore.Relay
	msgHandler *handlers.MessageHandler
	wsHandler  *handlers.WSHandler
	jwtSecret  string
	jwtIssuer  string
}

// Config holds what the host platform must provide.
type Config struct {
	DB        *sql.DB
	Redis     *goredis.Client
	JWTSecret string
	JWTIssuer string

	// SharedPresence moves presence into redis so a clustered host keeps
	// one consistent view across instances. Single-instance deployments
	// leave it false and presence stays in process memory.
	SharedPresence bool
}

// NewMessaging wires the subsystem and runs its migrations.
func NewMessaging(config *Config) (*Messaging, error) {
	store := postgres.NewStore(config.DB)
	if err := store.Migrate(); err != nil {
		return nil, err
	}

	registry := connections.NewRegistry()

	var tracker presence.Tracker = presence.NewMemoryTracker()
	if config.SharedPresence {
		tracker = redisstore.NewPresenceStore(config.Redis)
	}

	// All pushes travel through redis pub/sub; each instance delivers to
	// the connections it holds locally.
	relay := redisstore.NewRelay(config.Redis, registry)
	dispatcher := chat.NewDispatcher(store, tracker, relay)
	reader := chat.NewReader(store)

	return &Messaging{
		store:      store,
		registry:   registry,
		tracker:    tracker,
		relay:      relay,
		msgHandler: handlers.NewMessageHandler(dispatcher, reader, store),
		wsHandler:  handlers.NewWSHandler(registry, tracker, dispatcher),
		jwtSecret:  config.JWTSecret,
		jwtIssuer:  config.JWTIssuer,
	}, nil
}

// Run starts the push relay loop and blocks until ctx is cancelled.
func (m *Messaging) Run(ctx context.Context) {
	if err := m.relay.Run(ctx); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Error("push relay stopped")
	}
}

// RegisterRoutes mounts the messaging API on the host router. If
// authMiddleware is nil the built-in JWT validation is used.
func (m *Messaging) RegisterRoutes(router *mux.Router, authMiddleware func(http.Handler) http.Handler) {
	api := router.PathPrefix("/api/dm").Subrouter()

	if authMiddleware == nil {
		authMiddleware = middleware.NewAuthMiddleware(m.jwtSecret, m.jwtIssuer)
	}
	api.Use(authMiddleware)

	api.HandleFunc("/register", m.msgHandler.Register).Methods("POST")
	api.HandleFunc("/send", m.msgHandler.Send).Methods("POST")
	api.HandleFunc("/inbox", m.msgHandler.Inbox).Methods("GET")
	api.HandleFunc("/history/{userId}", m.msgHandler.History).Methods("GET")
	api.HandleFunc("/seen", m.msgHandler.MarkSeen).Methods("POST")
	api.HandleFunc("/unseen", m.msgHandler.Unseen).Methods("GET")
	api.HandleFunc("/ws", m.wsHandler.Connect).Methods("GET")
}
