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

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/efchatnet/efdm/backend/chat"
	"github.com/efchatnet/efdm/backend/connections"
	"github.com/efchatnet/efdm/backend/middleware"
	"github.com/efchatnet/efdm/backend/models"
	"github.com/efchatnet/efdm/backend/presence"
)

const (
	readDeadline   = 90 * time.Second // survives two missed 30s heartbeats
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
	commandTimeout = 15 * time.Second
	readLimit      = int64(16 << 10)
)

// wsEvent is the frame shape for every server->client push.
type wsEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// wsCommand is the frame shape for every client->server message.
type wsCommand struct {
	Action     string `json:"action"`
	ReceiverID string `json:"receiver_id,omitempty"`
	PartnerID  string `json:"partner_id,omitempty"`
	Text       string `json:"text,omitempty"`
	MessageID  int64  `json:"message_id,omitempty"`
}

// wsConn adapts one websocket to connections.Conn. gorilla/websocket allows
// a single concurrent writer, so every write goes through the mutex.
type wsConn struct {
	id   string
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Push(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(wsEvent{Event: event, Payload: payload})
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// WSHandler owns the live transport: it binds connections, feeds presence
// transitions and client commands into the core, and unbinds on disconnect.
type WSHandler struct {
	upgrader   websocket.Upgrader
	registry   *connections.Registry
	tracker    presence.Tracker
	dispatcher *chat.Dispatcher
}

func NewWSHandler(registry *connections.Registry, tracker presence.Tracker, dispatcher *chat.Dispatcher) *WSHandler {
	return &WSHandler{
		upgrader: websocket.Upgrader{
			// Browser websocket requests pass CORS-equivalent checks here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		registry:   registry,
		tracker:    tracker,
		dispatcher: dispatcher,
	}
}

// Connect upgrades the request, binds the connection and starts its read
// loop. One user may connect any number of times; each tab gets its own
// connection id and all of them receive pushes.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Warn("websocket upgrade failed")
		return
	}

	conn := &wsConn{id: uuid.New().String(), conn: ws}
	h.registry.Bind(userID, conn)

	logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"connection_id": conn.id,
	}).Info("websocket connected")

	if err := conn.Push(models.EventConnected, models.ConnectedEvent{ConnectionID: conn.id}); err != nil {
		logrus.WithField("connection_id", conn.id).WithError(err).Warn("connected ack failed")
	}

	go h.readLoop(userID, conn)
}

func (h *WSHandler) readLoop(userID string, conn *wsConn) {
	defer func() {
		h.registry.Unbind(userID, conn.id)
		// Presence follows the last connection out.
		if !h.registry.IsOnline(userID) {
			h.tracker.Drop(userID)
		}
		conn.conn.Close()
		logrus.WithFields(logrus.Fields{
			"user_id":       userID,
			"connection_id": conn.id,
		}).Info("websocket disconnected")
	}()

	conn.conn.SetReadLimit(readLimit)
	conn.conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	stop := make(chan struct{})
	defer close(stop)
	go h.pingLoop(conn, stop)

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithField("user_id", userID).WithError(err).Warn("websocket read error")
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			logrus.WithField("user_id", userID).WithError(err).Warn("malformed websocket command")
			continue
		}
		h.handleCommand(userID, conn, cmd)
	}
}

func (h *WSHandler) pingLoop(conn *wsConn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

// handleCommand dispatches one client command. Presence transitions are
// fire-and-forget; send and the acks report failures back on the same
// connection only, never to other tabs.
func (h *WSHandler) handleCommand(userID string, conn *wsConn, cmd wsCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Action {
	case "enterList":
		h.tracker.EnterList(userID)
	case "leaveList":
		h.tracker.LeaveList(userID)
	case "enterConversation":
		if cmd.PartnerID != "" {
			h.tracker.EnterConversation(userID, cmd.PartnerID)
		}
	case "leaveConversation":
		h.tracker.LeaveConversation(userID)
	case "send":
		if _, err := h.dispatcher.Send(ctx, userID, cmd.ReceiverID, cmd.Text); err != nil {
			h.pushError(conn, err)
		}
	case "markSeen":
		if err := h.dispatcher.MarkSeen(ctx, userID); err != nil {
			h.pushError(conn, err)
		}
	case "rendered":
		if err := h.dispatcher.MarkRendered(ctx, cmd.MessageID, userID); err != nil {
			h.pushError(conn, err)
		}
	case "read":
		if cmd.PartnerID == "" {
			return
		}
		if err := h.dispatcher.MarkRead(ctx, userID, cmd.PartnerID); err != nil {
			h.pushError(conn, err)
		}
	default:
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"action":  cmd.Action,
		}).Warn("unknown websocket command")
	}
}

func (h *WSHandler) pushError(conn *wsConn, err error) {
	if pushErr := conn.Push(models.EventError, models.ErrorEvent{Message: err.Error()}); pushErr != nil {
		logrus.WithField("connection_id", conn.id).WithError(pushErr).Warn("error push failed")
	}
}
