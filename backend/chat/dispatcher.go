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

// Package chat is the messaging core: conversation identity, the unseen
// delivery policy, the send path and the decrypt-on-read queries.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/efchatnet/efdm/backend/crypto"
	"github.com/efchatnet/efdm/backend/models"
	"github.com/efchatnet/efdm/backend/presence"
	"github.com/efchatnet/efdm/backend/storage"
)

// EventPusher delivers an event to whatever live connections a user has.
// Implementations never return an error: push delivery is best-effort by
// contract and failures stay inside the transport layer.
type EventPusher interface {
	PushToUser(userID, event string, payload any)
}

// Dispatcher owns the send path. The caller's result is decided entirely
// by validation, encryption and persistence; everything after persistence
// (flag write, live push) is best-effort.
type Dispatcher struct {
	store    storage.Store
	presence presence.Tracker
	pusher   EventPusher
}

func NewDispatcher(store storage.Store, tracker presence.Tracker, pusher EventPusher) *Dispatcher {
	return &Dispatcher{store: store, presence: tracker, pusher: pusher}
}

// Send encrypts text once per participant, persists the message under the
// derived conversation key with a server-side timestamp, then reconciles
// the receiver's unseen flag against their current presence and pushes
// live events to any bound connections.
func (d *Dispatcher) Send(ctx context.Context, senderID, receiverID, text string) (*models.Message, error) {
	if senderID == "" || receiverID == "" || strings.TrimSpace(text) == "" {
		return nil, ErrValidation
	}
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}

	sender, senderKey, err := d.loadKeyed(ctx, senderID)
	if err != nil {
		return nil, err
	}
	_, receiverKey, err := d.loadKeyed(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	cipherForSender, err := crypto.Encrypt(text, senderKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt for sender: %w", err)
	}
	cipherForReceiver, err := crypto.Encrypt(text, receiverKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt for receiver: %w", err)
	}

	msg := &models.Message{
		ConversationKey:   DeriveConversationKey(senderID, receiverID),
		SenderID:          senderID,
		ReceiverID:        receiverID,
		CipherForSender:   cipherForSender,
		CipherForReceiver: cipherForReceiver,
		SentAt:            time.Now().UTC(),
	}
	if err := d.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	// From here on the send has succeeded; the summary row and everything
	// presence-related is reconciliation around an already durable message.
	lo, hi := OrderPair(senderID, receiverID)
	if err := d.store.UpsertConversation(ctx, models.Conversation{
		ConversationKey: msg.ConversationKey,
		UserLo:          lo,
		UserHi:          hi,
		LastMessageID:   msg.ID,
		LastMessageAt:   msg.SentAt,
	}); err != nil {
		logrus.WithField("conversation_key", msg.ConversationKey).
			WithError(err).Warn("conversation summary update failed")
	}

	d.deliver(ctx, sender, msg, text)
	return msg, nil
}

// deliver applies the presence policy and pushes events to the receiver.
func (d *Dispatcher) deliver(ctx context.Context, sender *models.User, msg *models.Message, text string) {
	delivery := DecideDelivery(
		d.presence.IsOnList(msg.ReceiverID),
		d.presence.IsViewing(msg.ReceiverID, msg.SenderID),
	)

	if delivery == DeliverUnread {
		if err := d.store.SetUnseen(ctx, msg.ReceiverID, true); err != nil {
			logrus.WithField("user_id", msg.ReceiverID).
				WithError(err).Warn("unseen flag update failed")
		}
	}

	d.pusher.PushToUser(msg.ReceiverID, models.EventNewMessage, models.NewMessageEvent{
		SenderID:          msg.SenderID,
		Text:              text,
		SentAt:            msg.SentAt,
		SenderDisplayName: sender.DisplayName,
		SenderAvatarURL:   sender.AvatarURL,
	})

	switch delivery {
	case DeliverRefresh:
		d.pusher.PushToUser(msg.ReceiverID, models.EventFetchMessages, nil)
	case DeliverUnread:
		d.pusher.PushToUser(msg.ReceiverID, models.EventUnreadMessages, nil)
	}
}

// loadKeyed fetches a user and decodes their message key, failing closed:
// a missing user or empty key aborts the send rather than degrading to
// plaintext.
func (d *Dispatcher) loadKeyed(ctx context.Context, userID string) (*models.User, []byte, error) {
	user, err := d.store.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("%w: user %s", ErrMissingKey, userID)
		}
		return nil, nil, err
	}
	if user.MessageKey == "" {
		return nil, nil, fmt.Errorf("%w: user %s", ErrMissingKey, userID)
	}
	key, err := crypto.DecodeKey(user.MessageKey)
	if err != nil {
		// Corrupt key material is a data problem, scream accordingly.
		logrus.WithField("user_id", userID).WithError(err).Error("stored message key is corrupt")
		return nil, nil, err
	}
	return user, key, nil
}

// MarkSeen clears the durable unseen flag. Idempotent: clearing an already
// clear flag is a successful no-op.
func (d *Dispatcher) MarkSeen(ctx context.Context, userID string) error {
	return d.store.SetUnseen(ctx, userID, false)
}

// MarkRendered records the client's best-effort rendered acknowledgement.
func (d *Dispatcher) MarkRendered(ctx context.Context, messageID int64, receiverID string) error {
	return d.store.MarkRendered(ctx, messageID, receiverID)
}

// MarkRead flags the whole conversation with partnerID as read by userID.
func (d *Dispatcher) MarkRead(ctx context.Context, userID, partnerID string) error {
	return d.store.MarkReadByReceiver(ctx, DeriveConversationKey(userID, partnerID), userID)
}
