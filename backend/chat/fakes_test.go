// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efchatnet/efdm/backend/crypto"
	"github.com/efchatnet/efdm/backend/models"
	"github.com/efchatnet/efdm/backend/storage"
)

// fakeStore is an in-memory storage.Store for exercising the send and read
// paths without a database.
type fakeStore struct {
	mu            sync.Mutex
	users         map[string]models.User
	messages      []models.Message
	conversations map[string]models.Conversation
	nextID        int64

	failSave   error // injected SaveMessage failure
	failUnseen error // injected SetUnseen failure
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]models.User),
		conversations: make(map[string]models.Conversation),
		nextID:        1,
	}
}

func (f *fakeStore) addUser(t *testing.T, id, name string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	f.users[id] = models.User{ID: id, DisplayName: name, MessageKey: key}
}

func (f *fakeStore) EnsureUser(ctx context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[user.ID]; ok {
		existing.DisplayName = user.DisplayName
		existing.AvatarURL = user.AvatarURL
		f.users[user.ID] = existing
		return nil
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := user
	return &u, nil
}

func (f *fakeStore) SetUnseen(ctx context.Context, userID string, unseen bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUnseen != nil {
		return f.failUnseen
	}
	user, ok := f.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	user.UnseenMessages = unseen
	f.users[userID] = user
	return nil
}

func (f *fakeStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	msg.ID = f.nextID
	f.nextID++
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeStore) LatestPerConversation(ctx context.Context, userID string) ([]models.StoredInboxRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []models.StoredInboxRow
	for _, conv := range f.conversations {
		if conv.UserLo != userID && conv.UserHi != userID {
			continue
		}
		counterpartID := conv.UserLo
		if counterpartID == userID {
			counterpartID = conv.UserHi
		}
		for _, msg := range f.messages {
			if msg.ID == conv.LastMessageID {
				counterpart := f.users[counterpartID]
				rows = append(rows, models.StoredInboxRow{
					Message:              msg,
					CounterpartID:        counterpartID,
					CounterpartName:      counterpart.DisplayName,
					CounterpartAvatarURL: counterpart.AvatarURL,
				})
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Message.SentAt.After(rows[j].Message.SentAt)
	})
	return rows, nil
}

func (f *fakeStore) MessagesBetween(ctx context.Context, conversationKey string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var msgs []models.Message
	for _, msg := range f.messages {
		if msg.ConversationKey == conversationKey {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].SentAt.Equal(msgs[j].SentAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
	return msgs, nil
}

func (f *fakeStore) MarkRendered(ctx context.Context, messageID int64, receiverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, msg := range f.messages {
		if msg.ID == messageID && msg.ReceiverID == receiverID {
			f.messages[i].Rendered = true
		}
	}
	return nil
}

func (f *fakeStore) MarkReadByReceiver(ctx context.Context, conversationKey, receiverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, msg := range f.messages {
		if msg.ConversationKey == conversationKey && msg.ReceiverID == receiverID {
			f.messages[i].ReadByReceiver = true
		}
	}
	return nil
}

func (f *fakeStore) UpsertConversation(ctx context.Context, conv models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations[conv.ConversationKey] = conv
	return nil
}

// pushedEvent records one PushToUser call.
type pushedEvent struct {
	UserID  string
	Event   string
	Payload any
}

type fakePusher struct {
	mu     sync.Mutex
	events []pushedEvent
}

func (p *fakePusher) PushToUser(userID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushedEvent{UserID: userID, Event: event, Payload: payload})
}

func (p *fakePusher) eventsFor(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var names []string
	for _, e := range p.events {
		if e.UserID == userID {
			names = append(names, e.Event)
		}
	}
	return names
}
