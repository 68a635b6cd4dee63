// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/efdm/backend/presence"
	"github.com/efchatnet/efdm/backend/storage"
)

func newTestReader(t *testing.T) (*Reader, *Dispatcher, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.addUser(t, "alice", "Alice")
	store.addUser(t, "bob", "Bob")
	store.addUser(t, "carol", "Carol")
	d := NewDispatcher(store, presence.NewMemoryTracker(), &fakePusher{})
	return NewReader(store), d, store
}

func TestBetweenReturnsOrderedHistory(t *testing.T) {
	r, d, _ := newTestReader(t)
	ctx := context.Background()

	_, err := d.Send(ctx, "alice", "bob", "one")
	require.NoError(t, err)
	_, err = d.Send(ctx, "bob", "alice", "two")
	require.NoError(t, err)
	_, err = d.Send(ctx, "alice", "bob", "three")
	require.NoError(t, err)
	// Unrelated conversation must never bleed in.
	_, err = d.Send(ctx, "alice", "carol", "other thread")
	require.NoError(t, err)

	// Both participants see the identical transcript.
	for _, viewer := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		msgs, err := r.Between(ctx, viewer[0], viewer[1])
		require.NoError(t, err)
		require.Len(t, msgs, 3)

		texts := []string{msgs[0].Text, msgs[1].Text, msgs[2].Text}
		assert.Equal(t, []string{"one", "two", "three"}, texts)

		for i := 1; i < len(msgs); i++ {
			assert.False(t, msgs[i].SentAt.Before(msgs[i-1].SentAt),
				"SentAt must be non-decreasing")
		}
		for _, m := range msgs {
			pair := map[string]bool{m.SenderID: true, m.ReceiverID: true}
			assert.True(t, pair["alice"] && pair["bob"],
				"every message belongs to exactly this pair")
		}
	}
}

func TestBetweenEmptyConversation(t *testing.T) {
	r, _, _ := newTestReader(t)

	msgs, err := r.Between(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestBetweenUnknownUser(t *testing.T) {
	r, _, _ := newTestReader(t)

	_, err := r.Between(context.Background(), "alice", "stranger")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBetweenSkipsCorruptMessage(t *testing.T) {
	r, d, store := newTestReader(t)
	ctx := context.Background()

	_, err := d.Send(ctx, "alice", "bob", "good one")
	require.NoError(t, err)
	_, err = d.Send(ctx, "alice", "bob", "will corrupt")
	require.NoError(t, err)

	store.messages[1].CipherForReceiver = "bm90IHJlYWwgY2lwaGVydGV4dA==" // valid base64, garbage bytes

	msgs, err := r.Between(ctx, "alice", "bob")
	require.NoError(t, err, "one bad row must not abort the listing")
	require.Len(t, msgs, 1)
	assert.Equal(t, "good one", msgs[0].Text)
}

func TestInboxLatestPerConversation(t *testing.T) {
	r, d, _ := newTestReader(t)
	ctx := context.Background()

	_, err := d.Send(ctx, "bob", "alice", "from bob, old")
	require.NoError(t, err)

	_, err = d.Send(ctx, "alice", "bob", "to bob, newest")
	require.NoError(t, err)
	_, err = d.Send(ctx, "carol", "alice", "from carol")
	require.NoError(t, err)

	entries, err := r.Inbox(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2, "one entry per conversation")

	// Newest conversation first; alice decrypts her own copy whether she
	// was sender or receiver of the conversation's last message.
	assert.Equal(t, "carol", entries[0].CounterpartID)
	assert.Equal(t, "Carol", entries[0].CounterpartName)
	assert.Equal(t, "from carol", entries[0].Message.Text)

	assert.Equal(t, "bob", entries[1].CounterpartID)
	assert.Equal(t, "to bob, newest", entries[1].Message.Text)
	assert.Equal(t, "alice", entries[1].Message.SenderID)
}

func TestInboxEmptyForUnknownConversations(t *testing.T) {
	r, _, _ := newTestReader(t)

	entries, err := r.Inbox(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
