// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package connections

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []string
	fail   bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Push(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection gone")
	}
	c.events = append(c.events, event)
	return nil
}

func TestBindUnbind(t *testing.T) {
	r := NewRegistry()

	assert.Empty(t, r.ConnectionsFor("alice"))
	assert.False(t, r.IsOnline("alice"))

	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}
	r.Bind("alice", c1)
	r.Bind("alice", c2)

	assert.Len(t, r.ConnectionsFor("alice"), 2, "multi-tab keeps both connections")
	assert.True(t, r.IsOnline("alice"))

	r.Unbind("alice", "c1")
	conns := r.ConnectionsFor("alice")
	require.Len(t, conns, 1)
	assert.Equal(t, "c2", conns[0].ID())

	r.Unbind("alice", "c2")
	assert.Empty(t, r.ConnectionsFor("alice"))
	assert.False(t, r.IsOnline("alice"))

	// Unbinding an unknown user or connection is a no-op.
	r.Unbind("alice", "c2")
	r.Unbind("nobody", "cx")
}

func TestPushToUserFansOut(t *testing.T) {
	r := NewRegistry()
	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}
	r.Bind("alice", c1)
	r.Bind("alice", c2)

	r.PushToUser("alice", "newMessage", nil)

	assert.Equal(t, []string{"newMessage"}, c1.events)
	assert.Equal(t, []string{"newMessage"}, c2.events)
}

func TestPushFailureIsSwallowed(t *testing.T) {
	r := NewRegistry()
	dead := &fakeConn{id: "dead", fail: true}
	live := &fakeConn{id: "live"}
	r.Bind("alice", dead)
	r.Bind("alice", live)

	// Must not panic or skip the healthy connection.
	r.PushToUser("alice", "newMessage", nil)

	assert.Equal(t, []string{"newMessage"}, live.events)
}

func TestPushToOfflineUserIsNoop(t *testing.T) {
	r := NewRegistry()
	r.PushToUser("nobody", "newMessage", nil)
}

func TestConcurrentBindUnbind(t *testing.T) {
	r := NewRegistry()

	const n = 64
	var wg sync.WaitGroup

	// Bind n connections concurrently, then unbind the even ones
	// concurrently. Whatever the interleaving, the surviving set must be
	// exactly binds minus unbinds.
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Bind("alice", &fakeConn{id: fmt.Sprintf("c%d", i)})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i += 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Unbind("alice", fmt.Sprintf("c%d", i))
		}(i)
	}
	wg.Wait()

	conns := r.ConnectionsFor("alice")
	require.Len(t, conns, n/2)

	got := make(map[string]bool, len(conns))
	for _, c := range conns {
		got[c.ID()] = true
	}
	for i := 1; i < n; i += 2 {
		assert.True(t, got[fmt.Sprintf("c%d", i)], "c%d should survive", i)
	}
}
