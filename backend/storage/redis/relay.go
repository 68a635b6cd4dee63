// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const notifyPrefix = "dm:notify:" // dm:notify:{userId} - event envelopes

// LocalPusher is the in-process delivery target a Relay fans out to,
// implemented by connections.Registry.
type LocalPusher interface {
	PushToUser(userID, event string, payload any)
}

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Relay routes pushed events through redis pub/sub so that every instance,
// including the publishing one, delivers to whatever connections it holds
// locally. With a single instance it degenerates to an in-process loop;
// with many it is what keeps cross-instance delivery working. Delivery
// remains best-effort either way: publish failures are logged, never
// returned.
type Relay struct {
	rdb   *redis.Client
	local LocalPusher
}

func NewRelay(rdb *redis.Client, local LocalPusher) *Relay {
	return &Relay{rdb: rdb, local: local}
}

// PushToUser publishes the event onto the user's channel.
func (r *Relay) PushToUser(userID, event string, payload any) {
	env := envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"event":   event,
			}).WithError(err).Warn("drop event: payload not serializable")
			return
		}
		env.Payload = data
	}
	data, _ := json.Marshal(env)
	if err := r.rdb.Publish(context.Background(), notifyPrefix+userID, data).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"event":   event,
		}).WithError(err).Warn("publish event failed")
	}
}

// Run subscribes to all user channels and forwards received envelopes to
// local connections. Blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.PSubscribe(ctx, notifyPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID := strings.TrimPrefix(msg.Channel, notifyPrefix)
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logrus.WithField("channel", msg.Channel).
					WithError(err).Warn("malformed event envelope")
				continue
			}
			var payload any
			if len(env.Payload) > 0 {
				payload = env.Payload
			}
			r.local.PushToUser(userID, env.Event, payload)
		}
	}
}
