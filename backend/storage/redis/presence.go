// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package redis backs the ephemeral messaging state with a shared store for
// multi-instance deployments: presence moves into redis hashes so every
// instance sees the same answer, and pushed events travel over pub/sub so
// a message accepted on one instance reaches connections bound on another.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	presencePrefix = "dm:presence:" // dm:presence:{userId} - hash {on_list, viewing}

	// Presence entries self-expire as a safety net against instances dying
	// without delivering the disconnect. Every transition refreshes it.
	presenceTTL = 12 * time.Hour
)

// PresenceStore implements presence.Tracker on redis. Presence stays
// best-effort even here: a failed round trip is logged and the query
// answers "away", it never propagates an error into a send.
type PresenceStore struct {
	rdb *redis.Client
	ctx context.Context
}

func NewPresenceStore(rdb *redis.Client) *PresenceStore {
	return &PresenceStore{rdb: rdb, ctx: context.Background()}
}

func (s *PresenceStore) key(userID string) string {
	return presencePrefix + userID
}

func (s *PresenceStore) EnterList(userID string) {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(s.ctx, s.key(userID), "on_list", "1")
	pipe.Expire(s.ctx, s.key(userID), presenceTTL)
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.logErr(userID, "EnterList", err)
	}
}

func (s *PresenceStore) LeaveList(userID string) {
	if err := s.rdb.Del(s.ctx, s.key(userID)).Err(); err != nil {
		s.logErr(userID, "LeaveList", err)
	}
}

func (s *PresenceStore) EnterConversation(userID, partnerID string) {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(s.ctx, s.key(userID), "on_list", "1", "viewing", partnerID)
	pipe.Expire(s.ctx, s.key(userID), presenceTTL)
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.logErr(userID, "EnterConversation", err)
	}
}

func (s *PresenceStore) LeaveConversation(userID string) {
	if err := s.rdb.HDel(s.ctx, s.key(userID), "viewing").Err(); err != nil {
		s.logErr(userID, "LeaveConversation", err)
	}
}

func (s *PresenceStore) Drop(userID string) {
	if err := s.rdb.Del(s.ctx, s.key(userID)).Err(); err != nil {
		s.logErr(userID, "Drop", err)
	}
}

func (s *PresenceStore) IsOnList(userID string) bool {
	v, err := s.rdb.HGet(s.ctx, s.key(userID), "on_list").Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		s.logErr(userID, "IsOnList", err)
		return false
	}
	return v == "1"
}

func (s *PresenceStore) IsViewing(userID, partnerID string) bool {
	v, err := s.rdb.HGet(s.ctx, s.key(userID), "viewing").Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		s.logErr(userID, "IsViewing", err)
		return false
	}
	return v != "" && v == partnerID
}

func (s *PresenceStore) logErr(userID, op string, err error) {
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"op":      op,
	}).WithError(err).Warn("redis presence operation failed")
}
