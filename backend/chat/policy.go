// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

// Delivery classifies how a freshly persisted message reaches its receiver.
// The three cases are disjoint and checked in priority order: actively
// viewing this conversation beats merely being on the inbox list, which
// beats being away.
type Delivery int

const (
	// DeliverDirect: receiver has this exact conversation open. Push the
	// message event only; no flag, no badge.
	DeliverDirect Delivery = iota
	// DeliverRefresh: receiver is on the inbox list but in a different
	// conversation (or none). Push the message event plus a refetch signal
	// so the open list updates; no durable flag.
	DeliverRefresh
	// DeliverUnread: receiver is elsewhere. Set the durable unseen flag and
	// push an unread-status event alongside the message event.
	DeliverUnread
)

// DecideDelivery is the single place the unseen decision is made. It is a
// pure function of the receiver's presence booleans so the policy can be
// tested exhaustively.
func DecideDelivery(onList, viewingThisConversation bool) Delivery {
	switch {
	case viewingThisConversation:
		return DeliverDirect
	case onList:
		return DeliverRefresh
	default:
		return DeliverUnread
	}
}
