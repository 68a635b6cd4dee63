// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideDelivery(t *testing.T) {
	cases := []struct {
		name    string
		onList  bool
		viewing bool
		want    Delivery
	}{
		{"away", false, false, DeliverUnread},
		{"on list only", true, false, DeliverRefresh},
		{"viewing", true, true, DeliverDirect},
		// Viewing implies on-list in practice, but the policy must still
		// prioritize viewing if presence ever reports them inconsistently.
		{"viewing without list", false, true, DeliverDirect},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DecideDelivery(tc.onList, tc.viewing), tc.name)
	}
}
