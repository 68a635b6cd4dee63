// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

import (
	"errors"

	"github.com/efchatnet/efdm/backend/storage"
)

// Sentinel errors returned by the messaging core. Callers match them with
// errors.Is; the HTTP layer maps them onto status codes.
var (
	// ErrMissingKey means one of the two parties has no message key. A send
	// fails closed in this case; plaintext is never stored as a fallback.
	ErrMissingKey = errors.New("missing encryption key")

	// ErrSelfMessage rejects sender == receiver.
	ErrSelfMessage = errors.New("cannot message yourself")

	// ErrValidation covers malformed input (empty text, empty ids).
	ErrValidation = errors.New("invalid message")
)

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
