// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package storage

import "errors"

var (
	// ErrNotFound: the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable: the store itself is unreachable (connection loss,
	// timeout, server shutdown). Retryable at the caller's discretion and
	// surfaced to clients as service-unavailable, never as a generic
	// failure.
	ErrUnavailable = errors.New("storage unavailable")
)
