// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) []byte {
	t.Helper()
	text, err := GenerateKey()
	require.NoError(t, err)
	key, err := DecodeKey(text)
	require.NoError(t, err)
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := mustKey(t)

	for _, plaintext := range []string{
		"",
		"hi",
		"exactly sixteen.",
		"a longer message spanning multiple AES blocks, with unicode: приві",
	} {
		ciphertext, err := Encrypt(plaintext, key)
		require.NoError(t, err)

		got, err := Decrypt(ciphertext, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	key := mustKey(t)

	c1, err := Encrypt("same plaintext", key)
	require.NoError(t, err)
	c2, err := Encrypt("same plaintext", key)
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2, "fresh IV per call must change the ciphertext")
}

func TestDecryptWrongKeyFails(t *testing.T) {
	k1 := mustKey(t)
	k2 := mustKey(t)

	ciphertext, err := Encrypt("secret", k1)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, k2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecryptMalformedInput(t *testing.T) {
	key := mustKey(t)

	cases := map[string]string{
		"not base64":       "!!!not-base64!!!",
		"empty":            "",
		"too short":        base64.StdEncoding.EncodeToString([]byte("short")),
		"iv only":          base64.StdEncoding.EncodeToString(make([]byte, 16)),
		"unaligned length": base64.StdEncoding.EncodeToString(make([]byte, 33)),
	}
	for name, input := range cases {
		_, err := Decrypt(input, key)
		assert.ErrorIs(t, err, ErrDecryption, name)
	}
}

func TestDecodeKey(t *testing.T) {
	text, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, text, 64)

	key, err := DecodeKey(text)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = DecodeKey("zz" + text[2:])
	assert.ErrorIs(t, err, ErrKeyDecode)

	_, err = DecodeKey(strings.Repeat("ab", 16))
	assert.ErrorIs(t, err, ErrKeyDecode, "16-byte key is too short")
}
