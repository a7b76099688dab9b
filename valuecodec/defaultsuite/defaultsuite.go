// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package defaultsuite provides a ready-made valuecodec.Suite for callers
// who don't bring their own AEAD, built on
// golang.org/x/crypto/chacha20poly1305. The core never depends on this
// package directly; it only depends on the valuecodec.Suite contract.
package defaultsuite

import (
	"crypto/rand"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// Suite implements valuecodec.Suite with ChaCha20-Poly1305. Each call to
// Encrypt draws a fresh random nonce and prepends it to the ciphertext;
// Decrypt reads it back off the front.
type Suite struct{}

// Encrypt authenticates and encrypts plaintext under key (which must be
// chacha20poly1305.KeySize bytes), prefixing the ciphertext with a random
// nonce.
func (Suite) Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(err, "defaultsuite: invalid key")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "defaultsuite: generate nonce")
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt. A nil, nil return means authentication failed
// (wrong key or corrupted ciphertext), per the valuecodec.Suite contract.
func (Suite) Decrypt(key, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(err, "defaultsuite: invalid key")
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, nil
	}
	nonce, ct := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, nil // authentication failure, not a system error
	}
	return pt, nil
}
