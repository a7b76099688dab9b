// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package keypath implements the encoding of hierarchical key paths into a
// single byte string whose unsigned lexicographic order matches the
// ordering contract described in the package-level documentation below, and
// the derivation of range bounds that let a caller enumerate an entire
// subtree with a single bounded scan.
//
// A KeyPath is an ordered list of byte-string parts. All but the last part
// name a nested namespace (the level path); the last part is the key
// itself. Encode produces one byte string per KeyPath such that sorting
// encoded keys by memcmp yields:
//
//  1. level parts compared pairwise, left to right;
//  2. ties on an identical level path broken by the key part;
//  3. when one level path is a strict prefix of the other, the deeper
//     (longer) one sorts first.
//
// Rule 3 is the non-obvious one: a naive concatenation of parts with a
// plain separator sorts the shallower path first, because it is a byte
// prefix of the deeper one. Encode instead precedes every level part with a
// "more levels follow" marker and appends a single "key starts here" marker
// once the level path ends; since the former sorts below the latter, a key
// path that keeps going outranks one that stops at the same point.
package keypath

import "github.com/cockroachdb/errors"

// KeyPath is an ordered sequence of byte-string parts. All but the last
// element form the level path (the namespace); the last element is the key
// part. A KeyPath of length 0 cannot be encoded.
type KeyPath [][]byte

// LevelPath returns the namespace-naming prefix of kp (all but the last
// part). It is empty for a 1-element KeyPath.
func (kp KeyPath) LevelPath() KeyPath {
	if len(kp) == 0 {
		return nil
	}
	return kp[:len(kp)-1]
}

// KeyPart returns the last element of kp, the key itself.
func (kp KeyPath) KeyPart() []byte {
	if len(kp) == 0 {
		return nil
	}
	return kp[len(kp)-1]
}

// Clone returns a deep copy of kp.
func (kp KeyPath) Clone() KeyPath {
	out := make(KeyPath, len(kp))
	for i, p := range kp {
		cp := make([]byte, len(p))
		copy(cp, p)
		out[i] = cp
	}
	return out
}

// Single wraps a single byte-string key part into a 1-element KeyPath, the
// canonicalisation the public API applies whenever a caller passes a bare
// string or byte slice instead of a key path.
func Single(key []byte) KeyPath {
	return KeyPath{key}
}

// Of builds a KeyPath from a variadic list of level parts followed by the
// key part, e.g. Of([]byte("users"), []byte("42")).
func Of(parts ...[]byte) KeyPath {
	return KeyPath(parts)
}

// Append returns a new KeyPath made of kp's parts followed by part; kp is
// not modified.
func (kp KeyPath) Append(part []byte) KeyPath {
	out := make(KeyPath, len(kp)+1)
	copy(out, kp)
	out[len(kp)] = part
	return out
}

// ErrEmptyKeyPath is returned by Encode for a zero-length KeyPath.
var ErrEmptyKeyPath = errors.New("keypath: a key path of length 0 cannot be encoded")
