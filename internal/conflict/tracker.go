// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package conflict synthesizes optimistic-transaction conflict detection
// on top of an engine (such as Pebble's) that has no native equivalent.
// Every committed write bumps a per-key sequence number in a Tracker; a
// transaction records the sequence number it observed for each key it
// wrote or read-for-update at snapshot time, and Check reports a conflict
// if any of those keys have since advanced.
package conflict

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/swiss"
)

// Tracker maps a fast hash of each touched key to the sequence number of
// its most recent committed write. It is shared by every transaction
// opened against one DB instance.
type Tracker struct {
	mu   sync.Mutex
	seq  uint64
	vers *swiss.Map[uint64, uint64]
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{vers: swiss.New[uint64, uint64](0)}
}

func hashKey(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// Observe returns the current sequence number recorded for key (0 if the
// key has never been committed through this tracker), for a transaction to
// remember at the time it reads or writes the key.
func (t *Tracker) Observe(key []byte) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, _ := t.vers.Get(hashKey(key))
	return v
}

// Commit advances the sequence number for every key in keys, atomically
// with respect to other Commit/Observe calls, and returns the new global
// sequence number assigned to this commit.
func (t *Tracker) Commit(keys [][]byte) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	seq := t.seq
	for _, k := range keys {
		t.vers.Put(hashKey(k), seq)
	}
	return seq
}

// Conflicts reports whether any key in watched has advanced past the
// sequence numbers recorded in observedAt (a key -> sequence map built from
// Observe calls made when the transaction touched each key).
func (t *Tracker) Conflicts(observedAt map[string]uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, observed := range observedAt {
		cur, ok := t.vers.Get(hashKey([]byte(key)))
		if ok && cur > observed {
			return true
		}
	}
	return false
}
