// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package registry tracks live handles (iterators, transactions) held
// against a DB instance as a set of integer handles allocated from a
// counter, so that Stop can cheaply check "is anything still open"
// without holding references to the iterators or transactions themselves.
package registry

import "sync"

// Handle identifies a slot previously returned by Register.
type Handle uint64

// Registry is a concurrency-safe set of live handles. The zero value is
// ready to use.
type Registry struct {
	mu   sync.Mutex
	next uint64
	live map[Handle]struct{}
}

// Register allocates and returns a new handle, marking it live.
func (r *Registry) Register() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == nil {
		r.live = make(map[Handle]struct{})
	}
	r.next++
	h := Handle(r.next)
	r.live[h] = struct{}{}
	return h
}

// Release marks h no longer live. Releasing an unregistered or
// already-released handle is a no-op, matching the idempotent-release
// contract iterators and transactions expose.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, h)
}

// Len reports the number of currently-live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
