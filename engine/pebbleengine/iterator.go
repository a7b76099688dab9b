// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package pebbleengine

import (
	"github.com/cockroachdb/pebble"

	"github.com/hkvdb/hkv/engine"
)

// iterator implements engine.Iterator over a *pebble.Iterator. reverse
// records which of Next/Prev the generic First/Last/SeekGE/SeekLT dance
// should use for the caller's logical "forward" direction, mirroring
// pebble's own convention of a single iterator type serving both scan
// orders.
type iterator struct {
	it      *pebble.Iterator
	reverse bool
}

func newIterator(it *pebble.Iterator, reverse bool) *iterator {
	return &iterator{it: it, reverse: reverse}
}

func (i *iterator) SeekGE(key []byte) bool { return i.it.SeekGE(key) }
func (i *iterator) SeekLT(key []byte) bool { return i.it.SeekLT(key) }

func (i *iterator) First() bool {
	if i.reverse {
		return i.it.Last()
	}
	return i.it.First()
}

func (i *iterator) Last() bool {
	if i.reverse {
		return i.it.First()
	}
	return i.it.Last()
}

func (i *iterator) Next() bool {
	if i.reverse {
		return i.it.Prev()
	}
	return i.it.Next()
}

func (i *iterator) Prev() bool {
	if i.reverse {
		return i.it.Next()
	}
	return i.it.Prev()
}

func (i *iterator) Valid() bool   { return i.it.Valid() }
func (i *iterator) Key() []byte   { return i.it.Key() }
func (i *iterator) Value() []byte { return i.it.Value() }
func (i *iterator) Error() error  { return i.it.Error() }
func (i *iterator) Close() error  { return i.it.Close() }

func (i *iterator) NextMany(n int) ([]engine.KV, bool) {
	kvs := make([]engine.KV, 0, n)
	for len(kvs) < n && i.Valid() {
		kvs = append(kvs, engine.KV{
			Key:   append([]byte(nil), i.Key()...),
			Value: append([]byte(nil), i.Value()...),
		})
		i.Next()
	}
	return kvs, i.Valid()
}
