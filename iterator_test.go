// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	hkv "github.com/hkvdb/hkv"
)

// TestIteratorLexicographicIntegerOrder checks that packed integer keys iterate in numeric order.
func TestIteratorLexicographicIntegerOrder(t *testing.T) {
	db := newTestDB(t, nil)
	pack := func(n uint32) []byte {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, n)
		return b
	}
	for _, n := range []uint32{100, 3, 4, 42} {
		require.NoError(t, db.Put(pack(n), n, false, true))
	}

	it, err := db.Iterator(nil, hkv.IterOptions{})
	require.NoError(t, err)
	defer it.End()

	var got []uint32
	for it.Next() {
		var v uint32
		require.NoError(t, it.Value(&v))
		got = append(got, v)
	}
	require.NoError(t, it.Error())
	require.Equal(t, []uint32{3, 4, 42, 100}, got)
}

// TestIteratorScopedToLevel exercises level-scoped iteration completeness.
func TestIteratorScopedToLevel(t *testing.T) {
	db := newTestDB(t, nil)
	require.NoError(t, db.Put([]string{"a", "1"}, "a1", false, true))
	require.NoError(t, db.Put([]string{"a", "2"}, "a2", false, true))
	require.NoError(t, db.Put([]string{"a0", "1"}, "a0_1", false, true))
	require.NoError(t, db.Put([]string{"b", "1"}, "b1", false, true))

	it, err := db.Iterator([]string{"a"}, hkv.IterOptions{})
	require.NoError(t, err)
	defer it.End()

	var vals []string
	for it.Next() {
		var v string
		require.NoError(t, it.Value(&v))
		vals = append(vals, v)
	}
	require.NoError(t, it.Error())
	require.Equal(t, []string{"a1", "a2"}, vals)
}

func TestIteratorReverse(t *testing.T) {
	db := newTestDB(t, nil)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, db.Put(k, k, false, true))
	}

	it, err := db.Iterator(nil, hkv.IterOptions{Reverse: true})
	require.NoError(t, err)
	defer it.End()

	var got []string
	for it.Next() {
		var v string
		require.NoError(t, it.Value(&v))
		got = append(got, v)
	}
	require.Equal(t, []string{"c", "b", "a"}, got)
}

func TestIteratorLimit(t *testing.T) {
	db := newTestDB(t, nil)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, db.Put(k, k, false, true))
	}

	it, err := db.Iterator(nil, hkv.IterOptions{Limit: 2})
	require.NoError(t, err)
	defer it.End()

	n := 0
	for it.Next() {
		n++
	}
	require.Equal(t, 2, n)
}

// TestIteratorBoundsWithPrefixSiblingKeys checks Gt/Gte/Lt/Lte bounds where
// one key's key part is a literal byte prefix of a sibling's (here "x" and
// "xy"), which a generic prefix-successor bound miscomputes: "xy" must
// still count as strictly greater than "x".
func TestIteratorBoundsWithPrefixSiblingKeys(t *testing.T) {
	db := newTestDB(t, nil)
	for _, k := range []string{"w", "x", "xy", "z"} {
		require.NoError(t, db.Put(k, k, false, true))
	}

	collect := func(opts hkv.IterOptions) []string {
		it, err := db.Iterator(nil, opts)
		require.NoError(t, err)
		defer it.End()
		var got []string
		for it.Next() {
			var v string
			require.NoError(t, it.Value(&v))
			got = append(got, v)
		}
		require.NoError(t, it.Error())
		return got
	}

	require.Equal(t, []string{"xy", "z"}, collect(hkv.IterOptions{Gt: "x"}))
	require.Equal(t, []string{"x", "xy", "z"}, collect(hkv.IterOptions{Gte: "x"}))
	require.Equal(t, []string{"w"}, collect(hkv.IterOptions{Lt: "x"}))
	require.Equal(t, []string{"w", "x"}, collect(hkv.IterOptions{Lte: "x"}))
}

// TestIteratorSeek checks forward Seek lands on the target key when present
// and that Next continues past it in order.
func TestIteratorSeek(t *testing.T) {
	db := newTestDB(t, nil)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, db.Put(k, k, false, true))
	}

	it, err := db.Iterator(nil, hkv.IterOptions{})
	require.NoError(t, err)
	defer it.End()

	ok, err := it.Seek("b")
	require.NoError(t, err)
	require.True(t, ok)
	var v string
	require.NoError(t, it.Value(&v))
	require.Equal(t, "b", v)

	require.True(t, it.Next())
	require.NoError(t, it.Value(&v))
	require.Equal(t, "c", v)

	// Seeking to an absent key lands on the next key in order.
	ok, err = it.Seek("bb")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, it.Value(&v))
	require.Equal(t, "c", v)
}

// TestIteratorSeekReverse checks reverse Seek lands on the target key when
// present and that Next continues backward in order. This exercises the
// SeekLT path directly: a reverse iterator's Prev/Last are remapped to the
// underlying Next/First, so Seek must not compose through them.
func TestIteratorSeekReverse(t *testing.T) {
	db := newTestDB(t, nil)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, db.Put(k, k, false, true))
	}

	it, err := db.Iterator(nil, hkv.IterOptions{Reverse: true})
	require.NoError(t, err)
	defer it.End()

	ok, err := it.Seek("c")
	require.NoError(t, err)
	require.True(t, ok)
	var v string
	require.NoError(t, it.Value(&v))
	require.Equal(t, "c", v)

	require.True(t, it.Next())
	require.NoError(t, it.Value(&v))
	require.Equal(t, "b", v)

	// Seeking to an absent key lands on the prior key in order.
	ok, err = it.Seek("bb")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, it.Value(&v))
	require.Equal(t, "b", v)
}

// TestIteratorSeekWithPrefixSiblingKeys checks that reverse Seek to a key
// whose key part is a byte prefix of a sibling's ("x" next to "xy") lands
// on the key itself rather than skipping past the sibling.
func TestIteratorSeekWithPrefixSiblingKeys(t *testing.T) {
	db := newTestDB(t, nil)
	for _, k := range []string{"w", "x", "xy", "z"} {
		require.NoError(t, db.Put(k, k, false, true))
	}

	rev, err := db.Iterator(nil, hkv.IterOptions{Reverse: true})
	require.NoError(t, err)
	defer rev.End()

	ok, err := rev.Seek("x")
	require.NoError(t, err)
	require.True(t, ok)
	var v string
	require.NoError(t, rev.Value(&v))
	require.Equal(t, "x", v)
}

// TestTxIteratorSeek checks TxIterator.Seek in both directions, including
// the reverse case on a prefix-sibling pair that previously landed on the
// wrong entry via a SeekGE+Prev composition.
func TestTxIteratorSeek(t *testing.T) {
	db := newTestDB(t, nil)
	for _, k := range []string{"w", "x", "xy", "z"} {
		require.NoError(t, db.Put(k, k, false, true))
	}

	tx, err := db.Transaction()
	require.NoError(t, err)
	defer tx.Rollback(nil)

	fwd, err := tx.Iterator(nil, hkv.IterOptions{})
	require.NoError(t, err)
	defer fwd.End()
	ok, err := fwd.Seek("x")
	require.NoError(t, err)
	require.True(t, ok)
	var v string
	require.NoError(t, fwd.Value(&v))
	require.Equal(t, "x", v)

	rev, err := tx.Iterator(nil, hkv.IterOptions{Reverse: true})
	require.NoError(t, err)
	defer rev.End()
	ok, err = rev.Seek("x")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, rev.Value(&v))
	require.Equal(t, "x", v)
}

// TestTxIteratorMergesBufferAndSnapshot exercises the merge-iteration
// merge algorithm: a transactional iterator must show snapshot
// entries overridden by buffered puts, skip buffered tombstones (and the
// snapshot entries they shadow), and interleave everything in key order.
func TestTxIteratorMergesBufferAndSnapshot(t *testing.T) {
	db := newTestDB(t, nil)
	require.NoError(t, db.Put("a", "a-old", false, true))
	require.NoError(t, db.Put("b", "b-old", false, true))
	require.NoError(t, db.Put("d", "d-old", false, true))

	tx, err := db.Transaction()
	require.NoError(t, err)
	defer tx.Rollback(nil)
	require.NoError(t, tx.Put("b", "b-new", false)) // override
	require.NoError(t, tx.Delete("d"))              // tombstone
	require.NoError(t, tx.Put("c", "c-new", false))  // pure addition

	it, err := tx.Iterator(nil, hkv.IterOptions{})
	require.NoError(t, err)
	defer it.End()

	var got []string
	for it.Next() {
		var v string
		require.NoError(t, it.Value(&v))
		got = append(got, v)
	}
	require.Equal(t, []string{"a-old", "b-new", "c-new"}, got)
}
