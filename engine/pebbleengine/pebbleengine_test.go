// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package pebbleengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hkvdb/hkv/engine"
	"github.com/hkvdb/hkv/engine/pebbleengine"
)

func openTestEngine(t *testing.T) *pebbleengine.Engine {
	t.Helper()
	e := pebbleengine.New()
	require.NoError(t, e.Open(t.TempDir(), engine.DefaultOptions()))
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	return e
}

func TestPutGetDelete(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Put([]byte("k1"), []byte("v1"), true))
	v, err := e.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	require.NoError(t, e.Delete([]byte("k1"), true))
	_, err = e.Get([]byte("k1"))
	require.ErrorIs(t, err, engine.ErrNotFound)
}

func TestBatchIsAtomic(t *testing.T) {
	e := openTestEngine(t)

	b := e.NewBatch()
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	require.NoError(t, b.Commit(true))
	require.NoError(t, b.Close())

	va, err := e.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), va)
	vb, err := e.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), vb)
}

func TestSnapshotIsolation(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.Put([]byte("x"), []byte("before"), true))

	snap := e.NewSnapshot()
	defer snap.Close()

	require.NoError(t, e.Put([]byte("x"), []byte("after"), true))

	v, err := snap.Get([]byte("x"))
	require.NoError(t, err)
	require.Equal(t, []byte("before"), v)

	live, err := e.Get([]byte("x"))
	require.NoError(t, err)
	require.Equal(t, []byte("after"), live)
}

func TestIterRange(t *testing.T) {
	e := openTestEngine(t)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, e.Put([]byte(k), []byte(k+k), true))
	}

	it, err := e.NewIter(engine.IterOptions{
		LowerBound: []byte("b"),
		UpperBound: []byte("d"),
	})
	require.NoError(t, err)
	defer it.Close()

	var got []string
	for ok := it.First(); ok; ok = it.Next() {
		got = append(got, string(it.Key()))
	}
	require.Equal(t, []string{"b", "c"}, got)
}

func TestIterReverse(t *testing.T) {
	e := openTestEngine(t)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, e.Put([]byte(k), []byte(k), true))
	}

	it, err := e.NewIter(engine.IterOptions{Reverse: true})
	require.NoError(t, err)
	defer it.Close()

	var got []string
	for ok := it.First(); ok; ok = it.Next() {
		got = append(got, string(it.Key()))
	}
	require.Equal(t, []string{"c", "b", "a"}, got)
}
