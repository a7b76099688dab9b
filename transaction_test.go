// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	hkv "github.com/hkvdb/hkv"
)

var errBoom = errors.New("boom")

// TestSnapshotIsolation exercises read isolation across a concurrent commit.
func TestSnapshotIsolation(t *testing.T) {
	db := newTestDB(t, nil)

	t1, err := db.Transaction()
	require.NoError(t, err)

	t2, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, t2.Put("hello", "world", false))
	require.NoError(t, t2.Commit())

	var got string
	found, err := t1.Get("hello", false, &got)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, t1.Commit())

	t3, err := db.Transaction()
	require.NoError(t, err)
	found, err = t3.Get("hello", false, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "world", got)
	require.NoError(t, t3.Commit())
}

// TestReadYourWritesWithDelete exercises read-your-writes semantics across a buffered delete.
func TestReadYourWritesWithDelete(t *testing.T) {
	db := newTestDB(t, nil)
	require.NoError(t, db.Put("hello", "world", false, true))

	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put("hello", "another", false))
	require.NoError(t, tx.Delete("hello"))

	var got string
	found, err := tx.Get("hello", false, &got)
	require.NoError(t, err)
	require.False(t, found)

	found, err = db.Get("hello", false, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "world", got)

	require.NoError(t, tx.Commit())

	found, err = db.Get("hello", false, &got)
	require.NoError(t, err)
	require.False(t, found)
}

// TestConflict exercises optimistic conflict detection on commit.
func TestConflict(t *testing.T) {
	db := newTestDB(t, nil)

	t1, err := db.Transaction()
	require.NoError(t, err)
	t2, err := db.Transaction()
	require.NoError(t, err)

	require.NoError(t, t1.Put("k", "v1", false))
	require.NoError(t, t2.Put("k", "v2", false))

	require.NoError(t, t1.Commit())

	var failureCalled, finallyCalled bool
	t2.OnFailure(func(err error) { failureCalled = true })
	t2.OnFinally(func(err error) { finallyCalled = true })

	err = t2.Commit()
	require.ErrorIs(t, err, hkv.ErrConflict)
	require.True(t, failureCalled)
	require.True(t, finallyCalled)

	var got string
	_, err = db.Get("k", false, &got)
	require.NoError(t, err)
	require.Equal(t, "v1", got)
}

func TestTransactionHooksFIFO(t *testing.T) {
	db := newTestDB(t, nil)
	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put("k", "v", false))

	var order []int
	tx.OnSuccess(func() { order = append(order, 1) })
	tx.OnSuccess(func() { order = append(order, 2) })
	tx.OnFinally(func(error) { order = append(order, 3) })

	require.NoError(t, tx.Commit())
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := newTestDB(t, nil)

	sentinel := require.New(t)
	err := db.WithTransaction(func(tx *hkv.Transaction) error {
		if putErr := tx.Put("k", "v", false); putErr != nil {
			return putErr
		}
		return errBoom
	})
	sentinel.ErrorIs(err, errBoom)

	var got string
	found, getErr := db.Get("k", false, &got)
	sentinel.NoError(getErr)
	sentinel.False(found)
}

func TestTransactionTerminalRejectsFurtherOps(t *testing.T) {
	db := newTestDB(t, nil)
	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	err = tx.Put("k", "v", false)
	require.ErrorIs(t, err, hkv.ErrTransactionTerminal)
}

func TestRollbackIdempotent(t *testing.T) {
	db := newTestDB(t, nil)
	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(nil))
	require.NoError(t, tx.Rollback(nil))
}
