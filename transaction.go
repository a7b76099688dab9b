// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/hkvdb/hkv/engine"
	"github.com/hkvdb/hkv/internal/registry"
	"github.com/hkvdb/hkv/keypath"
)

// txEntry is a buffered write: either a put of bytes or an explicit
// tombstone, represented as a tagged variant rather than as absence from
// the buffer.
type txEntry struct {
	tombstone bool
	value     []byte
}

// Transaction is a snapshot-isolated read/write buffer over a DB.
// Obtain one with DB.Transaction or, for the scoped-acquisition
// pattern, DB.WithTransaction.
type Transaction struct {
	db     *DB
	id     uint64
	snap   engine.Snapshot
	handle registry.Handle

	mu       sync.Mutex
	buffer   map[string]txEntry
	observed map[string]uint64 // encoded key -> conflict-tracker sequence seen when touched

	successHooks []func()
	failureHooks []func(error)
	finallyHooks []func(error)

	committed   bool
	rolledBack  bool
	finalized   bool
}

// Transaction creates a new transaction: a snapshot is taken immediately
// and an id allocated monotonically.
func (db *DB) Transaction() (*Transaction, error) {
	if err := db.requireRunning(); err != nil {
		return nil, err
	}
	tx := &Transaction{
		db:       db,
		id:       db.nextTxID.Add(1),
		snap:     db.eng.NewSnapshot(),
		buffer:   make(map[string]txEntry),
		observed: make(map[string]uint64),
		handle:   db.txns.Register(),
	}
	db.metrics.LiveTxns.Inc()
	return tx, nil
}

// WithTransaction implements the scoped-acquisition pattern:
// it creates a transaction, runs fn, commits if fn returned nil and rolls
// back otherwise, and always finalizes — on every exit path, including a
// panic, which it re-raises after rollback and finalize run.
func (db *DB) WithTransaction(fn func(tx *Transaction) error) (err error) {
	tx, err := db.Transaction()
	if err != nil {
		return err
	}
	defer func() {
		r := recover()
		if r != nil && err == nil {
			err = errors.Newf("hkv: transaction panic: %v", r)
		}
		if err != nil {
			_ = tx.Rollback(err)
		} else {
			err = tx.Commit()
		}
		tx.finalize()
		if r != nil {
			panic(r)
		}
	}()
	err = fn(tx)
	return err
}

func (tx *Transaction) terminal() bool { return tx.committed || tx.rolledBack }

func (tx *Transaction) requireActive() error {
	if tx.terminal() {
		return ErrTransactionTerminal
	}
	return nil
}

// Get returns the buffered value for kp if the transaction wrote (or
// tombstoned) it, else reads through the snapshot.
func (tx *Transaction) Get(k keypath.Key, raw bool, dst any) (found bool, err error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.getLocked(k, raw, dst, false)
}

// GetForUpdate behaves like Get but additionally records the key for
// conflict detection at commit: if any other transaction commits a write
// to this key after this transaction's snapshot was taken, Commit fails
// with ErrConflict.
func (tx *Transaction) GetForUpdate(k keypath.Key, raw bool, dst any) (found bool, err error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.getLocked(k, raw, dst, true)
}

func (tx *Transaction) getLocked(k keypath.Key, raw bool, dst any, forUpdate bool) (bool, error) {
	if err := tx.requireActive(); err != nil {
		return false, err
	}
	enc, err := encodeDataKey(k)
	if err != nil {
		return false, err
	}
	if forUpdate {
		tx.recordObserved(enc)
	}
	if e, ok := tx.buffer[string(enc)]; ok {
		if e.tombstone {
			return false, nil
		}
		if err := tx.db.decodeValue(e.value, raw, dst); err != nil {
			return false, err
		}
		return true, nil
	}
	stored, err := tx.snap.Get(enc)
	if err == engine.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, wrapEngineErr(err, "hkv: transaction get")
	}
	if err := tx.db.decodeValue(stored, raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (tx *Transaction) recordObserved(encKey []byte) {
	k := string(encKey)
	if _, ok := tx.observed[k]; !ok {
		tx.observed[k] = tx.db.tracker.Observe(encKey)
	}
}

// Put buffers a write of v under k; it is not visible to other
// transactions, nor to non-transactional reads, until Commit succeeds.
func (tx *Transaction) Put(k keypath.Key, v any, raw bool) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.requireActive(); err != nil {
		return err
	}
	enc, err := encodeDataKey(k)
	if err != nil {
		return err
	}
	stored, err := tx.db.encodeValue(v, raw)
	if err != nil {
		return err
	}
	tx.recordObserved(enc)
	tx.buffer[string(enc)] = txEntry{value: stored}
	return nil
}

// Delete buffers a tombstone for k.
func (tx *Transaction) Delete(k keypath.Key) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.requireActive(); err != nil {
		return err
	}
	enc, err := encodeDataKey(k)
	if err != nil {
		return err
	}
	tx.recordObserved(enc)
	tx.buffer[string(enc)] = txEntry{tombstone: true}
	return nil
}

// OnSuccess queues fn to run, in FIFO order with other success hooks, only
// if Commit succeeds.
func (tx *Transaction) OnSuccess(fn func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.successHooks = append(tx.successHooks, fn)
}

// OnFailure queues fn to run, receiving the triggering error, only if the
// transaction rolls back (including a failed Commit).
func (tx *Transaction) OnFailure(fn func(error)) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.failureHooks = append(tx.failureHooks, fn)
}

// OnFinally queues fn to run after either outcome, receiving the
// triggering error (nil on success).
func (tx *Transaction) OnFinally(fn func(error)) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.finallyHooks = append(tx.finallyHooks, fn)
}

// Commit attempts to apply the buffered write set atomically. It fails
// with ErrConflict if any key this transaction wrote or read-for-update
// was committed by another transaction since this one's snapshot was
// taken; on that or any other failure it automatically rolls back.
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	if err := tx.requireActive(); err != nil {
		tx.mu.Unlock()
		return err
	}

	start := time.Now()
	if tx.db.tracker.Conflicts(tx.observed) {
		tx.mu.Unlock()
		tx.db.metrics.Conflicts.Inc()
		rollbackErr := tx.Rollback(ErrConflict)
		tx.db.observe("commit", start, "conflict")
		if rollbackErr != nil {
			return rollbackErr
		}
		return ErrConflict
	}

	keys := make([][]byte, 0, len(tx.buffer))
	b := tx.db.eng.NewBatch()
	for k, e := range tx.buffer {
		keys = append(keys, []byte(k))
		var err error
		if e.tombstone {
			err = b.Delete([]byte(k))
		} else {
			err = b.Put([]byte(k), e.value)
		}
		if err != nil {
			b.Close()
			tx.mu.Unlock()
			rollbackErr := tx.Rollback(err)
			if rollbackErr != nil {
				return rollbackErr
			}
			return wrapEngineErr(err, "hkv: transaction batch build")
		}
	}
	commitErr := b.Commit(true)
	b.Close()
	if commitErr != nil {
		tx.mu.Unlock()
		rollbackErr := tx.Rollback(commitErr)
		tx.db.observe("commit", start, "error")
		if rollbackErr != nil {
			return rollbackErr
		}
		return wrapEngineErr(commitErr, "hkv: transaction commit")
	}

	tx.db.tracker.Commit(keys)
	tx.committed = true
	successHooks := tx.successHooks
	finallyHooks := tx.finallyHooks
	tx.mu.Unlock()

	tx.db.logger.Debug("hkv: transaction committed", zap.Uint64("id", tx.id), zap.Int("writes", len(keys)))
	tx.db.observe("commit", start, "ok")
	for _, h := range successHooks {
		h()
	}
	for _, h := range finallyHooks {
		h(nil)
	}
	tx.releaseSnapshot()
	return nil
}

// Rollback discards the write buffer and runs failure then finally hooks,
// each receiving cause (which may be nil for a caller-initiated rollback
// with no particular triggering error). Rollback is idempotent once
// entered: calling it again is a no-op returning nil.
func (tx *Transaction) Rollback(cause error) error {
	tx.mu.Lock()
	if tx.terminal() {
		tx.mu.Unlock()
		return nil
	}
	tx.rolledBack = true
	tx.buffer = nil
	failureHooks := tx.failureHooks
	finallyHooks := tx.finallyHooks
	tx.mu.Unlock()

	tx.db.logger.Debug("hkv: transaction rolled back", zap.Uint64("id", tx.id), zap.Error(cause))
	for _, h := range failureHooks {
		h(cause)
	}
	for _, h := range finallyHooks {
		h(cause)
	}
	tx.releaseSnapshot()
	return nil
}

func (tx *Transaction) releaseSnapshot() {
	tx.db.txns.Release(tx.handle)
	tx.db.metrics.LiveTxns.Dec()
	_ = tx.snap.Close()
}

// finalize releases resources tied to the transaction, idempotently. An
// on-disk write buffer would wipe a transactions/{id}/... scratch
// partition here; this implementation keeps the write buffer purely in
// memory, so finalize has nothing left to remove on disk.
func (tx *Transaction) finalize() {
	tx.mu.Lock()
	already := tx.finalized
	tx.finalized = true
	tx.mu.Unlock()
	if already {
		return
	}
	if !tx.terminal() {
		_ = tx.Rollback(nil)
	}
}
