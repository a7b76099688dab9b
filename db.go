// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package hkv implements an embedded, transactional, hierarchically
// namespaced key-value store with optional value-level authenticated
// encryption, layered over a pluggable engine.Engine (concretely
// github.com/cockroachdb/pebble via engine/pebbleengine).
package hkv

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/hkvdb/hkv/engine"
	"github.com/hkvdb/hkv/engine/pebbleengine"
	"github.com/hkvdb/hkv/internal/conflict"
	"github.com/hkvdb/hkv/internal/metrics"
	"github.com/hkvdb/hkv/internal/registry"
	"github.com/hkvdb/hkv/internal/workerpool"
	"github.com/hkvdb/hkv/keypath"
	"github.com/hkvdb/hkv/valuecodec"
)

// Reserved root levels every user key path is transparently nested under.
var (
	rootData         = []byte("data")
	rootTransactions = []byte("transactions")
	rootCanary       = []byte("canary")
)

type dbState int32

const (
	stateCreated dbState = iota
	stateRunning
	stateStopped
	stateDestroyed
)

// DB is the top-level store façade. The zero value is not valid;
// construct one with Create.
type DB struct {
	cfg   Config
	state atomic.Int32

	eng    engine.Engine
	codec  *valuecodec.Codec
	logger *zap.Logger

	tracker  *conflict.Tracker
	iters    registry.Registry
	txns     registry.Registry
	metrics  *metrics.Metrics
	poolMu   sync.RWMutex
	pool     *workerpool.Pool
	nextTxID atomic.Uint64
}

// Create constructs a DB bound to cfg. It does not touch disk; call Start
// to open the engine.
func Create(cfg Config, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	db := &DB{
		cfg:     cfg,
		logger:  logger,
		tracker: conflict.New(),
		metrics: metrics.New(nil, ""),
	}
	var suite valuecodec.Suite
	var key []byte
	if cfg.Crypto != nil {
		suite = cfg.Crypto.Suite
		key = cfg.Crypto.Key
	}
	db.codec = valuecodec.New(cfg.Compression, suite, key)
	db.state.Store(int32(stateCreated))
	return db
}

func (db *DB) currentState() dbState { return dbState(db.state.Load()) }

// Start opens the engine, optionally wiping DBPath first (Fresh), clears
// the transactions scratch partition, and runs the canary check. Start is
// idempotent after Stop: calling it again reopens the engine.
func (db *DB) Start() error {
	switch db.currentState() {
	case stateRunning:
		return ErrAlreadyRunning
	case stateDestroyed:
		return ErrDestroyed
	}

	if db.cfg.Fresh {
		if err := os.RemoveAll(db.cfg.DBPath); err != nil {
			return errors.Wrap(err, "hkv: remove existing path for fresh start")
		}
	}

	eng := db.cfg.EngineImpl
	if eng == nil {
		eng = pebbleengine.New()
	}
	engOpts := db.cfg.Engine
	if engOpts.Logger == nil {
		engOpts.Logger = newZapEngineLogger(db.logger)
	}
	if err := eng.Open(db.cfg.DBPath, engOpts); err != nil {
		return errors.Wrap(err, "hkv: open engine")
	}
	db.eng = eng

	if err := db.wipeTransactions(); err != nil {
		_ = db.eng.Close()
		return errors.Wrap(err, "hkv: wipe transactions partition")
	}

	if err := db.runCanaryCheck(); err != nil {
		db.logger.Warn("canary check failed, closing engine", zap.Error(err))
		_ = db.eng.Close()
		return err
	}

	db.state.Store(int32(stateRunning))
	db.logger.Info("hkv: started", zap.String("path", db.cfg.DBPath))
	return nil
}

// Stop closes the engine. It fails with ErrLiveReference if any iterator
// or transaction registered with this DB is still open.
func (db *DB) Stop() error {
	if db.currentState() != stateRunning {
		return ErrNotRunning
	}
	if db.iters.Len() > 0 || db.txns.Len() > 0 {
		return ErrLiveReference
	}
	if err := db.eng.Close(); err != nil {
		return wrapEngineErr(err, "hkv: close engine")
	}
	db.state.Store(int32(stateStopped))
	db.logger.Info("hkv: stopped")
	return nil
}

// Destroy stops the DB if running and removes its on-disk directory.
func (db *DB) Destroy() error {
	if db.currentState() == stateRunning {
		if err := db.Stop(); err != nil {
			return err
		}
	}
	if err := os.RemoveAll(db.cfg.DBPath); err != nil {
		return errors.Wrap(err, "hkv: destroy")
	}
	db.state.Store(int32(stateDestroyed))
	return nil
}

// SetWorkerManager attaches a pool used to offload valuecodec
// encrypt/decrypt calls. It is a performance detail, not a semantic one.
func (db *DB) SetWorkerManager(pool *workerpool.Pool) {
	db.poolMu.Lock()
	defer db.poolMu.Unlock()
	db.pool = pool
}

// UnsetWorkerManager detaches any previously-attached pool.
func (db *DB) UnsetWorkerManager() {
	db.poolMu.Lock()
	defer db.poolMu.Unlock()
	db.pool = nil
}

// Metrics returns this DB's operational metrics.
func (db *DB) Metrics() *metrics.Metrics { return db.metrics }

func (db *DB) wipeTransactions() error {
	lo, hi := keypath.LevelBounds(keypath.KeyPath{rootTransactions})
	return db.clearRange(lo, hi)
}

func (db *DB) clearRange(lo, hi []byte) error {
	it, err := db.eng.NewIter(engine.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return wrapEngineErr(err, "hkv: iterate for clear")
	}
	defer it.Close()
	var keys [][]byte
	for ok := it.First(); ok; ok = it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return wrapEngineErr(err, "hkv: iterate for clear")
	}
	for _, k := range keys {
		if err := db.eng.Delete(k, false); err != nil {
			return wrapEngineErr(err, "hkv: delete during clear")
		}
	}
	return nil
}

// dataKeyPath normalizes k and prefixes it with the reserved data level.
func dataKeyPath(k keypath.Key) (keypath.KeyPath, error) {
	kp, err := keypath.Normalize(k)
	if err != nil {
		return nil, err
	}
	return append(keypath.KeyPath{rootData}, kp...), nil
}

// encodeDataKey normalizes, prefixes, and encodes k in one step.
func encodeDataKey(k keypath.Key) ([]byte, error) {
	kp, err := dataKeyPath(k)
	if err != nil {
		return nil, err
	}
	return keypath.Encode(kp)
}

func (db *DB) requireRunning() error {
	switch db.currentState() {
	case stateRunning:
		return nil
	case stateDestroyed:
		return ErrDestroyed
	default:
		return ErrNotRunning
	}
}

func (db *DB) observe(op string, start time.Time, outcome string) {
	db.metrics.ObserveLatency(op, time.Since(start))
	db.metrics.Ops.WithLabelValues(op, outcome).Inc()
}

// Get decodes the value stored at k into dst and reports found=true, or
// returns (false, nil) if k is absent.
func (db *DB) Get(k keypath.Key, raw bool, dst any) (found bool, err error) {
	start := time.Now()
	defer func() { db.observe("get", start, outcome(err)) }()

	if err := db.requireRunning(); err != nil {
		return false, err
	}
	kp, err := dataKeyPath(k)
	if err != nil {
		return false, err
	}
	enc, err := keypath.Encode(kp)
	if err != nil {
		return false, err
	}
	stored, err := db.eng.Get(enc)
	if err == engine.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, wrapEngineErr(err, "hkv: get")
	}
	if err := db.decodeValue(stored, raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Put serializes (and, if configured, encrypts) v and writes it under k.
func (db *DB) Put(k keypath.Key, v any, raw, sync bool) (err error) {
	start := time.Now()
	defer func() { db.observe("put", start, outcome(err)) }()

	if err := db.requireRunning(); err != nil {
		return err
	}
	kp, err := dataKeyPath(k)
	if err != nil {
		return err
	}
	enc, err := keypath.Encode(kp)
	if err != nil {
		return err
	}
	stored, err := db.encodeValue(v, raw)
	if err != nil {
		return err
	}
	if err := db.eng.Put(enc, stored, sync); err != nil {
		return wrapEngineErr(err, "hkv: put")
	}
	db.logger.Debug("hkv: put", zap.Stringer("key", redactKey(kp)))
	return nil
}

// Delete removes the value stored at k, if any.
func (db *DB) Delete(k keypath.Key, sync bool) (err error) {
	start := time.Now()
	defer func() { db.observe("del", start, outcome(err)) }()

	if err := db.requireRunning(); err != nil {
		return err
	}
	kp, err := dataKeyPath(k)
	if err != nil {
		return err
	}
	enc, err := keypath.Encode(kp)
	if err != nil {
		return err
	}
	if err := db.eng.Delete(enc, sync); err != nil {
		return wrapEngineErr(err, "hkv: delete")
	}
	return nil
}

// BatchOp is one operation in a call to Batch: a put of Value when Delete
// is false, or a delete when Delete is true (Value is then ignored).
type BatchOp struct {
	Key    keypath.Key
	Value  any
	Raw    bool
	Delete bool
}

// Batch applies ops atomically.
func (db *DB) Batch(ops []BatchOp, sync bool) (err error) {
	start := time.Now()
	defer func() { db.observe("batch", start, outcome(err)) }()

	if err := db.requireRunning(); err != nil {
		return err
	}
	b := db.eng.NewBatch()
	defer b.Close()
	for _, op := range ops {
		kp, err := dataKeyPath(op.Key)
		if err != nil {
			return err
		}
		enc, err := keypath.Encode(kp)
		if err != nil {
			return err
		}
		if op.Delete {
			if err := b.Delete(enc); err != nil {
				return wrapEngineErr(err, "hkv: batch delete")
			}
			continue
		}
		stored, err := db.encodeValue(op.Value, op.Raw)
		if err != nil {
			return err
		}
		if err := b.Put(enc, stored); err != nil {
			return wrapEngineErr(err, "hkv: batch put")
		}
	}
	if err := b.Commit(sync); err != nil {
		return wrapEngineErr(err, "hkv: batch commit")
	}
	return nil
}

// Clear iterates keys-only over the scope data+level and deletes each
// (non-atomic).
func (db *DB) Clear(level keypath.Key) error {
	if err := db.requireRunning(); err != nil {
		return err
	}
	lvl, err := dataLevelPath(level)
	if err != nil {
		return err
	}
	lo, hi := keypath.LevelBounds(lvl)
	return db.clearRange(lo, hi)
}

// Count iterates keys-only over the scope data+level and counts entries.
func (db *DB) Count(level keypath.Key) (int, error) {
	if err := db.requireRunning(); err != nil {
		return 0, err
	}
	lvl, err := dataLevelPath(level)
	if err != nil {
		return 0, err
	}
	lo, hi := keypath.LevelBounds(lvl)
	it, err := db.eng.NewIter(engine.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return 0, wrapEngineErr(err, "hkv: count")
	}
	defer it.Close()
	n := 0
	for ok := it.First(); ok; ok = it.Next() {
		n++
	}
	if err := it.Error(); err != nil {
		return 0, wrapEngineErr(err, "hkv: count")
	}
	return n, nil
}

func dataLevelPath(level keypath.Key) (keypath.KeyPath, error) {
	if level == nil {
		return keypath.KeyPath{rootData}, nil
	}
	lvl, err := keypath.Normalize(level)
	if err != nil {
		return nil, err
	}
	return append(keypath.KeyPath{rootData}, lvl...), nil
}

func (db *DB) currentPool() *workerpool.Pool {
	db.poolMu.RLock()
	defer db.poolMu.RUnlock()
	return db.pool
}

func (db *DB) encodeValue(v any, raw bool) ([]byte, error) {
	pool := db.currentPool()
	if pool == nil {
		return db.codec.Serialize(v, raw)
	}
	return pool.Submit(context.Background(), func() ([]byte, error) { return db.codec.Serialize(v, raw) })
}

func (db *DB) decodeValue(stored []byte, raw bool, dst any) error {
	decode := func() error { return db.codec.Deserialize(stored, raw, dst) }
	var err error
	if pool := db.currentPool(); pool != nil {
		_, err = pool.Submit(context.Background(), func() ([]byte, error) { return nil, decode() })
	} else {
		err = decode()
	}
	if err != nil {
		if errors.Is(err, valuecodec.ErrDecryptFailed) {
			return errors.Mark(err, ErrDecrypt)
		}
		if errors.Is(err, valuecodec.ErrParse) {
			return errors.Mark(err, ErrParse)
		}
		return err
	}
	return nil
}

// Compact delegates to the engine's own compaction over [start, end); a
// nil/nil range compacts everything.
func (db *DB) Compact(start, end []byte) error {
	if err := db.requireRunning(); err != nil {
		return err
	}
	return wrapEngineErr(db.eng.Compact(start, end), "hkv: compact")
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
