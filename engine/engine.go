// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package engine defines the thin contract the rest of this module uses to
// talk to an underlying ordered key-value engine, and the
// tuning Options recognised at open time. The concrete
// implementation, in the pebbleengine subpackage, binds this contract to
// github.com/cockroachdb/pebble. hkv deliberately does not expose
// engine-native optimistic transactions here: Pebble has none, so the
// Transaction type in the root package synthesizes one from Batch +
// Snapshot plus its own conflict tracker.
package engine

import "github.com/cockroachdb/errors"

// ErrNotFound is returned by Get/Snapshot.Get when the key does not exist.
// It is never returned as a wrapped error from MultiGet's per-key slot;
// that slot is simply nil.
var ErrNotFound = errors.New("engine: key not found")

// Compression selects the engine's own block compression, independent of
// any value-level compression applied above it (valuecodec.Compression).
type Compression int

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionZstd
)

// InfoLogLevel names a verbosity for the engine's own diagnostic logging.
// The pebbleengine implementation accepts it in Options but does not pass
// it to Pebble, so it has no effect on what the Logger receives.
type InfoLogLevel int

const (
	InfoLogLevelError InfoLogLevel = iota
	InfoLogLevelWarn
	InfoLogLevelInfo
	InfoLogLevelDebug
)

// Logger is the minimal logging sink the engine writes its own diagnostics
// to. DB wires this to a zap-backed adaptor (see logging.go in the root
// package).
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// Options configures Open. The zero value is not valid; use
// DefaultOptions() and override individual fields.
type Options struct {
	CreateIfMissing      bool
	ErrorIfExists        bool
	CacheSize            int64
	WriteBufferSize      int
	BlockSize            int
	Compression          Compression
	MaxOpenFiles         int
	BlockRestartInterval int
	MaxFileSize          int64
	InfoLogLevel         InfoLogLevel
	Logger               Logger
}

// DefaultOptions returns the tuning defaults a fresh store opens with.
func DefaultOptions() Options {
	return Options{
		CreateIfMissing:      true,
		CacheSize:            8 << 20,
		WriteBufferSize:      4 << 20,
		BlockSize:            4 << 10,
		Compression:          CompressionSnappy,
		MaxOpenFiles:         1000,
		BlockRestartInterval: 16,
		MaxFileSize:          64 << 20,
		InfoLogLevel:         InfoLogLevelInfo,
	}
}

// KV is a single key/value pair, used by Iterator's batching helpers.
type KV struct {
	Key   []byte
	Value []byte
}

// IterOptions bounds an Iterator. Bounds are absolute engine keys (already
// prefixed with any level encoding by the caller); nil means unbounded on
// that side.
type IterOptions struct {
	LowerBound []byte
	UpperBound []byte
	Reverse    bool
}

// Engine is the contract the rest of this module programs against.
type Engine interface {
	Open(path string, opts Options) error
	Close() error

	Get(key []byte) ([]byte, error)
	Put(key, value []byte, sync bool) error
	Delete(key []byte, sync bool) error
	MultiGet(keys [][]byte) ([][]byte, error)

	NewBatch() Batch
	NewSnapshot() Snapshot
	NewIter(opts IterOptions) (Iterator, error)

	Flush() error
	Compact(start, end []byte) error
}

// Batch is an atomic group of writes applied together or not at all.
type Batch struct {
	impl BatchImpl
}

// BatchImpl is what a concrete engine's batch must provide; Batch wraps it
// so callers get a concrete, non-interface value.
type BatchImpl interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit(sync bool) error
	Close() error
}

func NewBatchFrom(impl BatchImpl) Batch { return Batch{impl: impl} }

func (b Batch) Put(key, value []byte) error { return b.impl.Put(key, value) }
func (b Batch) Delete(key []byte) error     { return b.impl.Delete(key) }
func (b Batch) Commit(sync bool) error      { return b.impl.Commit(sync) }
func (b Batch) Close() error                { return b.impl.Close() }

// Snapshot is a point-in-time read view, unaffected by later writes.
type Snapshot interface {
	Get(key []byte) ([]byte, error)
	NewIter(opts IterOptions) (Iterator, error)
	Close() error
}

// Iterator is a positionable cursor over an engine or snapshot's keyspace.
type Iterator interface {
	SeekGE(key []byte) bool
	SeekLT(key []byte) bool
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error

	// NextMany advances up to n times, collecting key/value pairs, and
	// reports whether the iterator is still valid afterward. It lets a
	// caller collect entries in batches instead of calling through the
	// interface once per entry.
	NextMany(n int) (kvs []KV, stillValid bool)
}
