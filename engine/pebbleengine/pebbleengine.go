// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package pebbleengine binds the engine.Engine contract to
// github.com/cockroachdb/pebble. It is the only package in this module
// that imports pebble directly; everything above it programs against
// engine.Engine so a different backend could be swapped in without
// touching the key codec, value codec, or transaction logic.
package pebbleengine

import (
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/hkvdb/hkv/engine"
)

// Engine is an engine.Engine backed by a single *pebble.DB.
type Engine struct {
	db *pebble.DB
}

// New returns an unopened Engine. Call Open before use.
func New() *Engine {
	return &Engine{}
}

func toPebbleOptions(opts engine.Options) *pebble.Options {
	po := &pebble.Options{
		ErrorIfExists:    opts.ErrorIfExists,
		ErrorIfNotExists: !opts.CreateIfMissing,
	}
	if opts.CacheSize > 0 {
		po.Cache = pebble.NewCache(opts.CacheSize)
	}
	if opts.MaxOpenFiles > 0 {
		po.MaxOpenFiles = opts.MaxOpenFiles
	}
	if opts.Logger != nil {
		po.Logger = loggerAdaptor{opts.Logger}
	}

	lo := pebble.LevelOptions{}
	if opts.BlockSize > 0 {
		lo.BlockSize = opts.BlockSize
	}
	if opts.BlockRestartInterval > 0 {
		lo.BlockRestartInterval = opts.BlockRestartInterval
	}
	switch opts.Compression {
	case engine.CompressionNone:
		lo.Compression = pebble.NoCompression
	case engine.CompressionZstd:
		lo.Compression = pebble.ZstdCompression
	default:
		lo.Compression = pebble.SnappyCompression
	}
	po.Levels = []pebble.LevelOptions{lo}
	if opts.MaxFileSize > 0 {
		po.Levels[0].TargetFileSize = opts.MaxFileSize
	}
	if opts.WriteBufferSize > 0 {
		po.MemTableSize = opts.WriteBufferSize
	}
	po.EnsureDefaults()
	return po
}

type loggerAdaptor struct {
	l engine.Logger
}

func (a loggerAdaptor) Infof(format string, args ...interface{})  { a.l.Infof(format, args...) }
func (a loggerAdaptor) Fatalf(format string, args ...interface{}) { a.l.Fatalf(format, args...) }

// Open opens (and, per opts.CreateIfMissing, creates) the Pebble store at
// path.
func (e *Engine) Open(path string, opts engine.Options) error {
	db, err := pebble.Open(path, toPebbleOptions(opts))
	if err != nil {
		return errors.Wrapf(err, "pebbleengine: open %q", path)
	}
	e.db = db
	return nil
}

func (e *Engine) Close() error {
	if e.db == nil {
		return nil
	}
	return errors.Wrap(e.db.Close(), "pebbleengine: close")
}

func writeOpts(sync bool) *pebble.WriteOptions {
	if sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func (e *Engine) Get(key []byte) ([]byte, error) {
	v, closer, err := e.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "pebbleengine: get")
	}
	out := append([]byte(nil), v...)
	if closeErr := closer.Close(); closeErr != nil {
		return nil, errors.Wrap(closeErr, "pebbleengine: get close")
	}
	return out, nil
}

func (e *Engine) Put(key, value []byte, sync bool) error {
	return errors.Wrap(e.db.Set(key, value, writeOpts(sync)), "pebbleengine: put")
}

func (e *Engine) Delete(key []byte, sync bool) error {
	return errors.Wrap(e.db.Delete(key, writeOpts(sync)), "pebbleengine: delete")
}

func (e *Engine) MultiGet(keys [][]byte) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, err := e.Get(k)
		if err == engine.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Engine) NewBatch() engine.Batch {
	return engine.NewBatchFrom(&batch{b: e.db.NewBatch()})
}

func (e *Engine) NewSnapshot() engine.Snapshot {
	return &snapshot{s: e.db.NewSnapshot()}
}

func toPebbleIterOptions(opts engine.IterOptions) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: opts.LowerBound,
		UpperBound: opts.UpperBound,
	}
}

func (e *Engine) NewIter(opts engine.IterOptions) (engine.Iterator, error) {
	it, err := e.db.NewIter(toPebbleIterOptions(opts))
	if err != nil {
		return nil, errors.Wrap(err, "pebbleengine: new iter")
	}
	return newIterator(it, opts.Reverse), nil
}

func (e *Engine) Flush() error {
	_, err := e.db.AsyncFlush()
	return errors.Wrap(err, "pebbleengine: flush")
}

func (e *Engine) Compact(start, end []byte) error {
	return errors.Wrap(e.db.Compact(start, end, true /* parallelize */), "pebbleengine: compact")
}

var _ io.Closer = (*Engine)(nil)
