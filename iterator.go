// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv

import (
	"github.com/hkvdb/hkv/engine"
	"github.com/hkvdb/hkv/internal/registry"
	"github.com/hkvdb/hkv/keypath"
)

// IterOptions configures an Iterator. The zero value requests
// keys and values, no bounds (the full level range), forward order, and no
// limit.
type IterOptions struct {
	// Keys and Values, when false, omit the corresponding part of each
	// entry entirely (Key()/RawValue() then return nil). If both are
	// false, as in the zero value, both parts are included.
	Keys, Values bool
	// ValueAsBuffer, when true, skips the value codec entirely: Value
	// hands dst the stored bytes exactly as read from the engine, without
	// decryption, decompression or deserialization.
	ValueAsBuffer bool
	// Gt, Gte, Lt, Lte bound iteration relative to the scope level. At
	// most one of Gt/Gte and one of Lt/Lte should be set.
	Gt, Gte, Lt, Lte keypath.Key
	// Reverse iterates from the end of the range backward.
	Reverse bool
	// Limit caps the number of entries Next will yield; 0 means
	// unlimited.
	Limit int
	// Snapshot, if non-nil, scopes iteration to that point-in-time view
	// instead of the live engine state.
	Snapshot engine.Snapshot
}

func (o IterOptions) normalized() IterOptions {
	if !o.Keys && !o.Values {
		o.Keys, o.Values = true, true
	}
	return o
}

// Iterator is a scoped cursor: a level path plus
// range options, translated into absolute engine bounds, with results
// projected back into level-relative key paths.
type Iterator struct {
	db    *DB
	level keypath.KeyPath
	opts  IterOptions

	eng     engine.Iterator
	handle  registry.Handle
	started bool
	ended   bool
	emitted int

	curKey keypath.KeyPath
	curRaw []byte
}

func absoluteBound(level keypath.KeyPath, rel keypath.Key, successor bool) ([]byte, error) {
	kp, err := keypath.Normalize(rel)
	if err != nil {
		return nil, err
	}
	full := append(level.Clone(), kp...)
	enc, err := keypath.Encode(full)
	if err != nil {
		return nil, err
	}
	if successor {
		// The exact successor of enc itself, not of every string having enc
		// as a prefix: a sibling key can legally extend this one's key
		// part (e.g. "x" and "xy" under the same level), and
		// PrefixSuccessor would place the bound above such a sibling too.
		return keypath.KeySuccessor(enc), nil
	}
	return enc, nil
}

// Iterator returns an Iterator scoped to data+level. level may be nil to
// scope the whole data partition.
func (db *DB) Iterator(level keypath.Key, opts IterOptions) (*Iterator, error) {
	if err := db.requireRunning(); err != nil {
		return nil, err
	}
	lvl, err := dataLevelPath(level)
	if err != nil {
		return nil, err
	}
	opts = opts.normalized()

	lo, hi := keypath.LevelBounds(lvl)
	if opts.Gte != nil {
		lo, err = absoluteBound(lvl, opts.Gte, false)
	} else if opts.Gt != nil {
		lo, err = absoluteBound(lvl, opts.Gt, true)
	}
	if err != nil {
		return nil, err
	}
	if opts.Lte != nil {
		hi, err = absoluteBound(lvl, opts.Lte, true)
	} else if opts.Lt != nil {
		hi, err = absoluteBound(lvl, opts.Lt, false)
	}
	if err != nil {
		return nil, err
	}

	iterOpts := engine.IterOptions{LowerBound: lo, UpperBound: hi, Reverse: opts.Reverse}
	var eit engine.Iterator
	if opts.Snapshot != nil {
		eit, err = opts.Snapshot.NewIter(iterOpts)
	} else {
		eit, err = db.eng.NewIter(iterOpts)
	}
	if err != nil {
		return nil, wrapEngineErr(err, "hkv: new iterator")
	}

	it := &Iterator{db: db, level: lvl, opts: opts, eng: eit, handle: db.iters.Register()}
	db.metrics.LiveIters.Inc()
	return it, nil
}

// Seek repositions the iterator to the first entry at or after level++kp
// (or at or before, in reverse mode).
func (it *Iterator) Seek(kp keypath.Key) (bool, error) {
	abs, err := absoluteBound(it.level, kp, false)
	if err != nil {
		return false, err
	}
	it.started = true
	var ok bool
	if it.opts.Reverse {
		// The last entry at or before abs is the last entry strictly less
		// than abs's exact successor. This must call SeekLT directly:
		// it.eng was constructed with reverse=true, under which Prev/Last
		// are themselves remapped to the underlying Next/First, so
		// composing SeekGE+Prev/Last here (as if driving a "forward"
		// cursor) would walk the wrong way.
		ok = it.eng.SeekLT(keypath.KeySuccessor(abs))
	} else {
		ok = it.eng.SeekGE(abs)
	}
	it.loadCurrent(ok)
	return ok, nil
}

// Next advances to (or, on the first call, positions at) the next entry,
// reporting whether one was found.
func (it *Iterator) Next() bool {
	if it.ended {
		return false
	}
	if it.opts.Limit > 0 && it.emitted >= it.opts.Limit {
		return false
	}
	var ok bool
	if !it.started {
		it.started = true
		ok = it.eng.First()
	} else {
		ok = it.eng.Next()
	}
	it.loadCurrent(ok)
	if ok {
		it.emitted++
	}
	return ok
}

func (it *Iterator) loadCurrent(ok bool) {
	if !ok {
		it.curKey, it.curRaw = nil, nil
		return
	}
	if it.opts.Keys {
		kp, err := keypath.StripEncodedPrefix(it.eng.Key(), it.level)
		if err == nil {
			it.curKey = kp
		}
	} else {
		it.curKey = nil
	}
	if it.opts.Values {
		it.curRaw = append([]byte(nil), it.eng.Value()...)
	} else {
		it.curRaw = nil
	}
}

// Key returns the level-relative key path of the current entry.
func (it *Iterator) Key() keypath.KeyPath { return it.curKey }

// RawValue returns the current entry's value bytes as stored in the
// engine; they are not decrypted, decompressed or deserialized.
func (it *Iterator) RawValue() []byte { return it.curRaw }

// Value decodes the current entry's value into dst via the DB's value
// codec, bypassing decoding (treating dst as *[]byte) if ValueAsBuffer was
// requested.
func (it *Iterator) Value(dst any) error {
	if it.opts.ValueAsBuffer {
		bp, ok := dst.(*[]byte)
		if !ok {
			return errNotByteDest
		}
		*bp = it.curRaw
		return nil
	}
	return it.db.decodeValue(it.curRaw, false, dst)
}

// Error returns any error encountered during iteration.
func (it *Iterator) Error() error {
	if err := it.eng.Error(); err != nil {
		return wrapEngineErr(err, "hkv: iterator")
	}
	return nil
}

// End releases the underlying engine iterator. It is idempotent.
func (it *Iterator) End() error {
	if it.ended {
		return nil
	}
	it.ended = true
	it.db.iters.Release(it.handle)
	it.db.metrics.LiveIters.Dec()
	return wrapEngineErr(it.eng.Close(), "hkv: end iterator")
}
