// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv

import (
	"bytes"
	"sort"

	"github.com/hkvdb/hkv/engine"
	"github.com/hkvdb/hkv/internal/registry"
	"github.com/hkvdb/hkv/keypath"
)

// TxIterator is the merge iterator a transaction exposes: it enumerates
// (snapshot entries ∪ buffered puts) \ buffered tombstones, in key order,
// by walking the snapshot's own engine iterator and a sorted materialized
// view of the transaction's write buffer in lock-step, always yielding
// whichever side's current candidate is logically next and letting a
// buffered entry override a snapshot entry at the same key.
//
// The buffer is materialized once, at iterator creation, as a sorted slice
// of its encoded keys. Puts and deletes made on the transaction after the
// iterator was created are not seen by that iterator.
type TxIterator struct {
	tx    *Transaction
	level keypath.KeyPath
	opts  IterOptions

	snapIt  engine.Iterator
	bufKeys [][]byte
	bufVals []txEntry
	bufIdx  int

	handle  registry.Handle
	started bool
	ended   bool
	emitted int

	curKey keypath.KeyPath
	curRaw []byte
}

// Iterator returns a merge iterator scoped to data+level over this
// transaction's snapshot and write buffer.
func (tx *Transaction) Iterator(level keypath.Key, opts IterOptions) (*TxIterator, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.requireActive(); err != nil {
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

	snapIt, err := tx.snap.NewIter(engine.IterOptions{LowerBound: lo, UpperBound: hi, Reverse: opts.Reverse})
	if err != nil {
		return nil, wrapEngineErr(err, "hkv: transaction iterator")
	}

	var keys [][]byte
	for k := range tx.buffer {
		kb := []byte(k)
		if bytes.Compare(kb, lo) >= 0 && (hi == nil || bytes.Compare(kb, hi) < 0) {
			keys = append(keys, kb)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	vals := make([]txEntry, len(keys))
	for i, k := range keys {
		vals[i] = tx.buffer[string(k)]
	}

	it := &TxIterator{
		tx:      tx,
		level:   lvl,
		opts:    opts,
		snapIt:  snapIt,
		bufKeys: keys,
		bufVals: vals,
		handle:  tx.db.iters.Register(),
	}
	tx.db.metrics.LiveIters.Inc()
	it.bufIdx = it.initialBufIdx()
	return it, nil
}

// initialBufIdx returns the traversal starting index for the buffer given
// its direction: 0 (ascending) for forward, len-1 (descending) for
// reverse.
func (it *TxIterator) initialBufIdx() int {
	if it.opts.Reverse {
		return len(it.bufKeys) - 1
	}
	return 0
}

func (it *TxIterator) bufCandidate() ([]byte, txEntry, bool) {
	if it.opts.Reverse {
		if it.bufIdx < 0 {
			return nil, txEntry{}, false
		}
		return it.bufKeys[it.bufIdx], it.bufVals[it.bufIdx], true
	}
	if it.bufIdx >= len(it.bufKeys) {
		return nil, txEntry{}, false
	}
	return it.bufKeys[it.bufIdx], it.bufVals[it.bufIdx], true
}

func (it *TxIterator) advanceBuf() {
	if it.opts.Reverse {
		it.bufIdx--
	} else {
		it.bufIdx++
	}
}

// logicalLess reports whether a sorts before b in this iterator's
// direction of travel.
func (it *TxIterator) logicalLess(a, b []byte) bool {
	c := bytes.Compare(a, b)
	if it.opts.Reverse {
		return c > 0
	}
	return c < 0
}

// Seek repositions both underlying cursors to the first entry at or after
// level++kp (or at or before, in reverse mode), and re-evaluates the merge.
func (it *TxIterator) Seek(kp keypath.Key) (bool, error) {
	abs, err := absoluteBound(it.level, kp, false)
	if err != nil {
		return false, err
	}
	it.started = true
	if it.opts.Reverse {
		// SeekLT directly, for the same reason Iterator.Seek does: this
		// snapshot iterator was opened with reverse=true, so Prev/Last are
		// themselves remapped to the underlying Next/First, and composing
		// SeekGE+Prev/Last through that remapping would walk the wrong way.
		it.snapIt.SeekLT(keypath.KeySuccessor(abs))
		it.bufIdx = sort.Search(len(it.bufKeys), func(i int) bool {
			return bytes.Compare(it.bufKeys[i], abs) > 0
		}) - 1
	} else {
		it.snapIt.SeekGE(abs)
		it.bufIdx = sort.Search(len(it.bufKeys), func(i int) bool {
			return bytes.Compare(it.bufKeys[i], abs) >= 0
		})
	}
	return it.step(), nil
}

// Next advances the merge (positioning at the first entry, on the first
// call) and reports whether one was found.
func (it *TxIterator) Next() bool {
	if it.ended {
		return false
	}
	if it.opts.Limit > 0 && it.emitted >= it.opts.Limit {
		return false
	}
	if !it.started {
		it.started = true
		if it.opts.Reverse {
			it.snapIt.Last()
		} else {
			it.snapIt.First()
		}
	} else {
		it.advanceOne()
	}
	ok := it.step()
	if ok {
		it.emitted++
	}
	return ok
}

// advanceOne moves whichever side produced the last yielded entry one
// step further, so the next step() call considers fresh candidates. It
// mirrors the decision step() itself made to produce the current entry.
func (it *TxIterator) advanceOne() {
	_, _, bufOK := it.bufCandidate()
	snapOK := it.snapIt.Valid()
	switch {
	case snapOK && bufOK:
		bufKey, _, _ := it.bufCandidate()
		snapKey := it.snapIt.Key()
		switch {
		case it.logicalLess(snapKey, bufKey):
			it.advanceSnap()
		case it.logicalLess(bufKey, snapKey):
			it.advanceBuf()
		default:
			it.advanceSnap()
			it.advanceBuf()
		}
	case snapOK:
		it.advanceSnap()
	case bufOK:
		it.advanceBuf()
	}
}

func (it *TxIterator) advanceSnap() {
	if it.opts.Reverse {
		it.snapIt.Prev()
	} else {
		it.snapIt.Next()
	}
}

// step examines the current candidates on both sides, skipping any
// buffer tombstone (and the snapshot entry it shadows), and loads the
// winning entry as the current one. It does not advance past the winner;
// Next calls advanceOne before the next step to do that.
func (it *TxIterator) step() bool {
	for {
		bufKey, bufEntry, bufOK := it.bufCandidate()
		snapOK := it.snapIt.Valid()

		if !snapOK && !bufOK {
			it.curKey, it.curRaw = nil, nil
			return false
		}
		if !snapOK {
			if bufEntry.tombstone {
				it.advanceBuf()
				continue
			}
			it.loadBuf(bufKey, bufEntry)
			return true
		}
		if !bufOK {
			it.loadSnap()
			return true
		}

		snapKey := it.snapIt.Key()
		switch {
		case it.logicalLess(snapKey, bufKey):
			it.loadSnap()
			return true
		case it.logicalLess(bufKey, snapKey):
			if bufEntry.tombstone {
				it.advanceBuf()
				continue
			}
			it.loadBuf(bufKey, bufEntry)
			return true
		default: // equal: buffer entry overrides (or tombstones) the snapshot entry
			if bufEntry.tombstone {
				it.advanceSnap()
				it.advanceBuf()
				continue
			}
			it.loadBuf(bufKey, bufEntry)
			return true
		}
	}
}

func (it *TxIterator) loadSnap() {
	if it.opts.Keys {
		kp, err := keypath.StripEncodedPrefix(it.snapIt.Key(), it.level)
		if err == nil {
			it.curKey = kp
		}
	} else {
		it.curKey = nil
	}
	if it.opts.Values {
		it.curRaw = append([]byte(nil), it.snapIt.Value()...)
	} else {
		it.curRaw = nil
	}
}

func (it *TxIterator) loadBuf(key []byte, e txEntry) {
	if it.opts.Keys {
		kp, err := keypath.StripEncodedPrefix(key, it.level)
		if err == nil {
			it.curKey = kp
		}
	} else {
		it.curKey = nil
	}
	if it.opts.Values {
		it.curRaw = append([]byte(nil), e.value...)
	} else {
		it.curRaw = nil
	}
}

// Key returns the level-relative key path of the current entry.
func (it *TxIterator) Key() keypath.KeyPath { return it.curKey }

// RawValue returns the current entry's value bytes as stored (in the
// snapshot or the write buffer); they are not decrypted, decompressed or
// deserialized.
func (it *TxIterator) RawValue() []byte { return it.curRaw }

// Value decodes the current entry's value into dst.
func (it *TxIterator) Value(dst any) error {
	if it.opts.ValueAsBuffer {
		bp, ok := dst.(*[]byte)
		if !ok {
			return errNotByteDest
		}
		*bp = it.curRaw
		return nil
	}
	return it.tx.db.decodeValue(it.curRaw, false, dst)
}

// End releases the underlying snapshot iterator. It is idempotent.
func (it *TxIterator) End() error {
	if it.ended {
		return nil
	}
	it.ended = true
	it.tx.db.iters.Release(it.handle)
	it.tx.db.metrics.LiveIters.Dec()
	return wrapEngineErr(it.snapIt.Close(), "hkv: end transaction iterator")
}
