// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv

import (
	"github.com/hkvdb/hkv/keypath"
)

// DumpEntry is one record returned by Dump.
type DumpEntry struct {
	Key   keypath.KeyPath
	Raw   []byte
	Value any // populated unless raw was requested
}

// Dump iterates level, diagnostically. If raw is true, entries carry
// undecoded bytes (Raw, Value left nil); otherwise each value is decoded
// into an any (a string, float64, bool, map[string]any, []any or nil, as
// JSON unmarshalling produces) and stored in Value. A value that fails to
// decode is returned undecoded in Raw, with Value left nil.
func (db *DB) Dump(level keypath.Key, raw bool) ([]DumpEntry, error) {
	it, err := db.Iterator(level, IterOptions{ValueAsBuffer: raw})
	if err != nil {
		return nil, err
	}
	defer it.End()

	var out []DumpEntry
	for it.Next() {
		e := DumpEntry{Key: it.Key().Clone()}
		if raw {
			e.Raw = append([]byte(nil), it.RawValue()...)
		} else {
			var v any
			if err := it.Value(&v); err == nil {
				e.Value = v
			} else {
				e.Raw = append([]byte(nil), it.RawValue()...)
			}
		}
		out = append(out, e)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return out, nil
}
