// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package pebbleengine

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/hkvdb/hkv/engine"
)

// snapshot implements engine.Snapshot over a *pebble.Snapshot, giving a
// consistent point-in-time read view for the lifetime of a Transaction.
type snapshot struct {
	s *pebble.Snapshot
}

func (sn *snapshot) Get(key []byte) ([]byte, error) {
	v, closer, err := sn.s.Get(key)
	if err == pebble.ErrNotFound {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "pebbleengine: snapshot get")
	}
	out := append([]byte(nil), v...)
	if closeErr := closer.Close(); closeErr != nil {
		return nil, errors.Wrap(closeErr, "pebbleengine: snapshot get close")
	}
	return out, nil
}

func (sn *snapshot) NewIter(opts engine.IterOptions) (engine.Iterator, error) {
	it, err := sn.s.NewIter(toPebbleIterOptions(opts))
	if err != nil {
		return nil, errors.Wrap(err, "pebbleengine: snapshot new iter")
	}
	return newIterator(it, opts.Reverse), nil
}

func (sn *snapshot) Close() error {
	return errors.Wrap(sn.s.Close(), "pebbleengine: snapshot close")
}
