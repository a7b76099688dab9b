// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package pebbleengine

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// batch implements engine.BatchImpl over a *pebble.Batch.
type batch struct {
	b *pebble.Batch
}

func (bt *batch) Put(key, value []byte) error {
	return errors.Wrap(bt.b.Set(key, value, nil), "pebbleengine: batch put")
}

func (bt *batch) Delete(key []byte) error {
	return errors.Wrap(bt.b.Delete(key, nil), "pebbleengine: batch delete")
}

func (bt *batch) Commit(sync bool) error {
	return errors.Wrap(bt.b.Commit(writeOpts(sync)), "pebbleengine: batch commit")
}

func (bt *batch) Close() error {
	return errors.Wrap(bt.b.Close(), "pebbleengine: batch close")
}
