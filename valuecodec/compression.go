// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package valuecodec

import (
	"github.com/DataDog/zstd"
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

// Compression selects an optional pre-encryption compression pass over the
// serialized value. It is independent of the engine's own block
// compression (engine.Options.Compression), which compresses sstable
// blocks after values have already been encrypted and are opaque to it.
type Compression int

const (
	// CompressionNone performs no compression.
	CompressionNone Compression = iota
	// CompressionSnappy uses github.com/golang/snappy.
	CompressionSnappy
	// CompressionZstd uses github.com/DataDog/zstd.
	CompressionZstd
)

func (c Compression) compress(plain []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return plain, nil
	case CompressionSnappy:
		return snappy.Encode(nil, plain), nil
	case CompressionZstd:
		return zstd.Compress(nil, plain)
	default:
		return nil, errors.Newf("valuecodec: unknown compression type %d", c)
	}
}

func (c Compression) decompress(compressed []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return compressed, nil
	case CompressionSnappy:
		return snappy.Decode(nil, compressed)
	case CompressionZstd:
		return zstd.Decompress(nil, compressed)
	default:
		return nil, errors.Newf("valuecodec: unknown compression type %d", c)
	}
}
