// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package valuecodec serializes values to bytes, optionally compresses
// them, and optionally wraps them in an authenticated ciphertext. Every
// value stored under the data and canary partitions passes through here.
package valuecodec

import (
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
)

// CanaryPlaintext is the literal value the canary record must decrypt to.
// Any other content at open time indicates a wrong key or a corrupted
// database.
const CanaryPlaintext = "deadbeef"

// ErrDecryptFailed is returned by Deserialize and CheckCanary when the AEAD
// suite fails to authenticate a ciphertext.
var ErrDecryptFailed = errors.New("valuecodec: decryption failed (wrong key or corrupted record)")

// ErrParse is returned by Deserialize when otherwise-valid bytes don't
// decode into the requested value.
var ErrParse = errors.New("valuecodec: failed to parse stored value")

// Codec serializes, compresses, and encrypts values for storage, and
// reverses all three on the way back out. A zero-value Codec has no
// compression and no encryption (suite is nil): values pass straight
// through JSON serialization.
type Codec struct {
	Compression Compression
	Suite       Suite // nil disables encryption
	Key         []byte
}

// New builds a Codec. suite may be nil, which disables encryption (key is
// then ignored).
func New(compression Compression, suite Suite, key []byte) *Codec {
	return &Codec{Compression: compression, Suite: suite, Key: key}
}

// Serialize turns v into the bytes that get written under the encoded key.
// If raw is true, v must already be a []byte and is stored unmodified by
// the serialization step (compression and encryption still apply).
func (c *Codec) Serialize(v any, raw bool) ([]byte, error) {
	var plain []byte
	if raw {
		b, ok := v.([]byte)
		if !ok {
			return nil, errors.Newf("valuecodec: raw=true requires a []byte value, got %T", v)
		}
		plain = b
	} else {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "valuecodec: serialize")
		}
		plain = b
	}

	compressed, err := c.Compression.compress(plain)
	if err != nil {
		return nil, errors.Wrap(err, "valuecodec: compress")
	}

	if c.Suite == nil {
		return compressed, nil
	}
	ct, err := c.Suite.Encrypt(c.Key, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "valuecodec: encrypt")
	}
	return ct, nil
}

// Deserialize reverses Serialize. If raw is true the decrypted/decompressed
// bytes are returned as-is (into dst, if dst is a *[]byte), otherwise they
// are JSON-unmarshalled into dst.
func (c *Codec) Deserialize(stored []byte, raw bool, dst any) error {
	plain := stored
	if c.Suite != nil {
		pt, err := c.Suite.Decrypt(c.Key, stored)
		if err != nil {
			return errors.Wrap(err, "valuecodec: decrypt")
		}
		if pt == nil {
			return ErrDecryptFailed
		}
		plain = pt
	}

	decompressed, err := c.Compression.decompress(plain)
	if err != nil {
		return errors.Wrap(err, "valuecodec: decompress")
	}

	if raw {
		bp, ok := dst.(*[]byte)
		if !ok {
			return errors.Newf("valuecodec: raw=true requires a *[]byte destination, got %T", dst)
		}
		*bp = decompressed
		return nil
	}
	if err := json.Unmarshal(decompressed, dst); err != nil {
		return errors.Mark(errors.Wrap(err, "valuecodec: deserialize"), ErrParse)
	}
	return nil
}

// EncodeCanary serializes and (if a suite is configured) encrypts the
// canary literal, for writing at Start when no canary record exists yet.
func (c *Codec) EncodeCanary() ([]byte, error) {
	return c.Serialize(CanaryPlaintext, false)
}

// CheckCanary deserializes a stored canary record and reports whether it
// equals CanaryPlaintext. A decrypt failure is reported distinctly so the
// caller can fold it into KeyError.
func (c *Codec) CheckCanary(stored []byte) (ok bool, decryptErr error) {
	var got string
	if c.Suite != nil {
		pt, err := c.Suite.Decrypt(c.Key, stored)
		if err != nil {
			return false, errors.Wrap(err, "valuecodec: canary decrypt")
		}
		if pt == nil {
			return false, ErrDecryptFailed
		}
		decompressed, err := c.Compression.decompress(pt)
		if err != nil {
			return false, errors.Wrap(err, "valuecodec: canary decompress")
		}
		if err := json.Unmarshal(decompressed, &got); err != nil {
			return false, nil
		}
		return got == CanaryPlaintext, nil
	}
	decompressed, err := c.Compression.decompress(stored)
	if err != nil {
		return false, errors.Wrap(err, "valuecodec: canary decompress")
	}
	if err := json.Unmarshal(decompressed, &got); err != nil {
		return false, nil
	}
	return got == CanaryPlaintext, nil
}
