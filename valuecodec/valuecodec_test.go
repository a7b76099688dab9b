// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package valuecodec_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/hkvdb/hkv/valuecodec"
	"github.com/hkvdb/hkv/valuecodec/defaultsuite"
)

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRoundTripPlain(t *testing.T) {
	c := valuecodec.New(valuecodec.CompressionNone, nil, nil)
	stored, err := c.Serialize(widget{Name: "gizmo", Count: 3}, false)
	require.NoError(t, err)

	var got widget
	require.NoError(t, c.Deserialize(stored, false, &got))
	require.Equal(t, widget{Name: "gizmo", Count: 3}, got)
}

func TestRoundTripRaw(t *testing.T) {
	c := valuecodec.New(valuecodec.CompressionSnappy, nil, nil)
	stored, err := c.Serialize([]byte("blob of bytes"), true)
	require.NoError(t, err)

	var got []byte
	require.NoError(t, c.Deserialize(stored, true, &got))
	require.Equal(t, []byte("blob of bytes"), got)
}

func TestRoundTripEncrypted(t *testing.T) {
	key := make([]byte, chacha20poly1305.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	c := valuecodec.New(valuecodec.CompressionZstd, defaultsuite.Suite{}, key)

	stored, err := c.Serialize(widget{Name: "sprocket", Count: 7}, false)
	require.NoError(t, err)

	var got widget
	require.NoError(t, c.Deserialize(stored, false, &got))
	require.Equal(t, widget{Name: "sprocket", Count: 7}, got)
}

func TestWrongKeyFailsDecrypt(t *testing.T) {
	key1 := make([]byte, chacha20poly1305.KeySize)
	key2 := make([]byte, chacha20poly1305.KeySize)
	key2[0] = 0xff

	enc := valuecodec.New(valuecodec.CompressionNone, defaultsuite.Suite{}, key1)
	dec := valuecodec.New(valuecodec.CompressionNone, defaultsuite.Suite{}, key2)

	stored, err := enc.Serialize("secret", false)
	require.NoError(t, err)

	var got string
	err = dec.Deserialize(stored, false, &got)
	require.ErrorIs(t, err, valuecodec.ErrDecryptFailed)
}

func TestCanaryRoundTrip(t *testing.T) {
	key := make([]byte, chacha20poly1305.KeySize)
	c := valuecodec.New(valuecodec.CompressionNone, defaultsuite.Suite{}, key)

	stored, err := c.EncodeCanary()
	require.NoError(t, err)

	ok, err := c.CheckCanary(stored)
	require.NoError(t, err)
	require.True(t, ok)
}
