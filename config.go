// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv

import (
	"github.com/hkvdb/hkv/engine"
	"github.com/hkvdb/hkv/valuecodec"
)

// Crypto configures value-level encryption. A nil Crypto disables
// encryption and the canary check entirely.
type Crypto struct {
	Key   []byte
	Suite valuecodec.Suite
}

// Config recognises the options available at DB create/start time.
type Config struct {
	// DBPath is the directory the engine opens (and, if Fresh, wipes
	// first).
	DBPath string

	// Crypto enables value-level AEAD encryption and the canary check.
	// Nil disables both.
	Crypto *Crypto

	// Fresh, if true, removes any existing directory at DBPath before
	// Start opens the engine.
	Fresh bool

	// Compression is the pre-encryption value compression pass.
	Compression valuecodec.Compression

	// Engine carries the native-engine tuning knobs. Zero value
	// is replaced with engine.DefaultOptions() by Create.
	Engine engine.Options

	// EngineImpl overrides the concrete engine.Engine Start opens. Nil
	// selects the default, pebbleengine.New().
	EngineImpl engine.Engine
}

// withDefaults returns a copy of c whose Engine is engine.DefaultOptions()
// if c.Engine is the zero value. A partly set Engine is kept as it is; its
// unset fields are not filled in.
func (c Config) withDefaults() Config {
	if c.Engine == (engine.Options{}) {
		c.Engine = engine.DefaultOptions()
	}
	return c
}
