// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/hkvdb/hkv/engine"
	"github.com/hkvdb/hkv/keypath"
	"github.com/hkvdb/hkv/valuecodec"
)

func canaryKey() ([]byte, error) {
	return keypath.Encode(keypath.KeyPath{rootCanary})
}

// runCanaryCheck implements the canary protocol: read canary; if
// absent, write the plaintext canary and pass; if present and it decodes
// to CanaryPlaintext, pass; otherwise fail with ErrKeyMismatch. A decrypt
// failure while checking is upgraded to ErrKeyMismatch rather than
// surfaced as ErrDecrypt.
func (db *DB) runCanaryCheck() error {
	if db.cfg.Crypto == nil {
		return nil
	}
	key, err := canaryKey()
	if err != nil {
		return err
	}
	stored, err := db.eng.Get(key)
	if err == engine.ErrNotFound {
		enc, err := db.codec.EncodeCanary()
		if err != nil {
			return errors.Wrap(err, "hkv: encode canary")
		}
		if err := db.eng.Put(key, enc, true); err != nil {
			return wrapEngineErr(err, "hkv: write canary")
		}
		db.logger.Info("hkv: wrote new canary record")
		return nil
	}
	if err != nil {
		return wrapEngineErr(err, "hkv: read canary")
	}

	ok, decryptErr := db.codec.CheckCanary(stored)
	if decryptErr != nil {
		if errors.Is(decryptErr, valuecodec.ErrDecryptFailed) {
			return errors.Mark(errors.Wrap(decryptErr, "hkv: canary decrypt"), ErrKeyMismatch)
		}
		return errors.Wrap(decryptErr, "hkv: canary check")
	}
	if !ok {
		return errors.Mark(errors.New("hkv: canary record did not match expected plaintext"), ErrKeyMismatch)
	}
	db.logger.Info("hkv: canary check passed", zap.Bool("ok", ok))
	return nil
}
