// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv

import "github.com/cockroachdb/errors"

// Sentinel error kinds. Callers classify errors with errors.Is
// against these markers rather than string matching; internal code attaches
// one of them with errors.Mark so that wrapped context never hides the
// kind.
var (
	// ErrConflict is returned by Transaction.Commit when a key the
	// transaction wrote, or read via GetForUpdate, was modified by another
	// transaction that committed after this one's snapshot was taken.
	ErrConflict = errors.New("hkv: transaction conflict")

	// ErrKeyMismatch is returned by Start when the canary record does not
	// decrypt to the expected plaintext, or a decrypt failure occurs while
	// checking it — either way the crypto key is wrong or the store is
	// corrupted.
	ErrKeyMismatch = errors.New("hkv: canary check failed (wrong key or corrupted database)")

	// ErrDecrypt is returned when an individual record's AEAD
	// authentication fails outside of the canary check.
	ErrDecrypt = errors.New("hkv: decryption failed")

	// ErrParse is returned when a record decrypts successfully but its
	// bytes do not deserialize into the requested value.
	ErrParse = errors.New("hkv: failed to parse stored value")

	// ErrNotRunning is returned by operations that require a started DB.
	ErrNotRunning = errors.New("hkv: database is not running")

	// ErrAlreadyRunning is returned by Start on an already-started DB.
	ErrAlreadyRunning = errors.New("hkv: database is already running")

	// ErrDestroyed is returned by Start, and by every operation that
	// requires a running DB, once the DB has been destroyed.
	ErrDestroyed = errors.New("hkv: database has been destroyed")

	// ErrLiveReference is returned by Stop while iterators or
	// transactions registered with the DB are still open.
	ErrLiveReference = errors.New("hkv: cannot stop, live iterators or transactions remain open")

	// ErrTransactionTerminal is returned by any read/write on a
	// transaction that has already committed or rolled back.
	ErrTransactionTerminal = errors.New("hkv: transaction has already committed or rolled back")
)

// wrapEngineErr marks err (if non-nil) as an EngineError, for any failure
// surfaced by the engine adaptor that doesn't already carry a more specific
// sentinel.
func wrapEngineErr(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, context), errEngine)
}

// errEngine is the marker for the catch-all EngineError kind; it
// is unexported because callers are expected to check the more specific
// sentinels above first and fall back to treating anything else as an
// opaque engine failure.
var errEngine = errors.New("hkv: engine error")

// IsEngineError reports whether err (or something it wraps) is the
// catch-all EngineError kind.
func IsEngineError(err error) bool {
	return errors.Is(err, errEngine)
}

// errNotByteDest is returned by Iterator.Value/TxIterator.Value when
// ValueAsBuffer was requested but dst is not a *[]byte.
var errNotByteDest = errors.New("hkv: ValueAsBuffer iterator requires a *[]byte destination")
