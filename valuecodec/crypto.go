// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package valuecodec

// Suite is the crypto contract a caller supplies to enable value-level
// encryption: Encrypt authenticates and encrypts plaintext under
// key, Decrypt reverses it. Decrypt returns a nil slice (with a nil error)
// to mean "authentication failed" — any non-nil error is a system error
// distinct from a failed-authentication result.
type Suite interface {
	Encrypt(key, plaintext []byte) (ciphertext []byte, err error)
	Decrypt(key, ciphertext []byte) (plaintext []byte, err error)
}
