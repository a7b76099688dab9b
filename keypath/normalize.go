// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package keypath

import "github.com/cockroachdb/errors"

// Key is anything the public API accepts where a KeyPath is required: a
// bare string, a bare []byte, a []string, a [][]byte, or a KeyPath. A bare
// value is canonicalised to a 1-element KeyPath.
type Key interface{}

// Normalize converts k into a KeyPath, canonicalising a single string or
// byte slice into a 1-element path.
func Normalize(k Key) (KeyPath, error) {
	switch v := k.(type) {
	case KeyPath:
		return v, nil
	case [][]byte:
		return KeyPath(v), nil
	case []byte:
		return Single(v), nil
	case string:
		return Single([]byte(v)), nil
	case []string:
		parts := make(KeyPath, len(v))
		for i, s := range v {
			parts[i] = []byte(s)
		}
		return parts, nil
	default:
		return nil, errors.Newf("keypath: unsupported key type %T", k)
	}
}
