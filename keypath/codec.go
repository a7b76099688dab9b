// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package keypath

import "github.com/cockroachdb/errors"

// Structural marker bytes. Both are chosen below 0x80 so that they always
// sort earlier than any byte of re-encoded part content (see encodeByte),
// and levelMarker sorts below keyMarker so that "another level part
// follows" always outranks "the level path ends here" at the point the two
// diverge.
const (
	levelMarker byte = 0x00 // precedes every level part: "a level part follows"
	keyMarker   byte = 0x01 // emitted once: "the level path ends, the key part follows"
)

// encodeByte re-encodes a single raw byte as two bytes, each in [0x80,
// 0xff], so that re-encoded content never collides with the structural
// markers above and concatenation preserves unsigned byte order (a
// fixed-width, base-128-style positional encoding: the high bit of b
// becomes the low bit of the first output byte, the low 7 bits become the
// second).
func encodeByte(b byte) [2]byte {
	return [2]byte{0x80 | (b >> 7), 0x80 | (b & 0x7f)}
}

// decodeByte inverts encodeByte.
func decodeByte(hi, lo byte) byte {
	return ((hi & 0x01) << 7) | (lo & 0x7f)
}

func appendEscaped(dst []byte, part []byte) []byte {
	for _, b := range part {
		enc := encodeByte(b)
		dst = append(dst, enc[0], enc[1])
	}
	return dst
}

// Encode produces the single byte string for kp described by the package
// documentation. It returns ErrEmptyKeyPath for a zero-length kp.
func Encode(kp KeyPath) ([]byte, error) {
	if len(kp) == 0 {
		return nil, ErrEmptyKeyPath
	}
	levelParts := kp.LevelPath()
	out := make([]byte, 0, estimateEncodedLen(kp))
	for _, part := range levelParts {
		out = append(out, levelMarker)
		out = appendEscaped(out, part)
	}
	out = append(out, keyMarker)
	out = appendEscaped(out, kp.KeyPart())
	return out, nil
}

func estimateEncodedLen(kp KeyPath) int {
	n := 1
	for _, p := range kp {
		n += 1 + 2*len(p)
	}
	return n
}

// EncodeLevelPrefix encodes just the level-path portion shared by every key
// under level, i.e. the prefix common to level itself and every descendant
// of level. It is the lower bound produced by LevelBounds.
func EncodeLevelPrefix(level KeyPath) []byte {
	out := make([]byte, 0, estimateEncodedLen(append(KeyPath{}, level...)))
	for _, part := range level {
		out = append(out, levelMarker)
		out = appendEscaped(out, part)
	}
	return out
}

// Decode is the inverse of Encode: it recovers the original KeyPath from an
// encoded byte string.
func Decode(enc []byte) (KeyPath, error) {
	var levelParts [][]byte
	i := 0
	for {
		if i >= len(enc) {
			return nil, errors.Newf("keypath: truncated encoding, missing key marker")
		}
		switch enc[i] {
		case levelMarker:
			i++
			part, n, err := decodePart(enc[i:])
			if err != nil {
				return nil, err
			}
			levelParts = append(levelParts, part)
			i += n
		case keyMarker:
			i++
			key, n, err := decodePart(enc[i:])
			if err != nil {
				return nil, err
			}
			if i+n != len(enc) {
				return nil, errors.Newf("keypath: trailing bytes after key part")
			}
			kp := make(KeyPath, 0, len(levelParts)+1)
			kp = append(kp, levelParts...)
			kp = append(kp, key)
			return kp, nil
		default:
			return nil, errors.Newf("keypath: invalid marker byte 0x%02x at offset %d", enc[i], i)
		}
	}
}

// decodePart consumes content bytes (pairs, each >= 0x80) from the front of
// buf until a marker byte (< 0x80) or the end of buf is reached, returning
// the decoded part and the number of input bytes consumed.
func decodePart(buf []byte) ([]byte, int, error) {
	var part []byte
	i := 0
	for i < len(buf) && buf[i] >= 0x80 {
		if i+1 >= len(buf) || buf[i+1] < 0x80 {
			return nil, 0, errors.Newf("keypath: truncated re-encoded byte at offset %d", i)
		}
		part = append(part, decodeByte(buf[i], buf[i+1]))
		i += 2
	}
	return part, i, nil
}

// afterKeyMarker is one past keyMarker, the largest structural byte that
// can legally follow a level path's encoded prefix (levelMarker precedes a
// deeper level part, keyMarker starts the key part; nothing else is
// legal at that position). It is still well below 0x80, so it can never be
// confused with the re-encoded content of a sibling level part that merely
// happens to share level's bytes as a string prefix (e.g. level "A" vs a
// sibling level "A0": the latter continues with a content byte >= 0x80,
// which sorts after afterKeyMarker and so falls outside the range).
const afterKeyMarker = keyMarker + 1

// LevelBounds derives the half-open byte range [lo, hi) that a scan must
// cover to visit exactly the keys whose level path equals level or extends
// it. Incrementing the trailing byte of lo (as a generic prefix-successor
// would) is not sufficient here: lo ends in re-encoded content, and a
// sibling level path that merely has level's bytes as a string prefix (a
// longer level part sharing the same leading bytes) would wrongly be
// included. Appending afterKeyMarker instead bounds exactly the two valid
// continuations (another level part, or the key part) and nothing else.
func LevelBounds(level KeyPath) (lo, hi []byte) {
	lo = EncodeLevelPrefix(level)
	hi = append(append([]byte{}, lo...), afterKeyMarker)
	return lo, hi
}

// PrefixSuccessor returns the lexicographically smallest byte string that
// is strictly greater than every byte string having prefix, by
// incrementing the last byte that is not 0xff and truncating anything
// after it. It returns nil if prefix is empty or consists entirely of 0xff
// bytes, meaning there is no finite successor (the range is unbounded
// above). This mirrors the "prefix end" helper common to ordered key-value
// stores with byte-comparable key encodings.
func PrefixSuccessor(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xff {
			out := make([]byte, i+1)
			copy(out, prefix[:i+1])
			out[i]++
			return out
		}
	}
	return nil
}

// KeySuccessor returns the smallest encoded byte string that sorts
// strictly after enc itself. This is not the same question PrefixSuccessor
// answers: PrefixSuccessor returns the smallest string greater than every
// string that has enc as a byte prefix, which overshoots here, because a
// sibling key can legally extend enc's key part (e.g. key "x" and key "xy"
// under the same level: enc("x") is a literal byte prefix of enc("xy"), so
// PrefixSuccessor(enc("x")) sorts above enc("xy") too, not just above
// enc("x")). Appending a single byte below 0x80 gives the tight bound
// instead: every legal continuation of enc re-encodes raw content as pairs
// of bytes each >= 0x80 (see encodeByte), so the appended byte sorts below
// any such continuation, while the result — being longer with enc as a
// true prefix — still sorts above enc itself.
func KeySuccessor(enc []byte) []byte {
	out := make([]byte, len(enc)+1)
	copy(out, enc)
	out[len(enc)] = 0x00
	return out
}

// StripPrefix removes the level prefix from a decoded key path, producing
// the caller-relative key path an Iterator scoped to level returns.
func StripPrefix(kp KeyPath, level KeyPath) (KeyPath, error) {
	if len(level) > len(kp)-1 {
		return nil, errors.Newf("keypath: level path longer than key path's own level path")
	}
	for i, part := range level {
		if string(part) != string(kp[i]) {
			return nil, errors.Newf("keypath: key path does not descend from the given level")
		}
	}
	return append(KeyPath{}, kp[len(level):]...), nil
}

// StripEncodedPrefix decodes enc and strips level in one step.
func StripEncodedPrefix(enc []byte, level KeyPath) (KeyPath, error) {
	kp, err := Decode(enc)
	if err != nil {
		return nil, err
	}
	return StripPrefix(kp, level)
}

// Compare returns -1, 0 or 1 according to the ordering contract, by
// encoding both paths and comparing bytes. Both a and b must be
// non-empty.
func Compare(a, b KeyPath) (int, error) {
	ea, err := Encode(a)
	if err != nil {
		return 0, err
	}
	eb, err := Encode(b)
	if err != nil {
		return 0, err
	}
	switch {
	case string(ea) < string(eb):
		return -1, nil
	case string(ea) > string(eb):
		return 1, nil
	default:
		return 0, nil
	}
}
