// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package keypath

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
)

// parseKeyPath turns a "/"-separated line like "users/42/name" into a
// KeyPath of its slash-separated parts, each taken as raw bytes.
func parseKeyPath(line string) KeyPath {
	fields := strings.Split(line, "/")
	kp := make(KeyPath, len(fields))
	for i, f := range fields {
		kp[i] = []byte(f)
	}
	return kp
}

func formatKeyPath(kp KeyPath) string {
	parts := make([]string, len(kp))
	for i, p := range kp {
		parts[i] = string(p)
	}
	return strings.Join(parts, "/")
}

// TestDataDriven runs the order/bounds scripts in testdata against the
// codec: "order" sorts a block of key paths by their encoded byte order,
// and "bounds" reports which of a block of key paths fall inside the
// level range of the first one.
func TestDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/order", func(t *testing.T, d *datadriven.TestData) string {
		lines := strings.Split(strings.TrimRight(d.Input, "\n"), "\n")
		switch d.Cmd {
		case "order":
			paths := make([]KeyPath, len(lines))
			for i, l := range lines {
				paths[i] = parseKeyPath(l)
			}
			sort.Slice(paths, func(i, j int) bool {
				c, err := Compare(paths[i], paths[j])
				if err != nil {
					t.Fatal(err)
				}
				return c < 0
			})
			var sb strings.Builder
			for _, p := range paths {
				fmt.Fprintln(&sb, formatKeyPath(p))
			}
			return sb.String()

		case "bounds":
			if len(lines) == 0 {
				t.Fatalf("bounds requires a level path on the first line")
			}
			level := parseKeyPath(lines[0])
			lo, hi := LevelBounds(level)
			var sb strings.Builder
			for _, l := range lines[1:] {
				kp := parseKeyPath(l)
				enc, err := Encode(kp)
				if err != nil {
					t.Fatal(err)
				}
				in := bytes.Compare(enc, lo) >= 0 && (hi == nil || bytes.Compare(enc, hi) < 0)
				fmt.Fprintf(&sb, "%s: %v\n", formatKeyPath(kp), in)
			}
			return sb.String()

		default:
			t.Fatalf("unknown command %q", d.Cmd)
			return ""
		}
	})
}
