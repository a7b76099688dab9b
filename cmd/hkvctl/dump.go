// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/kr/pretty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	hkv "github.com/hkvdb/hkv"
	"github.com/hkvdb/hkv/keypath"
)

func dumpCmd() *cobra.Command {
	var level string
	var raw bool
	var out string
	var gzipOut bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump a level's entries as a table, or a gzip file with --out",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Stop()

			var lvl any
			if level != "" {
				lvl = level
			}
			entries, err := db.Dump(lvl, raw)
			if err != nil {
				return err
			}

			if out != "" {
				return writeDumpFile(out, gzipOut, entries)
			}
			renderDumpTable(entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "level path to scope the dump to")
	cmd.Flags().BoolVar(&raw, "raw", false, "show undecoded value bytes")
	cmd.Flags().StringVar(&out, "out", "", "write the dump to this file instead of stdout")
	cmd.Flags().BoolVar(&gzipOut, "gzip", true, "gzip-compress the --out file")
	return cmd
}

func renderDumpTable(entries []hkv.DumpEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"key", "value"})
	for _, e := range entries {
		val := fmt.Sprintf("%v", e.Value)
		if e.Value == nil {
			val = fmt.Sprintf("% #v", pretty.Formatter(e.Raw))
		}
		table.Append([]string{fmt.Sprintf("%v", keyPathStrings(e.Key)), val})
	}
	table.Render()
}

func keyPathStrings(kp keypath.KeyPath) []string {
	out := make([]string, len(kp))
	for i, p := range kp {
		out[i] = string(p)
	}
	return out
}

func writeDumpFile(path string, useGzip bool, entries []hkv.DumpEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !useGzip {
		_, err := fmt.Fprintf(f, "%# v\n", pretty.Formatter(entries))
		return err
	}
	gw := gzip.NewWriter(f)
	defer gw.Close()
	_, err = fmt.Fprintf(gw, "%# v\n", pretty.Formatter(entries))
	return err
}
