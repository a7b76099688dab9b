// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Command hkvctl is an administrative CLI for an hkv store: open a store
// on disk and get/put/delete/dump/inspect its contents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	hkv "github.com/hkvdb/hkv"
)

var dbPath string

func main() {
	root := &cobra.Command{
		Use:   "hkvctl",
		Short: "Administrative CLI for an hkv store",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to the store directory")
	root.MarkPersistentFlagRequired("db")

	root.AddCommand(getCmd(), putCmd(), delCmd(), dumpCmd(), statsCmd(), compactCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*hkv.DB, error) {
	logger, _ := zap.NewProduction()
	db := hkv.Create(hkv.Config{DBPath: dbPath}, logger)
	if err := db.Start(); err != nil {
		return nil, err
	}
	return db, nil
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored at key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Stop()

			var v any
			found, err := db.Get(args[0], false, &v)
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("(not found)")
				return nil
			}
			fmt.Printf("%v\n", v)
			return nil
		},
	}
}

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Write value under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Stop()
			return db.Put(args[0], args[1], false, true)
		},
	}
}

func delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Stop()
			return db.Delete(args[0], true)
		},
	}
}

func compactCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Trigger an engine compaction over [start, end)",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Stop()
			var s, e []byte
			if start != "" {
				s = []byte(start)
			}
			if end != "" {
				e = []byte(end)
			}
			return db.Compact(s, e)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start key (raw bytes)")
	cmd.Flags().StringVar(&end, "end", "", "end key (raw bytes)")
	return cmd
}
