// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"fmt"
	"os"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var levels []string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-level key counts, as a table and a bar graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Stop()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"level", "count"})

			counts := make([]float64, 0, len(levels))
			labels := make([]string, 0, len(levels))
			for _, lvl := range levels {
				n, err := db.Count(lvl)
				if err != nil {
					return err
				}
				table.Append([]string{lvl, fmt.Sprintf("%d", n)})
				counts = append(counts, float64(n))
				labels = append(labels, lvl)
			}
			table.Render()

			if len(counts) > 1 {
				graph := asciigraph.Plot(counts, asciigraph.Height(10), asciigraph.Caption(fmt.Sprintf("%v", labels)))
				fmt.Println(graph)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&levels, "level", nil, "level paths to report counts for (repeatable)")
	return cmd
}
