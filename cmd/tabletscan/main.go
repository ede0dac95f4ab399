// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	concurrency int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "tabletscan [command] (flags)",
	Short: "tablet scanner benchmarking/introspection tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(scanCmd)

	for _, cmd := range []*cobra.Command{scanCmd} {
		cmd.Flags().IntVarP(
			&concurrency, "concurrency", "c", 4, "number of concurrent scanners")
		cmd.Flags().BoolVarP(
			&verbose, "verbose", "v", false, "print the scan parameters and the profile")
	}

	scanCmd.Flags().IntVar(
		&scanConfig.rows, "rows", scanConfig.rows, "number of rows per rowset")
	scanCmd.Flags().IntVar(
		&scanConfig.rowsets, "rowsets", scanConfig.rowsets, "number of rowsets")
	scanCmd.Flags().IntVar(
		&scanConfig.pageRows, "page-rows", scanConfig.pageRows, "rows per page")
	scanCmd.Flags().StringVar(
		&scanConfig.keysType, "keys", scanConfig.keysType, "tablet keys type (dup, agg, unique, primary)")
	scanCmd.Flags().StringVar(
		&scanConfig.compression, "compression", scanConfig.compression,
		"page compression (snappy, zstd, zstd1, minlz, minlz2, lz4)")
	scanCmd.Flags().StringVar(
		&scanConfig.slots, "slots", scanConfig.slots, "comma separated columns to return")
	scanCmd.Flags().StringArrayVar(
		&scanConfig.preds, "pred", nil, `predicate of the form "<column> <op> <value>[,<value>...]"`)
	scanCmd.Flags().IntVar(
		&scanConfig.chunkSize, "chunk-size", scanConfig.chunkSize, "rows per chunk")
	scanCmd.Flags().BoolVar(
		&scanConfig.skipAgg, "skip-agg", false, "return rows without merging equal keys")
	scanCmd.Flags().BoolVar(
		&scanConfig.disablePageCache, "disable-page-cache", false, "bypass the page cache")
	scanCmd.Flags().BoolVar(
		&scanConfig.dict, "dict", false, "encode the name column with a global dictionary")
	scanCmd.Flags().Int64Var(
		&scanConfig.readBytesPerSec, "read-bytes-per-sec", 0, "limit on compressed bytes read per second")
	scanCmd.Flags().IntVar(
		&scanConfig.printRows, "print-rows", 0, "number of returned rows to print")

	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}
