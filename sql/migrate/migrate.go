// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package migrate implements the table migration engine: a per-table
// reader–queue–writer pipeline with bounded backpressure, cooperative
// cancellation and retriable writes, and the driver that walks tables
// sequentially.
package migrate

import (
	"context"
	"fmt"

	"github.com/dbmover/dbmover/sql/sqlclient"
)

// Config is the full driver configuration.
type Config struct {
	// Input and Output are the database URLs; the scheme selects the
	// adapter.
	Input, Output string
	// Tables is the explicit table list; empty means auto-detect by
	// intersecting both sides.
	Tables []string
	// DryRun performs setup and the compatibility check only.
	DryRun bool
	// Settings are applied to every table migration.
	Settings
}

// Run migrates the configured tables sequentially. The first failing
// table aborts the run.
func Run(ctx context.Context, cfg *Config) error {
	cfg.Settings.defaults()
	log := cfg.Logger
	tables, err := resolveTables(ctx, cfg)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := runTable(ctx, cfg, table); err != nil {
			return err
		}
		log.Infof("Table %s moved", table)
	}
	return nil
}

func runTable(ctx context.Context, cfg *Config, table string) error {
	input, err := sqlclient.Open(ctx, cfg.Input)
	if err != nil {
		return fmt.Errorf("connect to input: %w", err)
	}
	defer input.Close()
	output, err := sqlclient.Open(ctx, cfg.Output)
	if err != nil {
		return fmt.Errorf("connect to output: %w", err)
	}
	defer output.Close()
	cfg.Logger.Infof("Processing table %s", table)
	m, err := NewTableMigrator(ctx, input, output, table, cfg.Settings)
	if err != nil {
		return err
	}
	if cfg.DryRun {
		cfg.Logger.Infof("Dry run: table %s checked, no rows moved", table)
		return nil
	}
	return m.Run(ctx)
}

// resolveTables returns the tables to migrate: the explicit list after
// verifying both sides have every entry, or the intersection of both
// listings in source order.
func resolveTables(ctx context.Context, cfg *Config) ([]string, error) {
	input, err := sqlclient.Open(ctx, cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("connect to input: %w", err)
	}
	defer input.Close()
	output, err := sqlclient.Open(ctx, cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("connect to output: %w", err)
	}
	defer output.Close()
	srcTables, err := input.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list input tables: %w", err)
	}
	dstTables, err := output.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list output tables: %w", err)
	}
	src, dst := toSet(srcTables), toSet(dstTables)
	if len(cfg.Tables) > 0 {
		for _, t := range cfg.Tables {
			if !src[t] {
				return nil, fmt.Errorf("table %q does not exist in the input database", t)
			}
			if !dst[t] {
				return nil, fmt.Errorf("table %q does not exist in the output database", t)
			}
		}
		return cfg.Tables, nil
	}
	var tables []string
	for _, t := range srcTables {
		if dst[t] {
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no common tables between the input and the output databases")
	}
	return tables, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
