// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/dbmover/dbmover/cmd/dbmover/internal/cmdapi"

	_ "github.com/dbmover/dbmover/sql/mysql"
	_ "github.com/dbmover/dbmover/sql/postgres"
	_ "github.com/dbmover/dbmover/sql/sqlite"

	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmdapi.Root.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
