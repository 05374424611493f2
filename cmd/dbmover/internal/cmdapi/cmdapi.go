// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package cmdapi holds the dbmover command line interface. The commands
// are thin: flags map one to one onto the migrate.Config consumed by the
// engine.
package cmdapi

import (
	"fmt"
	"net/url"

	"github.com/dbmover/dbmover/sql/migrate"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flags struct {
		input             string
		output            string
		tables            []string
		queueSize         int
		writerWorkers     int
		batchWriteSize    int
		batchWriteRetries int
		noCount           bool
		dryRun            bool
		noBinary16AsUUID  bool
		quiet             bool
		verbose           bool
	}

	// Root is the root command of the dbmover CLI.
	Root = &cobra.Command{
		Use:          "dbmover",
		Short:        "Move tabular data between relational databases at high throughput.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logrus.StandardLogger()
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			switch {
			case flags.quiet:
				logger.SetLevel(logrus.ErrorLevel)
			case flags.verbose:
				logger.SetLevel(logrus.DebugLevel)
			default:
				logger.SetLevel(logrus.InfoLevel)
			}
			input, output := flags.input, flags.output
			if flags.noBinary16AsUUID {
				var err error
				if input, err = withOption(input, "binary16-as-uuid", "false"); err != nil {
					return err
				}
				if output, err = withOption(output, "binary16-as-uuid", "false"); err != nil {
					return err
				}
			}
			return migrate.Run(cmd.Context(), &migrate.Config{
				Input:  input,
				Output: output,
				Tables: flags.tables,
				DryRun: flags.dryRun,
				Settings: migrate.Settings{
					QueueSize:         flags.queueSize,
					WriterWorkers:     flags.writerWorkers,
					BatchWriteSize:    flags.batchWriteSize,
					BatchWriteRetries: flags.batchWriteRetries,
					NoCount:           flags.noCount,
					Logger:            logger,
				},
			})
		},
	}
)

func init() {
	Root.Flags().StringVarP(&flags.input, "input", "i", "", "URL of the input database")
	Root.Flags().StringVarP(&flags.output, "output", "o", "", "URL of the output database")
	Root.Flags().StringSliceVarP(&flags.tables, "table", "t", nil, "tables to move; repeatable, empty means auto-detect")
	Root.Flags().IntVar(&flags.queueSize, "queue-size", 100_000, "size of the row queue between the reader and the writers")
	Root.Flags().IntVar(&flags.writerWorkers, "writer-workers", 1, "number of parallel writer workers")
	Root.Flags().IntVar(&flags.batchWriteSize, "batch-write-size", 10_000, "rows per write batch")
	Root.Flags().IntVar(&flags.batchWriteRetries, "batch-write-retries", 5, "retries of a failed batch write")
	Root.Flags().BoolVar(&flags.noCount, "no-count", false, "skip the source row count; progress is shown without prognoses")
	Root.Flags().BoolVar(&flags.dryRun, "dry-run", false, "perform setup and validation only")
	Root.Flags().BoolVar(&flags.noBinary16AsUUID, "no-mysql-binary-16-as-uuid", false, "disable the MySQL binary(16) to uuid mapping")
	Root.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "disable progress output")
	Root.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug output")
	cobra.CheckErr(Root.MarkFlagRequired("input"))
	cobra.CheckErr(Root.MarkFlagRequired("output"))
}

// withOption appends a query parameter to a mysql URL; other schemes pass
// through untouched.
func withOption(raw, key, value string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "mysql" {
		return raw, nil
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
