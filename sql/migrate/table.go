// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dbmover/dbmover/sql/schema"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// errStopped is the cooperative-stop sentinel: a peer already failed and
// recorded the cause, this worker just exits. Never reported to the user.
var errStopped = errors.New("stopped because of an error in another thread")

// Settings configure one table migration.
type Settings struct {
	// QueueSize bounds the row queue between the reader and the writers.
	QueueSize int
	// WriterWorkers is the number of parallel writer workers.
	WriterWorkers int
	// BatchWriteSize is the number of rows per write batch.
	BatchWriteSize int
	// BatchWriteRetries bounds the retry schedule of one batch.
	BatchWriteRetries int
	// NoCount skips the source-side row count.
	NoCount bool
	// Logger receives progress and retry lines. Defaults to the standard
	// logger.
	Logger *logrus.Logger

	// retryBase overrides the first retry delay; used by tests.
	retryBase time.Duration
}

func (s *Settings) defaults() {
	if s.QueueSize == 0 {
		s.QueueSize = 100_000
	}
	if s.WriterWorkers == 0 {
		s.WriterWorkers = 1
	}
	if s.BatchWriteSize == 0 {
		s.BatchWriteSize = 10_000
	}
	if s.Logger == nil {
		s.Logger = logrus.StandardLogger()
	}
	if s.retryBase == 0 {
		s.retryBase = defaultRetryBase
	}
}

// A TableMigrator moves one table: one reader worker streams rows into a
// bounded queue, writer workers drain it in batches. Construction performs
// the pre-flight checks; Run moves the rows.
type TableMigrator struct {
	reader   schema.Reader
	writers  []schema.Writer
	target   *schema.TableInfo
	progress *Progress
	settings Settings

	queue    chan schema.Row
	stopped  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTableMigrator builds a migrator for the table. It describes both
// sides, requires the destination to be empty, validates column
// compatibility and fans the writer out into workers. Rows are produced
// in the destination's format.
func NewTableMigrator(ctx context.Context, reader schema.Reader, writer schema.Writer, table string, settings Settings) (*TableMigrator, error) {
	settings.defaults()
	settings.Logger.Infof("Collecting info about table %s", table)
	src, err := reader.Describe(ctx, table, !settings.NoCount)
	if err != nil {
		return nil, fmt.Errorf("describe source table %q: %w", table, err)
	}
	dst, err := writer.Describe(ctx, table, true)
	if err != nil {
		return nil, fmt.Errorf("describe destination table %q: %w", table, err)
	}
	if dst.NumRows == nil || *dst.NumRows != 0 {
		return nil, fmt.Errorf("destination table %q should be empty", table)
	}
	if err := schema.Compatible(src, dst); err != nil {
		return nil, err
	}
	writers := []schema.Writer{writer}
	if settings.WriterWorkers > 1 {
		writers = make([]schema.Writer, settings.WriterWorkers)
		for i := range writers {
			if writers[i], err = writer.Clone(ctx); err != nil {
				return nil, fmt.Errorf("clone writer for table %q: %w", table, err)
			}
		}
	}
	return &TableMigrator{
		reader:   reader,
		writers:  writers,
		target:   dst,
		progress: NewProgress(table, src.NumRows, settings.Logger),
		settings: settings,
		queue:    make(chan schema.Row, settings.QueueSize),
		stop:     make(chan struct{}),
	}, nil
}

// Stop requests cooperative cancellation. Workers observe it at their
// next suspension point.
func (m *TableMigrator) Stop() {
	m.stopped.Store(true)
	m.stopOnce.Do(func() { close(m.stop) })
}

// Progress exposes the table's row counters.
func (m *TableMigrator) Progress() *Progress { return m.progress }

// Run spawns the reader and the writer workers and joins them. The first
// recorded non-stop error is returned; peers that exited on the stop flag
// are discarded.
func (m *TableMigrator) Run(ctx context.Context) error {
	defer m.progress.Close()
	m.settings.Logger.Infof("Start moving data of table %s", m.target.Name)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.finish(m.runReader(ctx))
	})
	for _, w := range m.writers {
		w := w
		g.Go(func() error {
			return m.finish(m.runWriter(ctx, w))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.progress.FinishWriter()
	return nil
}

// finish translates a worker result: a stop exit is swallowed, a real
// error trips the shared flag so peers stand down.
func (m *TableMigrator) finish(err error) error {
	if err == nil || errors.Is(err, errStopped) {
		return nil
	}
	m.Stop()
	return err
}

// runReader streams the source into the queue. Closing the queue is the
// end-of-stream signal for the writers, on success and on failure alike.
func (m *TableMigrator) runReader(ctx context.Context) error {
	defer close(m.queue)
	rows, err := m.reader.ReadRows(ctx, m.target)
	if err != nil {
		return fmt.Errorf("read source table %q: %w", m.target.Name, err)
	}
	defer rows.Close()
	for rows.Next() {
		if m.stopped.Load() {
			return errStopped
		}
		row, err := rows.Row()
		if err != nil {
			return err
		}
		select {
		case m.queue <- row:
		case <-m.stop:
			return errStopped
		}
		m.progress.IncReader(1)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	m.progress.FinishReader()
	return nil
}

// runWriter drains the queue into batches and flushes the remainder once
// the stream ends.
func (m *TableMigrator) runWriter(ctx context.Context, w schema.Writer) error {
	batch := make([]schema.Row, 0, m.settings.BatchWriteSize)
	for {
		if m.stopped.Load() {
			return errStopped
		}
		select {
		case row, ok := <-m.queue:
			if !ok {
				if len(batch) > 0 {
					return m.writeBatch(ctx, w, batch)
				}
				return nil
			}
			batch = append(batch, row)
			if len(batch) == m.settings.BatchWriteSize {
				if err := m.writeBatch(ctx, w, batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
		case <-m.stop:
			return errStopped
		}
	}
}

// writeBatch writes one batch under the retry schedule. Every recoverable
// failure sleeps the next duration, recovers the writer (retried against
// the same remaining schedule) and tries the batch again; exhaustion
// surfaces the latest error.
func (m *TableMigrator) writeBatch(ctx context.Context, w schema.Writer, batch []schema.Row) error {
	err := w.WriteBatch(ctx, batch, m.target)
	if err == nil {
		m.progress.IncWriter(int64(len(batch)))
		return nil
	}
	retry := NewExponentialWithBase(m.settings.BatchWriteRetries, m.settings.retryBase)
	for schema.IsRecoverable(err) {
		d, ok := retry.Next()
		if !ok {
			break
		}
		m.settings.Logger.Warnf("Writing batch of table %s failed: %v. Retrying in %s", m.target.Name, err, d)
		if stopped := m.sleep(d); stopped {
			return errStopped
		}
		if rerr := m.recoverWriter(ctx, w, retry); rerr != nil {
			return rerr
		}
		if err = w.WriteBatch(ctx, batch, m.target); err == nil {
			m.progress.IncWriter(int64(len(batch)))
			return nil
		}
	}
	return fmt.Errorf("write batch into table %q: %w", m.target.Name, err)
}

// recoverWriter re-establishes the writer, retrying against the remaining
// schedule. The schedule running dry surfaces the recover error itself.
func (m *TableMigrator) recoverWriter(ctx context.Context, w schema.Writer, retry *Exponential) error {
	err := w.Recover(ctx)
	for err != nil {
		d, ok := retry.Next()
		if !ok {
			return fmt.Errorf("recover writer of table %q: %w", m.target.Name, err)
		}
		m.settings.Logger.Warnf("Recovering writer of table %s failed: %v. Retrying in %s", m.target.Name, err, d)
		if stopped := m.sleep(d); stopped {
			return errStopped
		}
		err = w.Recover(ctx)
	}
	return nil
}

// sleep waits for d and reports whether the stop flag fired first.
func (m *TableMigrator) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-m.stop:
		return true
	}
}
