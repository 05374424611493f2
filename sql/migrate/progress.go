// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Progress tracks the rows read and written for one table and emits
// rate-limited human-readable lines through the logger. The counters are
// relaxed atomics; they carry no synchronization, only numbers.
type Progress struct {
	table    string
	total    int64
	hasTotal bool
	started  time.Time
	logger   *logrus.Logger

	reader       atomic.Int64
	writer       atomic.Int64
	readerDone   atomic.Bool
	writerDone   atomic.Bool
	lastEmitSecs atomic.Int64
}

// NewProgress returns a tracker for the table. total is the source row
// count, or nil when the pre-flight count was skipped.
func NewProgress(table string, total *int64, logger *logrus.Logger) *Progress {
	p := &Progress{table: table, started: time.Now(), logger: logger}
	if total != nil {
		p.total, p.hasTotal = *total, true
	}
	return p
}

// IncReader advances the rows-read counter.
func (p *Progress) IncReader(n int64) {
	p.reader.Add(n)
	p.maybeLog()
}

// IncWriter advances the rows-written counter.
func (p *Progress) IncWriter(n int64) {
	p.writer.Add(n)
	p.maybeLog()
}

// ReaderRows returns the rows read so far.
func (p *Progress) ReaderRows() int64 { return p.reader.Load() }

// WriterRows returns the rows written so far.
func (p *Progress) WriterRows() int64 { return p.writer.Load() }

// FinishReader marks the reading side complete; subsequent lines annotate
// it as finished.
func (p *Progress) FinishReader() { p.readerDone.Store(true) }

// FinishWriter marks the writing side complete.
func (p *Progress) FinishWriter() { p.writerDone.Store(true) }

// Close emits a final pair of lines if any rows moved.
func (p *Progress) Close() {
	if p.reader.Load() > 0 || p.writer.Load() > 0 {
		p.log()
	}
}

// maybeLog emits at most one progress report per second. A CAS on the
// last-emit second keeps concurrent workers from stacking lines.
func (p *Progress) maybeLog() {
	now := int64(time.Since(p.started) / time.Second)
	last := p.lastEmitSecs.Load()
	if now <= last {
		return
	}
	if p.lastEmitSecs.CompareAndSwap(last, now) {
		p.log()
	}
}

func (p *Progress) log() {
	p.logger.Infof("Reading table %s %s", p.table, p.line(p.reader.Load(), p.readerDone.Load()))
	p.logger.Infof("Writing table %s %s", p.table, p.line(p.writer.Load(), p.writerDone.Load()))
}

// line renders one side: elapsed, percentage when the total is known,
// current throughput and the remaining-time estimate.
func (p *Progress) line(current int64, done bool) string {
	elapsed := time.Since(p.started)
	secs := int64(elapsed / time.Second)
	if secs < 1 {
		secs = 1
	}
	perSec := current / secs
	status := ""
	if done {
		status = " done"
	}
	if !p.hasTotal || p.total == 0 {
		return fmt.Sprintf("[%s] Processed: %s Rows per sec: %s%s",
			formatDuration(elapsed), humanize.Comma(current), humanize.Comma(perSec), status)
	}
	percent := current * 10000 / p.total
	eta := "--:--:--"
	if perSec > 0 {
		eta = formatDuration(time.Duration((p.total-current)/perSec) * time.Second)
	}
	return fmt.Sprintf("[%s] Processed: %d.%02d%% (%s/%s) Rows per sec: %s ETA: %s%s",
		formatDuration(elapsed), percent/100, percent%100,
		humanize.Comma(current), humanize.Comma(p.total), humanize.Comma(perSec), eta, status)
}

// formatDuration renders hh:mm:ss, with a day prefix past 24 hours.
func formatDuration(d time.Duration) string {
	t := int64(d / time.Second)
	seconds := t % 60
	t /= 60
	minutes := t % 60
	t /= 60
	hours := t % 24
	t /= 24
	if t > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", t, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
