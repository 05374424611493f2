// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestProgress_Counters(t *testing.T) {
	total := int64(100)
	p := NewProgress("test", &total, discardLogger())
	p.IncReader(3)
	p.IncReader(2)
	p.IncWriter(4)
	require.EqualValues(t, 5, p.ReaderRows())
	require.EqualValues(t, 4, p.WriterRows())
	p.FinishReader()
	p.FinishWriter()
	p.Close()
}

func TestProgress_NoTotal(t *testing.T) {
	p := NewProgress("test", nil, discardLogger())
	p.IncReader(1)
	line := p.line(p.ReaderRows(), false)
	require.Contains(t, line, "Processed: 1")
	require.NotContains(t, line, "%")
}

func TestProgress_Line(t *testing.T) {
	total := int64(1000)
	p := NewProgress("test", &total, discardLogger())
	p.started = time.Now().Add(-2 * time.Second)
	p.IncWriter(500)
	line := p.line(p.WriterRows(), false)
	require.Contains(t, line, "50.00%")
	require.Contains(t, line, "(500/1,000)")
	require.Contains(t, line, "ETA:")
	done := p.line(p.WriterRows(), true)
	require.Contains(t, done, "done")
}

func TestFormatDuration(t *testing.T) {
	for _, tt := range []struct {
		d        time.Duration
		expected string
	}{
		{d: 0, expected: "00:00:00"},
		{d: 61 * time.Second, expected: "00:01:01"},
		{d: 3*time.Hour + 25*time.Minute + 45*time.Second, expected: "03:25:45"},
		{d: 26*time.Hour + time.Minute, expected: "1d 02:01:00"},
	} {
		require.Equal(t, tt.expected, formatDuration(tt.d))
	}
}
