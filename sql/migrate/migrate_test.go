// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/dbmover/dbmover/sql/schema"
	"github.com/dbmover/dbmover/sql/sqlclient"

	"github.com/stretchr/testify/require"
)

// fakeDriver adapts mockDB to the sqlclient contract for driver tests.
type fakeDriver struct {
	*mockDB
	tables []string
}

func (f *fakeDriver) Tables(context.Context) ([]string, error) { return f.tables, nil }
func (f *fakeDriver) Close() error                             { return nil }

var (
	memMu  sync.Mutex
	memDBs = map[string]*fakeDriver{}
)

func init() {
	sqlclient.Register("mem", sqlclient.OpenerFunc(func(_ context.Context, u *url.URL) (sqlclient.Driver, error) {
		memMu.Lock()
		defer memMu.Unlock()
		d, ok := memDBs[u.Host]
		if !ok {
			return nil, fmt.Errorf("mem: unknown database %q", u.Host)
		}
		return d, nil
	}))
}

func registerMem(t *testing.T, name string, d *fakeDriver) {
	t.Helper()
	memMu.Lock()
	defer memMu.Unlock()
	memDBs[name] = d
	t.Cleanup(func() {
		memMu.Lock()
		defer memMu.Unlock()
		delete(memDBs, name)
	})
}

func testConfig() *Config {
	return &Config{
		Input:    "mem://src",
		Output:   "mem://dst",
		Settings: testSettings(),
	}
}

func TestDriverRun(t *testing.T) {
	src := &fakeDriver{
		mockDB: &mockDB{info: srcInfo(), rows: &mockRows{n: 7}},
		tables: []string{testTable},
	}
	dst := &fakeDriver{
		mockDB: &mockDB{info: dstInfo()},
		tables: []string{testTable},
	}
	registerMem(t, "src", src)
	registerMem(t, "dst", dst)

	require.NoError(t, Run(context.Background(), testConfig()))
	require.Len(t, dst.writes, 1)
	require.Len(t, dst.writes[0], 7)
}

func TestDriverRun_DryRun(t *testing.T) {
	src := &fakeDriver{
		mockDB: &mockDB{info: srcInfo(), rows: &mockRows{n: 7}},
		tables: []string{testTable},
	}
	dst := &fakeDriver{
		mockDB: &mockDB{info: dstInfo()},
		tables: []string{testTable},
	}
	registerMem(t, "src", src)
	registerMem(t, "dst", dst)

	cfg := testConfig()
	cfg.DryRun = true
	require.NoError(t, Run(context.Background(), cfg))
	require.Empty(t, dst.writes)
}

func TestDriverRun_DryRunStillChecks(t *testing.T) {
	ten := int64(10)
	src := &fakeDriver{
		mockDB: &mockDB{info: srcInfo()},
		tables: []string{testTable},
	}
	dst := &fakeDriver{
		mockDB: &mockDB{info: &schema.TableInfo{Name: testTable, NumRows: &ten}},
		tables: []string{testTable},
	}
	registerMem(t, "src", src)
	registerMem(t, "dst", dst)

	cfg := testConfig()
	cfg.DryRun = true
	err := Run(context.Background(), cfg)
	require.ErrorContains(t, err, "should be empty")
}

func TestDriverRun_MissingTable(t *testing.T) {
	src := &fakeDriver{mockDB: &mockDB{info: srcInfo()}, tables: []string{testTable}}
	dst := &fakeDriver{mockDB: &mockDB{info: dstInfo()}, tables: nil}
	registerMem(t, "src", src)
	registerMem(t, "dst", dst)

	cfg := testConfig()
	cfg.Tables = []string{testTable}
	err := Run(context.Background(), cfg)
	require.ErrorContains(t, err, `does not exist in the output database`)
}

func TestDriverRun_AutoDetectIntersection(t *testing.T) {
	src := &fakeDriver{
		mockDB: &mockDB{info: srcInfo(), rows: &mockRows{n: 3}},
		tables: []string{"other", testTable},
	}
	dst := &fakeDriver{
		mockDB: &mockDB{info: dstInfo()},
		tables: []string{testTable},
	}
	registerMem(t, "src", src)
	registerMem(t, "dst", dst)

	require.NoError(t, Run(context.Background(), testConfig()))
	require.Len(t, dst.writes, 1)
}

func TestDriverRun_NoCommonTables(t *testing.T) {
	src := &fakeDriver{mockDB: &mockDB{info: srcInfo()}, tables: []string{"a"}}
	dst := &fakeDriver{mockDB: &mockDB{info: dstInfo()}, tables: []string{"b"}}
	registerMem(t, "src", src)
	registerMem(t, "dst", dst)

	err := Run(context.Background(), testConfig())
	require.ErrorContains(t, err, "no common tables")
}
