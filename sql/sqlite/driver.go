// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package sqlite provides the SQLite adapter: introspection, streaming
// reads and transactional batch writes against a database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/dbmover/dbmover/sql/internal/sqlx"
	"github.com/dbmover/dbmover/sql/schema"
	"github.com/dbmover/dbmover/sql/sqlclient"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// DriverName holds the database/sql driver name used for registration.
const DriverName = "sqlite3"

func init() {
	sqlclient.Register("sqlite", sqlclient.OpenerFunc(func(ctx context.Context, u *url.URL) (sqlclient.Driver, error) {
		return Open(ctx, dsn(u))
	}))
}

// dsn converts a sqlite:// URL to a go-sqlite3 DSN opening the file with
// the read-write, create and URI flags.
func dsn(u *url.URL) string {
	path := strings.TrimPrefix(u.String(), u.Scheme+"://")
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	if strings.Contains(path, "?") {
		return path + "&mode=rwc&_loc=UTC"
	}
	return path + "?mode=rwc&_loc=UTC"
}

// Driver is the SQLite adapter. A single connection serves introspection,
// reads and writes; SQLite is process-local and write failures are never
// retried.
type Driver struct {
	db *sql.DB
}

// Open opens the database file referred to by the go-sqlite3 DSN.
func Open(ctx context.Context, dsn string) (*Driver, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}
	// A file-backed connection must not be shared between statements of
	// different goroutines holding a transaction.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: connect %q: %w", dsn, err)
	}
	logrus.Debugf("Connected to sqlite %s", dsn)
	return &Driver{db: db}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.db.Close() }

// Tables returns the names of the user tables in sqlite_master.
func (d *Driver) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query sqlite_master: %w", err)
	}
	names, err := sqlx.ScanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan table names: %w", err)
	}
	return names, nil
}

// Describe returns the table description built from pragma_table_info,
// ordered by column id.
func (d *Driver) Describe(ctx context.Context, table string, count bool) (*schema.TableInfo, error) {
	info := &schema.TableInfo{Name: table}
	if count {
		var n int64
		query := fmt.Sprintf("SELECT count(1) FROM %s", sqlx.Ident(table))
		rows, err := d.db.QueryContext(ctx, query)
		if err == nil {
			err = sqlx.ScanOne(rows, &n)
		}
		if err != nil {
			return nil, fmt.Errorf("sqlite: count rows of %q: %w", table, err)
		}
		info.NumRows = &n
	}
	rows, err := d.db.QueryContext(ctx,
		"SELECT name, type, `notnull` FROM pragma_table_info(?) ORDER BY cid", table,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query table info of %q: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name, typ string
			notNull   bool
		)
		if err := rows.Scan(&name, &typ, &notNull); err != nil {
			return nil, fmt.Errorf("sqlite: scan column of %q: %w", table, err)
		}
		ct, err := schema.ParseColumnType(typ)
		if err != nil {
			return nil, fmt.Errorf("sqlite: column %q of table %q: %w", name, table, err)
		}
		info.Columns = append(info.Columns, schema.Column{Name: name, Type: ct, Nullable: !notNull})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read columns of %q: %w", table, err)
	}
	if len(info.Columns) == 0 {
		return nil, fmt.Errorf("sqlite: table %q was not found", table)
	}
	return info, nil
}
