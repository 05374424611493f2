// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package mysql provides the MySQL/MariaDB adapter: COLUMN_TYPE based
// introspection, text-protocol streaming reads and cached multi-row
// prepared inserts. Connections pin their session time zone to UTC so
// server-stored TIMESTAMP values read back as UTC instants.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/dbmover/dbmover/sql/internal/sqlx"
	"github.com/dbmover/dbmover/sql/schema"
	"github.com/dbmover/dbmover/sql/sqlclient"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

func init() {
	sqlclient.Register("mysql", sqlclient.OpenerFunc(func(ctx context.Context, u *url.URL) (sqlclient.Driver, error) {
		dsn, opts, err := parseURL(u)
		if err != nil {
			return nil, err
		}
		return Open(ctx, dsn, opts)
	}))
}

// Options control dialect-specific type mappings.
type Options struct {
	// Binary16AsUUID maps binary(16) columns to the neutral UUID type.
	Binary16AsUUID bool
	// TinyInt1AsBool maps tinyint(1) columns to the neutral Bool type.
	TinyInt1AsBool bool
}

// DefaultOptions returns the default mappings, both enabled.
func DefaultOptions() Options {
	return Options{Binary16AsUUID: true, TinyInt1AsBool: true}
}

// parseURL converts a mysql:// URL to a go-sql-driver DSN and extracts
// the adapter options from its query parameters.
func parseURL(u *url.URL) (string, Options, error) {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	opts := DefaultOptions()
	for k, vs := range u.Query() {
		switch k {
		case "binary16-as-uuid":
			opts.Binary16AsUUID = vs[0] != "false"
		case "tinyint1-as-bool":
			opts.TinyInt1AsBool = vs[0] != "false"
		default:
			return "", opts, fmt.Errorf("mysql: unknown option %q", k)
		}
	}
	return cfg.FormatDSN(), opts, nil
}

// Driver is the MySQL adapter. It owns one connection, knows whether the
// server is MariaDB, and caches prepared insert statements; the cache is
// dropped on Recover together with the connection.
type Driver struct {
	dsn     string
	opts    Options
	db      *sql.DB
	mariadb bool
	stmts   map[string]*sql.Stmt
}

// Open connects using a go-sql-driver DSN.
func Open(ctx context.Context, dsn string, opts Options) (*Driver, error) {
	d := &Driver{dsn: dsn, opts: opts}
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// connect dials the server, pins the session zone to UTC and sniffs the
// server flavour from VERSION().
func (d *Driver) connect(ctx context.Context) error {
	db, err := sql.Open("mysql", d.dsn)
	if err != nil {
		return fmt.Errorf("mysql: open: %w", err)
	}
	// The session variables below belong to a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "SET time_zone = 'UTC'"); err != nil {
		db.Close()
		return fmt.Errorf("mysql: set session time zone: %w", err)
	}
	var version string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		db.Close()
		return fmt.Errorf("mysql: query version: %w", err)
	}
	d.db = db
	d.mariadb = strings.Contains(strings.ToLower(version), "mariadb")
	d.stmts = make(map[string]*sql.Stmt)
	logrus.Debugf("Connected to mysql %s", d.dsn)
	return nil
}

// Close closes the connection.
func (d *Driver) Close() error { return d.db.Close() }

// Recover reconnects, reapplies the UTC session and drops the prepared
// statement cache.
func (d *Driver) Recover(ctx context.Context) error {
	_ = d.db.Close()
	return d.connect(ctx)
}

// Clone opens an independent writer over a new connection to the same
// server.
func (d *Driver) Clone(ctx context.Context) (schema.Writer, error) {
	return Open(ctx, d.dsn, d.opts)
}

// Tables returns the base tables of the connected database.
func (d *Driver) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = database() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME",
	)
	if err != nil {
		return nil, fmt.Errorf("mysql: query tables: %w", err)
	}
	names, err := sqlx.ScanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("mysql: scan table names: %w", err)
	}
	return names, nil
}

// Describe returns the table description. COLUMN_TYPE is used rather than
// DATA_TYPE so widths survive, which tinyint(1) and binary(16) mapping
// depends on. On MariaDB, longtext columns constrained by a
// json_valid CHECK are reinterpreted as JSON.
func (d *Driver) Describe(ctx context.Context, table string, count bool) (*schema.TableInfo, error) {
	info := &schema.TableInfo{Name: table}
	if count {
		var n int64
		query := fmt.Sprintf("SELECT count(1) FROM %s", sqlx.MySQLIdent(table))
		rows, err := d.db.QueryContext(ctx, query)
		if err == nil {
			err = sqlx.ScanOne(rows, &n)
		}
		if err != nil {
			return nil, fmt.Errorf("mysql: count rows of %q: %w", table, err)
		}
		info.NumRows = &n
	}
	jsonColumns, err := d.jsonCheckedColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx,
		"SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = database() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION",
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("mysql: query columns of %q: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, typ, nullable string
		if err := rows.Scan(&name, &typ, &nullable); err != nil {
			return nil, fmt.Errorf("mysql: scan column of %q: %w", table, err)
		}
		ct, err := d.columnType(typ, jsonColumns[name])
		if err != nil {
			return nil, fmt.Errorf("mysql: column %q of table %q: %w", name, table, err)
		}
		info.Columns = append(info.Columns, schema.Column{Name: name, Type: ct, Nullable: nullable == "YES"})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql: read columns of %q: %w", table, err)
	}
	if len(info.Columns) == 0 {
		return nil, fmt.Errorf("mysql: table %q was not found", table)
	}
	return info, nil
}

// jsonCheckedColumns returns the columns of the table constrained by a
// MariaDB json_valid CHECK. MySQL has a native json type and reports
// nothing here.
func (d *Driver) jsonCheckedColumns(ctx context.Context, table string) (map[string]bool, error) {
	if !d.mariadb {
		return nil, nil
	}
	rows, err := d.db.QueryContext(ctx,
		"SELECT CHECK_CLAUSE FROM INFORMATION_SCHEMA.CHECK_CONSTRAINTS WHERE CONSTRAINT_SCHEMA = database() AND TABLE_NAME = ?",
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("mysql: query check constraints of %q: %w", table, err)
	}
	clauses, err := sqlx.ScanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("mysql: scan check constraints of %q: %w", table, err)
	}
	checked := make(map[string]bool)
	for _, clause := range clauses {
		if col, ok := jsonValidColumn(clause); ok {
			checked[col] = true
		}
	}
	return checked, nil
}

// jsonValidColumn extracts the column name from a clause of the exact
// form json_valid(`col`).
func jsonValidColumn(clause string) (string, bool) {
	clause = strings.TrimSpace(clause)
	rest, ok := strings.CutPrefix(clause, "json_valid(`")
	if !ok {
		return "", false
	}
	col, ok := strings.CutSuffix(rest, "`)")
	if !ok || col == "" {
		return "", false
	}
	return col, true
}
