// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package postgres provides the PostgreSQL adapter: introspection through
// information_schema zipped with prepared-statement descriptors, streaming
// reads, and bulk writes over the binary COPY protocol.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dbmover/dbmover/sql/internal/sqlx"
	"github.com/dbmover/dbmover/sql/schema"
	"github.com/dbmover/dbmover/sql/sqlclient"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sirupsen/logrus"
)

func init() {
	sqlclient.Register("postgres", sqlclient.OpenerFunc(func(ctx context.Context, u *url.URL) (sqlclient.Driver, error) {
		return Open(ctx, u.String())
	}))
}

type (
	// Driver is the PostgreSQL adapter. It owns one connection and a
	// per-table column metadata cache that is dropped on Recover.
	Driver struct {
		uri  string
		conn *pgx.Conn
		meta map[string][]field
	}

	// field is the cached descriptor of one destination column: its name,
	// server type OID and nullability, in ordinal order.
	field struct {
		name     string
		oid      uint32
		nullable bool
	}
)

// Open connects to the server behind the connection string.
func Open(ctx context.Context, uri string) (*Driver, error) {
	conn, err := pgx.Connect(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	logrus.Debugf("Connected to postgres %s", uri)
	return &Driver{uri: uri, conn: conn, meta: make(map[string][]field)}, nil
}

// Close closes the connection.
func (d *Driver) Close() error {
	return d.conn.Close(context.Background())
}

// Recover reconnects using the saved connection string and invalidates
// the column metadata cache.
func (d *Driver) Recover(ctx context.Context) error {
	_ = d.conn.Close(ctx)
	conn, err := pgx.Connect(ctx, d.uri)
	if err != nil {
		return fmt.Errorf("postgres: reconnect: %w", err)
	}
	d.conn = conn
	d.meta = make(map[string][]field)
	return nil
}

// Clone opens an independent writer over a new connection to the same
// server, allowing multiple writer workers.
func (d *Driver) Clone(ctx context.Context) (schema.Writer, error) {
	return Open(ctx, d.uri)
}

// Tables returns the base tables of the connected schema.
func (d *Driver) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.conn.Query(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name",
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: query tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("postgres: scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read tables: %w", err)
	}
	return names, nil
}

// Describe returns the table description in the neutral model. The server
// type of each column comes from the cached field descriptors.
func (d *Driver) Describe(ctx context.Context, table string, count bool) (*schema.TableInfo, error) {
	info := &schema.TableInfo{Name: table}
	if count {
		var n int64
		query := fmt.Sprintf("SELECT count(1) FROM %s", sqlx.Ident(table))
		if err := d.conn.QueryRow(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("postgres: count rows of %q: %w", table, err)
		}
		info.NumRows = &n
	}
	fields, err := d.tableFields(ctx, table)
	if err != nil {
		return nil, err
	}
	info.Columns = make([]schema.Column, len(fields))
	for i, f := range fields {
		ct, ok := typeOf(f.oid)
		if !ok {
			return nil, fmt.Errorf("postgres: column %q of table %q has unsupported type oid %d", f.name, table, f.oid)
		}
		info.Columns[i] = schema.Column{Name: f.name, Type: ct, Nullable: f.nullable}
	}
	return info, nil
}

// tableFields returns the cached column descriptors of the table, loading
// them on first use. Names and nullability come from information_schema,
// server type OIDs from the prepared-statement descriptor of a star
// select; the two listings must agree on count and names.
func (d *Driver) tableFields(ctx context.Context, table string) ([]field, error) {
	if fields, ok := d.meta[table]; ok {
		return fields, nil
	}
	rows, err := d.conn.Query(ctx,
		"SELECT column_name, is_nullable FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position",
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: query columns of %q: %w", table, err)
	}
	defer rows.Close()
	var fields []field
	for rows.Next() {
		var name, nullable string
		if err := rows.Scan(&name, &nullable); err != nil {
			return nil, fmt.Errorf("postgres: scan column of %q: %w", table, err)
		}
		fields = append(fields, field{name: name, nullable: nullable == "YES"})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read columns of %q: %w", table, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("postgres: table %q was not found", table)
	}
	stmt := "dbmover_describe_" + table
	sd, err := d.conn.Prepare(ctx, stmt, fmt.Sprintf("SELECT * FROM %s", sqlx.Ident(table)))
	if err != nil {
		return nil, fmt.Errorf("postgres: describe %q: %w", table, err)
	}
	defer func() { _ = d.conn.Deallocate(ctx, stmt) }()
	if len(sd.Fields) != len(fields) {
		return nil, fmt.Errorf("postgres: table %q: statement describes %d columns, information_schema lists %d", table, len(sd.Fields), len(fields))
	}
	for i, fd := range sd.Fields {
		if fd.Name != fields[i].name {
			return nil, fmt.Errorf("postgres: table %q: column %d is %q in the statement but %q in information_schema", table, i, fd.Name, fields[i].name)
		}
		fields[i].oid = fd.DataTypeOID
	}
	d.meta[table] = fields
	return fields, nil
}

// typeOf maps a server type OID to the neutral column type.
func typeOf(oid uint32) (schema.ColumnType, bool) {
	switch oid {
	case pgtype.Int2OID:
		return schema.TypeI16, true
	case pgtype.Int4OID:
		return schema.TypeI32, true
	case pgtype.Int8OID:
		return schema.TypeI64, true
	case pgtype.Float4OID:
		return schema.TypeF32, true
	case pgtype.Float8OID:
		return schema.TypeF64, true
	case pgtype.BoolOID:
		return schema.TypeBool, true
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID:
		return schema.TypeString, true
	case pgtype.ByteaOID:
		return schema.TypeBytes, true
	case pgtype.TimestampOID:
		return schema.TypeTimestamp, true
	case pgtype.TimestamptzOID:
		return schema.TypeTimestamptz, true
	case pgtype.DateOID:
		return schema.TypeDate, true
	case pgtype.TimeOID:
		return schema.TypeTime, true
	case pgtype.JSONOID, pgtype.JSONBOID, pgtype.JSONArrayOID, pgtype.JSONBArrayOID:
		return schema.TypeJSON, true
	case pgtype.UUIDOID:
		return schema.TypeUUID, true
	}
	return 0, false
}
