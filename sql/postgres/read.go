// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dbmover/dbmover/sql/internal/sqlx"
	"github.com/dbmover/dbmover/sql/schema"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ReadRows streams the table with a server-side cursor; rows are decoded
// lazily as the cursor advances. JSON-family columns are selected as text
// so documents and document arrays transit verbatim.
func (d *Driver) ReadRows(ctx context.Context, target *schema.TableInfo) (schema.Rows, error) {
	cols := make([]string, len(target.Columns))
	for i, c := range target.Columns {
		cols[i] = sqlx.Ident(c.Name)
		if c.Type == schema.TypeJSON {
			cols[i] += "::text"
		}
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), sqlx.Ident(target.Name))
	rows, err := d.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: read table %q: %w", target.Name, err)
	}
	return &cursor{rows: rows, target: target}, nil
}

type cursor struct {
	rows   pgx.Rows
	target *schema.TableInfo
	err    error
}

func (c *cursor) Next() bool {
	if c.err != nil {
		return false
	}
	return c.rows.Next()
}

func (c *cursor) Row() (schema.Row, error) {
	holders := make([]any, len(c.target.Columns))
	for i, col := range c.target.Columns {
		holders[i] = newHolder(col.Type)
	}
	if err := c.rows.Scan(holders...); err != nil {
		c.err = fmt.Errorf("postgres: scan row of %q: %w", c.target.Name, err)
		return nil, c.err
	}
	row := make(schema.Row, len(holders))
	for i, col := range c.target.Columns {
		v, err := holderValue(col.Type, holders[i])
		if err != nil {
			c.err = fmt.Errorf("postgres: column %q: %w", col.Name, err)
			return nil, c.err
		}
		row[i] = v
	}
	return row, nil
}

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return fmt.Errorf("postgres: read rows of %q: %w", c.target.Name, err)
	}
	return nil
}

func (c *cursor) Close() error {
	c.rows.Close()
	return nil
}

// newHolder returns a scan destination for one cell of the given neutral
// type. The pgtype wrappers carry validity, so NULL needs no separate
// bookkeeping.
func newHolder(t schema.ColumnType) any {
	switch t {
	case schema.TypeI16:
		return &pgtype.Int2{}
	case schema.TypeI32:
		return &pgtype.Int4{}
	case schema.TypeI64:
		return &pgtype.Int8{}
	case schema.TypeF32:
		return &pgtype.Float4{}
	case schema.TypeF64:
		return &pgtype.Float8{}
	case schema.TypeBool:
		return &pgtype.Bool{}
	case schema.TypeString, schema.TypeJSON:
		return &pgtype.Text{}
	case schema.TypeBytes:
		// A nil slice reports NULL; bytea needs no validity wrapper.
		return new([]byte)
	case schema.TypeTimestamp:
		return &pgtype.Timestamp{}
	case schema.TypeTimestamptz:
		return &pgtype.Timestamptz{}
	case schema.TypeDate:
		return &pgtype.Date{}
	case schema.TypeTime:
		return &pgtype.Time{}
	case schema.TypeUUID:
		return &pgtype.UUID{}
	}
	return new(any)
}

// holderValue converts a filled holder back to a neutral value.
func holderValue(t schema.ColumnType, h any) (schema.Value, error) {
	switch t {
	case schema.TypeI16:
		v := h.(*pgtype.Int2)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.I16{V: v.Int16}, nil
	case schema.TypeI32:
		v := h.(*pgtype.Int4)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.I32{V: v.Int32}, nil
	case schema.TypeI64:
		v := h.(*pgtype.Int8)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.I64{V: v.Int64}, nil
	case schema.TypeF32:
		v := h.(*pgtype.Float4)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.F32{V: v.Float32}, nil
	case schema.TypeF64:
		v := h.(*pgtype.Float8)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.F64{V: v.Float64}, nil
	case schema.TypeBool:
		v := h.(*pgtype.Bool)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.Bool{V: v.Bool}, nil
	case schema.TypeString:
		v := h.(*pgtype.Text)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.String{V: v.String}, nil
	case schema.TypeJSON:
		v := h.(*pgtype.Text)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.JSON{V: []byte(v.String)}, nil
	case schema.TypeBytes:
		v := h.(*[]byte)
		if *v == nil {
			return schema.Null{}, nil
		}
		return schema.Bytes{V: *v}, nil
	case schema.TypeTimestamp:
		v := h.(*pgtype.Timestamp)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.Timestamp{V: v.Time}, nil
	case schema.TypeTimestamptz:
		v := h.(*pgtype.Timestamptz)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.Timestamptz{V: v.Time.UTC()}, nil
	case schema.TypeDate:
		v := h.(*pgtype.Date)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.Date{V: v.Time}, nil
	case schema.TypeTime:
		v := h.(*pgtype.Time)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.Time{V: time.Duration(v.Microseconds) * time.Microsecond}, nil
	case schema.TypeUUID:
		v := h.(*pgtype.UUID)
		if !v.Valid {
			return schema.Null{}, nil
		}
		return schema.UUID{V: uuid.UUID(v.Bytes)}, nil
	}
	return nil, fmt.Errorf("unsupported column type %s", t)
}
