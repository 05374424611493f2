// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbmover/dbmover/sql/internal/sqlx"
	"github.com/dbmover/dbmover/sql/schema"
)

// ReadRows streams the table over the text protocol and decodes each cell
// by the target column type.
func (d *Driver) ReadRows(ctx context.Context, target *schema.TableInfo) (schema.Rows, error) {
	query := fmt.Sprintf("SELECT %s FROM %s",
		sqlx.Idents(target.ColumnNames(), sqlx.MySQLIdent), sqlx.MySQLIdent(target.Name))
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mysql: read table %q: %w", target.Name, err)
	}
	return &cursor{rows: rows, target: target}, nil
}

type cursor struct {
	rows   *sql.Rows
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
	raw := make([][]byte, len(c.target.Columns))
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = fmt.Errorf("mysql: scan row of %q: %w", c.target.Name, err)
		return nil, c.err
	}
	row := make(schema.Row, len(raw))
	for i, col := range c.target.Columns {
		v, err := decodeValue(&col, raw[i])
		if err != nil {
			c.err = fmt.Errorf("mysql: column %q: %w", col.Name, err)
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
		return fmt.Errorf("mysql: read rows of %q: %w", c.target.Name, err)
	}
	return nil
}

func (c *cursor) Close() error { return c.rows.Close() }
