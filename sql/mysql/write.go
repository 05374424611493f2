// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbmover/dbmover/sql/internal/sqlx"
	"github.com/dbmover/dbmover/sql/schema"
)

// WriteBatch inserts the batch with one multi-row prepared INSERT, which
// commits implicitly. The statement is cached by shape so steady-state
// batches skip re-preparation; the short residual batch prepares once.
// Driver failures are reported recoverable, conversion failures are final.
func (d *Driver) WriteBatch(ctx context.Context, batch []schema.Row, target *schema.TableInfo) error {
	if len(batch) == 0 {
		return nil
	}
	stmt, err := d.insertStmt(ctx, target, len(batch))
	if err != nil {
		return schema.Recoverable(err)
	}
	args := make([]any, 0, len(batch)*len(target.Columns))
	for _, row := range batch {
		if err := schema.RowConforms(row, target); err != nil {
			return fmt.Errorf("mysql: %w", err)
		}
		for i, v := range row {
			arg, err := encodeValue(v)
			if err != nil {
				return fmt.Errorf("mysql: column %q: %w", target.Columns[i].Name, err)
			}
			args = append(args, arg)
		}
	}
	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return schema.Recoverable(fmt.Errorf("mysql: insert into %q: %w", target.Name, err))
	}
	return nil
}

// insertStmt returns the cached prepared statement for the given batch
// shape, preparing it on first use.
func (d *Driver) insertStmt(ctx context.Context, target *schema.TableInfo, rows int) (*sql.Stmt, error) {
	key := fmt.Sprintf("%s|%d|%d", target.Name, len(target.Columns), rows)
	if stmt, ok := d.stmts[key]; ok {
		return stmt, nil
	}
	placeholder := sqlx.Placeholders(len(target.Columns))
	values := make([]string, rows)
	for i := range values {
		values[i] = placeholder
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		sqlx.MySQLIdent(target.Name),
		sqlx.Idents(target.ColumnNames(), sqlx.MySQLIdent),
		strings.Join(values, ", "),
	)
	stmt, err := d.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mysql: prepare insert into %q: %w", target.Name, err)
	}
	d.stmts[key] = stmt
	return stmt, nil
}
