// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlite

import (
	"context"
	"fmt"

	"github.com/dbmover/dbmover/sql/internal/sqlx"
	"github.com/dbmover/dbmover/sql/schema"
)

// WriteBatch inserts the batch inside one transaction, executing a
// prepared single-row insert once per row. SQLite is process-local, so
// every failure is final; no error is marked recoverable.
func (d *Driver) WriteBatch(ctx context.Context, batch []schema.Row, target *schema.TableInfo) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer tx.Rollback()
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		sqlx.Ident(target.Name),
		sqlx.Idents(target.ColumnNames(), sqlx.Ident),
		sqlx.Placeholders(len(target.Columns)),
	)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert into %q: %w", target.Name, err)
	}
	defer stmt.Close()
	for _, row := range batch {
		if err := schema.RowConforms(row, target); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		args := make([]any, len(row))
		for i, v := range row {
			if args[i], err = encodeValue(v); err != nil {
				return fmt.Errorf("sqlite: column %q: %w", target.Columns[i].Name, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlite: insert into %q: %w", target.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit batch: %w", err)
	}
	return nil
}

// Recover is a no-op. The connection is a local file handle and failures
// are never transient.
func (d *Driver) Recover(context.Context) error { return nil }

// Clone returns ErrCloneUnsupported. Concurrent writers would contend on
// the single database file lock.
func (d *Driver) Clone(context.Context) (schema.Writer, error) {
	return nil, schema.ErrCloneUnsupported
}
