// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dbmover/dbmover/sql/internal/sqlx"
	"github.com/dbmover/dbmover/sql/schema"
)

// WriteBatch bulk-loads the batch with a binary COPY. Wire failures are
// reported recoverable; encoding failures are conversion errors and final.
func (d *Driver) WriteBatch(ctx context.Context, batch []schema.Row, target *schema.TableInfo) error {
	if len(batch) == 0 {
		return nil
	}
	fields, err := d.tableFields(ctx, target.Name)
	if err != nil {
		return schema.Recoverable(err)
	}
	var buf bytes.Buffer
	writeCopyHeader(&buf)
	for _, row := range batch {
		if err := schema.RowConforms(row, target); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := writeCopyRow(&buf, row, fields); err != nil {
			return fmt.Errorf("postgres: encode row for %q: %w", target.Name, err)
		}
	}
	writeCopyTrailer(&buf)
	query := fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT binary)",
		sqlx.Ident(target.Name), sqlx.Idents(target.ColumnNames(), sqlx.Ident))
	if _, err := d.conn.PgConn().CopyFrom(ctx, bytes.NewReader(buf.Bytes()), query); err != nil {
		return schema.Recoverable(fmt.Errorf("postgres: copy into %q: %w", target.Name, err))
	}
	return nil
}
