// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package schema defines the dialect-neutral data model shared by all
// adapters, and the capability contracts an adapter implements: table
// introspection, streaming row reads and batched writes.
package schema

import (
	"context"
	"errors"
	"fmt"
)

type (
	// An InfoProvider lists tables and describes their shape on one side
	// of a migration.
	InfoProvider interface {
		// Tables returns the names of the user tables.
		Tables(ctx context.Context) ([]string, error)

		// Describe returns the table description in the neutral model.
		// When count is true, the table's rows are counted with a
		// "SELECT count(1)", which may be expensive on large tables.
		Describe(ctx context.Context, table string, count bool) (*TableInfo, error)
	}

	// A Reader streams the rows of a table, converted to the target
	// format. The returned cursor is finite, single-pass and not
	// restartable.
	Reader interface {
		InfoProvider

		// ReadRows selects exactly the columns listed in target, in
		// order, converting each cell to the neutral value dictated by
		// the target column type.
		ReadRows(ctx context.Context, target *TableInfo) (Rows, error)
	}

	// Rows is the cursor returned by Reader.ReadRows. Usage follows the
	// database/sql idiom:
	//
	//	for rows.Next() {
	//		row, err := rows.Row()
	//		...
	//	}
	//	if err := rows.Err(); err != nil { ... }
	//
	// After Next reports false or Row returns an error, the cursor is
	// exhausted and Next must not be called again.
	Rows interface {
		Next() bool
		Row() (Row, error)
		Err() error
		Close() error
	}

	// A Writer bulk-inserts batches of rows into a table.
	Writer interface {
		InfoProvider

		// WriteBatch inserts the batch in one transaction. A transient
		// failure is reported wrapped in RecoverableError; any other
		// error is final and retry cannot cure it.
		WriteBatch(ctx context.Context, batch []Row, target *TableInfo) error

		// Recover re-establishes the writer after a recoverable failure,
		// typically by reconnecting. Adapter-side caches are dropped.
		Recover(ctx context.Context) error

		// Clone returns an independent writer sharing only configuration,
		// used to run additional writer workers. Adapters that cannot
		// share work across connections return ErrCloneUnsupported.
		Clone(ctx context.Context) (Writer, error)
	}
)

// ErrCloneUnsupported is returned by Writer.Clone for databases that do not
// support multiple parallel writers.
var ErrCloneUnsupported = errors.New("this database does not support multiple writers")

// A RecoverableError marks a write failure as transient: the caller may
// call Recover and retry the same batch.
type RecoverableError struct {
	Err error
}

func (e *RecoverableError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *RecoverableError) Unwrap() error { return e.Err }

// Recoverable wraps err to mark it transient. A nil err returns nil.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &RecoverableError{Err: err}
}

// IsRecoverable reports whether err is marked transient anywhere in its
// chain.
func IsRecoverable(err error) bool {
	var r *RecoverableError
	return errors.As(err, &r)
}

// RowConforms checks a produced row against the target format length.
func RowConforms(row Row, target *TableInfo) error {
	if len(row) != len(target.Columns) {
		return fmt.Errorf("row has %d values, table %q has %d columns", len(row), target.Name, len(target.Columns))
	}
	return nil
}
