// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlx

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestIdent(t *testing.T) {
	require.Equal(t, `"users"`, Ident("users"))
	require.Equal(t, `"we""ird"`, Ident(`we"ird`))
	require.Equal(t, "`users`", MySQLIdent("users"))
	require.Equal(t, "`we``ird`", MySQLIdent("we`ird"))
}

func TestIdents(t *testing.T) {
	require.Equal(t, `"a", "b"`, Idents([]string{"a", "b"}, Ident))
	require.Equal(t, "`a`, `b`", Idents([]string{"a", "b"}, MySQLIdent))
}

func TestPlaceholders(t *testing.T) {
	require.Equal(t, "(?)", Placeholders(1))
	require.Equal(t, "(?, ?, ?)", Placeholders(3))
}

func TestScanOne(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count(1)"}).AddRow(7))
	rows, err := db.Query("SELECT count(1) FROM t")
	require.NoError(t, err)
	var n int64
	require.NoError(t, ScanOne(rows, &n))
	require.EqualValues(t, 7, n)
}

func TestScanOne_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count(1)"}))
	rows, err := db.Query("SELECT count(1) FROM t")
	require.NoError(t, err)
	var n int64
	require.ErrorIs(t, ScanOne(rows, &n), sql.ErrNoRows)
}

func TestScanStrings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("x").AddRow("y"))
	rows, err := db.Query("SELECT name FROM t")
	require.NoError(t, err)
	vs, err := ScanStrings(rows)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, vs)
}
