// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package sqlx provides generic helpers shared by the dialect adapters.
package sqlx

import (
	"database/sql"
	"strings"
)

// ScanStrings scans sql.Rows into a slice of strings and closes it.
func ScanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var vs []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, rows.Err()
}

// ScanOne scans one row into dest and closes the rows.
func ScanOne(rows *sql.Rows, dest ...any) error {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	return rows.Close()
}

// Ident quotes an identifier with double quotes (SQLite, PostgreSQL).
func Ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// MySQLIdent quotes an identifier with backticks.
func MySQLIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Idents quotes each name with quote and joins them with ", ".
func Idents(names []string, quote func(string) string) string {
	qs := make([]string, len(names))
	for i, n := range names {
		qs[i] = quote(n)
	}
	return strings.Join(qs, ", ")
}

// Placeholders returns "(?, ?, ...)" with n markers.
func Placeholders(n int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('?')
	}
	b.WriteByte(')')
	return b.String()
}
