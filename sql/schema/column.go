// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package schema

import (
	"fmt"
	"strings"
)

// A ColumnType is the tag of a column's declared type in the neutral model.
type ColumnType uint8

const (
	TypeI16 ColumnType = iota + 1
	TypeI32
	TypeI64
	TypeF32
	TypeF64
	TypeBool
	TypeString
	TypeBytes
	TypeTimestamp
	TypeTimestamptz
	TypeDate
	TypeTime
	TypeJSON
	TypeUUID
)

// String returns the neutral name of the type.
func (t ColumnType) String() string {
	switch t {
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeTimestamp:
		return "timestamp"
	case TypeTimestamptz:
		return "timestamptz"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeJSON:
		return "json"
	case TypeUUID:
		return "uuid"
	}
	return fmt.Sprintf("ColumnType(%d)", t)
}

// AssignableTo reports whether a value of type t can be written losslessly
// into a column of type dst. Widening integer and float conversions are the
// only cross-type assignments; narrowing is never attempted.
func (t ColumnType) AssignableTo(dst ColumnType) bool {
	if t == dst {
		return true
	}
	switch t {
	case TypeI16:
		return dst == TypeI32 || dst == TypeI64
	case TypeI32:
		return dst == TypeI64
	case TypeF32:
		return dst == TypeF64
	}
	return false
}

// ParseColumnType maps a declared SQL type to its neutral tag. The token
// table is shared by the dialects; width and precision arguments are
// ignored (e.g. "varchar(255)" parses as a string). Dialect adapters layer
// their own special cases on top before falling back here.
func ParseColumnType(s string) (ColumnType, error) {
	parts := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(s)), func(r rune) bool {
		return r == '(' || r == ')' || r == ',' || r == ' '
	})
	if len(parts) == 0 {
		return 0, fmt.Errorf("empty column type")
	}
	switch parts[0] {
	case "smallint", "int2", "smallserial":
		return TypeI16, nil
	case "integer", "int", "int4", "serial", "mediumint":
		return TypeI32, nil
	case "bigint", "int8", "bigserial":
		return TypeI64, nil
	case "real", "float4", "float":
		return TypeF32, nil
	case "double", "float8":
		// Covers both "double" and "double precision".
		return TypeF64, nil
	case "numeric", "decimal":
		return TypeF64, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "char", "varchar", "nchar", "nvarchar", "bpchar", "character",
		"text", "clob", "tinytext", "mediumtext", "longtext":
		return TypeString, nil
	case "bytea", "blob", "binary", "varbinary", "tinyblob", "mediumblob", "longblob":
		return TypeBytes, nil
	case "timestamptz":
		return TypeTimestamptz, nil
	case "timestamp", "datetime":
		if len(parts) >= 3 && parts[1] == "with" && parts[2] == "time" {
			return TypeTimestamptz, nil
		}
		return TypeTimestamp, nil
	case "date":
		return TypeDate, nil
	case "time":
		return TypeTime, nil
	case "json", "jsonb":
		return TypeJSON, nil
	case "uuid":
		return TypeUUID, nil
	}
	return 0, fmt.Errorf("unknown column type %q", s)
}

type (
	// A Column describes one column of a table in the neutral model. The
	// position of a Column inside a TableInfo mirrors its ordinal position
	// in the underlying table.
	Column struct {
		Name     string
		Type     ColumnType
		Nullable bool
	}

	// A TableInfo describes one table of one side of a migration. It is
	// built once at setup and immutable afterwards. NumRows is nil when
	// the pre-flight count was skipped.
	TableInfo struct {
		Name    string
		NumRows *int64
		Columns []Column
	}
)

// ColumnNames returns the column names in ordinal order.
func (t *TableInfo) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name, if any.
func (t *TableInfo) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}
