// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package schema

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type (
	// A Value is a single table cell in the neutral model. It is a sealed
	// union; the concrete types below are its only implementations. Values
	// are plain structs compared structurally, and Null equals only Null.
	Value interface {
		value()
	}

	// Null represents SQL NULL in any column.
	Null struct{}

	// I16 is a 16-bit signed integer (smallint family).
	I16 struct{ V int16 }

	// I32 is a 32-bit signed integer (integer family).
	I32 struct{ V int32 }

	// I64 is a 64-bit signed integer (bigint family).
	I64 struct{ V int64 }

	// F32 is a single-precision float (real family).
	F32 struct{ V float32 }

	// F64 is a double-precision float.
	F64 struct{ V float64 }

	// Bool is a boolean.
	Bool struct{ V bool }

	// String is UTF-8 text.
	String struct{ V string }

	// Bytes is an opaque octet sequence.
	Bytes struct{ V []byte }

	// Timestamp is a civil datetime without a zone. The wall-clock fields
	// are significant; the Location carried by V is ignored.
	Timestamp struct{ V time.Time }

	// Timestamptz is an instant, normalized to UTC at construction.
	Timestamptz struct{ V time.Time }

	// Date is a civil date. Only the year, month and day of V are
	// significant.
	Date struct{ V time.Time }

	// Time is a time of day, measured from midnight.
	Time struct{ V time.Duration }

	// JSON is a structured document carried as its raw text.
	JSON struct{ V json.RawMessage }

	// UUID is a 128-bit identifier.
	UUID struct{ V uuid.UUID }
)

// A Row is an ordered sequence of values whose length and positional types
// conform to the TableInfo it was produced for.
type Row []Value

func (Null) value()        {}
func (I16) value()         {}
func (I32) value()         {}
func (I64) value()         {}
func (F32) value()         {}
func (F64) value()         {}
func (Bool) value()        {}
func (String) value()      {}
func (Bytes) value()       {}
func (Timestamp) value()   {}
func (Timestamptz) value() {}
func (Date) value()        {}
func (Time) value()        {}
func (JSON) value()        {}
func (UUID) value()        {}

// TypeOf returns the column type tag of v, and false for Null, which has
// no type of its own.
func TypeOf(v Value) (ColumnType, bool) {
	switch v.(type) {
	case I16:
		return TypeI16, true
	case I32:
		return TypeI32, true
	case I64:
		return TypeI64, true
	case F32:
		return TypeF32, true
	case F64:
		return TypeF64, true
	case Bool:
		return TypeBool, true
	case String:
		return TypeString, true
	case Bytes:
		return TypeBytes, true
	case Timestamp:
		return TypeTimestamp, true
	case Timestamptz:
		return TypeTimestamptz, true
	case Date:
		return TypeDate, true
	case Time:
		return TypeTime, true
	case JSON:
		return TypeJSON, true
	case UUID:
		return TypeUUID, true
	}
	return 0, false
}
