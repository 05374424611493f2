// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlite

import (
	"testing"
	"time"

	"github.com/dbmover/dbmover/sql/schema"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func col(t schema.ColumnType) *schema.Column {
	return &schema.Column{Name: "c", Type: t, Nullable: true}
}

func TestDecodeValue(t *testing.T) {
	for _, tt := range []struct {
		name     string
		typ      schema.ColumnType
		raw      any
		expected schema.Value
	}{
		{name: "null", typ: schema.TypeI64, raw: nil, expected: schema.Null{}},
		{name: "i16", typ: schema.TypeI16, raw: int64(7), expected: schema.I16{V: 7}},
		{name: "i32", typ: schema.TypeI32, raw: int64(-9), expected: schema.I32{V: -9}},
		{name: "i64", typ: schema.TypeI64, raw: int64(1 << 40), expected: schema.I64{V: 1 << 40}},
		{name: "f32", typ: schema.TypeF32, raw: float64(float32(123.12345)), expected: schema.F32{V: 123.12345}},
		{name: "f64", typ: schema.TypeF64, raw: 3.14, expected: schema.F64{V: 3.14}},
		{name: "bool", typ: schema.TypeBool, raw: int64(1), expected: schema.Bool{V: true}},
		{name: "string", typ: schema.TypeString, raw: "test", expected: schema.String{V: "test"}},
		{name: "bytes", typ: schema.TypeBytes, raw: []byte("test"), expected: schema.Bytes{V: []byte("test")}},
		{
			name:     "timestamp",
			typ:      schema.TypeTimestamp,
			raw:      "2023-07-01 12:30:45.5",
			expected: schema.Timestamp{V: time.Date(2023, 7, 1, 12, 30, 45, 500_000_000, time.UTC)},
		},
		{
			name:     "timestamptz",
			typ:      schema.TypeTimestamptz,
			raw:      "2023-07-01 12:30:45",
			expected: schema.Timestamptz{V: time.Date(2023, 7, 1, 12, 30, 45, 0, time.UTC)},
		},
		{
			name:     "date",
			typ:      schema.TypeDate,
			raw:      "2023-07-01",
			expected: schema.Date{V: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:     "time",
			typ:      schema.TypeTime,
			raw:      "12:30:00",
			expected: schema.Time{V: 12*time.Hour + 30*time.Minute},
		},
		{name: "json", typ: schema.TypeJSON, raw: `{"test":1}`, expected: schema.JSON{V: []byte(`{"test":1}`)}},
		{
			name:     "uuid",
			typ:      schema.TypeUUID,
			raw:      "a4f4f0c8-4f37-44f0-a2fd-897c7d7c8b45",
			expected: schema.UUID{V: uuid.MustParse("a4f4f0c8-4f37-44f0-a2fd-897c7d7c8b45")},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			v, err := decodeValue(col(tt.typ), tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.expected, v)
		})
	}
}

func TestDecodeValue_Overflow(t *testing.T) {
	_, err := decodeValue(col(schema.TypeI16), int64(1<<20))
	require.ErrorContains(t, err, "overflows smallint")
	_, err = decodeValue(col(schema.TypeI32), int64(1<<40))
	require.ErrorContains(t, err, "overflows integer")
}

func TestDecodeValue_TypeMismatch(t *testing.T) {
	_, err := decodeValue(col(schema.TypeI64), "not a number")
	require.Error(t, err)
	_, err = decodeValue(col(schema.TypeUUID), int64(1))
	require.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		typ schema.ColumnType
		v   schema.Value
	}{
		{typ: schema.TypeI64, v: schema.I64{V: 42}},
		{typ: schema.TypeF64, v: schema.F64{V: 123.125}},
		{typ: schema.TypeString, v: schema.String{V: "hello"}},
		{typ: schema.TypeBytes, v: schema.Bytes{V: []byte{0, 1, 2}}},
		{typ: schema.TypeTimestamp, v: schema.Timestamp{V: time.Date(2023, 7, 1, 12, 0, 0, 123456000, time.UTC)}},
		{typ: schema.TypeDate, v: schema.Date{V: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)}},
		{typ: schema.TypeTime, v: schema.Time{V: time.Hour + 2*time.Minute + 3*time.Second}},
		{typ: schema.TypeUUID, v: schema.UUID{V: uuid.MustParse("a4f4f0c8-4f37-44f0-a2fd-897c7d7c8b45")}},
	} {
		t.Run(tt.typ.String(), func(t *testing.T) {
			arg, err := encodeValue(tt.v)
			require.NoError(t, err)
			back, err := decodeValue(col(tt.typ), arg)
			require.NoError(t, err)
			require.Equal(t, tt.v, back)
		})
	}
}

func TestEncodeValue_Null(t *testing.T) {
	arg, err := encodeValue(schema.Null{})
	require.NoError(t, err)
	require.Nil(t, arg)
}

func TestEncodeValue_FloatWidening(t *testing.T) {
	arg, err := encodeValue(schema.F32{V: 123.12345})
	require.NoError(t, err)
	// Stored as an 8-byte float; narrowing on read recovers the value.
	f, ok := arg.(float64)
	require.True(t, ok)
	require.Equal(t, float32(123.12345), float32(f))
}
