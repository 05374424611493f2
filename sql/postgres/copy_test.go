// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/dbmover/dbmover/sql/schema"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, v schema.Value, oid uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, writeCopyValue(&buf, v, oid))
	return buf.Bytes()
}

func be16(v int16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}

func be32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func be64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func fld(length int32, payload []byte) []byte {
	return append(be32(length), payload...)
}

func TestCopyValue_Null(t *testing.T) {
	require.Equal(t, be32(-1), encode(t, schema.Null{}, pgtype.Int4OID))
	require.Equal(t, be32(-1), encode(t, schema.Null{}, pgtype.TextOID))
}

func TestCopyValue_Int8(t *testing.T) {
	require.Equal(t, fld(8, be64(42)), encode(t, schema.I64{V: 42}, pgtype.Int8OID))
	// Widening assignments share the destination encoding.
	require.Equal(t, fld(8, be64(42)), encode(t, schema.I32{V: 42}, pgtype.Int8OID))
	require.Equal(t, fld(8, be64(42)), encode(t, schema.I16{V: 42}, pgtype.Int8OID))
}

func TestCopyValue_Int4(t *testing.T) {
	require.Equal(t, fld(4, be32(-7)), encode(t, schema.I32{V: -7}, pgtype.Int4OID))
	require.Equal(t, fld(4, be32(42)), encode(t, schema.I16{V: 42}, pgtype.Int4OID))
}

func TestCopyValue_Int2(t *testing.T) {
	require.Equal(t, fld(2, be16(42)), encode(t, schema.I16{V: 42}, pgtype.Int2OID))
}

func TestCopyValue_Float8(t *testing.T) {
	expected := fld(8, be64(int64(math.Float64bits(3.14))))
	require.Equal(t, expected, encode(t, schema.F64{V: 3.14}, pgtype.Float8OID))
	widened := fld(8, be64(int64(math.Float64bits(float64(float32(1.5))))))
	require.Equal(t, widened, encode(t, schema.F32{V: 1.5}, pgtype.Float8OID))
}

func TestCopyValue_Float4(t *testing.T) {
	expected := fld(4, be32(int32(math.Float32bits(3.14))))
	require.Equal(t, expected, encode(t, schema.F32{V: 3.14}, pgtype.Float4OID))
	// No implicit downcast.
	var buf bytes.Buffer
	require.Error(t, writeCopyValue(&buf, schema.F64{V: 3.14}, pgtype.Float4OID))
}

func TestCopyValue_Bool(t *testing.T) {
	require.Equal(t, fld(1, []byte{1}), encode(t, schema.Bool{V: true}, pgtype.BoolOID))
	require.Equal(t, fld(1, []byte{0}), encode(t, schema.Bool{V: false}, pgtype.BoolOID))
}

func TestCopyValue_Text(t *testing.T) {
	require.Equal(t, fld(5, []byte("hello")), encode(t, schema.String{V: "hello"}, pgtype.TextOID))
	require.Equal(t, fld(5, []byte("world")), encode(t, schema.String{V: "world"}, pgtype.VarcharOID))
	require.Equal(t, fld(2, []byte("hi")), encode(t, schema.String{V: "hi"}, pgtype.BPCharOID))
}

func TestCopyValue_Bytea(t *testing.T) {
	require.Equal(t, fld(3, []byte{1, 2, 3}), encode(t, schema.Bytes{V: []byte{1, 2, 3}}, pgtype.ByteaOID))
}

func TestCopyValue_Timestamp(t *testing.T) {
	// One hour past the COPY epoch.
	ts := time.Date(2000, 1, 1, 1, 0, 0, 0, time.UTC)
	expected := fld(8, be64(3600_000_000))
	require.Equal(t, expected, encode(t, schema.Timestamp{V: ts}, pgtype.TimestampOID))
	require.Equal(t, expected, encode(t, schema.Timestamptz{V: ts}, pgtype.TimestamptzOID))
	// Values before the epoch are negative.
	before := time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)
	require.Equal(t, fld(8, be64(-1_000_000)), encode(t, schema.Timestamp{V: before}, pgtype.TimestampOID))
}

func TestCopyValue_Date(t *testing.T) {
	d := time.Date(2000, 1, 11, 0, 0, 0, 0, time.UTC)
	require.Equal(t, fld(4, be32(10)), encode(t, schema.Date{V: d}, pgtype.DateOID))
	before := time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)
	require.Equal(t, fld(4, be32(-1)), encode(t, schema.Date{V: before}, pgtype.DateOID))
}

func TestCopyValue_Time(t *testing.T) {
	d := 12*time.Hour + 30*time.Minute
	require.Equal(t, fld(8, be64(int64(d/time.Microsecond))), encode(t, schema.Time{V: d}, pgtype.TimeOID))
}

func TestCopyValue_JSON(t *testing.T) {
	doc := []byte(`[{"test":1},{"test":2}]`)
	require.Equal(t, fld(int32(len(doc)), doc), encode(t, schema.JSON{V: doc}, pgtype.JSONOID))
	// jsonb carries a leading version byte counted in the length.
	expected := fld(int32(len(doc))+1, append([]byte{1}, doc...))
	require.Equal(t, expected, encode(t, schema.JSON{V: doc}, pgtype.JSONBOID))
	require.Equal(t, expected, encode(t, schema.JSON{V: doc}, pgtype.JSONBArrayOID))
}

func TestCopyValue_UUID(t *testing.T) {
	id := uuid.MustParse("a4f4f0c8-4f37-44f0-a2fd-897c7d7c8b45")
	require.Equal(t, fld(16, id[:]), encode(t, schema.UUID{V: id}, pgtype.UUIDOID))
}

func TestCopyValue_UnsupportedConversion(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, writeCopyValue(&buf, schema.I64{V: 42}, pgtype.ByteaOID))
	require.Error(t, writeCopyValue(&buf, schema.I64{V: 42}, pgtype.Int4OID))
	require.Error(t, writeCopyValue(&buf, schema.String{V: "x"}, pgtype.Int8OID))
}

func TestCopyStream_Framing(t *testing.T) {
	fields := []field{
		{name: "id", oid: pgtype.Int8OID},
		{name: "name", oid: pgtype.TextOID},
	}
	var buf bytes.Buffer
	writeCopyHeader(&buf)
	require.NoError(t, writeCopyRow(&buf, schema.Row{schema.I64{V: 1}, schema.Null{}}, fields))
	writeCopyTrailer(&buf)

	var expected bytes.Buffer
	expected.Write([]byte("PGCOPY\n\xff\r\n\x00"))
	expected.Write(be32(0)) // flags
	expected.Write(be32(0)) // header extension
	expected.Write(be16(2)) // field count
	expected.Write(fld(8, be64(1)))
	expected.Write(be32(-1)) // NULL name
	expected.Write(be16(-1)) // trailer
	require.Equal(t, expected.Bytes(), buf.Bytes())
}

func TestTypeOf(t *testing.T) {
	for oid, expected := range map[uint32]schema.ColumnType{
		pgtype.Int2OID:        schema.TypeI16,
		pgtype.Int4OID:        schema.TypeI32,
		pgtype.Int8OID:        schema.TypeI64,
		pgtype.Float4OID:      schema.TypeF32,
		pgtype.Float8OID:      schema.TypeF64,
		pgtype.BoolOID:        schema.TypeBool,
		pgtype.TextOID:        schema.TypeString,
		pgtype.VarcharOID:     schema.TypeString,
		pgtype.BPCharOID:      schema.TypeString,
		pgtype.ByteaOID:       schema.TypeBytes,
		pgtype.TimestampOID:   schema.TypeTimestamp,
		pgtype.TimestamptzOID: schema.TypeTimestamptz,
		pgtype.DateOID:        schema.TypeDate,
		pgtype.TimeOID:        schema.TypeTime,
		pgtype.JSONOID:        schema.TypeJSON,
		pgtype.JSONBOID:       schema.TypeJSON,
		pgtype.JSONArrayOID:   schema.TypeJSON,
		pgtype.JSONBArrayOID:  schema.TypeJSON,
		pgtype.UUIDOID:        schema.TypeUUID,
	} {
		ct, ok := typeOf(oid)
		require.True(t, ok)
		require.Equal(t, expected, ct)
	}
	_, ok := typeOf(pgtype.NumericOID)
	require.False(t, ok)
}
