// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/dbmover/dbmover/sql/schema"

	"github.com/jackc/pgx/v5/pgtype"
)

// copySignature is the fixed 15-byte header of a binary COPY stream.
var copySignature = []byte("PGCOPY\n\xff\r\n\x00")

// The binary COPY epoch: 2000-01-01 00:00:00 UTC.
var copyEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// writeCopyHeader writes the signature, the flags field and the empty
// header extension.
func writeCopyHeader(buf *bytes.Buffer) {
	buf.Write(copySignature)
	writeInt32(buf, 0) // flags
	writeInt32(buf, 0) // header extension length
}

// writeCopyTrailer terminates the stream with a -1 field count.
func writeCopyTrailer(buf *bytes.Buffer) {
	writeInt16(buf, -1)
}

// writeCopyRow writes one row: a 2-byte field count followed by the
// encoded fields, each targeting the server type of its column.
func writeCopyRow(buf *bytes.Buffer, row schema.Row, fields []field) error {
	writeInt16(buf, int16(len(row)))
	for i, v := range row {
		if err := writeCopyValue(buf, v, fields[i].oid); err != nil {
			return fmt.Errorf("column %q: %w", fields[i].name, err)
		}
	}
	return nil
}

// writeCopyValue encodes one field as a 4-byte big-endian length followed
// by the payload, or length -1 for NULL. Widening integer and float
// conversions are performed here; anything else is a conversion error.
func writeCopyValue(buf *bytes.Buffer, v schema.Value, oid uint32) error {
	if _, ok := v.(schema.Null); ok {
		writeInt32(buf, -1)
		return nil
	}
	switch oid {
	case pgtype.Int2OID:
		n, ok := v.(schema.I16)
		if !ok {
			return conversionError(v, "int2")
		}
		writeInt32(buf, 2)
		writeInt16(buf, n.V)
	case pgtype.Int4OID:
		var n int32
		switch v := v.(type) {
		case schema.I16:
			n = int32(v.V)
		case schema.I32:
			n = v.V
		default:
			return conversionError(v, "int4")
		}
		writeInt32(buf, 4)
		writeInt32(buf, n)
	case pgtype.Int8OID:
		var n int64
		switch v := v.(type) {
		case schema.I16:
			n = int64(v.V)
		case schema.I32:
			n = int64(v.V)
		case schema.I64:
			n = v.V
		default:
			return conversionError(v, "int8")
		}
		writeInt32(buf, 8)
		writeInt64(buf, n)
	case pgtype.Float4OID:
		f, ok := v.(schema.F32)
		if !ok {
			return conversionError(v, "float4")
		}
		writeInt32(buf, 4)
		writeUint32(buf, math.Float32bits(f.V))
	case pgtype.Float8OID:
		var f float64
		switch v := v.(type) {
		case schema.F32:
			f = float64(v.V)
		case schema.F64:
			f = v.V
		default:
			return conversionError(v, "float8")
		}
		writeInt32(buf, 8)
		writeUint64(buf, math.Float64bits(f))
	case pgtype.BoolOID:
		b, ok := v.(schema.Bool)
		if !ok {
			return conversionError(v, "bool")
		}
		writeInt32(buf, 1)
		if b.V {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID:
		s, ok := v.(schema.String)
		if !ok {
			return conversionError(v, "text")
		}
		writeInt32(buf, int32(len(s.V)))
		buf.WriteString(s.V)
	case pgtype.ByteaOID:
		b, ok := v.(schema.Bytes)
		if !ok {
			return conversionError(v, "bytea")
		}
		writeInt32(buf, int32(len(b.V)))
		buf.Write(b.V)
	case pgtype.TimestampOID:
		t, ok := v.(schema.Timestamp)
		if !ok {
			return conversionError(v, "timestamp")
		}
		writeInt32(buf, 8)
		writeInt64(buf, copyMicros(civilUTC(t.V)))
	case pgtype.TimestamptzOID:
		t, ok := v.(schema.Timestamptz)
		if !ok {
			return conversionError(v, "timestamptz")
		}
		writeInt32(buf, 8)
		writeInt64(buf, copyMicros(t.V))
	case pgtype.DateOID:
		t, ok := v.(schema.Date)
		if !ok {
			return conversionError(v, "date")
		}
		writeInt32(buf, 4)
		writeInt32(buf, int32((civilUTC(t.V).Unix()-copyEpoch.Unix())/(24*60*60)))
	case pgtype.TimeOID:
		t, ok := v.(schema.Time)
		if !ok {
			return conversionError(v, "time")
		}
		writeInt32(buf, 8)
		writeUint64(buf, uint64(t.V/time.Microsecond))
	case pgtype.JSONOID, pgtype.JSONArrayOID:
		j, ok := v.(schema.JSON)
		if !ok {
			return conversionError(v, "json")
		}
		writeInt32(buf, int32(len(j.V)))
		buf.Write(j.V)
	case pgtype.JSONBOID, pgtype.JSONBArrayOID:
		j, ok := v.(schema.JSON)
		if !ok {
			return conversionError(v, "jsonb")
		}
		// The jsonb wire format carries a 1-byte version before the
		// document text, counted in the field length.
		writeInt32(buf, int32(len(j.V))+1)
		buf.WriteByte(1)
		buf.Write(j.V)
	case pgtype.UUIDOID:
		id, ok := v.(schema.UUID)
		if !ok {
			return conversionError(v, "uuid")
		}
		writeInt32(buf, 16)
		buf.Write(id.V[:])
	default:
		return fmt.Errorf("unsupported destination type oid %d", oid)
	}
	return nil
}

func conversionError(v schema.Value, target string) error {
	return fmt.Errorf("cannot encode %T as %s", v, target)
}

// civilUTC reinterprets the wall-clock fields of t as a UTC instant,
// discarding whatever location it carries.
func civilUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// copyMicros returns microseconds since the COPY epoch.
func copyMicros(t time.Time) int64 {
	return t.UnixMicro() - copyEpoch.UnixMicro()
}

func writeInt16(buf *bytes.Buffer, v int16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	buf.Write(b[:])
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
