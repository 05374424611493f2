// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlite

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/dbmover/dbmover/sql/schema"
	"github.com/google/uuid"
)

// Storage formats for temporal text. SQLite has no native temporal types;
// values are stored as the formats below and reparsed on read.
const (
	layoutDateTime = "2006-01-02 15:04:05.999999999"
	layoutDate     = "2006-01-02"
	layoutTime     = "15:04:05.999999999"
)

// decodeValue converts a raw driver value to the neutral value dictated by
// the declared column type. SQLite stores only integers, 8-byte floats,
// text and blobs; the declared type decides the reinterpretation.
func decodeValue(c *schema.Column, raw any) (schema.Value, error) {
	if raw == nil {
		return schema.Null{}, nil
	}
	switch c.Type {
	case schema.TypeI16:
		n, err := rawInt(raw)
		if err == nil && (n < math.MinInt16 || n > math.MaxInt16) {
			err = fmt.Errorf("value %d overflows smallint", n)
		}
		if err != nil {
			return nil, err
		}
		return schema.I16{V: int16(n)}, nil
	case schema.TypeI32:
		n, err := rawInt(raw)
		if err == nil && (n < math.MinInt32 || n > math.MaxInt32) {
			err = fmt.Errorf("value %d overflows integer", n)
		}
		if err != nil {
			return nil, err
		}
		return schema.I32{V: int32(n)}, nil
	case schema.TypeI64:
		n, err := rawInt(raw)
		if err != nil {
			return nil, err
		}
		return schema.I64{V: n}, nil
	case schema.TypeF32:
		// The stored 8-byte float originated from a single-precision
		// value; narrowing recovers it.
		f, err := rawFloat(raw)
		if err != nil {
			return nil, err
		}
		return schema.F32{V: float32(f)}, nil
	case schema.TypeF64:
		f, err := rawFloat(raw)
		if err != nil {
			return nil, err
		}
		return schema.F64{V: f}, nil
	case schema.TypeBool:
		switch v := raw.(type) {
		case bool:
			return schema.Bool{V: v}, nil
		case int64:
			return schema.Bool{V: v != 0}, nil
		}
		return nil, fmt.Errorf("cannot decode %T as bool", raw)
	case schema.TypeString:
		s, err := rawText(raw)
		if err != nil {
			return nil, err
		}
		return schema.String{V: s}, nil
	case schema.TypeBytes:
		switch v := raw.(type) {
		case []byte:
			return schema.Bytes{V: append([]byte(nil), v...)}, nil
		case string:
			return schema.Bytes{V: []byte(v)}, nil
		}
		return nil, fmt.Errorf("cannot decode %T as bytes", raw)
	case schema.TypeTimestamp:
		t, err := rawDateTime(raw)
		if err != nil {
			return nil, err
		}
		return schema.Timestamp{V: t}, nil
	case schema.TypeTimestamptz:
		t, err := rawDateTime(raw)
		if err != nil {
			return nil, err
		}
		return schema.Timestamptz{V: t.UTC()}, nil
	case schema.TypeDate:
		t, err := rawDate(raw)
		if err != nil {
			return nil, err
		}
		return schema.Date{V: t}, nil
	case schema.TypeTime:
		s, err := rawText(raw)
		if err != nil {
			return nil, err
		}
		t, err := time.Parse(layoutTime, s)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", s, err)
		}
		return schema.Time{V: sinceMidnight(t)}, nil
	case schema.TypeJSON:
		s, err := rawText(raw)
		if err != nil {
			return nil, err
		}
		return schema.JSON{V: json.RawMessage(s)}, nil
	case schema.TypeUUID:
		switch v := raw.(type) {
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("parse uuid %q: %w", v, err)
			}
			return schema.UUID{V: id}, nil
		case []byte:
			id, err := uuid.FromBytes(v)
			if err != nil {
				return nil, fmt.Errorf("parse uuid bytes: %w", err)
			}
			return schema.UUID{V: id}, nil
		}
		return nil, fmt.Errorf("cannot decode %T as uuid", raw)
	}
	return nil, fmt.Errorf("unsupported column type %s", c.Type)
}

// encodeValue converts a neutral value to a driver bind argument. Temporal
// values are bound as formatted text so the stored representation does not
// depend on driver defaults.
func encodeValue(v schema.Value) (any, error) {
	switch v := v.(type) {
	case schema.Null:
		return nil, nil
	case schema.I16:
		return int64(v.V), nil
	case schema.I32:
		return int64(v.V), nil
	case schema.I64:
		return v.V, nil
	case schema.F32:
		// SQLite stores every float as 8 bytes; the widening is exact.
		return float64(v.V), nil
	case schema.F64:
		return v.V, nil
	case schema.Bool:
		return v.V, nil
	case schema.String:
		return v.V, nil
	case schema.Bytes:
		return v.V, nil
	case schema.Timestamp:
		return v.V.Format(layoutDateTime), nil
	case schema.Timestamptz:
		return v.V.UTC().Format(layoutDateTime), nil
	case schema.Date:
		return v.V.Format(layoutDate), nil
	case schema.Time:
		return time.Time{}.Add(v.V).Format(layoutTime), nil
	case schema.JSON:
		return string(v.V), nil
	case schema.UUID:
		return v.V.String(), nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

func rawInt(raw any) (int64, error) {
	if n, ok := raw.(int64); ok {
		return n, nil
	}
	return 0, fmt.Errorf("cannot decode %T as integer", raw)
}

func rawFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("cannot decode %T as float", raw)
}

func rawText(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("cannot decode %T as text", raw)
}

func rawDateTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return parseDateTime(v)
	case []byte:
		return parseDateTime(string(v))
	}
	return time.Time{}, fmt.Errorf("cannot decode %T as datetime", raw)
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{layoutDateTime, time.RFC3339Nano, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse datetime %q", s)
}

func rawDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		return time.Parse(layoutDate, v)
	case []byte:
		return time.Parse(layoutDate, string(v))
	}
	return time.Time{}, fmt.Errorf("cannot decode %T as date", raw)
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
