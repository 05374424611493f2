// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package mysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dbmover/dbmover/sql/schema"
	"github.com/google/uuid"
)

// columnType maps a COLUMN_TYPE to the neutral model. Width-dependent
// mappings (tinyint(1), binary(16)) and the flavour-dependent ones are
// resolved here; everything else falls back to the shared token table.
func (d *Driver) columnType(typ string, jsonChecked bool) (schema.ColumnType, error) {
	parts := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(typ)), func(r rune) bool {
		return r == '(' || r == ')' || r == ',' || r == ' '
	})
	if len(parts) == 0 {
		return 0, fmt.Errorf("empty column type")
	}
	switch parts[0] {
	case "tinyint":
		if d.opts.TinyInt1AsBool && len(parts) > 1 && parts[1] == "1" {
			return schema.TypeBool, nil
		}
		return schema.TypeI16, nil
	case "binary":
		if d.opts.Binary16AsUUID && len(parts) > 1 && parts[1] == "16" {
			return schema.TypeUUID, nil
		}
		return schema.TypeBytes, nil
	case "timestamp":
		// The server stores TIMESTAMP in UTC; with the session pinned to
		// UTC, values read back are instants.
		return schema.TypeTimestamptz, nil
	case "longtext":
		if jsonChecked {
			return schema.TypeJSON, nil
		}
		return schema.TypeString, nil
	case "double":
		return schema.TypeF64, nil
	case "float":
		if len(parts) > 2 {
			// float(m,d) with m > 24 is stored double-precision.
			if m, err := strconv.Atoi(parts[1]); err == nil && m > 24 {
				return schema.TypeF64, nil
			}
		}
		return schema.TypeF32, nil
	}
	return schema.ParseColumnType(typ)
}

// Text formats used by the text protocol under the UTC session.
const (
	layoutDateTime = "2006-01-02 15:04:05.999999"
	layoutDate     = "2006-01-02"
)

// decodeValue converts one text-protocol cell to the neutral value of the
// target column type. A nil payload is SQL NULL.
func decodeValue(c *schema.Column, raw []byte) (schema.Value, error) {
	if raw == nil {
		return schema.Null{}, nil
	}
	s := string(raw)
	switch c.Type {
	case schema.TypeI16:
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("parse smallint %q: %w", s, err)
		}
		return schema.I16{V: int16(n)}, nil
	case schema.TypeI32:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse integer %q: %w", s, err)
		}
		return schema.I32{V: int32(n)}, nil
	case schema.TypeI64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse bigint %q: %w", s, err)
		}
		return schema.I64{V: n}, nil
	case schema.TypeF32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", s, err)
		}
		return schema.F32{V: float32(f)}, nil
	case schema.TypeF64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse double %q: %w", s, err)
		}
		return schema.F64{V: f}, nil
	case schema.TypeBool:
		switch s {
		case "0":
			return schema.Bool{V: false}, nil
		case "1":
			return schema.Bool{V: true}, nil
		}
		return nil, fmt.Errorf("parse bool %q", s)
	case schema.TypeString:
		return schema.String{V: s}, nil
	case schema.TypeBytes:
		return schema.Bytes{V: append([]byte(nil), raw...)}, nil
	case schema.TypeTimestamp:
		t, err := parseDateTime(s)
		if err != nil {
			return nil, err
		}
		return schema.Timestamp{V: t}, nil
	case schema.TypeTimestamptz:
		// Naive datetime text under the UTC session is a UTC instant.
		t, err := parseDateTime(s)
		if err != nil {
			return nil, err
		}
		return schema.Timestamptz{V: t.UTC()}, nil
	case schema.TypeDate:
		t, err := time.Parse(layoutDate, s)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", s, err)
		}
		return schema.Date{V: t}, nil
	case schema.TypeTime:
		dur, err := parseTime(s)
		if err != nil {
			return nil, err
		}
		return schema.Time{V: dur}, nil
	case schema.TypeJSON:
		return schema.JSON{V: append([]byte(nil), raw...)}, nil
	case schema.TypeUUID:
		if len(raw) == 16 {
			id, err := uuid.FromBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("parse uuid bytes: %w", err)
			}
			return schema.UUID{V: id}, nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse uuid %q: %w", s, err)
		}
		return schema.UUID{V: id}, nil
	}
	return nil, fmt.Errorf("unsupported column type %s", c.Type)
}

func parseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(layoutDateTime, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", s, err)
	}
	return t, nil
}

// parseTime parses the TIME text form HH:MM:SS[.ffffff]; hours may exceed
// 23 and the value may be negative.
func parseTime(s string) (time.Duration, error) {
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")
	parts := strings.SplitN(body, ":", 3)
	if len(parts) != 3 {
		return 0, fmt.Errorf("parse time %q", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	dur := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	if neg {
		dur = -dur
	}
	return dur, nil
}

// encodeValue converts a neutral value to a bind argument for the
// prepared insert. Temporal values are bound as text in the session zone.
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
		return formatTime(v.V), nil
	case schema.JSON:
		return string(v.V), nil
	case schema.UUID:
		return v.V[:], nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

func formatTime(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign, d = "-", -d
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	micros := d / time.Microsecond
	if micros == 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, minutes, seconds)
	}
	return fmt.Sprintf("%s%02d:%02d:%02d.%06d", sign, hours, minutes, seconds, micros)
}
