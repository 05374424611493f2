// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package schema

import "fmt"

// Compatible validates that rows read from src can be written into dst
// before any row is moved. The column names must match as sets, every
// source type must be assignable to the destination type of the same
// column, and a nullable source column must not feed a non-null
// destination column. Column order is not part of the check; transport
// order is governed by dst.
func Compatible(src, dst *TableInfo) error {
	if err := compatible(src, dst); err != nil {
		return fmt.Errorf("Incompatible set of columns for table %q: %w", dst.Name, err)
	}
	return nil
}

func compatible(src, dst *TableInfo) error {
	if len(src.Columns) != len(dst.Columns) {
		return fmt.Errorf("source has %d columns, destination has %d", len(src.Columns), len(dst.Columns))
	}
	for i := range dst.Columns {
		d := &dst.Columns[i]
		s, ok := src.Column(d.Name)
		if !ok {
			return fmt.Errorf("column %q is missing in the source", d.Name)
		}
		if !s.Type.AssignableTo(d.Type) {
			return fmt.Errorf("column %q: cannot assign %s to %s", d.Name, s.Type, d.Type)
		}
		if s.Nullable && !d.Nullable {
			return fmt.Errorf("column %q: source is nullable, destination is not", d.Name)
		}
	}
	return nil
}
