// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package telemetry

import (
	"fmt"
	"sort"
	"strconv"
)

// Record maps field names to decoded values. A value is an int, a string
// (either "%.2f" formatted or a raw four digit hex register) or a float64.
type Record map[string]any

// Merge copies the fields of other into r.
func (r Record) Merge(other Record) {
	for k, v := range other {
		r[k] = v
	}
}

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TwosComplement16 parses four hex digits as a signed 16-bit value.
func TwosComplement16(hex string) (int, error) {
	v, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid register %q: %w", hex, err)
	}
	n := int(v)
	if n&(1<<15) != 0 {
		n -= 1 << 16
	}
	return n, nil
}
