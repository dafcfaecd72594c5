// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package parquetlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Comparison is the outcome of checking migrated files against the
// originals. Keys are relative to their prefix.
type Comparison struct {
	// Missing source files have no migrated copy.
	Missing map[string]int64 `json:"missing"`
	// Smaller migrated copies are smaller than their source; the value is
	// the source size.
	Smaller map[string]int64 `json:"smaller"`
	// NonIDTotal sums every source file.
	NonIDTotal int64 `json:"nonIdFileTotalSize"`
	// IDTotal sums the migrated copies of source files.
	IDTotal int64 `json:"idFileTotalSize"`
}

// Compare computes a Comparison of two relative key to size maps.
func Compare(source, target map[string]int64) Comparison {
	c := Comparison{
		Missing: map[string]int64{},
		Smaller: map[string]int64{},
	}

	for key, size := range source {
		c.NonIDTotal += size

		idSize, ok := target[key]
		if !ok {
			c.Missing[key] = size
			continue
		}

		c.IDTotal += idSize
		if idSize < size {
			c.Smaller[key] = size
		}
	}

	return c
}

// CompareBucket enumerates both prefixes of bucket and compares them.
func CompareBucket(ctx context.Context, api ListAPI, bucket string) (Comparison, error) {
	target, err := Enumerate(ctx, api, bucket, TargetPrefix)
	if err != nil {
		return Comparison{}, err
	}
	source, err := Enumerate(ctx, api, bucket, SourcePrefix)
	if err != nil {
		return Comparison{}, err
	}
	return Compare(source, target), nil
}

// Report writes the comparison in its historical layout.
func (c Comparison) Report(w io.Writer) error {
	missing, err := json.Marshal(c.Missing)
	if err != nil {
		return err
	}
	smaller, err := json.Marshal(c.Smaller)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "MISSING FILES?", string(missing))
	fmt.Fprintln(w, "SMALLER FILES?", string(smaller))
	fmt.Fprintf(w, "nonIdFileTotalSize: %d (%s)\n", c.NonIDTotal, humanize.Bytes(uint64(c.NonIDTotal))) //nolint:gosec
	fmt.Fprintf(w, "idFileTotalSize: %d (%s)\n", c.IDTotal, humanize.Bytes(uint64(c.IDTotal)))          //nolint:gosec
	return nil
}
