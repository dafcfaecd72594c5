// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package parquetlog

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

const (
	// IDColumn is the column added to every row.
	IDColumn = "id"
	// TimestampColumn holds event times, in seconds in older files and
	// milliseconds in newer ones.
	TimestampColumn = "timestamp"

	rowBatch = 256
)

// HasID reports whether the Parquet file already has an id column.
func HasID(r io.ReaderAt, size int64) (bool, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return false, fmt.Errorf("failed to open parquet file: %w", err)
	}
	_, ok := f.Schema().Lookup(IDColumn)
	return ok, nil
}

// AddID copies the Parquet file in r to w, adding a random id to each row.
// Timestamps earlier than nowSeconds are taken to be in seconds and are
// converted to milliseconds. It returns the number of rows written.
func AddID(r io.ReaderAt, size int64, w io.Writer, nowSeconds float64) (int64, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return 0, fmt.Errorf("failed to open parquet file: %w", err)
	}

	src := f.Schema()
	if _, ok := src.Lookup(IDColumn); ok {
		return 0, fmt.Errorf("file already has an %s column", IDColumn)
	}

	group := parquet.Group{IDColumn: parquet.String()}
	for _, field := range src.Fields() {
		group[field.Name()] = field
	}
	dst := parquet.NewSchema(src.Name(), group)

	// Group fields are ordered by name, so column indexes move.
	remap := make([]int, len(src.Columns()))
	for i, path := range src.Columns() {
		leaf, ok := dst.Lookup(path...)
		if !ok {
			return 0, fmt.Errorf("column %v lost in rewrite", path)
		}
		remap[i] = leaf.ColumnIndex
	}
	idLeaf, _ := dst.Lookup(IDColumn)
	tsColumn := -1
	if leaf, ok := src.Lookup(TimestampColumn); ok {
		tsColumn = leaf.ColumnIndex
	}

	writer := parquet.NewWriter(w, dst)
	var total int64

	for _, rg := range f.RowGroups() {
		n, err := copyRowGroup(rg, writer, remap, tsColumn, idLeaf.ColumnIndex, nowSeconds)
		total += n
		if err != nil {
			return total, err
		}
	}

	if err := writer.Close(); err != nil {
		return total, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return total, nil
}

func copyRowGroup(rg parquet.RowGroup, writer *parquet.Writer, remap []int,
	tsColumn, idColumn int, nowSeconds float64) (int64, error) {
	rows := rg.Rows()
	defer rows.Close()

	var total int64
	buf := make([]parquet.Row, rowBatch)
	for {
		n, err := rows.ReadRows(buf)
		for i := range buf[:n] {
			buf[i] = rewriteRow(buf[i], remap, tsColumn, idColumn, nowSeconds)
		}
		if n > 0 {
			if _, werr := writer.WriteRows(buf[:n]); werr != nil {
				return total, fmt.Errorf("failed to write rows: %w", werr)
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("failed to read rows: %w", err)
		}
	}
}

func rewriteRow(row parquet.Row, remap []int, tsColumn, idColumn int, nowSeconds float64) parquet.Row {
	for i, v := range row {
		col, rep, def := v.Column(), v.RepetitionLevel(), v.DefinitionLevel()
		if col == tsColumn && !v.IsNull() {
			v = fixTimestamp(v, nowSeconds)
		}
		row[i] = v.Level(rep, def, remap[col])
	}

	id := parquet.ByteArrayValue([]byte(uuid.NewString())).Level(0, 0, idColumn)
	row = append(row, id)

	sort.SliceStable(row, func(i, j int) bool { return row[i].Column() < row[j].Column() })
	return row
}

func fixTimestamp(v parquet.Value, nowSeconds float64) parquet.Value {
	switch v.Kind() {
	case parquet.Int64:
		if float64(v.Int64()) < nowSeconds {
			return parquet.Int64Value(v.Int64() * 1000)
		}
	case parquet.Double:
		if v.Double() < nowSeconds {
			return parquet.DoubleValue(v.Double() * 1000)
		}
	case parquet.Int32:
		// Milliseconds overflow int32, leave it as found.
	}
	return v
}
