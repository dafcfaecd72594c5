// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/concord-consortium/cloudops/internal/attrs"
	"github.com/concord-consortium/cloudops/internal/log"
)

// CSVWriter writes a header row of column titles followed by one row per
// result. Missing values are written as empty cells.
func CSVWriter(resultSet []map[string]interface{}, al attrs.AttrList, w io.Writer) error {
	inc := al.Included()

	cw := csv.NewWriter(w)
	if err := cw.Write(inc.Titles()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, result := range resultSet {
		record := make([]string, len(inc))
		for i, attr := range inc {
			record[i] = InterfaceToString(result[attr.OutputKey])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CreateFile opens path for writing, creating parent directories. "-" or ""
// selects stdout, and the returned close func is then a no-op.
func CreateFile(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
			return nil, nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	log.Debugf("output file created: %s", path)
	return f, f.Close, nil
}
