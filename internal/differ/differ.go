// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// Diff compares two JSON documents and writes an ascii delta of them to w. It
// returns true when the documents differ. Nothing is written when they are
// identical.
func Diff(w io.Writer, before, after []byte, coloring bool) (bool, error) {
	log.Debugf("len(before): %d len(after): %d", len(before), len(after))

	differ := gojsondiff.New()

	delta, err := differ.Compare(before, after)
	if err != nil {
		return false, fmt.Errorf("failed to compare documents: %w", err)
	}

	if !delta.Modified() {
		return false, nil
	}

	var jdoc map[string]interface{}
	if err := json.Unmarshal(before, &jdoc); err != nil {
		return true, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	config := formatter.AsciiFormatterConfig{
		ShowArrayIndex: false,
		Coloring:       coloring,
	}

	diffString, err := formatter.NewAsciiFormatter(jdoc, config).Format(delta)
	if err != nil {
		return true, err
	}

	_, err = fmt.Fprint(w, diffString)
	return true, err
}

// DiffValues marshals before and after to JSON and diffs them.
func DiffValues(w io.Writer, before, after any, coloring bool) (bool, error) {
	b, err := json.Marshal(before)
	if err != nil {
		return false, fmt.Errorf("failed to marshal document: %w", err)
	}
	a, err := json.Marshal(after)
	if err != nil {
		return false, fmt.Errorf("failed to marshal document: %w", err)
	}
	return Diff(w, b, a, coloring)
}
