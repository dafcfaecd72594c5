// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"errors"
	"fmt"
)

// ErrPartialFailure is wrapped by Summary.Err when at least one item of a bulk
// mutation failed.
var ErrPartialFailure = errors.New("some items failed")

// Summary counts the outcome of a bulk mutation. A failed item never aborts
// the run; it is counted here instead.
type Summary struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Add merges o into s.
func (s *Summary) Add(o Summary) {
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Total is the number of items seen.
func (s Summary) Total() int {
	return s.Updated + s.Skipped + s.Failed
}

// Err returns nil when nothing failed.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d: %w", s.Failed, s.Total(), ErrPartialFailure)
}

func (s Summary) String() string {
	return fmt.Sprintf("updated: %d, skipped: %d, failed: %d", s.Updated, s.Skipped, s.Failed)
}
