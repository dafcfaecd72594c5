// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package filters selects report rows with --filter expressions.
//
// Each expression is key, operator and target. Operators:
//
//   - = : exact match
//   - ~ : case-insensitive match
//   - ^ : prefix match
//   - < / > : less/greater than (numeric when both sides are numbers)
//   - @ : contains (substring, array member or map key)
//   - / : regular expression match
//
// Any operator may be negated with a leading '!' (e.g. "BucketType!=public").
// A bare key keeps rows where that value is non-empty. Keys are matched
// against column titles and otherwise used as gjson paths into the record.
// Expressions are comma separated; CLOUDOPS_FILTER_DELIM overrides the
// delimiter when values contain commas.
package filters
