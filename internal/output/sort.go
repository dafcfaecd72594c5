// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"cmp"
	"slices"
	"strings"
)

// sortKey is one field of a --sort spec.
type sortKey struct {
	field         string
	descending    bool
	caseSensitive bool
}

// parseSortSpec parses "-Size,!Name": "-" sorts descending and "!" compares
// case-sensitively.
func parseSortSpec(spec string) []sortKey {
	var keys []sortKey
	for _, f := range strings.Split(spec, ",") {
		f = strings.TrimSpace(f)
		k := sortKey{}
		if rest, ok := strings.CutPrefix(f, "-"); ok {
			k.descending = true
			f = rest
		}
		if rest, ok := strings.CutPrefix(f, "!"); ok {
			k.caseSensitive = true
			f = rest
		}
		if f != "" {
			k.field = f
			keys = append(keys, k)
		}
	}
	return keys
}

// compare orders two values of k's field. Numbers compare numerically,
// everything else by its string form.
func (k sortKey) compare(a, b map[string]interface{}) int {
	av, bv := a[k.field], b[k.field]

	var c int
	an, aok := av.(float64)
	bn, bok := bv.(float64)
	if aok && bok {
		c = cmp.Compare(an, bn)
	} else {
		as, bs := InterfaceToString(av), InterfaceToString(bv)
		if !k.caseSensitive {
			as, bs = strings.ToLower(as), strings.ToLower(bs)
		}
		c = strings.Compare(as, bs)
	}

	if k.descending {
		return -c
	}
	return c
}

// SortDataset stably sorts resultSet in place by the output keys in spec.
func SortDataset(resultSet []map[string]interface{}, spec string) {
	keys := parseSortSpec(spec)
	if len(keys) == 0 {
		return
	}

	slices.SortStableFunc(resultSet, func(a, b map[string]interface{}) int {
		for _, k := range keys {
			if c := k.compare(a, b); c != 0 {
				return c
			}
		}
		return 0
	})
}
