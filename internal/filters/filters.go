// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/concord-consortium/cloudops/internal/attrs"
)

// DelimEnv overrides the "," between filter expressions.
const DelimEnv = "CLOUDOPS_FILTER_DELIM"

// expression splits "key", "key=target" or "key!^target" into key, operator
// and target.
var expression = regexp.MustCompile(`^([^!?=^~<>@/]*)(!?[=^~<>@/])?(.*)$`)

// Filter is a single parsed --filter expression. Operand is the operator
// without its negation.
type Filter struct {
	Key     string `yaml:"key" json:"Key"`
	Negate  bool   `yaml:"negate" json:"Negate"`
	Operand string `yaml:"operand" json:"Operand"`
	Value   string `yaml:"value" json:"Value"`
}

// parseFilter parses one expression. ok is false for malformed expressions
// and empty keys.
func parseFilter(spec string) (Filter, bool) {
	parts := expression.FindStringSubmatch(spec)
	if parts == nil {
		log.Errorf("invalid filter: %s", spec)
		return Filter{}, false
	}

	f := Filter{Key: strings.TrimSpace(parts[1]), Value: parts[3]}
	if f.Key == "" {
		log.Errorf("invalid filter: empty key in %s", spec)
		return Filter{}, false
	}

	f.Operand = parts[2]
	if strings.HasPrefix(f.Operand, "!") {
		f.Negate = true
		f.Operand = f.Operand[1:]
	}
	return f, true
}

// BuildFilters parses a --filter value. Invalid expressions are logged and
// skipped.
func BuildFilters(spec string) []Filter {
	if spec == "" {
		return nil
	}

	delim := ","
	if d := os.Getenv(DelimEnv); d != "" {
		delim = d
	}

	var filters []Filter
	for _, s := range strings.Split(spec, delim) {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if f, ok := parseFilter(s); ok {
			filters = append(filters, f)
		}
	}
	return filters
}

// FilterDataset returns the records of candidates, a JSON array, that pass
// every filter in spec. Each row holds the attrs' values keyed by OutputKey;
// transforms are left to the output phase.
func FilterDataset(candidates gjson.Result, al attrs.AttrList, spec string) []map[string]interface{} {
	filters := BuildFilters(spec)

	var rows []map[string]interface{}
	for _, candidate := range candidates.Array() {
		if !matchesAll(candidate, al, filters) {
			continue
		}

		row := make(map[string]interface{}, len(al))
		for _, attr := range al {
			if attr.Key != "*" {
				row[attr.OutputKey] = candidate.Get(attr.Key).Value()
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// path resolves a filter key to a record path. Column titles win, otherwise
// the key is used as a gjson path so hidden columns can be filtered on.
func path(al attrs.AttrList, key string) string {
	for _, attr := range al {
		if attr.OutputKey == key {
			return attr.Key
		}
	}
	return key
}

// matchesAll reports whether candidate passes every filter. A record without
// a value for a filter's key never matches, even a negated filter.
func matchesAll(candidate gjson.Result, al attrs.AttrList, filters []Filter) bool {
	for _, f := range filters {
		value := candidate.Get(path(al, f.Key)).Value()
		if value == nil || !f.Match(value) {
			return false
		}
	}
	return true
}

// Match evaluates the filter against one decoded JSON value.
func (f Filter) Match(value interface{}) bool {
	switch v := value.(type) {
	case string:
		return checkStringOperand(v, f)
	case bool:
		return checkStringOperand(strconv.FormatBool(v), f)
	case []interface{}, map[string]interface{}:
		if f.Operand == "@" {
			return checkContainsOperand(v, f)
		}
		// A bare key asks for a non-empty collection.
		if f.Operand == "" {
			return (length(v) > 0) == !f.Negate
		}
		return false
	}

	if num, ok := toFloat64(value); ok {
		if f.Operand == "" {
			return !f.Negate
		}
		return checkNumericOperand(num, f)
	}
	return false
}

func length(v interface{}) int {
	switch c := v.(type) {
	case []interface{}:
		return len(c)
	case map[string]interface{}:
		return len(c)
	}
	return 0
}

// checkContainsOperand tests array membership or map keys. Array members are
// compared in their string form so numeric members match too.
func checkContainsOperand(value interface{}, filter Filter) bool {
	found := false
	switch val := value.(type) {
	case []any:
		for _, item := range val {
			if fmt.Sprint(item) == filter.Value {
				found = true
				break
			}
		}
	case map[string]any:
		_, found = val[filter.Value]
	default:
		log.Errorf("unsupported type for contains filtering: %T", value)
		return false
	}
	return found == !filter.Negate
}

// checkNumericOperand compares numerically. Only =, < and > apply.
func checkNumericOperand(value float64, filter Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(filter.Value), 64)
	if err != nil {
		log.Errorf("invalid numeric value: %s", filter.Value)
		return false
	}

	var result bool
	switch filter.Operand {
	case "=":
		result = value == tgt
	case ">":
		result = value > tgt
	case "<":
		result = value < tgt
	default:
		log.Errorf("unsupported numeric operand: %s", filter.Operand)
		return false
	}
	return result == !filter.Negate
}

// checkStringOperand compares strings. A bare key asks for a non-empty
// value.
func checkStringOperand(value string, filter Filter) bool {
	var result bool
	switch filter.Operand {
	case "":
		result = value != ""
	case "=":
		result = value == filter.Value
	case "~":
		result = strings.EqualFold(value, filter.Value)
	case "^":
		result = strings.HasPrefix(value, filter.Value)
	case ">":
		result = value > filter.Value
	case "<":
		result = value < filter.Value
	case "@":
		result = strings.Contains(value, filter.Value)
	case "/":
		re, err := regexp.Compile(filter.Value)
		if err != nil {
			log.Errorf("invalid regex: %s", filter.Value)
			return false
		}
		result = re.MatchString(value)
	default:
		log.Errorf("unsupported filtering operand: %s", filter.Operand)
		return false
	}
	return result == !filter.Negate
}

// toFloat64 normalizes the numeric types a record may carry.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
