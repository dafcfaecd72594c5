// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package attrs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/concord-consortium/cloudops/internal/log"
)

// lengthSpec finds the length transforms in a spec, e.g. "20" or "-16".
var lengthSpec = regexp.MustCompile(`-?\d+`)

// localLayout renders a timestamp moved to the local zone.
const localLayout = "2006-01-02T15:04:05MST"

// Attr is one output column. Key is a gjson path into the JSON form of a
// record; OutputKey is the column title.
type Attr struct {
	Key string `yaml:"key" json:"Key"`
	// Include is false for attrs only used for filtering and sorting.
	Include   bool   `yaml:"include" json:"Include"`
	OutputKey string `yaml:"outputKey" json:"OutputKey"`
	// TransformSpec is a run of transform letters and lengths:
	//
	//	t/T  local time / time ago (RFC3339 values)
	//	l/L  lower case, u/U upper case; the last one given wins
	//	b/B  humanized byte size (numeric values)
	//	N    truncate to N characters, -N elide the middle
	TransformSpec string `yaml:"transformSpec" json:"TransformSpec"`
}

// Transform applies the attribute's transform spec to a value. Numbers are
// only touched by the byte size transform; maps, slices and booleans pass
// through.
func (a *Attr) Transform(value interface{}) interface{} {
	if a.TransformSpec == "" {
		return value
	}

	if n, ok := value.(float64); ok && strings.ContainsAny(a.TransformSpec, "bB") && n >= 0 {
		return humanize.Bytes(uint64(n))
	}

	result, ok := value.(string)
	if !ok {
		log.Tracef("not transformed: type=%T", value)
		return value
	}

	if strings.ContainsAny(a.TransformSpec, "tT") {
		result = a.transformTime(result)
	}
	result = a.transformCase(result)
	return a.transformLength(result)
}

// transformTime moves an RFC3339 timestamp to the local zone, or renders it
// as time ago for T. Values that do not parse are returned unchanged.
func (a *Attr) transformTime(s string) string {
	tz, _ := time.Now().In(time.Local).Zone()
	if tz == "" {
		return s
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return s
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}

	local := t.In(loc)
	if strings.Contains(a.TransformSpec, "T") {
		return humanize.Time(local)
	}
	return local.Format(localLayout)
}

// transformCase applies whichever case letter appears last, so an attr's own
// spec beats a prepended global one: --attrs '*::U,Name::l' lowers Name.
func (a *Attr) transformCase(s string) string {
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")

	switch {
	case lastL > lastU:
		return strings.ToLower(s)
	case lastU > lastL:
		return strings.ToUpper(s)
	}
	return s
}

// transformLength applies the last length in the spec. A negative length
// keeps both ends and joins them with "..".
func (a *Attr) transformLength(s string) string {
	match := lengthSpec.FindAllString(a.TransformSpec, -1)
	if len(match) == 0 {
		return s
	}

	l, _ := strconv.Atoi(match[len(match)-1])
	abs := l
	if abs < 0 {
		abs = -abs
	}
	if len(s) <= abs {
		return s
	}

	if l >= 0 {
		return s[:l]
	}
	half := abs/2 - 1 //nolint:mnd
	return s[:half] + ".." + s[len(s)-half:]
}

// AttrList is a collection of Attr used to shape output fields.
type AttrList []Attr

// parseAttr parses one "key[:title[:transform]]" spec. A leading ! on the
// key hides the column, and the title defaults to the last segment of a
// dotted key.
func parseAttr(spec string) Attr {
	fields := strings.SplitN(spec, ":", 3) //nolint:mnd

	attr := Attr{Include: true, Key: strings.TrimSpace(fields[0])}
	if strings.HasPrefix(attr.Key, "!") {
		attr.Include = false
		attr.Key = attr.Key[1:]
	}
	if attr.Key == "*" {
		attr.Include = false
	}

	switch {
	case len(fields) == 1:
		segments := strings.Split(attr.Key, ".")
		attr.OutputKey = segments[len(segments)-1]
	case strings.TrimSpace(fields[1]) != "":
		attr.OutputKey = strings.TrimSpace(fields[1])
	default:
		attr.OutputKey = attr.Key
	}

	if len(fields) == 3 { //nolint:mnd
		attr.TransformSpec = strings.TrimSpace(fields[2])
	}

	return attr
}

// Set parses the comma separated specs of --attrs into the list. A spec
// naming an attr already present, by key or title, updates it in place so
// command defaults keep their column position.
func (a *AttrList) Set(value string) error {
	if value == "" || value == "*" {
		return nil
	}

	for _, spec := range strings.Split(value, ",") {
		attr := parseAttr(spec)
		log.Tracef("attr parsed: key=%s title=%s include=%v spec=%s",
			attr.Key, attr.OutputKey, attr.Include, attr.TransformSpec)

		if i := a.index(attr.Key); i >= 0 {
			(*a)[i].Include = attr.Include
			(*a)[i].OutputKey = attr.OutputKey
			(*a)[i].TransformSpec = attr.TransformSpec
			continue
		}

		// Records are flat, so a leading '.' (root) is accepted and dropped.
		attr.Key = strings.TrimPrefix(attr.Key, ".")
		*a = append(*a, attr)
	}

	return nil
}

func (a AttrList) index(key string) int {
	for i := range a {
		if a[i].Key == key || a[i].OutputKey == key {
			return i
		}
	}
	return -1
}

// SetGlobalTransformSpec prepends the spec of the first "*" attr to every
// attr in the list.
func (a *AttrList) SetGlobalTransformSpec() error {
	i := a.index("*")
	if i < 0 || (*a)[i].TransformSpec == "" {
		return nil
	}

	spec := (*a)[i].TransformSpec
	log.Debugf("global spec: spec=%s", spec)
	for j := range *a {
		(*a)[j].TransformSpec = spec + "," + (*a)[j].TransformSpec
	}
	return nil
}

// String renders the list in --attrs syntax with every field spelled out.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Type returns the flag type for use with the flag.Value interface.
func (a *AttrList) Type() string { return "list" }

// Included returns the attrs that are rendered as columns, in order.
func (a AttrList) Included() AttrList {
	out := make(AttrList, 0, len(a))
	for _, attr := range a {
		if attr.Include {
			out = append(out, attr)
		}
	}
	return out
}

// Titles returns the column titles of the included attrs.
func (a AttrList) Titles() []string {
	inc := a.Included()
	titles := make([]string, len(inc))
	for i, attr := range inc {
		titles[i] = attr.OutputKey
	}
	return titles
}
