// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package attrs

import (
	"fmt"
	"testing"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrList_Set(t *testing.T) {
	tests := []struct {
		name      string
		initial   AttrList
		value     string
		wantAttrs AttrList
	}{
		{
			name:  "empty",
			value: "",
		},
		{
			name:  "star only",
			value: "*",
		},
		{
			name:  "single key",
			value: "Name",
			wantAttrs: AttrList{
				{Key: "Name", OutputKey: "Name", Include: true},
			},
		},
		{
			name:  "renamed with transform",
			value: "CreationDate:Created:t",
			wantAttrs: AttrList{
				{Key: "CreationDate", OutputKey: "Created", Include: true, TransformSpec: "t"},
			},
		},
		{
			name:  "title with spaces",
			value: "Cors:Raw CORS Config",
			wantAttrs: AttrList{
				{Key: "Cors", OutputKey: "Raw CORS Config", Include: true},
			},
		},
		{
			name:  "dotted path titles last segment",
			value: "RawOrigin.DomainName",
			wantAttrs: AttrList{
				{Key: "RawOrigin.DomainName", OutputKey: "DomainName", Include: true},
			},
		},
		{
			name:  "root prefix dropped",
			value: ".Region",
			wantAttrs: AttrList{
				{Key: "Region", OutputKey: "Region", Include: true},
			},
		},
		{
			name:  "exclusion",
			value: "!Policy",
			wantAttrs: AttrList{
				{Key: "Policy", OutputKey: "Policy", Include: false},
			},
		},
		{
			name:    "updates existing default",
			initial: AttrList{{Key: "Policy", OutputKey: "Policy", Include: true}, {Key: "Name", OutputKey: "Name", Include: true}},
			value:   "!Policy,Name::U",
			wantAttrs: AttrList{
				{Key: "Policy", OutputKey: "Policy", Include: false},
				{Key: "Name", OutputKey: "Name", Include: true, TransformSpec: "U"},
			},
		},
		{
			name:  "extra colons stay in the transform",
			value: "Size:Bytes:b:5",
			wantAttrs: AttrList{
				{Key: "Size", OutputKey: "Bytes", Include: true, TransformSpec: "b:5"},
			},
		},
		{
			name:  "global transform entry",
			value: "*::l",
			wantAttrs: AttrList{
				{Key: "*", OutputKey: "*", Include: false, TransformSpec: "l"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.initial
			require.NoError(t, a.Set(tt.value))
			assert.Len(t, a, len(tt.wantAttrs))
			for i, want := range tt.wantAttrs {
				assert.Equal(t, want, a[i], "attr[%d]", i)
			}
		})
	}
}

func TestAttrList_SetGlobalTransformSpec(t *testing.T) {
	a := AttrList{}
	require.NoError(t, a.Set("Name,Region::5,*::U"))
	require.NoError(t, a.SetGlobalTransformSpec())

	assert.Equal(t, "U,", a[0].TransformSpec)
	assert.Equal(t, "U,5", a[1].TransformSpec)

	b := AttrList{{Key: "Name", TransformSpec: "l"}}
	require.NoError(t, b.SetGlobalTransformSpec())
	assert.Equal(t, "l", b[0].TransformSpec, "no global spec leaves attrs alone")
}

func TestAttr_Transform(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		input interface{}
		want  interface{}
	}{
		{name: "no spec", spec: "", input: "Value", want: "Value"},
		{name: "upper", spec: "u", input: "public", want: "PUBLIC"},
		{name: "lower", spec: "L", input: "PUBLIC", want: "public"},
		{name: "last case wins", spec: "U,l", input: "MiXeD", want: "mixed"},
		{name: "truncate", spec: "5", input: "abcdefghij", want: "abcde"},
		{name: "short string untouched", spec: "5", input: "abc", want: "abc"},
		{name: "middle elide", spec: "-10", input: "abcdefghijklmnop", want: "abcd..mnop"},
		{name: "last length wins", spec: "3,6", input: "abcdefghij", want: "abcdef"},
		{name: "non-string passthrough", spec: "u", input: 42.0, want: 42.0},
		{name: "map passthrough", spec: "u", input: map[string]interface{}{"a": "b"}, want: map[string]interface{}{"a": "b"}},
		{name: "unparseable time", spec: "t", input: "not-a-time", want: "not-a-time"},
		{name: "bytes", spec: "b", input: 2048.0, want: "2.0 kB"},
		{name: "bytes ignores strings", spec: "b", input: "2048", want: "2048"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := Attr{TransformSpec: tt.spec}
			assert.Equal(t, tt.want, attr.Transform(tt.input))
		})
	}
}

func TestAttr_Transform_Time(t *testing.T) {
	input := "2024-01-15T10:00:00Z"
	parsed, err := time.Parse(time.RFC3339, input)
	require.NoError(t, err)
	local := parsed.In(time.Now().Location())

	tz, _ := time.Now().In(time.Local).Zone()
	if tz == "" {
		t.Skip("no local zone name")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		t.Skip("local zone abbreviation is not loadable")
	}

	localAttr := Attr{TransformSpec: "t"}
	got := localAttr.Transform(input)
	assert.Equal(t, local.Format("2006-01-02T15:04:05MST"), fmt.Sprintf("%v", got))

	agoAttr := Attr{TransformSpec: "T"}
	got = agoAttr.Transform(input)
	assert.Equal(t, humanize.Time(local), fmt.Sprintf("%v", got))
}

func TestAttrList_String(t *testing.T) {
	a := AttrList{
		{Key: "Name", OutputKey: "Name"},
		{Key: "CreationDate", OutputKey: "Created", TransformSpec: "T"},
	}
	assert.Equal(t, "Name:Name:,CreationDate:Created:T", a.String())
}

func TestAttrList_IncludedAndTitles(t *testing.T) {
	a := AttrList{}
	require.NoError(t, a.Set("Name,!Policy,CreationDate:Created"))

	assert.Len(t, a.Included(), 2)
	assert.Equal(t, []string{"Name", "Created"}, a.Titles())
}

func TestAttrList_Type(t *testing.T) {
	a := AttrList{}
	assert.Equal(t, "list", a.Type())
}
