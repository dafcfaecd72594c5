// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/concord-consortium/cloudops/internal/attrs"
)

func TestSortDataset(t *testing.T) {
	logs := []map[string]interface{}{
		{"Key": "b.parquet", "Size": 300.0, "Env": "staging"},
		{"Key": "A.parquet", "Size": 100.0, "Env": "production"},
		{"Key": "c.parquet", "Size": 100.0, "Env": "staging"},
	}

	tests := []struct {
		spec string
		want []string
	}{
		{"", []string{"b.parquet", "A.parquet", "c.parquet"}},
		{"Key", []string{"A.parquet", "b.parquet", "c.parquet"}},
		{"-Key", []string{"c.parquet", "b.parquet", "A.parquet"}},
		{"!Key", []string{"A.parquet", "b.parquet", "c.parquet"}},
		{"-!Key", []string{"c.parquet", "b.parquet", "A.parquet"}},
		{"Size", []string{"A.parquet", "c.parquet", "b.parquet"}},
		{"-Size", []string{"b.parquet", "A.parquet", "c.parquet"}},
		{"Size,-Key", []string{"c.parquet", "A.parquet", "b.parquet"}},
		{" Env , -Size ", []string{"A.parquet", "b.parquet", "c.parquet"}},
		{"Missing", []string{"b.parquet", "A.parquet", "c.parquet"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			data := slices.Clone(logs)
			SortDataset(data, tt.spec)

			got := make([]string, 0, len(data))
			for _, row := range data {
				got = append(got, row["Key"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSortSpec(t *testing.T) {
	assert.Equal(t, []sortKey{
		{field: "Size", descending: true},
		{field: "Key", caseSensitive: true},
	}, parseSortSpec("-Size,,!Key, -"))
}

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		emptyVal string
		want     string
	}{
		{
			name:  "string",
			value: "hello",
			want:  "hello",
		},
		{
			name:  "int",
			value: 42,
			want:  "42",
		},
		{
			name:  "float64",
			value: 42.5,
			want:  "42",
		},
		{
			name:  "float64 with decimal",
			value: 42.7,
			want:  "43",
		},
		{
			name:  "bool true",
			value: true,
			want:  "true",
		},
		{
			name:  "bool false is zero value",
			value: false,
			want:  "",
		},
		{
			name:  "nil default",
			value: nil,
			want:  "",
		},
		{
			name:     "nil custom",
			value:    nil,
			emptyVal: "-",
			want:     "-",
		},
		{
			name:  "slice",
			value: []string{"a", "b"},
			want:  `["a","b"]`,
		},
		{
			name:  "map",
			value: map[string]int{"x": 1},
			want:  `{"x":1}`,
		},
		{
			name:  "zero value int",
			value: 0,
			want:  "",
		},
		{
			name:     "zero value with custom empty",
			value:    0,
			emptyVal: "N/A",
			want:     "N/A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.emptyVal != "" {
				got = InterfaceToString(tt.value, tt.emptyVal)
			} else {
				got = InterfaceToString(tt.value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

type testRecord struct {
	Name          string            `json:"Name"`
	BucketType    string            `json:"BucketType"`
	MaxAgeSeconds *int32            `json:"MaxAgeSeconds"`
	Tags          map[string]string `json:"Tags"`
	Nested        testNested        `json:"Nested"`
	Skipped       string `json:"-"`
	NoTag         string
}

type testNested struct {
	Region string `json:"Region"`
	Deep   struct {
		Value string `json:"Value"`
	} `json:"Deep"`
}

func testRecords() []testRecord {
	age := int32(3000)
	return []testRecord{
		{Name: "cc-public", BucketType: "public", MaxAgeSeconds: &age,
			Tags: map[string]string{"BucketType": "public"}},
		{Name: "cc-private", BucketType: "private",
			Tags: map[string]string{"BucketType": "private", "Team": "ops"}},
		{Name: "Cc-archive"},
	}
}

func testAttrs(t *testing.T, spec string) attrs.AttrList {
	t.Helper()
	al := attrs.AttrList{}
	require.NoError(t, al.Set(spec))
	return al
}

func TestSliceDiceSpit_CSV(t *testing.T) {
	var buf bytes.Buffer
	al := testAttrs(t, "Name,BucketType:Type,MaxAgeSeconds,Tags")

	err := SliceDiceSpit(testRecords(), al, Options{Format: "csv"}, &buf)
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"Name", "Type", "MaxAgeSeconds", "Tags"}, rows[0])
	assert.Equal(t, []string{"cc-public", "public", "3000", `{"BucketType":"public"}`}, rows[1])
	assert.Equal(t, []string{"Cc-archive", "", "", ""}, rows[3])
}

func TestSliceDiceSpit_FilterAndSort(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantNames []string
	}{
		{
			name:      "filter by title",
			opts:      Options{Format: "csv", Filter: "Type=public"},
			wantNames: []string{"cc-public"},
		},
		{
			name:      "filter by hidden path",
			opts:      Options{Format: "csv", Filter: "Tags.Team=ops"},
			wantNames: []string{"cc-private"},
		},
		{
			name:      "sort ascending ignores case",
			opts:      Options{Format: "csv", Sort: "Name"},
			wantNames: []string{"Cc-archive", "cc-private", "cc-public"},
		},
		{
			name:      "sort case sensitive descending",
			opts:      Options{Format: "csv", Sort: "-!Name"},
			wantNames: []string{"cc-public", "cc-private", "Cc-archive"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			al := testAttrs(t, "Name,BucketType:Type")
			require.NoError(t, SliceDiceSpit(testRecords(), al, tt.opts, &buf))

			rows, err := csv.NewReader(&buf).ReadAll()
			require.NoError(t, err)

			var names []string
			for _, row := range rows[1:] {
				names = append(names, row[0])
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestSliceDiceSpit_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		al := testAttrs(t, "Name,BucketType::U,!Tags")
		require.NoError(t, SliceDiceSpit(testRecords()[:1], al, Options{Format: "json"}, &buf))

		var got []map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, []map[string]interface{}{{"Name": "cc-public", "BucketType": "PUBLIC"}}, got)
	})

	t.Run("yaml keeps column order", func(t *testing.T) {
		var buf bytes.Buffer
		al := testAttrs(t, "BucketType,Name")
		require.NoError(t, SliceDiceSpit(testRecords()[:1], al, Options{Format: "yaml"}, &buf))

		var got []yaml.MapSlice
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "BucketType", got[0][0].Key)
		assert.Equal(t, "Name", got[0][1].Key)
	})

	t.Run("raw ignores attrs", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, SliceDiceSpit(testRecords(), attrs.AttrList{}, Options{Format: "raw", Filter: "Name=none"}, &buf))

		var got []testRecord
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Len(t, got, 3)
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		al := testAttrs(t, "Name,BucketType:Type")
		opts := Options{Format: "text", Titles: true, Padding: 2, Header: "Buckets", Footer: "3 buckets"}
		require.NoError(t, SliceDiceSpit(testRecords(), al, opts, &buf))

		out := buf.String()
		assert.Contains(t, out, "Buckets")
		assert.Contains(t, out, "Type")
		assert.Contains(t, out, "cc-private")
		assert.Contains(t, out, "3 buckets")
	})
}

func TestTableWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	TableWriter(nil, attrs.AttrList{}, Options{Titles: true}, &buf)
	assert.Empty(t, buf.String())
}

func TestCSVWriter_NoRows(t *testing.T) {
	var buf bytes.Buffer
	al := testAttrs(t, "Name,CreationDate:Created")
	require.NoError(t, CSVWriter(nil, al, &buf))
	assert.Equal(t, "Name,Created\n", buf.String())
}

func TestCreateFile(t *testing.T) {
	w, closer, err := CreateFile("-")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
	require.NoError(t, closer())

	path := filepath.Join(t.TempDir(), "reports", "buckets.csv")
	w, closer, err = CreateFile(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("Name\n"))
	require.NoError(t, err)
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name\n", string(data))
}

func TestDumpSchemaWalker(t *testing.T) {
	got := dumpSchemaWalker("", reflect.TypeOf(testRecord{}), 0)
	assert.Equal(t, []string{
		"Name",
		"BucketType",
		"MaxAgeSeconds",
		"Tags",
		"Nested",
		"Nested.Region",
		"Nested.Deep",
	}, got)
}

func TestDumpSchema(t *testing.T) {
	var buf bytes.Buffer
	DumpSchema(reflect.TypeOf([]testRecord{}), &buf)
	assert.Contains(t, buf.String(), "\nNested.Region\n")
}
