// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v2"

	"github.com/concord-consortium/cloudops/internal/attrs"
	"github.com/concord-consortium/cloudops/internal/config"
	"github.com/concord-consortium/cloudops/internal/filters"
)

// Formats accepted by --output.
var Formats = []string{"csv", "text", "json", "yaml", "raw"}

// Options carries the presentation flags of a report command.
type Options struct {
	Format  string
	Filter  string
	Sort    string
	Titles  bool
	Color   bool
	Local   bool
	Padding int
	Header  string
	Footer  string
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case float64:
		// Record numbers are whole (sizes, ages, counts).
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}

// SliceDiceSpit filters, transforms, sorts and renders records according to
// opts. records is any JSON-marshalable slice; its JSON field names are the
// keys attrs refer to.
func SliceDiceSpit(records any, al attrs.AttrList, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	if opts.Format == "raw" {
		_, err := w.Write(append(raw, '\n'))
		return err
	}

	dataset := filters.FilterDataset(gjson.ParseBytes(raw), al, opts.Filter)

	if opts.Local {
		forceLocalTime(al)
	}
	transform(dataset, al)
	SortDataset(dataset, opts.Sort)

	switch opts.Format {
	case "json":
		return writeJSON(dataset, al, w)
	case "yaml":
		return writeYAML(dataset, al, w)
	case "csv":
		return CSVWriter(dataset, al, w)
	default:
		TableWriter(dataset, al, opts, w)
		return nil
	}
}

// forceLocalTime adds the local time transform to every attr. Values that do
// not parse as times are left alone by Transform.
func forceLocalTime(al attrs.AttrList) {
	for i := range al {
		if al[i].TransformSpec == "" {
			al[i].TransformSpec = "t"
		} else {
			al[i].TransformSpec += ",t"
		}
	}
}

func transform(dataset []map[string]interface{}, al attrs.AttrList) {
	for _, row := range dataset {
		for _, attr := range al {
			if attr.TransformSpec != "" && attr.Key != "*" {
				row[attr.OutputKey] = attr.Transform(row[attr.OutputKey])
			}
		}
	}
}

func writeJSON(dataset []map[string]interface{}, al attrs.AttrList, w io.Writer) error {
	out, err := json.MarshalIndent(orderedRows(dataset, al), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// writeYAML keeps the column order, which a plain map would lose.
func writeYAML(dataset []map[string]interface{}, al attrs.AttrList, w io.Writer) error {
	inc := al.Included()
	rows := make([]yaml.MapSlice, 0, len(dataset))
	for _, row := range dataset {
		ms := make(yaml.MapSlice, 0, len(inc))
		for _, attr := range inc {
			ms = append(ms, yaml.MapItem{Key: attr.OutputKey, Value: row[attr.OutputKey]})
		}
		rows = append(rows, ms)
	}

	out, err := yaml.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// orderedRows projects each row onto the included attrs, dropping excluded
// ones.
func orderedRows(dataset []map[string]interface{}, al attrs.AttrList) []map[string]interface{} {
	inc := al.Included()
	rows := make([]map[string]interface{}, 0, len(dataset))
	for _, row := range dataset {
		r := make(map[string]interface{}, len(inc))
		for _, attr := range inc {
			r[attr.OutputKey] = row[attr.OutputKey]
		}
		rows = append(rows, r)
	}
	return rows
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(
	resultSet []map[string]interface{},
	al attrs.AttrList,
	opts Options,
	w io.Writer) {

	if w == nil {
		w = os.Stdout
	}

	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left).Bold(true)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(headerColor)
		evenRowStyle = evenRowStyle.Foreground(evenColor)
		oddRowStyle = oddRowStyle.Foreground(oddColor)
	}

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(result))
		for _, attr := range al.Included() {
			row = append(row, InterfaceToString(result[attr.OutputKey], "-"))
		}
		rows = append(rows, row)
	}

	if opts.Header != "" {
		fmt.Fprintln(w, headerStyle.Render(opts.Header))
	}

	pad := opts.Padding
	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(al.Titles()...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)

	if opts.Footer != "" {
		fmt.Fprintln(w, headerStyle.Render(opts.Footer))
	}
}

// getColors returns configured color values for table rendering. Each color is
// selected based on terminal background so output stays readable on light and
// dark themes.
func getColors(key string) (header, even, odd color.Color) {
	isDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)

	resolveColor := func(key string, light string, dark string) color.Color {
		colorCfg, err := config.GetString(key)
		if err == nil {
			return lipgloss.Color(colorCfg)
		}

		if isDark {
			return lipgloss.Color(dark)
		}
		return lipgloss.Color(light)
	}

	header = resolveColor(key+".title", "#b08800", "#f6be00")
	even = resolveColor(key+".even", "#333333", "#ffffff")
	odd = resolveColor(key+".odd", "#0088a0", "#00c8f0")

	log.Debugf("table colors resolved: dark=%v", isDark)
	return
}
