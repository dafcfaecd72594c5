// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

// docsgen renders a markdown page for every cloudops command from the live
// command tree, so the pages never drift from the flags.
//
//	go run ./tools/docsgen docs
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/command"
)

const pageTemplate = `# cloudops {{ .Path }}

{{ .Usage }}

## Usage

` + "```" + `
{{ .UsageText }}
` + "```" + `
{{ if .Flags }}
## Flags

| Flag | Description | Default |
| ---- | ----------- | ------- |
{{- range .Flags }}
| {{ .Syntax }} | {{ .Usage }} | {{ .Default }} |
{{- end }}
{{ end }}
_Generated {{ .Date }} for version {{ .Version }}._
`

// Flag is one row of the flags table.
type Flag struct {
	Syntax  string
	Usage   string
	Default string
}

// Page is the template data for one command.
type Page struct {
	Path      string
	ID        string
	Usage     string
	UsageText string
	Flags     []Flag
	Date      string
	Version   string
}

var tmpl = template.Must(template.New("page").Parse(pageTemplate))

func main() {
	if len(os.Args) < 2 { //nolint:mnd
		fmt.Fprintln(os.Stderr, "usage: docsgen <docs dir>")
		os.Exit(1)
	}
	folder := filepath.Join(os.Args[1], "commands")

	app, err := command.InitApp(context.Background(), []string{"cloudops"})
	if err != nil {
		panic(err)
	}

	if err := os.MkdirAll(folder, 0o755); err != nil { //nolint:mnd
		panic(err)
	}

	version := getVersion()
	date := time.Now().Format("January 2, 2006")

	for _, page := range pages(app) {
		page.Date = date
		page.Version = version

		path := filepath.Join(folder, page.ID+".md")
		fmt.Println("Generating", path)

		file, err := os.Create(path)
		if err != nil {
			panic(err)
		}
		if err := render(file, page); err != nil {
			panic(err)
		}
		file.Close()
	}
}

// pages walks the command tree and returns a Page for every leaf command.
func pages(app *cli.Command) []Page {
	var out []Page

	var walk func(prefix []string, cmds []*cli.Command)
	walk = func(prefix []string, cmds []*cli.Command) {
		for _, c := range cmds {
			if c.Hidden {
				continue
			}
			path := append(append([]string{}, prefix...), c.Name)
			if len(c.Commands) > 0 {
				walk(path, c.Commands)
				continue
			}
			out = append(out, newPage(path, c))
		}
	}
	walk(nil, app.Commands)

	return out
}

func newPage(path []string, c *cli.Command) Page {
	p := Page{
		Path:      strings.Join(path, " "),
		ID:        strings.Join(path, "-"),
		Usage:     c.Usage,
		UsageText: c.UsageText,
	}
	if p.UsageText == "" {
		p.UsageText = "cloudops " + p.Path + " [options]"
	}

	for _, f := range c.Flags {
		names := f.Names()
		syntax := make([]string, 0, len(names))
		for _, n := range names {
			if len(n) == 1 {
				syntax = append(syntax, "-"+n)
			} else {
				syntax = append(syntax, "--"+n)
			}
		}

		flag := Flag{Syntax: "`" + strings.Join(syntax, ", ") + "`"}
		if df, ok := f.(cli.DocGenerationFlag); ok {
			flag.Usage = df.GetUsage()
			flag.Default = df.GetValue()
		}
		p.Flags = append(p.Flags, flag)
	}
	sort.Slice(p.Flags, func(i, j int) bool { return p.Flags[i].Syntax < p.Flags[j].Syntax })

	return p
}

func render(w io.Writer, page Page) error {
	return tmpl.Execute(w, page)
}

// getVersion returns the version string from git tags, stripping the leading
// "v" prefix. Falls back to "dev" if git describe fails.
func getVersion() string {
	out, err := exec.Command("git", "describe", "--tags", "--abbrev=0").Output()
	if err != nil {
		return "dev"
	}

	version := strings.TrimSpace(string(out))
	return strings.TrimPrefix(version, "v")
}
