// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/concord-consortium/cloudops/internal/cacheutil"
	"github.com/concord-consortium/cloudops/internal/command"
	"github.com/concord-consortium/cloudops/internal/config"
	"github.com/concord-consortium/cloudops/internal/log"
	"github.com/concord-consortium/cloudops/internal/version"
)

var ctx = context.Background()

// maxCommandWords is the depth of the command tree, group then subcommand.
const maxCommandWords = 2

// boolFlags never take a value, so the token after them is left alone when
// grouping flags with their values.
var boolFlags = []string{
	"--apply", "--color", "-c", "--diff", "--force", "--local", "-l",
	"--schema", "--titles", "-t", "--help", "-h",
}

func main() {
	os.Exit(realMain())
}

// handleVersion checks for --version/-v and returns whether it was handled.
func handleVersion(args []string) bool {
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return true
		}
	}
	return false
}

// handleNakedCommand appends --help if no command is provided.
func handleNakedCommand(args []string) []string {
	if len(args) <= 1 {
		return append(args, "--help")
	}
	return args
}

// processCommandArgs expands config sets and drops repeated flags.
func processCommandArgs(args []string) []string {
	if len(args) > 1 && args[1] == "completion" {
		return args
	}

	args = processSetOnly(args)
	log.Debugf("args after set processing: args=%v", args)

	args = deduplicateFlags(args)
	log.Debugf("args after dedup: args=%v", args)
	return args
}

// commandWords returns the leading command words, e.g. "bucket", "list".
func commandWords(args []string) []string {
	var words []string
	for _, a := range args[1:] {
		if strings.HasPrefix(a, "-") || strings.HasPrefix(a, "@") || len(words) == maxCommandWords {
			break
		}
		words = append(words, a)
	}
	return words
}

// processSetOnly expands an @set argument, or the "defaults" set when none is
// given, from the config key "<group>.<command>.<set>". The expansion lands
// right after the command words so explicit flags that follow still win.
func processSetOnly(args []string) []string {
	words := commandWords(args)
	if len(words) == 0 {
		return args
	}
	insertIdx := 1 + len(words)

	set := "defaults"
	rest := make([]string, 0, len(args))
	rest = append(rest, args[:insertIdx]...)
	for _, a := range args[insertIdx:] {
		if strings.HasPrefix(a, "@") && set == "defaults" {
			set = a[1:]
			continue
		}
		rest = append(rest, a)
	}

	return injectConfigSet(rest, strings.Join(words, ".")+"."+set, insertIdx)
}

// injectConfigSet splits each entry of the config slice at key into fields
// and inserts them at insertIdx.
func injectConfigSet(args []string, key string, insertIdx int) []string {
	entries, _ := config.GetStringSlice(key, nil)
	if len(entries) == 0 {
		return args
	}
	log.Debugf("injecting config set: key=%s entries=%v", key, entries)

	var expanded []string
	for _, entry := range entries {
		expanded = append(expanded, strings.Fields(entry)...)
	}

	out := make([]string, 0, len(args)+len(expanded))
	out = append(out, args[:insertIdx]...)
	out = append(out, expanded...)
	return append(out, args[insertIdx:]...)
}

// flagKey is the name of a flag token, without any "=value".
func flagKey(a string) string {
	key, _, _ := strings.Cut(a, "=")
	return key
}

// deduplicateFlags keeps the last occurrence of every repeated flag along
// with its value. A flag without "=" takes the next token as its value unless
// that token is a flag or the flag is known to be boolean. Positional
// arguments keep their place.
func deduplicateFlags(args []string) []string {
	if len(args) <= 2 {
		return args
	}

	type group struct {
		key    string
		tokens []string
	}

	var groups []group
	for i := 2; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			groups = append(groups, group{tokens: []string{a}})
			continue
		}

		g := group{key: flagKey(a), tokens: []string{a}}
		if !strings.Contains(a, "=") && !slices.Contains(boolFlags, a) &&
			i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			g.tokens = append(g.tokens, args[i])
		}
		groups = append(groups, g)
	}

	last := map[string]int{}
	for i, g := range groups {
		if g.key != "" {
			last[g.key] = i
		}
	}

	out := make([]string, 0, len(args))
	out = append(out, args[:2]...)
	for i, g := range groups {
		if g.key != "" && last[g.key] != i {
			continue
		}
		out = append(out, g.tokens...)
	}
	return out
}

// initAndRunApp initializes the app and runs it, returning the exit code.
func initAndRunApp(args []string) int {
	// Pre-create cache directory when caching is enabled.
	if _, ok, err := cacheutil.EnsureBaseDir(); err != nil && ok {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("cache ensure err: err=%v", err)
	}

	hours, _ := config.GetInt("cache.clean", 0)
	if err := cacheutil.Purge(hours); err != nil {
		log.Debugf("cache purge err: err=%v", err)
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("app init err: err=%v", err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("app run err: err=%v", err)
		return 2
	}

	return 0
}

func realMain() int {
	log.InitLogger()

	args := os.Args
	log.Debugf("args captured: args=%v", args)

	if handleVersion(args) {
		return 0
	}

	args = handleNakedCommand(args)

	// If --help appears anywhere, skip command processing and let the CLI handle it.
	if !slices.Contains(args, "--help") && !slices.Contains(args, "-h") {
		args = processCommandArgs(args)
	}

	return initAndRunApp(args)
}
