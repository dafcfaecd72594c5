// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/config"
	"github.com/concord-consortium/cloudops/internal/meta"
	"github.com/concord-consortium/cloudops/internal/parquetlog"
	"github.com/concord-consortium/cloudops/internal/util"
)

// updateArg is the historical spelling of --apply for the log commands.
const updateArg = "update"

// logsBucket resolves the environment argument to its bucket.
func logsBucket(cmd *cli.Command) (string, error) {
	env := cmd.Args().First()
	if env == "" {
		return "", fmt.Errorf("environment argument is required: %w", parquetlog.ErrUnknownEnvironment)
	}

	overrides, err := config.GetStringMap("logs.buckets", map[string]string{})
	if err != nil {
		return "", fmt.Errorf("invalid logs config: %w", err)
	}
	return parquetlog.BucketFor(env, overrides)
}

func newMigrator(ctx context.Context, cmd *cli.Command, bucket string) (*parquetlog.Migrator, error) {
	cfg, err := LoadAWS(ctx, cmd)
	if err != nil {
		return nil, err
	}

	t := newTransfer(cfg)
	return &parquetlog.Migrator{
		List:       t.list,
		Downloader: t.downloader,
		Uploader:   t.uploader,
		Bucket:     bucket,
		Update:     willWrite(cmd),
		Out:        stdout,
	}, nil
}

// logsCompareCommandAction reports source files without a migrated copy and
// migrated copies smaller than their source.
func logsCompareCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "logs"

	bucket, err := logsBucket(cmd)
	if err != nil {
		return err
	}

	cfg, err := LoadAWS(ctx, cmd)
	if err != nil {
		return err
	}

	c, err := parquetlog.CompareBucket(ctx, newTransfer(cfg).list, bucket)
	if err != nil {
		return err
	}
	return c.Report(stdout)
}

// logsAddIDCommandAction migrates every source file lacking an id column.
func logsAddIDCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "logs"

	bucket, err := logsBucket(cmd)
	if err != nil {
		return err
	}

	m, err := newMigrator(ctx, cmd, bucket)
	if err != nil {
		return err
	}

	summary, err := m.AddIDs(ctx)
	if err != nil && !errors.Is(err, util.ErrPartialFailure) {
		return fmt.Errorf("logs add-id: %w", err)
	}
	return finish("logs add-id", summary, m.Update)
}

// logsCopyMissedCommandAction rewrites the named source files to local disk.
func logsCopyMissedCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "logs"

	bucket, err := logsBucket(cmd)
	if err != nil {
		return err
	}

	var keys []string
	for _, a := range cmd.Args().Tail() {
		if a != updateArg {
			keys = append(keys, a)
		}
	}
	if path := cmd.String("keys-file"); path != "" {
		fileKeys, err := readKeys(path)
		if err != nil {
			return err
		}
		keys = append(keys, fileKeys...)
	}
	if len(keys) == 0 {
		return fmt.Errorf("no keys given")
	}

	m, err := newMigrator(ctx, cmd, bucket)
	if err != nil {
		return err
	}

	summary, err := m.CopyMissed(ctx, keys, cmd.String("dir"))
	if err != nil && !errors.Is(err, util.ErrPartialFailure) {
		return fmt.Errorf("logs copy-missed: %w", err)
	}
	return finish("logs copy-missed", summary, m.Update)
}

// readKeys reads one key per line, ignoring blank lines and # comments.
func readKeys(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keys file: %w", err)
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keys file: %w", err)
	}
	return keys, nil
}

// logsCommandBuilder constructs the "logs" command group.
func logsCommandBuilder(meta meta.Meta) *cli.Command {
	compare := (&QueryCommandBuilder{
		Name:      "compare",
		Usage:     "compare migrated log files with the originals",
		UsageText: "cloudops logs compare production|staging [options]",
		Namespace: "logs",
		Action:    logsCompareCommandAction,
		Meta:      meta,
		AWS:       true,
	}).Build()

	addID := (&QueryCommandBuilder{
		Name:      "add-id",
		Usage:     "rewrite log files with an id column",
		UsageText: "cloudops logs add-id production|staging [update] [options]",
		Namespace: "logs",
		Action:    logsAddIDCommandAction,
		Meta:      meta,
		AWS:       true,
		Mutates:   true,
	}).Build()

	copyMissed := (&QueryCommandBuilder{
		Name:      "copy-missed",
		Usage:     "rewrite named log files to local disk",
		UsageText: "cloudops logs copy-missed production|staging [key...] [update] [options]",
		Namespace: "logs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "keys-file",
				Usage: "file with one key per line",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "directory the rewritten files are written under",
				Value: ".",
			},
		},
		Action:  logsCopyMissedCommandAction,
		Meta:    meta,
		AWS:     true,
		Mutates: true,
	}).Build()

	return groupCommand("logs", "Parquet log archive migration", meta,
		compare, addID, copyMissed)
}
