// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/buckets"
	"github.com/concord-consortium/cloudops/internal/config"
	"github.com/concord-consortium/cloudops/internal/meta"
)

// bucketListCommandAction lists every bucket with its CORS, policy, website,
// location, tags and public access block.
func bucketListCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "bucket"

	fetch := func(ctx context.Context, cmd *cli.Command) ([]buckets.Record, error) {
		cfg, err := LoadAWS(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return buckets.List(ctx, newS3(cfg))
	}

	return NewQueryActionRunner(
		"bucket list",
		reflect.TypeOf(buckets.Record{}),
		[]string{buckets.DefaultColumns},
		fetch,
	).Run(ctx, cmd)
}

// bucketUpdateTagsCommandAction merges the tags of a TSV sheet into each
// named bucket.
func bucketUpdateTagsCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "bucket"

	path := cmd.String("file")
	if cmd.Args().Present() {
		path = cmd.Args().First()
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tag sheet: %w", err)
	}
	defer f.Close()

	rows, err := buckets.ReadTagSheet(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("%s: %d buckets", path, len(rows))

	cfg, err := LoadAWS(ctx, cmd)
	if err != nil {
		return err
	}

	apply := cmd.Bool("apply")
	summary := buckets.UpdateTags(ctx, newS3(cfg), rows, apply)
	return finish("update-tags", summary, apply)
}

// bucketUpdateCorsCommandAction puts CORS rules on every public bucket.
func bucketUpdateCorsCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "bucket"

	var rules []types.CORSRule
	if path := cmd.String("rules"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open cors rules: %w", err)
		}
		defer f.Close()

		if rules, err = buckets.ReadCORSRules(f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	publicType, err := config.GetString("public_type", buckets.PublicType)
	if err != nil {
		return fmt.Errorf("invalid bucket config: %w", err)
	}

	cfg, err := LoadAWS(ctx, cmd)
	if err != nil {
		return err
	}

	apply := cmd.Bool("apply")
	summary, err := buckets.UpdateCors(ctx, newS3(cfg), buckets.CORSUpdate{
		Rules:      rules,
		PublicType: publicType,
		Only:       cmd.StringSlice("bucket"),
		Apply:      apply,
	})
	if err != nil {
		return err
	}
	return finish("update-cors", summary, apply)
}

// bucketCommandBuilder constructs the "bucket" command group.
func bucketCommandBuilder(meta meta.Meta) *cli.Command {
	list := (&QueryCommandBuilder{
		Name:       "list",
		Usage:      "bucket inventory",
		UsageText:  "cloudops bucket list [options]",
		Namespace:  "bucket",
		Action:     bucketListCommandAction,
		Meta:       meta,
		Report:     true,
		ReportFile: buckets.DefaultFile,
		AWS:        true,
	}).Build()

	updateTags := (&QueryCommandBuilder{
		Name:      "update-tags",
		Usage:     "merge tags from a TSV sheet into buckets",
		UsageText: "cloudops bucket update-tags [sheet.tsv] [options]",
		Namespace: "bucket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "tab separated sheet of Name and tag columns",
				Value: buckets.DefaultTagSheet,
			},
		},
		Action:  bucketUpdateTagsCommandAction,
		Meta:    meta,
		AWS:     true,
		Mutates: true,
	}).Build()

	updateCors := (&QueryCommandBuilder{
		Name:      "update-cors",
		Usage:     "put CORS rules on public buckets",
		UsageText: "cloudops bucket update-cors [options]",
		Namespace: "bucket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rules",
				Usage: "YAML file with CORSRules. Defaults to the public read rules",
			},
			&cli.StringSliceFlag{
				Name:    "bucket",
				Aliases: []string{"b"},
				Usage:   "only update these buckets",
			},
		},
		Action:  bucketUpdateCorsCommandAction,
		Meta:    meta,
		AWS:     true,
		Mutates: true,
	}).Build()

	return groupCommand("bucket", "S3 bucket inventory and bulk updates", meta,
		list, updateTags, updateCors)
}
