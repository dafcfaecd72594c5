// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/attrs"
	awsx "github.com/concord-consortium/cloudops/internal/aws"
	"github.com/concord-consortium/cloudops/internal/buckets"
	"github.com/concord-consortium/cloudops/internal/distributions"
	"github.com/concord-consortium/cloudops/internal/meta"
	"github.com/concord-consortium/cloudops/internal/output"
	"github.com/concord-consortium/cloudops/internal/parquetlog"
	"github.com/concord-consortium/cloudops/internal/stacks"
	"github.com/concord-consortium/cloudops/internal/util"
)

// mutationAttempts is the retry budget for runs that write.
const mutationAttempts = 10

// transfer bundles the S3 operations of the log migration.
type transfer struct {
	list       parquetlog.ListAPI
	downloader parquetlog.Downloader
	uploader   parquetlog.Uploader
}

// Client factories. Tests replace them with fakes.
var (
	loadAWSConfig = awsx.LoadAWSConfig

	newS3 = func(cfg awsv2.Config) buckets.API {
		return awsx.NewS3(cfg)
	}
	newCloudFront = func(cfg awsv2.Config) distributions.API {
		return awsx.NewCloudFront(cfg)
	}
	newCloudFormation = func(cfg awsv2.Config) stacks.API {
		return awsx.NewCloudFormation(cfg)
	}
	newSTS = func(cfg awsv2.Config) awsx.STSAPI {
		return awsx.NewSTS(cfg)
	}
	newTransfer = func(cfg awsv2.Config) transfer {
		client := awsx.NewS3(cfg)
		return transfer{
			list:       client,
			downloader: manager.NewDownloader(client),
			uploader:   manager.NewUploader(client),
		}
	}

	// stdout receives command reports that are not --output data.
	stdout io.Writer = os.Stdout
)

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList) {
	//nolint:errcheck
	{
		for _, d := range defaults {
			al.Set(d)
		}
		if extras := cmd.String("attrs"); extras != "" {
			al.Set(extras)
		}
		al.SetGlobalTransformSpec()
	}
	return
}

// DumpSchemaIfRequested writes the attributes of the provided type to stdout
// when --schema is set, and returns true if it handled the request.
func DumpSchemaIfRequested(cmd *cli.Command, t reflect.Type) bool {
	if cmd.Bool("schema") {
		output.DumpSchema(t, stdout)
		return true
	}
	return false
}

// OutputOptions collects the presentation flags.
func OutputOptions(cmd *cli.Command) output.Options {
	return output.Options{
		Format:  cmd.String("output"),
		Filter:  cmd.String("filter"),
		Sort:    cmd.String("sort"),
		Titles:  cmd.Bool("titles"),
		Color:   cmd.Bool("color"),
		Local:   cmd.Bool("local"),
		Padding: cmd.Int("padding"),
	}
}

// Emit writes results to --file (stdout for - or empty) in the --output
// format.
func Emit(results any, al attrs.AttrList, cmd *cli.Command) error {
	file := cmd.String("file")

	w, closeFn, err := output.CreateFile(file)
	if err != nil {
		return err
	}
	if file == "" || file == "-" {
		w = stdout
	}

	if err := output.SliceDiceSpit(results, al, OutputOptions(cmd), w); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return fmt.Errorf("failed to close %s: %w", file, err)
	}

	if file != "" && file != "-" {
		log.Infof("wrote %s", file)
	}
	return nil
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// LoadAWS resolves the AWS config from --profile and --region. Commands
// running with --apply get a larger retry budget so throttling is absorbed
// by the SDK.
func LoadAWS(ctx context.Context, cmd *cli.Command) (awsv2.Config, error) {
	var opts []awsx.Option
	if p := cmd.String("profile"); p != "" {
		opts = append(opts, awsx.WithProfile(p))
	}
	if r := cmd.String("region"); r != "" {
		opts = append(opts, awsx.WithRegion(r))
	}
	if willWrite(cmd) {
		opts = append(opts, awsx.WithMaxAttempts(mutationAttempts))
	}

	cfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Debugf("AWS region: %s", cfg.Region)
	if cfg.Credentials != nil {
		if creds, err := cfg.Credentials.Retrieve(ctx); err == nil {
			log.Infof("AWS access key: %s", creds.AccessKeyID)
		}
	}
	return cfg, nil
}

// willWrite reports whether the run makes changes: --apply, or for the logs
// commands a trailing "update" argument.
func willWrite(cmd *cli.Command) bool {
	if cmd.Bool("apply") {
		return true
	}
	if !slices.ContainsFunc(cmd.Lineage(), func(c *cli.Command) bool { return c.Name == "logs" }) {
		return false
	}
	return slices.Contains(cmd.Args().Tail(), updateArg)
}

// finish logs a bulk mutation summary and turns failures into an error.
func finish(name string, s util.Summary, apply bool) error {
	if !apply {
		log.Warnf("%s: dry run, rerun with --apply to make changes", name)
	}
	log.Infof("%s: %s", name, s)
	return s.Err()
}
