// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/meta"
)

// QueryCommandBuilder constructs a leaf cli.Command using a consistent
// pattern. Report commands get the output flags and --schema, AWS commands
// get --profile and --region sourced from the config namespace, and
// mutating commands get --apply. The builder wires metadata and validators.
type QueryCommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	// Namespace is the config key prefix for flag values, e.g. "bucket".
	Namespace string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta

	// Report adds the output flags; ReportFile is the --file default.
	Report     bool
	ReportFile string
	AWS        bool
	Mutates    bool
}

// Build returns a configured cli.Command from the builder.
func (qcb *QueryCommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{}, qcb.Flags...)

	if qcb.Report {
		flags = append(flags, newSchemaFlag())
		flags = append(flags, NewGlobalFlags(qcb.ReportFile)...)
	}
	if qcb.AWS {
		flags = append(flags, NewAWSFlags(qcb.Namespace, qcb.Meta.Config.Source)...)
	}
	if qcb.Mutates {
		flags = append(flags, newApplyFlag())
	}

	return &cli.Command{
		Name:      qcb.Name,
		Usage:     qcb.Usage,
		UsageText: qcb.UsageText,
		Metadata: map[string]any{
			"meta": qcb.Meta,
		},
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: qcb.Action,
	}
}

// groupCommand bundles leaf commands under a noun such as "bucket".
func groupCommand(name, usage string, m meta.Meta, subs ...*cli.Command) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: subs,
	}
}
