// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/envconv"
	"github.com/concord-consortium/cloudops/internal/meta"
)

// envConvertCommandAction prints an environment definition as the
// Name/Value list of a CloudFormation task definition.
func envConvertCommandAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	if cmd.Args().Present() {
		path = cmd.Args().First()
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open environment: %w", err)
	}
	defer f.Close()

	return envconv.Convert(f, stdout)
}

// envCommandBuilder constructs the "env" command group.
func envCommandBuilder(meta meta.Meta) *cli.Command {
	convert := (&QueryCommandBuilder{
		Name:      "convert",
		Usage:     "convert a docker-compose environment to task definition form",
		UsageText: "cloudops env convert [environment.yml]",
		Namespace: "env",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "environment definition to read",
				Value: envconv.DefaultFile,
			},
		},
		Action: envConvertCommandAction,
		Meta:   meta,
	}).Build()

	return groupCommand("env", "environment definition helpers", meta, convert)
}
