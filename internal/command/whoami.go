// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"reflect"

	"github.com/urfave/cli/v3"

	awsx "github.com/concord-consortium/cloudops/internal/aws"
	"github.com/concord-consortium/cloudops/internal/config"
	"github.com/concord-consortium/cloudops/internal/meta"
)

var whoamiDefaultAttrs = []string{"Account,Arn,UserId,AccessKeyId,Region"}

// whoamiCommandAction prints the identity behind the resolved credentials.
func whoamiCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "whoami"

	fetch := func(ctx context.Context, cmd *cli.Command) ([]awsx.Identity, error) {
		cfg, err := LoadAWS(ctx, cmd)
		if err != nil {
			return nil, err
		}
		id, err := awsx.WhoAmI(ctx, cfg, newSTS(cfg))
		if err != nil {
			return nil, err
		}
		return []awsx.Identity{id}, nil
	}

	return NewQueryActionRunner(
		"whoami",
		reflect.TypeOf(awsx.Identity{}),
		whoamiDefaultAttrs,
		fetch,
	).Run(ctx, cmd)
}

func whoamiCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "whoami",
		Usage:     "show the AWS identity in use",
		UsageText: "cloudops whoami [options]",
		Namespace: "whoami",
		Action:    whoamiCommandAction,
		Meta:      meta,
		Report:    true,
		AWS:       true,
	}).Build()
}
