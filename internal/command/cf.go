// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/cacheutil"
	"github.com/concord-consortium/cloudops/internal/config"
	"github.com/concord-consortium/cloudops/internal/distributions"
	"github.com/concord-consortium/cloudops/internal/meta"
)

const (
	modeCorsPolicy   = "cors-policy"
	modeOriginHeader = "origin-header"

	// cachePolicyMaxAge bounds how long a cache policy name is trusted.
	cachePolicyMaxAge = 24 * time.Hour
)

// listBehaviors lists and enriches every behavior. The returned bucket
// types only hold buckets whose tags could be read.
func listBehaviors(ctx context.Context, cfg awsv2.Config) ([]distributions.BehaviorRecord, distributions.BucketTypes, error) {
	cf := newCloudFront(cfg)

	records, err := distributions.ListBehaviors(ctx, cf)
	if err != nil {
		return nil, nil, err
	}

	known := distributions.EnrichBucketTypes(ctx, newS3(cfg), records)

	var store *cacheutil.Store
	if cacheutil.Enabled() {
		store = cacheutil.New(cachePolicyMaxAge, "cloudfront", "cache-policies")
	}
	distributions.EnrichCachePolicyNames(ctx, cf, store, records)

	return records, known, nil
}

// cfListCommandAction exports one row per distribution behavior.
func cfListCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "cf"

	fetch := func(ctx context.Context, cmd *cli.Command) ([]distributions.BehaviorRecord, error) {
		cfg, err := LoadAWS(ctx, cmd)
		if err != nil {
			return nil, err
		}
		records, _, err := listBehaviors(ctx, cfg)
		return records, err
	}

	return NewQueryActionRunner(
		"cf list",
		reflect.TypeOf(distributions.BehaviorRecord{}),
		[]string{distributions.DefaultColumns},
		fetch,
	).Run(ctx, cmd)
}

// cfUpdateCommandAction applies the selected modification to candidate
// distributions, or to --id distributions when given.
func cfUpdateCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "cf"

	mode := cmd.String("mode")
	ids := cmd.StringSlice("id")
	force := cmd.Bool("force")
	if force && len(ids) == 0 {
		return fmt.Errorf("--force requires --id")
	}

	publicTypes, errTypes := config.GetStringSlice("public_bucket_types", distributions.PublicBucketTypes)
	corsIDs, errIDs := config.GetStringSlice("cors_policy_ids", distributions.CorsPolicyIDs)
	policyID, errPolicy := config.GetString("cors_policy_id", distributions.S3CorsPolicyID)
	headerValue, errHeader := config.GetString("origin_header.value", distributions.DefaultOriginHeaderValue)
	if err := errors.Join(errTypes, errIDs, errPolicy, errHeader); err != nil {
		return fmt.Errorf("invalid cf config: %w", err)
	}

	cfg, err := LoadAWS(ctx, cmd)
	if err != nil {
		return err
	}

	records, known, err := listBehaviors(ctx, cfg)
	if err != nil {
		return err
	}
	isPublic := distributions.PublicCheckFor(known, publicTypes)

	var modifier distributions.Modifier
	switch mode {
	case modeCorsPolicy:
		modifier = distributions.CorsPolicy{PolicyID: policyID, Known: corsIDs, IsPublic: isPublic, Force: force}
		if len(ids) == 0 {
			ids = distributions.CorsCandidates(records, publicTypes, corsIDs)
		}
	case modeOriginHeader:
		modifier = distributions.OriginHeader{Value: headerValue, IsPublic: isPublic, Force: force}
		if len(ids) == 0 {
			ids = distributions.OriginHeaderCandidates(records, publicTypes)
		}
	}
	log.Infof("%s: %d distributions to check", mode, len(ids))

	apply := cmd.Bool("apply")
	updater := &distributions.Updater{
		API:      newCloudFront(cfg),
		Limiter:  distributions.NewLimiter(cmd.Duration("delay")),
		Apply:    apply,
		Retries:  distributions.DefaultRetries,
		Coloring: cmd.Bool("color"),
	}
	if cmd.Bool("diff") {
		updater.Diff = stdout
	}

	return finish("cf update", updater.Run(ctx, ids, modifier), apply)
}

// cfCommandBuilder constructs the "cf" command group.
func cfCommandBuilder(meta meta.Meta) *cli.Command {
	list := (&QueryCommandBuilder{
		Name:       "list",
		Usage:      "CloudFront behavior inventory",
		UsageText:  "cloudops cf list [options]",
		Namespace:  "cf",
		Action:     cfListCommandAction,
		Meta:       meta,
		Report:     true,
		ReportFile: distributions.DefaultFile,
		AWS:        true,
	}).Build()

	update := (&QueryCommandBuilder{
		Name:      "update",
		Usage:     "bulk modify CloudFront behaviors and origins",
		UsageText: "cloudops cf update --mode cors-policy|origin-header [options]",
		Namespace: "cf",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "mode",
				Aliases:  []string{"m"},
				Usage:    "modification to make: cors-policy or origin-header",
				Required: true,
				Validator: func(value string) error {
					return FlagValidators(value, OneOfValidator(modeCorsPolicy, modeOriginHeader))
				},
			},
			&cli.StringSliceFlag{
				Name:  "id",
				Usage: "distribution ids to update instead of the derived candidates",
			},
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "modify every behavior or origin of the --id distributions",
				HideDefault: true,
			},
			&cli.BoolFlag{
				Name:    "color",
				Aliases: []string{"c"},
				Usage:   "color the --diff output",
			},
			newDiffFlag(),
			NewDelayFlag(meta.Config.Source),
		},
		Action:  cfUpdateCommandAction,
		Meta:    meta,
		AWS:     true,
		Mutates: true,
	}).Build()

	return groupCommand("cf", "CloudFront distribution inventory and bulk updates", meta,
		list, update)
}
