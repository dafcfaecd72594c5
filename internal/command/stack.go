// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/config"
	"github.com/concord-consortium/cloudops/internal/meta"
	"github.com/concord-consortium/cloudops/internal/picker"
	"github.com/concord-consortium/cloudops/internal/stacks"
)

// Picker hooks. Tests replace them.
var (
	interactive = picker.Interactive
	selectItem  = picker.Select
)

// choose returns value when set, otherwise asks the user to pick one of
// items.
func choose(value, flag, title string, items func() ([]string, error)) (string, error) {
	if value != "" {
		return value, nil
	}
	if !interactive() {
		return "", fmt.Errorf("--%s is required when not running in a terminal", flag)
	}

	list, err := items()
	if err != nil {
		return "", err
	}
	return selectItem(title, list)
}

// stackSaveCommandAction saves the parameters of an active stack to the
// param-set directory.
func stackSaveCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "stack"

	cfg, err := LoadAWS(ctx, cmd)
	if err != nil {
		return err
	}
	api := newCloudFormation(cfg)

	stack, err := choose(cmd.String("stack"), "stack", "Stack to copy", func() ([]string, error) {
		return stacks.ActiveStackNames(ctx, api)
	})
	if err != nil {
		return err
	}

	params, err := stacks.StackParameters(ctx, api, stack)
	if err != nil {
		return err
	}

	file := cmd.String("file")
	if file == "" {
		file = stacks.DefaultParamFile(stack)
	}

	path, err := stacks.WriteParams(cmd.String("dir"), file, params)
	if err != nil {
		return err
	}
	log.WithField("stack", stack).Infof("saved %d parameters to %s", len(params), path)
	return nil
}

// stackInspectCommandAction prints a saved parameter set.
func stackInspectCommandAction(_ context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "stack"
	dir := cmd.String("dir")

	file, err := choose(cmd.String("file"), "file", "Parameter set", func() ([]string, error) {
		return stacks.ListParamFiles(dir)
	})
	if err != nil {
		return err
	}

	params, err := stacks.ReadParams(dir, file)
	if err != nil {
		return err
	}
	stacks.PrintParams(stdout, file, params)
	return nil
}

// stackCreateCommandAction creates a stack from a create config: the
// original stack's parameters, modified and reconciled with a template.
func stackCreateCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "stack"

	path := cmd.String("file")
	if cmd.Args().Present() {
		path = cmd.Args().First()
	}

	createCfg, err := stacks.ReadCreateConfig(path)
	if err != nil {
		return err
	}

	cfg, err := LoadAWS(ctx, cmd)
	if err != nil {
		return err
	}
	api := newCloudFormation(cfg)

	plan, err := stacks.Prepare(ctx, api, createCfg, stdout)
	if err != nil {
		return err
	}

	if !cmd.Bool("apply") {
		log.Warnf("stack create: dry run, rerun with --apply to create %s", createCfg.Name)
		return nil
	}

	out, err := stacks.Create(ctx, api, plan)
	if err != nil {
		return err
	}

	result, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Fprintln(stdout, "=== Result ===")
	fmt.Fprintln(stdout, string(result))
	return nil
}

func newDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "dir",
		Usage: "parameter set directory",
		Value: stacks.DefaultParamSetDir,
	}
}

// stackCommandBuilder constructs the "stack" command group.
func stackCommandBuilder(meta meta.Meta) *cli.Command {
	save := (&QueryCommandBuilder{
		Name:      "save",
		Usage:     "save the parameters of an existing stack",
		UsageText: "cloudops stack save [--stack name] [--file name.yml] [options]",
		Namespace: "stack",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "stack",
				Usage: "stack to save. Picked interactively when omitted",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "file name in the parameter set directory. Defaults to <stack>-params.yml",
			},
			newDirFlag(),
		},
		Action: stackSaveCommandAction,
		Meta:   meta,
		AWS:    true,
	}).Build()

	inspect := (&QueryCommandBuilder{
		Name:      "inspect",
		Usage:     "print a saved parameter set",
		UsageText: "cloudops stack inspect [--file name.yml] [options]",
		Namespace: "stack",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "file in the parameter set directory. Picked interactively when omitted",
			},
			newDirFlag(),
		},
		Action: stackInspectCommandAction,
		Meta:   meta,
	}).Build()

	create := (&QueryCommandBuilder{
		Name:      "create",
		Usage:     "create a stack from an existing stack's parameters",
		UsageText: "cloudops stack create [create-config.yml] [options]",
		Namespace: "stack",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "create config naming OriginalStack, Name, Template and ParameterModifications",
				Value: stacks.DefaultCreateConfig,
			},
		},
		Action:  stackCreateCommandAction,
		Meta:    meta,
		AWS:     true,
		Mutates: true,
	}).Build()

	return groupCommand("stack", "CloudFormation parameter sets and stack creation", meta,
		save, inspect, create)
}
