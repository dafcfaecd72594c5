// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

// newSchemaFlag, newApplyFlag and newDiffFlag return fresh flags for each
// command since flags carry parse state.
func newSchemaFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "schema",
		Usage:       "dump the record attributes and exit",
		HideDefault: true,
	}
}

func newApplyFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "apply",
		Usage:       "make the changes. Without it the command is a dry run",
		HideDefault: true,
	}
}

func newDiffFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "diff",
		Usage:       "print a delta of each changed configuration",
		HideDefault: true,
	}
}

// NewGlobalFlags returns the output flags shared by every report command.
// defaultFile is where output goes when --file is not given; "" means stdout.
func NewGlobalFlags(defaultFile string) (flags []cli.Flag) {
	defaultOutput := "csv"
	if defaultFile == "" {
		defaultOutput = "text"
	}

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "attrs",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of attributes to include in results",
		},
		&cli.BoolFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Value:   false,
		},
		&cli.StringFlag{
			Name:  "file",
			Usage: "file to write results to, - for stdout",
			Value: defaultFile,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.BoolFlag{
			Name:    "local",
			Aliases: []string{"l"},
			Usage:   "show local timestamps",
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Value:   defaultOutput,
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.IntFlag{
			Name:  "padding",
			Usage: "spaces between text columns",
			Value: 2, //nolint:mnd
			Validator: func(value int) error {
				return FlagValidators(value, NonNegativeValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
		},
		&cli.BoolFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Value:   false,
		},
	}

	return
}

// NewAWSFlags returns the profile and region flags, namespaced to a command
// group and the config file when cfgFile is set.
func NewAWSFlags(ns, cfgFile string) []cli.Flag {
	return []cli.Flag{
		NewProfileFlag(ns, cfgFile),
		NewRegionFlag(ns, cfgFile),
	}
}

// NewProfileFlag constructs the "profile" flag. Without it the SDK default
// chain (AWS_PROFILE, shared config) decides.
func NewProfileFlag(ns, cfgFile string) (flag *cli.StringFlag) {
	flag = &cli.StringFlag{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "AWS shared config profile",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("CLOUDOPS_PROFILE"),
		),
	}

	if cfgFile != "" {
		flag = NameSpacedValueChainFlagFromConfigFile(ns, cfgFile, flag)
	}

	return
}

// NewRegionFlag constructs the "region" flag.
func NewRegionFlag(ns, cfgFile string) (flag *cli.StringFlag) {
	flag = &cli.StringFlag{
		Name:    "region",
		Aliases: []string{"r"},
		Usage:   "AWS region. Defaults to the SDK chain, then us-east-1",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("CLOUDOPS_REGION"),
		),
	}

	if cfgFile != "" {
		flag = NameSpacedValueChainFlagFromConfigFile(ns, cfgFile, flag)
	}

	return
}

// NewDelayFlag constructs the pause between CloudFront updates.
func NewDelayFlag(cfgFile string) *cli.DurationFlag {
	flag := &cli.DurationFlag{
		Name:  "delay",
		Usage: "minimum time between distribution updates",
		Value: 3 * time.Second, //nolint:mnd
	}
	if cfgFile != "" {
		flag.Sources = cli.NewValueSourceChain(
			yaml.YAML("cf.delay", altsrc.StringSourcer(cfgFile)),
		)
	}
	return flag
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}
