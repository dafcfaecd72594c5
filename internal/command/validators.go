// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/output"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// GlobalFlagsValidator checks flag combinations that single flag validators
// cannot see.
func GlobalFlagsValidator(_ context.Context, c *cli.Command) error {
	if c.Bool("titles") && c.IsSet("output") && c.String("output") != "text" {
		return fmt.Errorf("--titles only applies to text output")
	}
	return nil
}

func OutputValidator(value any) error {
	if s, ok := value.(string); ok && slices.Contains(output.Formats, s) {
		return nil
	}
	return fmt.Errorf("must be one of %v", output.Formats)
}

func NonNegativeValidator(value any) error {
	if n, ok := value.(int); ok && n >= 0 {
		return nil
	}
	return fmt.Errorf("must be zero or more")
}

// OneOfValidator accepts only the listed values.
func OneOfValidator(valid ...string) FlagValidatorType {
	return func(value any) error {
		if s, ok := value.(string); ok && slices.Contains(valid, s) {
			return nil
		}
		return fmt.Errorf("must be one of %v", valid)
	}
}
