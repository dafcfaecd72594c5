// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package stacks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	cfnv2 "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"gopkg.in/yaml.v3"
)

// DefaultCreateConfig is read by stack create when --file is not given.
const DefaultCreateConfig = "create-config.yml"

// CreateConfig describes a new stack copied from an existing one.
type CreateConfig struct {
	OriginalStack          string            `yaml:"OriginalStack"`
	Name                   string            `yaml:"Name"`
	Template               string            `yaml:"Template"`
	ParameterModifications map[string]string `yaml:"ParameterModifications"`

	// dir is where the config was read from. Template is relative to it.
	dir string
}

// ReadCreateConfig loads a create config. The path must name a .yml file.
func ReadCreateConfig(path string) (CreateConfig, error) {
	var cfg CreateConfig

	if !strings.HasSuffix(path, ".yml") {
		return cfg, fmt.Errorf("%s: must be a yml file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	switch {
	case cfg.OriginalStack == "":
		return cfg, fmt.Errorf("%s: OriginalStack is required", path)
	case cfg.Name == "":
		return cfg, fmt.Errorf("%s: Name is required", path)
	case cfg.Template == "":
		return cfg, fmt.Errorf("%s: Template is required", path)
	}

	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// TemplatePath resolves Template against the config file's directory.
func (c CreateConfig) TemplatePath() string {
	if filepath.IsAbs(c.Template) {
		return c.Template
	}
	return filepath.Join(c.dir, c.Template)
}

// Plan is a stack creation ready to be submitted.
type Plan struct {
	Config       CreateConfig
	Original     []Parameter
	Parameters   []Parameter
	TemplateBody string
}

// Prepare copies the original stack's parameters, applies the modifications
// and reconciles them with the template, reporting each step on w.
func Prepare(ctx context.Context, api API, cfg CreateConfig, w io.Writer) (*Plan, error) {
	original, err := StackParameters(ctx, api, cfg.OriginalStack)
	if err != nil {
		return nil, err
	}
	PrintParams(w, "Original", original)

	modified := ModifyParams(original, cfg.ParameterModifications)

	body, err := os.ReadFile(cfg.TemplatePath())
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	keys, err := TemplateParameterKeys(body)
	if err != nil {
		return nil, err
	}

	params, err := FilterBasedOnTemplate(w, keys, modified)
	if err != nil {
		return nil, err
	}
	PrintParams(w, "New", params)

	return &Plan{
		Config:       cfg,
		Original:     original,
		Parameters:   params,
		TemplateBody: string(body),
	}, nil
}

// Create submits the plan.
func Create(ctx context.Context, api API, plan *Plan) (*cfnv2.CreateStackOutput, error) {
	log.WithField("stack", plan.Config.Name).Info("creating stack")

	out, err := api.CreateStack(ctx, &cfnv2.CreateStackInput{
		StackName:    awsv2.String(plan.Config.Name),
		Capabilities: []types.Capability{types.CapabilityCapabilityNamedIam},
		TemplateBody: awsv2.String(plan.TemplateBody),
		Parameters:   toSDK(plan.Parameters),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stack %s: %w", plan.Config.Name, err)
	}
	return out, nil
}
