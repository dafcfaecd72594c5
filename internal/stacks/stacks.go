// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package stacks

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	cfnv2 "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// API is the subset of the CloudFormation client used by this package.
type API interface {
	ListStacks(ctx context.Context, params *cfnv2.ListStacksInput, optFns ...func(*cfnv2.Options)) (*cfnv2.ListStacksOutput, error)
	DescribeStacks(ctx context.Context, params *cfnv2.DescribeStacksInput, optFns ...func(*cfnv2.Options)) (*cfnv2.DescribeStacksOutput, error)
	CreateStack(ctx context.Context, params *cfnv2.CreateStackInput, optFns ...func(*cfnv2.Options)) (*cfnv2.CreateStackOutput, error)
}

// ActiveStatuses are the stack states offered for copying.
var ActiveStatuses = []types.StackStatus{
	types.StackStatusCreateComplete,
	types.StackStatusUpdateComplete,
}

// Parameter is a stack parameter as stored in parameter set files.
type Parameter struct {
	ParameterKey   string `yaml:"ParameterKey" json:"ParameterKey"`
	ParameterValue string `yaml:"ParameterValue" json:"ParameterValue"`
}

// ActiveStackNames returns the names of all stacks in an active state,
// sorted.
func ActiveStackNames(ctx context.Context, api API) ([]string, error) {
	var names []string

	paginator := cfnv2.NewListStacksPaginator(api, &cfnv2.ListStacksInput{
		StackStatusFilter: ActiveStatuses,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list stacks: %w", err)
		}
		for _, s := range page.StackSummaries {
			names = append(names, awsv2.ToString(s.StackName))
		}
	}

	sort.Strings(names)
	log.Debugf("active stacks: %d", len(names))
	return names, nil
}

// StackParameters returns the parameters of the named stack.
func StackParameters(ctx context.Context, api API, stackName string) ([]Parameter, error) {
	out, err := api.DescribeStacks(ctx, &cfnv2.DescribeStacksInput{StackName: awsv2.String(stackName)})
	if err != nil {
		return nil, fmt.Errorf("failed to describe stack %s: %w", stackName, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("stack %s not found", stackName)
	}

	sdk := out.Stacks[0].Parameters
	params := make([]Parameter, 0, len(sdk))
	for _, p := range sdk {
		params = append(params, Parameter{
			ParameterKey:   awsv2.ToString(p.ParameterKey),
			ParameterValue: awsv2.ToString(p.ParameterValue),
		})
	}
	return params, nil
}

// PrintParams writes a labelled "Key: Value" listing.
func PrintParams(w io.Writer, label string, params []Parameter) {
	fmt.Fprintf(w, "=== %s Parameters ===\n", label)
	for _, p := range params {
		fmt.Fprintf(w, "%s: %s\n", p.ParameterKey, p.ParameterValue)
	}
}

func toSDK(params []Parameter) []types.Parameter {
	out := make([]types.Parameter, 0, len(params))
	for _, p := range params {
		out = append(out, types.Parameter{
			ParameterKey:   awsv2.String(p.ParameterKey),
			ParameterValue: awsv2.String(p.ParameterValue),
		})
	}
	return out
}
