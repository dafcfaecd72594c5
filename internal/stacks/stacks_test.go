// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package stacks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	cfnv2 "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCFN struct {
	summaries [][]types.StackSummary
	params    map[string][]types.Parameter
	listCalls int
	filters   []types.StackStatus
	created   *cfnv2.CreateStackInput
}

func (f *fakeCFN) ListStacks(_ context.Context, in *cfnv2.ListStacksInput, _ ...func(*cfnv2.Options)) (*cfnv2.ListStacksOutput, error) {
	f.filters = in.StackStatusFilter
	page := f.summaries[f.listCalls]
	f.listCalls++
	out := &cfnv2.ListStacksOutput{StackSummaries: page}
	if f.listCalls < len(f.summaries) {
		out.NextToken = awsv2.String("next")
	}
	return out, nil
}

func (f *fakeCFN) DescribeStacks(_ context.Context, in *cfnv2.DescribeStacksInput, _ ...func(*cfnv2.Options)) (*cfnv2.DescribeStacksOutput, error) {
	p, ok := f.params[*in.StackName]
	if !ok {
		return &cfnv2.DescribeStacksOutput{}, nil
	}
	return &cfnv2.DescribeStacksOutput{Stacks: []types.Stack{{StackName: in.StackName, Parameters: p}}}, nil
}

func (f *fakeCFN) CreateStack(_ context.Context, in *cfnv2.CreateStackInput, _ ...func(*cfnv2.Options)) (*cfnv2.CreateStackOutput, error) {
	f.created = in
	return &cfnv2.CreateStackOutput{StackId: awsv2.String("arn:aws:cloudformation:us-east-1:1:stack/" + *in.StackName + "/1")}, nil
}

func sdkParam(k, v string) types.Parameter {
	return types.Parameter{ParameterKey: awsv2.String(k), ParameterValue: awsv2.String(v)}
}

func newFakeCFN() *fakeCFN {
	return &fakeCFN{
		summaries: [][]types.StackSummary{
			{{StackName: awsv2.String("portal-staging")}, {StackName: awsv2.String("lara-staging")}},
			{{StackName: awsv2.String("lara-production")}},
		},
		params: map[string][]types.Parameter{
			"lara-staging": {
				sdkParam("DomainName", "lara-staging.concord.org"),
				sdkParam("DatabaseHost", "db.staging"),
				sdkParam("LegacyFlag", "true"),
			},
		},
	}
}

func TestActiveStackNames(t *testing.T) {
	f := newFakeCFN()
	names, err := ActiveStackNames(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"lara-production", "lara-staging", "portal-staging"}, names)
	assert.Equal(t, 2, f.listCalls)
	assert.Equal(t, ActiveStatuses, f.filters)
}

func TestStackParameters(t *testing.T) {
	params, err := StackParameters(context.Background(), newFakeCFN(), "lara-staging")
	require.NoError(t, err)
	assert.Equal(t, Parameter{ParameterKey: "DomainName", ParameterValue: "lara-staging.concord.org"}, params[0])

	_, err = StackParameters(context.Background(), newFakeCFN(), "nope")
	assert.Error(t, err)
}

func TestModifyParams(t *testing.T) {
	original := []Parameter{
		{ParameterKey: "A", ParameterValue: "1"},
		{ParameterKey: "B", ParameterValue: "2"},
	}

	tests := []struct {
		name string
		mods map[string]string
		want []Parameter
	}{
		{
			name: "no modifications",
			want: original,
		},
		{
			name: "modify in place",
			mods: map[string]string{"B": "20"},
			want: []Parameter{{"A", "1"}, {"B", "20"}},
		},
		{
			name: "empty string is a modification",
			mods: map[string]string{"A": ""},
			want: []Parameter{{"A", ""}, {"B", "2"}},
		},
		{
			name: "remaining appended sorted",
			mods: map[string]string{"Z": "26", "C": "3", "A": "10"},
			want: []Parameter{{"A", "10"}, {"B", "2"}, {"C", "3"}, {"Z", "26"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModifyParams(original, tt.mods))
			assert.Equal(t, "1", original[0].ParameterValue, "original is untouched")
		})
	}
}

func TestTemplateParameterKeys(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		want    []string
		wantErr bool
	}{
		{name: "yaml with short tags", file: "testdata/templates/lara.yml", want: []string{"DomainName", "DatabaseHost", "NewRelicAppName"}},
		{name: "json", file: "testdata/templates/lara.json", want: []string{"DomainName", "DatabaseHost"}},
		{name: "no parameters", body: "Resources: {}\n", want: nil},
		{name: "empty", body: "", want: nil},
		{name: "not a mapping", body: "- a\n- b\n", wantErr: true},
		{name: "parameters not a mapping", body: "Parameters: [a]\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(tt.body)
			if tt.file != "" {
				var err error
				body, err = os.ReadFile(tt.file)
				require.NoError(t, err)
			}

			got, err := TemplateParameterKeys(body)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterBasedOnTemplate(t *testing.T) {
	params := []Parameter{{"A", "1"}, {"B", "2"}, {"Old", "x"}}

	var buf bytes.Buffer
	got, err := FilterBasedOnTemplate(&buf, []string{"A", "B"}, params)
	require.NoError(t, err)
	assert.Equal(t, []Parameter{{"A", "1"}, {"B", "2"}}, got)
	assert.Contains(t, buf.String(), "removing param: Old\n")

	buf.Reset()
	_, err = FilterBasedOnTemplate(&buf, []string{"A", "C", "D"}, params)
	assert.ErrorIs(t, err, ErrMissingParameters)
	assert.EqualError(t, err, "Template has parameters that are not defined")
	assert.Equal(t, "missing param: C\nmissing param: D\n", buf.String())
}

func TestParamSets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DefaultParamSetDir)
	params := []Parameter{{"DomainName", "lara.concord.org"}, {"Count", "2"}}

	path, err := WriteParams(dir, DefaultParamFile("lara"), params)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lara-params.yml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ParameterKey: DomainName")
	assert.Contains(t, string(data), "ParameterValue: lara.concord.org")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	_, err = WriteParams(dir, "a-params.yml", params[:1])
	require.NoError(t, err)

	files, err := ListParamFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-params.yml", "lara-params.yml"}, files)

	got, err := ReadParams(dir, "lara-params.yml")
	require.NoError(t, err)
	assert.Equal(t, params, got)
}

func TestReadCreateConfig(t *testing.T) {
	cfg, err := ReadCreateConfig("testdata/create-config.yml")
	require.NoError(t, err)
	assert.Equal(t, "lara-staging", cfg.OriginalStack)
	assert.Equal(t, "lara-qa", cfg.Name)
	assert.Equal(t, "LARA QA", cfg.ParameterModifications["NewRelicAppName"])
	assert.Equal(t, filepath.Join("testdata", "templates", "lara.yml"), cfg.TemplatePath())

	_, err = ReadCreateConfig("testdata/create-config.yaml")
	assert.ErrorContains(t, err, "must be a yml file")

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("Name: x\n"), 0o600))
	_, err = ReadCreateConfig(bad)
	assert.ErrorContains(t, err, "OriginalStack is required")
}

func TestPrepareAndCreate(t *testing.T) {
	f := newFakeCFN()
	cfg, err := ReadCreateConfig("testdata/create-config.yml")
	require.NoError(t, err)

	var buf bytes.Buffer
	plan, err := Prepare(context.Background(), f, cfg, &buf)
	require.NoError(t, err)

	assert.Equal(t, []Parameter{
		{"DomainName", "lara-qa.concord.org"},
		{"DatabaseHost", "db.staging"},
		{"NewRelicAppName", "LARA QA"},
	}, plan.Parameters)
	assert.Contains(t, buf.String(), "=== Original Parameters ===\nDomainName: lara-staging.concord.org\n")
	assert.Contains(t, buf.String(), "removing param: LegacyFlag\n")
	assert.Contains(t, buf.String(), "=== New Parameters ===\nDomainName: lara-qa.concord.org\n")
	assert.Contains(t, plan.TemplateBody, "!Ref DomainName")

	out, err := Create(context.Background(), f, plan)
	require.NoError(t, err)
	assert.Contains(t, *out.StackId, "lara-qa")
	require.NotNil(t, f.created)
	assert.Equal(t, []types.Capability{types.CapabilityCapabilityNamedIam}, f.created.Capabilities)
	assert.Len(t, f.created.Parameters, 3)
}

func TestPrepare_MissingParameters(t *testing.T) {
	f := newFakeCFN()
	cfg, err := ReadCreateConfig("testdata/create-config.yml")
	require.NoError(t, err)
	cfg.ParameterModifications = nil

	var buf bytes.Buffer
	_, err = Prepare(context.Background(), f, cfg, &buf)
	assert.ErrorIs(t, err, ErrMissingParameters)
	assert.Contains(t, buf.String(), "missing param: NewRelicAppName")
}
