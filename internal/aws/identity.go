// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	stsv2 "github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSAPI is the subset of the STS client used here.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *stsv2.GetCallerIdentityInput, optFns ...func(*stsv2.Options)) (*stsv2.GetCallerIdentityOutput, error)
}

// Identity describes the principal behind the resolved credentials.
type Identity struct {
	Account     string `json:"Account"`
	Arn         string `json:"Arn"`
	UserID      string `json:"UserId"`
	AccessKeyID string `json:"AccessKeyId"`
	Region      string `json:"Region"`
}

// WhoAmI resolves the caller identity. The access key id comes from the
// credential provider and is empty when credentials cannot be retrieved.
func WhoAmI(ctx context.Context, cfg awsv2.Config, api STSAPI) (Identity, error) {
	id := Identity{Region: cfg.Region}

	if cfg.Credentials != nil {
		if creds, err := cfg.Credentials.Retrieve(ctx); err == nil {
			id.AccessKeyID = creds.AccessKeyID
		}
	}

	out, err := api.GetCallerIdentity(ctx, &stsv2.GetCallerIdentityInput{})
	if err != nil {
		return id, fmt.Errorf("failed to get caller identity: %w", err)
	}

	id.Account = awsv2.ToString(out.Account)
	id.Arn = awsv2.ToString(out.Arn)
	id.UserID = awsv2.ToString(out.UserId)
	return id, nil
}
