// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package buckets

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"gopkg.in/yaml.v3"

	awsx "github.com/concord-consortium/cloudops/internal/aws"
	"github.com/concord-consortium/cloudops/internal/util"
)

// PublicType is the BucketType tag value that marks a bucket for CORS.
const PublicType = "public"

// defaultMaxAge is the preflight cache time of the default rule.
const defaultMaxAge = 3000

// DefaultCORSRules allows anonymous reads from any origin.
func DefaultCORSRules() []types.CORSRule {
	return []types.CORSRule{{
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD"},
		AllowedOrigins: []string{"*"},
		ExposeHeaders:  []string{"ETag", "Content-Length"},
		MaxAgeSeconds:  awsv2.Int32(defaultMaxAge),
	}}
}

// rulesFile is the YAML shape of --rules, using the S3 field names.
type rulesFile struct {
	CORSRules []struct {
		ID             string   `yaml:"ID"`
		AllowedHeaders []string `yaml:"AllowedHeaders"`
		AllowedMethods []string `yaml:"AllowedMethods"`
		AllowedOrigins []string `yaml:"AllowedOrigins"`
		ExposeHeaders  []string `yaml:"ExposeHeaders"`
		MaxAgeSeconds  *int32   `yaml:"MaxAgeSeconds"`
	} `yaml:"CORSRules"`
}

// ReadCORSRules parses a CORS configuration document.
func ReadCORSRules(r io.Reader) ([]types.CORSRule, error) {
	var doc rulesFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode cors rules: %w", err)
	}
	if len(doc.CORSRules) == 0 {
		return nil, fmt.Errorf("cors rules document has no CORSRules")
	}

	rules := make([]types.CORSRule, 0, len(doc.CORSRules))
	for _, r := range doc.CORSRules {
		rule := types.CORSRule{
			AllowedHeaders: r.AllowedHeaders,
			AllowedMethods: r.AllowedMethods,
			AllowedOrigins: r.AllowedOrigins,
			ExposeHeaders:  r.ExposeHeaders,
			MaxAgeSeconds:  r.MaxAgeSeconds,
		}
		if r.ID != "" {
			rule.ID = awsv2.String(r.ID)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// CORSUpdate describes an update-cors run.
type CORSUpdate struct {
	Rules      []types.CORSRule
	PublicType string
	// Only restricts the run to these buckets when not empty.
	Only  []string
	Apply bool
}

// UpdateCors puts Rules on every bucket whose BucketType tag equals
// PublicType. Buckets without tags are skipped.
func UpdateCors(ctx context.Context, api API, u CORSUpdate) (util.Summary, error) {
	var summary util.Summary

	if len(u.Rules) == 0 {
		u.Rules = DefaultCORSRules()
	}
	if u.PublicType == "" {
		u.PublicType = PublicType
	}

	all, err := ListNames(ctx, api)
	if err != nil {
		return summary, err
	}

	for _, b := range all {
		name := awsv2.ToString(b.Name)
		if len(u.Only) > 0 && !slices.Contains(u.Only, name) {
			continue
		}
		logger := log.WithField("bucket", name)
		in := awsv2.String(name)

		tagging, err := api.GetBucketTagging(ctx, &s3v2.GetBucketTaggingInput{Bucket: in})
		if err != nil {
			logger.WithField("code", awsx.ErrorCode(err)).Debug("no tags, skipping")
			summary.Skipped++
			continue
		}

		if TagMap(tagging.TagSet)[BucketTypeTag] != u.PublicType {
			summary.Skipped++
			continue
		}

		if !u.Apply {
			logger.Info("would update cors")
			summary.Skipped++
			continue
		}

		logger.Info("updating cors")
		_, err = api.PutBucketCors(ctx, &s3v2.PutBucketCorsInput{
			Bucket:            in,
			CORSConfiguration: &types.CORSConfiguration{CORSRules: u.Rules},
		})
		if err != nil {
			logger.WithError(err).Error("error putting cors")
			summary.Failed++
			continue
		}

		logger.Info("updated")
		summary.Updated++
	}

	return summary, nil
}
