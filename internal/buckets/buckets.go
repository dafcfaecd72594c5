// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package buckets

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	awsx "github.com/concord-consortium/cloudops/internal/aws"
)

// DefaultColumns is the --attrs value matching the historical buckets.csv
// layout.
const DefaultColumns = "Name,BucketType,Notes,AllowedHeaders,AllowedMethods," +
	"AllowedOrigins,ExposeHeaders,MaxAgeSeconds,CreationDate:Created,Website," +
	"Region,Tags,Cors:Raw CORS Config,Policy"

// DefaultFile is where bucket list writes CSV when --file is not given.
const DefaultFile = "buckets.csv"

// defaultConcurrency bounds the per-bucket lookup fan-out.
const defaultConcurrency = 8

// API is the subset of the S3 client used by this package.
type API interface {
	ListBuckets(ctx context.Context, params *s3v2.ListBucketsInput, optFns ...func(*s3v2.Options)) (*s3v2.ListBucketsOutput, error)
	GetBucketCors(ctx context.Context, params *s3v2.GetBucketCorsInput, optFns ...func(*s3v2.Options)) (*s3v2.GetBucketCorsOutput, error)
	GetBucketPolicy(ctx context.Context, params *s3v2.GetBucketPolicyInput, optFns ...func(*s3v2.Options)) (*s3v2.GetBucketPolicyOutput, error)
	GetBucketWebsite(ctx context.Context, params *s3v2.GetBucketWebsiteInput, optFns ...func(*s3v2.Options)) (*s3v2.GetBucketWebsiteOutput, error)
	GetBucketLocation(ctx context.Context, params *s3v2.GetBucketLocationInput, optFns ...func(*s3v2.Options)) (*s3v2.GetBucketLocationOutput, error)
	GetBucketTagging(ctx context.Context, params *s3v2.GetBucketTaggingInput, optFns ...func(*s3v2.Options)) (*s3v2.GetBucketTaggingOutput, error)
	GetPublicAccessBlock(ctx context.Context, params *s3v2.GetPublicAccessBlockInput, optFns ...func(*s3v2.Options)) (*s3v2.GetPublicAccessBlockOutput, error)
	PutBucketTagging(ctx context.Context, params *s3v2.PutBucketTaggingInput, optFns ...func(*s3v2.Options)) (*s3v2.PutBucketTaggingOutput, error)
	PutBucketCors(ctx context.Context, params *s3v2.PutBucketCorsInput, optFns ...func(*s3v2.Options)) (*s3v2.PutBucketCorsOutput, error)
}

// PublicAccessBlock mirrors the bucket's public access block settings.
type PublicAccessBlock struct {
	BlockPublicAcls       bool `json:"BlockPublicAcls"`
	IgnorePublicAcls      bool `json:"IgnorePublicAcls"`
	BlockPublicPolicy     bool `json:"BlockPublicPolicy"`
	RestrictPublicBuckets bool `json:"RestrictPublicBuckets"`
}

// Record is one row of the bucket inventory. CORS columns describe the first
// CORS rule only; Cors holds the whole configuration.
type Record struct {
	Name              string             `json:"Name"`
	BucketType        string             `json:"BucketType"`
	Notes             string             `json:"Notes"`
	AllowedHeaders    []string           `json:"AllowedHeaders"`
	AllowedMethods    []string           `json:"AllowedMethods"`
	AllowedOrigins    []string           `json:"AllowedOrigins"`
	ExposeHeaders     []string           `json:"ExposeHeaders"`
	MaxAgeSeconds     *int32             `json:"MaxAgeSeconds"`
	CreationDate      *time.Time         `json:"CreationDate"`
	Website           string             `json:"Website"`
	Region            string             `json:"Region"`
	Tags              map[string]string  `json:"Tags"`
	Cors              string             `json:"Cors"`
	Policy            string             `json:"Policy"`
	PublicAccessBlock *PublicAccessBlock `json:"PublicAccessBlock"`
}

// corsDocument is the JSON shape of the raw CORS column.
type corsDocument struct {
	CORSRules []corsRule `json:"CORSRules"`
}

type corsRule struct {
	ID             *string  `json:"ID,omitempty"`
	AllowedHeaders []string `json:"AllowedHeaders,omitempty"`
	AllowedMethods []string `json:"AllowedMethods"`
	AllowedOrigins []string `json:"AllowedOrigins"`
	ExposeHeaders  []string `json:"ExposeHeaders,omitempty"`
	MaxAgeSeconds  *int32   `json:"MaxAgeSeconds,omitempty"`
}

// ListNames returns the names of all buckets owned by the caller.
func ListNames(ctx context.Context, api API) ([]types.Bucket, error) {
	var all []types.Bucket

	paginator := s3v2.NewListBucketsPaginator(api, &s3v2.ListBucketsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list buckets: %w", err)
		}
		all = append(all, page.Buckets...)
	}

	log.Debugf("buckets found: %d", len(all))
	return all, nil
}

// List builds a Record for every bucket. The per-bucket lookups are read-only
// and run concurrently; a lookup that fails leaves its columns empty.
func List(ctx context.Context, api API) ([]Record, error) {
	all, err := ListNames(ctx, api)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(all))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)
	for i, b := range all {
		g.Go(func() error {
			records[i] = describe(gctx, api, b)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// describe gathers everything known about a single bucket.
func describe(ctx context.Context, api API, b types.Bucket) Record {
	name := awsv2.ToString(b.Name)
	in := awsv2.String(name)
	logger := log.WithField("bucket", name)
	logger.Debug("describing")

	rec := Record{Name: name, CreationDate: b.CreationDate}

	if cors, err := api.GetBucketCors(ctx, &s3v2.GetBucketCorsInput{Bucket: in}); err != nil {
		logger.WithField("code", awsx.ErrorCode(err)).Debug("no cors")
	} else {
		applyCors(&rec, cors.CORSRules)
	}

	if policy, err := api.GetBucketPolicy(ctx, &s3v2.GetBucketPolicyInput{Bucket: in}); err != nil {
		logger.WithField("code", awsx.ErrorCode(err)).Debug("no policy")
	} else {
		rec.Policy = awsv2.ToString(policy.Policy)
	}

	if loc, err := api.GetBucketLocation(ctx, &s3v2.GetBucketLocationInput{Bucket: in}); err != nil {
		logger.WithField("code", awsx.ErrorCode(err)).Debug("no location")
		rec.Region = UnknownRegion
	} else {
		rec.Region = Region(loc.LocationConstraint)
	}

	if _, err := api.GetBucketWebsite(ctx, &s3v2.GetBucketWebsiteInput{Bucket: in}); err != nil {
		logger.WithField("code", awsx.ErrorCode(err)).Debug("no website")
	} else if rec.Region != UnknownRegion {
		rec.Website = WebsiteURL(name, rec.Region)
	}

	if tagging, err := api.GetBucketTagging(ctx, &s3v2.GetBucketTaggingInput{Bucket: in}); err != nil {
		logger.WithField("code", awsx.ErrorCode(err)).Debug("no tags")
	} else {
		rec.Tags = TagMap(tagging.TagSet)
		rec.BucketType = rec.Tags[BucketTypeTag]
		rec.Notes = rec.Tags[NotesTag]
	}

	if pab, err := api.GetPublicAccessBlock(ctx, &s3v2.GetPublicAccessBlockInput{Bucket: in}); err != nil {
		logger.WithField("code", awsx.ErrorCode(err)).Debug("no public access block")
	} else if c := pab.PublicAccessBlockConfiguration; c != nil {
		rec.PublicAccessBlock = &PublicAccessBlock{
			BlockPublicAcls:       awsv2.ToBool(c.BlockPublicAcls),
			IgnorePublicAcls:      awsv2.ToBool(c.IgnorePublicAcls),
			BlockPublicPolicy:     awsv2.ToBool(c.BlockPublicPolicy),
			RestrictPublicBuckets: awsv2.ToBool(c.RestrictPublicBuckets),
		}
	}

	return rec
}

// applyCors fills the CORS columns of rec from rules.
func applyCors(rec *Record, rules []types.CORSRule) {
	doc := corsDocument{CORSRules: make([]corsRule, 0, len(rules))}
	for _, r := range rules {
		doc.CORSRules = append(doc.CORSRules, corsRule{
			ID:             r.ID,
			AllowedHeaders: r.AllowedHeaders,
			AllowedMethods: r.AllowedMethods,
			AllowedOrigins: r.AllowedOrigins,
			ExposeHeaders:  r.ExposeHeaders,
			MaxAgeSeconds:  r.MaxAgeSeconds,
		})
	}
	if raw, err := json.Marshal(doc); err == nil {
		rec.Cors = string(raw)
	}

	if len(rules) == 0 {
		return
	}
	first := rules[0]
	rec.AllowedHeaders = first.AllowedHeaders
	rec.AllowedMethods = first.AllowedMethods
	rec.AllowedOrigins = first.AllowedOrigins
	rec.ExposeHeaders = first.ExposeHeaders
	rec.MaxAgeSeconds = first.MaxAgeSeconds
}

// UnknownRegion is the Region of a bucket whose location could not be read.
const UnknownRegion = "unknown"

// Region maps a location constraint to a region name. Buckets in us-east-1
// report an empty constraint.
func Region(lc types.BucketLocationConstraint) string {
	if lc == "" {
		return awsx.DefaultRegion
	}
	return string(lc)
}

// WebsiteURL is the static website endpoint of a bucket.
func WebsiteURL(name, region string) string {
	return fmt.Sprintf("http://%s.s3-website.%s.amazonaws.com", name, region)
}
