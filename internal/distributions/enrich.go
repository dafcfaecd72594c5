// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package distributions

import (
	"context"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	cfv2 "github.com/aws/aws-sdk-go-v2/service/cloudfront"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"

	awsx "github.com/concord-consortium/cloudops/internal/aws"
	"github.com/concord-consortium/cloudops/internal/cacheutil"
)

// ErrorFetching marks a column whose lookup failed.
const ErrorFetching = "error fetching"

// TagGetter reads S3 bucket tags.
type TagGetter interface {
	GetBucketTagging(ctx context.Context, params *s3v2.GetBucketTaggingInput, optFns ...func(*s3v2.Options)) (*s3v2.GetBucketTaggingOutput, error)
}

// BucketTypes maps a bucket name to its BucketType tag.
type BucketTypes map[string]string

// EnrichBucketTypes reads the tags of each distinct origin bucket once and
// sets BucketType on the records. The returned map only holds buckets whose
// tags could be read.
func EnrichBucketTypes(ctx context.Context, tg TagGetter, records []BehaviorRecord) BucketTypes {
	known := BucketTypes{}
	failed := map[string]bool{}

	for i := range records {
		bucket := records[i].BucketName
		if bucket == "" {
			continue
		}

		if bt, ok := known[bucket]; ok {
			records[i].BucketType = bt
			continue
		}
		if failed[bucket] {
			records[i].BucketType = ErrorFetching
			continue
		}

		log.Debugf("%s - loading tags", bucket)
		out, err := tg.GetBucketTagging(ctx, &s3v2.GetBucketTaggingInput{Bucket: awsv2.String(bucket)})
		if err != nil {
			log.WithError(err).WithField("code", awsx.ErrorCode(err)).Warnf("error fetching tags from %s", bucket)
			failed[bucket] = true
			records[i].BucketType = ErrorFetching
			continue
		}

		bt := ""
		for _, t := range out.TagSet {
			if awsv2.ToString(t.Key) == "BucketType" {
				bt = awsv2.ToString(t.Value)
			}
		}
		known[bucket] = bt
		records[i].BucketType = bt
	}

	return known
}

// EnrichCachePolicyNames resolves each distinct cache policy id to its name
// once, consulting store first. store may be nil.
func EnrichCachePolicyNames(ctx context.Context, api API, store *cacheutil.Store, records []BehaviorRecord) {
	names := map[string]string{}

	for i := range records {
		id := records[i].CachePolicyId
		if id == "" {
			continue
		}

		if name, ok := names[id]; ok {
			records[i].CachePolicyName = name
			continue
		}

		if cached, ok := store.Get(id); ok {
			names[id] = string(cached)
			records[i].CachePolicyName = names[id]
			continue
		}

		log.Debugf("%s - loading cache policy", id)
		name := ErrorFetching
		out, err := api.GetCachePolicy(ctx, &cfv2.GetCachePolicyInput{Id: awsv2.String(id)})
		switch {
		case err != nil:
			log.WithError(err).Warnf("error fetching cache policy: %s", id)
		case out.CachePolicy == nil || out.CachePolicy.CachePolicyConfig == nil:
			log.Warnf("cache policy %s has no config", id)
		default:
			name = awsv2.ToString(out.CachePolicy.CachePolicyConfig.Name)
			if err := store.Put(id, []byte(name)); err != nil {
				log.WithError(err).Warn("failed to cache policy name")
			}
		}

		names[id] = name
		records[i].CachePolicyName = name
	}
}
