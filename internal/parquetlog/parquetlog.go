// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package parquetlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// SourcePrefix holds the original log files.
	SourcePrefix = "processed_logs/"
	// TargetPrefix holds the rewritten files that carry an id column.
	TargetPrefix = "processed_logs_with_id/"
	// Suffix identifies Parquet objects.
	Suffix = ".parquet"
)

// ErrUnknownEnvironment is returned for an environment without a bucket.
var ErrUnknownEnvironment = errors.New("environment must be production or staging")

// DefaultBuckets maps an environment to its log ingester bucket.
var DefaultBuckets = map[string]string{
	"production": "log-ingester-production",
	"staging":    "log-ingester-qa",
}

// BucketFor resolves env to a bucket. overrides take precedence over
// DefaultBuckets but cannot add environments.
func BucketFor(env string, overrides map[string]string) (string, error) {
	bucket, ok := DefaultBuckets[env]
	if !ok {
		return "", fmt.Errorf("%q: %w", env, ErrUnknownEnvironment)
	}
	if b := overrides[env]; b != "" {
		bucket = b
	}
	return bucket, nil
}

// ListAPI lists bucket contents.
type ListAPI interface {
	ListObjectsV2(ctx context.Context, params *s3v2.ListObjectsV2Input, optFns ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error)
}

// Downloader fetches an object into memory or a file.
type Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3v2.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// Uploader stores an object.
type Uploader interface {
	Upload(ctx context.Context, input *s3v2.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Object is a listed key and its size.
type Object struct {
	Key  string
	Size int64
}

// List returns every object under prefix, in key order.
func List(ctx context.Context, api ListAPI, bucket, prefix string) ([]Object, error) {
	var objects []Object

	paginator := s3v2.NewListObjectsV2Paginator(api, &s3v2.ListObjectsV2Input{
		Bucket: awsv2.String(bucket),
		Prefix: awsv2.String(prefix),
	})
	page := 0
	for paginator.HasMorePages() {
		page++
		log.Debugf("listing page %d of %s", page, prefix)
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, o := range out.Contents {
			objects = append(objects, Object{Key: awsv2.ToString(o.Key), Size: awsv2.ToInt64(o.Size)})
		}
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Enumerate maps the .parquet keys under prefix, relative to it, to their
// sizes.
func Enumerate(ctx context.Context, api ListAPI, bucket, prefix string) (map[string]int64, error) {
	objects, err := List(ctx, api, bucket, prefix)
	if err != nil {
		return nil, err
	}

	files := make(map[string]int64, len(objects))
	for _, o := range objects {
		if strings.HasSuffix(o.Key, Suffix) {
			files[strings.TrimPrefix(o.Key, prefix)] = o.Size
		}
	}
	return files, nil
}

// TargetKey is where the rewritten copy of a source key goes.
func TargetKey(key string) string {
	return TargetPrefix + strings.TrimPrefix(key, SourcePrefix)
}

// SourceKey returns key with the source prefix, adding it when missing.
func SourceKey(key string) string {
	if strings.HasPrefix(key, SourcePrefix) {
		return key
	}
	return SourcePrefix + strings.TrimPrefix(key, "/")
}
