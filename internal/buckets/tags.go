// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package buckets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	awsx "github.com/concord-consortium/cloudops/internal/aws"
	"github.com/concord-consortium/cloudops/internal/util"
)

const (
	// BucketTypeTag classifies a bucket, e.g. "public".
	BucketTypeTag = "BucketType"
	// NotesTag is free text shown in the inventory.
	NotesTag = "Notes"
	// DefaultTagSheet is read by update-tags when --file is not given.
	DefaultTagSheet = "bucket-tags.tsv"

	noSuchTagSet = "NoSuchTagSet"
)

// ErrEmptySheet is returned for a tag sheet without a header row.
var ErrEmptySheet = errors.New("tag sheet has no header")

// TagRow is the tags one sheet row assigns to a bucket, in column order.
type TagRow struct {
	Bucket string
	Tags   []types.Tag
}

// TagMap flattens a tag set into a map.
func TagMap(tagSet []types.Tag) map[string]string {
	tags := make(map[string]string, len(tagSet))
	for _, t := range tagSet {
		tags[awsv2.ToString(t.Key)] = awsv2.ToString(t.Value)
	}
	return tags
}

// AddOrUpdateTag sets key to value in tagSet, appending when the key is new.
func AddOrUpdateTag(tagSet []types.Tag, key, value string) []types.Tag {
	for i := range tagSet {
		if awsv2.ToString(tagSet[i].Key) == key {
			tagSet[i].Value = awsv2.String(value)
			return tagSet
		}
	}
	return append(tagSet, types.Tag{Key: awsv2.String(key), Value: awsv2.String(value)})
}

// ReadTagSheet parses a tab separated sheet whose header is
// "Name<TAB>key1<TAB>key2...". Cells missing from a short row leave that tag
// alone; empty cells set the tag to "".
func ReadTagSheet(r io.Reader) ([]TagRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read tag sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}

	keys := records[0][1:]
	log.Debugf("tag keys: %v", keys)

	var rows []TagRow
	for _, rec := range records[1:] {
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}

		row := TagRow{Bucket: strings.TrimSpace(rec[0])}
		for i, key := range keys {
			if i+1 >= len(rec) {
				break
			}
			row.Tags = append(row.Tags, types.Tag{
				Key:   awsv2.String(key),
				Value: awsv2.String(strings.TrimRight(rec[i+1], "\r")),
			})
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// UpdateTags merges each row's tags into the bucket's current tag set and
// writes the full set back. Nothing is written unless apply is set. A bucket
// whose tags cannot be read, other than having none, is skipped so a
// transient failure never wipes its tags.
func UpdateTags(ctx context.Context, api API, rows []TagRow, apply bool) util.Summary {
	var summary util.Summary

	for _, row := range rows {
		logger := log.WithField("bucket", row.Bucket)
		in := awsv2.String(row.Bucket)

		var tagSet []types.Tag
		current, err := api.GetBucketTagging(ctx, &s3v2.GetBucketTaggingInput{Bucket: in})
		switch {
		case err == nil:
			tagSet = current.TagSet
		case awsx.IsErrorCode(err, noSuchTagSet):
			logger.Debug("no tags yet")
		default:
			logger.WithError(err).Error("error reading tags, skipping")
			summary.Failed++
			continue
		}

		for _, t := range row.Tags {
			tagSet = AddOrUpdateTag(tagSet, awsv2.ToString(t.Key), awsv2.ToString(t.Value))
		}

		if !apply {
			logger.WithField("tags", TagMap(tagSet)).Info("would update tags")
			summary.Skipped++
			continue
		}

		_, err = api.PutBucketTagging(ctx, &s3v2.PutBucketTaggingInput{
			Bucket:  in,
			Tagging: &types.Tagging{TagSet: tagSet},
		})
		if err != nil {
			logger.WithError(err).Error("error putting tagging")
			summary.Failed++
			continue
		}

		logger.Info("updated tags")
		summary.Updated++
	}

	return summary
}
