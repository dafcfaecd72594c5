// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package distributions

import (
	"slices"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
)

const (
	// S3CorsPolicyID is the managed CachePolicy-CORS-S3Origin policy.
	S3CorsPolicyID = "d41b1d60-f629-4499-93ba-a45153f58bbc"
	// S3Cors1PolicyID is the account's own S3-CORS-1 policy.
	S3Cors1PolicyID = "a1cf85e6-b5ea-4ed9-80e7-1cf3cdc8ecaa"

	// DefaultOriginHeaderValue is sent to S3 so it always answers with CORS
	// headers, which keeps browsers from caching non-CORS responses.
	DefaultOriginHeaderValue = "https://concord.org"

	originHeaderName = "Origin"
)

// PublicBucketTypes are the BucketType tag values whose behaviors get the
// CORS treatment.
var PublicBucketTypes = []string{"public", "public-custom-cors"}

// CorsPolicyIDs are the cache policies that already forward CORS headers.
var CorsPolicyIDs = []string{S3CorsPolicyID, S3Cors1PolicyID}

// Modifier changes a distribution config in place and reports whether
// anything changed.
type Modifier interface {
	Modify(cfg *types.DistributionConfig) bool
}

// PublicCheck reports whether changes apply to an origin bucket.
type PublicCheck func(bucket string) bool

// PublicCheckFor returns a PublicCheck backed by tag lookups.
func PublicCheckFor(known BucketTypes, publicTypes []string) PublicCheck {
	return func(bucket string) bool {
		if bucket == "" {
			return false
		}
		bt, ok := known[bucket]
		return ok && slices.Contains(publicTypes, bt)
	}
}

// CorsCandidates returns, in listing order, the ids of distributions with at
// least one public behavior not already on a CORS cache policy.
func CorsCandidates(records []BehaviorRecord, publicTypes, corsPolicyIDs []string) []string {
	return candidates(records, func(r BehaviorRecord) bool {
		return !slices.Contains(corsPolicyIDs, r.CachePolicyId) &&
			slices.Contains(publicTypes, r.BucketType)
	})
}

// OriginHeaderCandidates returns, in listing order, the ids of distributions
// with at least one public behavior whose origin lacks an Origin header.
func OriginHeaderCandidates(records []BehaviorRecord, publicTypes []string) []string {
	return candidates(records, func(r BehaviorRecord) bool {
		return !strings.Contains(r.OriginCustomHeaders, originHeaderName+":") &&
			slices.Contains(publicTypes, r.BucketType)
	})
}

func candidates(records []BehaviorRecord, want func(BehaviorRecord) bool) []string {
	var ids []string
	for _, r := range records {
		if want(r) && !slices.Contains(ids, r.Id) {
			ids = append(ids, r.Id)
		}
	}
	return ids
}

// behaviorRef points into the default or a path cache behavior of a config.
type behaviorRef struct {
	pathPattern     string
	targetOriginID  string
	cachePolicyID   **string
	defaultTTL      **int64
	minTTL          **int64
	maxTTL          **int64
	forwardedValues **types.ForwardedValues
}

func (b behaviorRef) describe() string {
	if b.pathPattern == "" {
		return "default behavior"
	}
	return "pathPattern: " + b.pathPattern
}

func eachBehavior(cfg *types.DistributionConfig, fn func(behaviorRef)) {
	if d := cfg.DefaultCacheBehavior; d != nil {
		fn(behaviorRef{
			targetOriginID:  awsv2.ToString(d.TargetOriginId),
			cachePolicyID:   &d.CachePolicyId,
			defaultTTL:      &d.DefaultTTL,
			minTTL:          &d.MinTTL,
			maxTTL:          &d.MaxTTL,
			forwardedValues: &d.ForwardedValues,
		})
	}
	if cfg.CacheBehaviors == nil {
		return
	}
	for i := range cfg.CacheBehaviors.Items {
		c := &cfg.CacheBehaviors.Items[i]
		fn(behaviorRef{
			pathPattern:     awsv2.ToString(c.PathPattern),
			targetOriginID:  awsv2.ToString(c.TargetOriginId),
			cachePolicyID:   &c.CachePolicyId,
			defaultTTL:      &c.DefaultTTL,
			minTTL:          &c.MinTTL,
			maxTTL:          &c.MaxTTL,
			forwardedValues: &c.ForwardedValues,
		})
	}
}

// CorsPolicy moves public behaviors onto PolicyID and drops their legacy
// TTL and forwarded values settings. Force changes every behavior that is
// not already on PolicyID.
type CorsPolicy struct {
	PolicyID string
	// Known policies count as already done.
	Known    []string
	IsPublic PublicCheck
	Force    bool
}

// Modify implements Modifier.
func (c CorsPolicy) Modify(cfg *types.DistributionConfig) bool {
	changed := false

	eachBehavior(cfg, func(b behaviorRef) {
		originDomain := ""
		if origin := findOrigin(cfg.Origins, b.targetOriginID); origin != nil {
			originDomain = awsv2.ToString(origin.DomainName)
		}

		if c.modifyBehavior(b, BucketName(originDomain)) {
			log.Infof("  updated behavior with origin: %s, %s", originDomain, b.describe())
			changed = true
		} else {
			log.Infof("  skipped behavior with origin: %s, %s", originDomain, b.describe())
		}
	})

	return changed
}

func (c CorsPolicy) modifyBehavior(b behaviorRef, bucket string) bool {
	current := awsv2.ToString(*b.cachePolicyID)
	if c.Force {
		if current == c.PolicyID {
			return false
		}
	} else {
		if current == c.PolicyID || slices.Contains(c.Known, current) {
			return false
		}
		if c.IsPublic == nil || !c.IsPublic(bucket) {
			return false
		}
	}

	*b.cachePolicyID = awsv2.String(c.PolicyID)
	*b.defaultTTL = nil
	*b.minTTL = nil
	*b.maxTTL = nil
	*b.forwardedValues = nil
	return true
}

// OriginHeader adds a custom Origin header to public S3 origins that do not
// have one. Force adds it to every origin without one.
type OriginHeader struct {
	Value    string
	IsPublic PublicCheck
	Force    bool
}

// Modify implements Modifier.
func (o OriginHeader) Modify(cfg *types.DistributionConfig) bool {
	if cfg.Origins == nil {
		return false
	}

	value := o.Value
	if value == "" {
		value = DefaultOriginHeaderValue
	}

	changed := false
	for i := range cfg.Origins.Items {
		origin := &cfg.Origins.Items[i]
		domain := awsv2.ToString(origin.DomainName)

		if !o.Force && (o.IsPublic == nil || !o.IsPublic(BucketName(domain))) {
			log.Infof("  skipping non public bucket origin: %s", domain)
			continue
		}

		if origin.CustomHeaders == nil {
			origin.CustomHeaders = &types.CustomHeaders{}
		}

		if existing := originHeader(origin.CustomHeaders); existing != nil {
			log.Infof("  origin %s already has custom Origin header of %s", domain, awsv2.ToString(existing.HeaderValue))
			continue
		}

		origin.CustomHeaders.Items = append(origin.CustomHeaders.Items, types.OriginCustomHeader{
			HeaderName:  awsv2.String(originHeaderName),
			HeaderValue: awsv2.String(value),
		})
		origin.CustomHeaders.Quantity = awsv2.Int32(int32(len(origin.CustomHeaders.Items))) //nolint:gosec
		log.Infof("  updated origin: %s", domain)
		changed = true
	}

	return changed
}

func originHeader(h *types.CustomHeaders) *types.OriginCustomHeader {
	for i := range h.Items {
		if awsv2.ToString(h.Items[i].HeaderName) == originHeaderName {
			return &h.Items[i]
		}
	}
	return nil
}
