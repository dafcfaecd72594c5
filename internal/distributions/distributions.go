// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package distributions

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	cfv2 "github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
)

// DefaultColumns is the --attrs value matching the historical behaviors.csv
// layout.
const DefaultColumns = "Id,DomainName,Aliases,PathPattern,OriginDomainName," +
	"OriginPath,OriginCustomHeaders,BucketName,BucketType,ViewerProtocolPolicy," +
	"AllowedMethods,CachePolicyName,WhitelistedHeaders,CachePolicyId," +
	"OriginRequestPolicyId"

// DefaultFile is where cf list writes CSV when --file is not given.
const DefaultFile = "behaviors.csv"

// pageSize is the MaxItems of each ListDistributions call.
const pageSize = 30

// Origin domains come in two shapes, the REST endpoint and the website
// endpoint:
//
//	interactions-resources.s3.amazonaws.com
//	lab-framework.concord.org.s3-website-us-east-1.amazonaws.com
var bucketOriginPattern = regexp.MustCompile(`(.*)\.s3[^.]*\.amazonaws\.com`)

// API is the subset of the CloudFront client used by this package.
type API interface {
	ListDistributions(ctx context.Context, params *cfv2.ListDistributionsInput, optFns ...func(*cfv2.Options)) (*cfv2.ListDistributionsOutput, error)
	GetDistributionConfig(ctx context.Context, params *cfv2.GetDistributionConfigInput, optFns ...func(*cfv2.Options)) (*cfv2.GetDistributionConfigOutput, error)
	UpdateDistribution(ctx context.Context, params *cfv2.UpdateDistributionInput, optFns ...func(*cfv2.Options)) (*cfv2.UpdateDistributionOutput, error)
	GetCachePolicy(ctx context.Context, params *cfv2.GetCachePolicyInput, optFns ...func(*cfv2.Options)) (*cfv2.GetCachePolicyOutput, error)
}

// BehaviorRecord is one cache behavior of one distribution. The default
// behavior has an empty PathPattern.
type BehaviorRecord struct {
	Id                    string `json:"Id"` //nolint:revive
	DomainName            string `json:"DomainName"`
	Aliases               string `json:"Aliases"`
	PathPattern           string `json:"PathPattern"`
	TargetOriginId        string `json:"TargetOriginId"` //nolint:revive
	OriginDomainName      string `json:"OriginDomainName"`
	OriginPath            string `json:"OriginPath"`
	OriginCustomHeaders   string `json:"OriginCustomHeaders"`
	BucketName            string `json:"BucketName"`
	BucketType            string `json:"BucketType"`
	ViewerProtocolPolicy  string `json:"ViewerProtocolPolicy"`
	AllowedMethods        string `json:"AllowedMethods"`
	CachePolicyName       string `json:"CachePolicyName"`
	WhitelistedHeaders    string `json:"WhitelistedHeaders"`
	CachePolicyId         string `json:"CachePolicyId"`         //nolint:revive
	OriginRequestPolicyId string `json:"OriginRequestPolicyId"` //nolint:revive
	RawBehavior           string `json:"RawBehavior"`
	RawOrigin             string `json:"RawOrigin"`
}

// BucketName extracts the bucket from an S3 origin domain. It is empty for
// non-S3 origins.
func BucketName(originDomainName string) string {
	if m := bucketOriginPattern.FindStringSubmatch(originDomainName); m != nil {
		return m[1]
	}
	return ""
}

// behaviorView is the part of a default or path cache behavior a record is
// built from.
type behaviorView struct {
	pathPattern           string
	targetOriginID        string
	viewerProtocolPolicy  string
	allowedMethods        []types.Method
	cachePolicyID         string
	originRequestPolicyID string
	forwardedValues       *types.ForwardedValues
	raw                   any
}

func viewOfDefault(b *types.DefaultCacheBehavior) behaviorView {
	v := behaviorView{
		targetOriginID:        awsv2.ToString(b.TargetOriginId),
		viewerProtocolPolicy:  string(b.ViewerProtocolPolicy),
		cachePolicyID:         awsv2.ToString(b.CachePolicyId),
		originRequestPolicyID: awsv2.ToString(b.OriginRequestPolicyId),
		forwardedValues:       b.ForwardedValues,
		raw:                   b,
	}
	if b.AllowedMethods != nil {
		v.allowedMethods = b.AllowedMethods.Items
	}
	return v
}

func viewOfCache(b *types.CacheBehavior) behaviorView {
	v := behaviorView{
		pathPattern:           awsv2.ToString(b.PathPattern),
		targetOriginID:        awsv2.ToString(b.TargetOriginId),
		viewerProtocolPolicy:  string(b.ViewerProtocolPolicy),
		cachePolicyID:         awsv2.ToString(b.CachePolicyId),
		originRequestPolicyID: awsv2.ToString(b.OriginRequestPolicyId),
		forwardedValues:       b.ForwardedValues,
		raw:                   b,
	}
	if b.AllowedMethods != nil {
		v.allowedMethods = b.AllowedMethods.Items
	}
	return v
}

// findOrigin returns the origin with the given id, or nil.
func findOrigin(origins *types.Origins, id string) *types.Origin {
	if origins == nil {
		return nil
	}
	for i := range origins.Items {
		if awsv2.ToString(origins.Items[i].Id) == id {
			return &origins.Items[i]
		}
	}
	return nil
}

// CustomHeaders renders origin custom headers as "Name: Value, ...".
func CustomHeaders(origin *types.Origin) string {
	if origin == nil || origin.CustomHeaders == nil {
		return ""
	}
	parts := make([]string, 0, len(origin.CustomHeaders.Items))
	for _, h := range origin.CustomHeaders.Items {
		parts = append(parts, awsv2.ToString(h.HeaderName)+": "+awsv2.ToString(h.HeaderValue))
	}
	return strings.Join(parts, ", ")
}

func aliases(a *types.Aliases) string {
	if a == nil {
		return ""
	}
	return strings.Join(a.Items, ", ")
}

func indented(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func newRecord(d *types.DistributionSummary, v behaviorView) BehaviorRecord {
	rec := BehaviorRecord{
		Id:                    awsv2.ToString(d.Id),
		DomainName:            awsv2.ToString(d.DomainName),
		Aliases:               aliases(d.Aliases),
		PathPattern:           v.pathPattern,
		TargetOriginId:        v.targetOriginID,
		ViewerProtocolPolicy:  v.viewerProtocolPolicy,
		CachePolicyId:         v.cachePolicyID,
		OriginRequestPolicyId: v.originRequestPolicyID,
		RawBehavior:           indented(v.raw),
	}

	methods := make([]string, 0, len(v.allowedMethods))
	for _, m := range v.allowedMethods {
		methods = append(methods, string(m))
	}
	rec.AllowedMethods = strings.Join(methods, ", ")

	if fv := v.forwardedValues; fv != nil && fv.Headers != nil {
		rec.WhitelistedHeaders = strings.Join(fv.Headers.Items, ", ")
	}

	if origin := findOrigin(d.Origins, v.targetOriginID); origin != nil {
		rec.OriginDomainName = awsv2.ToString(origin.DomainName)
		rec.OriginPath = awsv2.ToString(origin.OriginPath)
		rec.OriginCustomHeaders = CustomHeaders(origin)
		rec.BucketName = BucketName(rec.OriginDomainName)
		rec.RawOrigin = indented(origin)
	}

	return rec
}

// ListBehaviors returns a record for the default behavior and every cache
// behavior of every distribution. BucketType and CachePolicyName are filled
// in later by the Enrich functions.
func ListBehaviors(ctx context.Context, api API) ([]BehaviorRecord, error) {
	var records []BehaviorRecord

	paginator := cfv2.NewListDistributionsPaginator(api, &cfv2.ListDistributionsInput{},
		func(o *cfv2.ListDistributionsPaginatorOptions) { o.Limit = pageSize })
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list distributions: %w", err)
		}
		list := out.DistributionList
		if list == nil {
			break
		}
		log.Debugf("received: %d distributions", awsv2.ToInt32(list.Quantity))

		for i := range list.Items {
			d := &list.Items[i]
			if d.DefaultCacheBehavior != nil {
				records = append(records, newRecord(d, viewOfDefault(d.DefaultCacheBehavior)))
			}
			if d.CacheBehaviors != nil {
				for j := range d.CacheBehaviors.Items {
					records = append(records, newRecord(d, viewOfCache(&d.CacheBehaviors.Items[j])))
				}
			}
		}
	}

	log.Debugf("behaviors found: %d", len(records))
	return records, nil
}
