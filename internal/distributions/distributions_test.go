// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package distributions

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	cfv2 "github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concord-consortium/cloudops/internal/cacheutil"
	"github.com/concord-consortium/cloudops/internal/util"
)

const (
	publicOrigin  = "models-resources.s3.amazonaws.com"
	websiteOrigin = "lab.concord.org.s3-website-us-east-1.amazonaws.com"
	privateOrigin = "cc-private.s3.amazonaws.com"
	appOrigin     = "app.concord.org"
)

func origin(id, domain string, headers ...string) types.Origin {
	o := types.Origin{
		Id:            awsv2.String(id),
		DomainName:    awsv2.String(domain),
		OriginPath:    awsv2.String(""),
		CustomHeaders: &types.CustomHeaders{Quantity: awsv2.Int32(int32(len(headers) / 2))},
	}
	for i := 0; i+1 < len(headers); i += 2 {
		o.CustomHeaders.Items = append(o.CustomHeaders.Items, types.OriginCustomHeader{
			HeaderName:  awsv2.String(headers[i]),
			HeaderValue: awsv2.String(headers[i+1]),
		})
	}
	return o
}

func legacyDefault(target string) *types.DefaultCacheBehavior {
	return &types.DefaultCacheBehavior{
		TargetOriginId:       awsv2.String(target),
		ViewerProtocolPolicy: types.ViewerProtocolPolicyRedirectToHttps,
		AllowedMethods: &types.AllowedMethods{
			Items:    []types.Method{types.MethodGet, types.MethodHead},
			Quantity: awsv2.Int32(2),
		},
		DefaultTTL: awsv2.Int64(86400),
		MinTTL:     awsv2.Int64(0),
		MaxTTL:     awsv2.Int64(31536000),
		ForwardedValues: &types.ForwardedValues{
			Headers: &types.Headers{Items: []string{"Origin", "Accept"}, Quantity: awsv2.Int32(2)},
		},
	}
}

func pathBehavior(pattern, target, policy string) types.CacheBehavior {
	return types.CacheBehavior{
		PathPattern:          awsv2.String(pattern),
		TargetOriginId:       awsv2.String(target),
		ViewerProtocolPolicy: types.ViewerProtocolPolicyAllowAll,
		CachePolicyId:        awsv2.String(policy),
	}
}

// distribution E1 serves a public bucket with a legacy default behavior and a
// path behavior already on the CORS policy. E2 serves a private bucket and
// an app origin. E3 serves a public website bucket.
func fixtures() map[string]*types.DistributionConfig {
	return map[string]*types.DistributionConfig{
		"E1": {
			Aliases:              &types.Aliases{Items: []string{"models.concord.org", "m.concord.org"}, Quantity: awsv2.Int32(2)},
			Origins:              &types.Origins{Items: []types.Origin{origin("s3-models", publicOrigin)}, Quantity: awsv2.Int32(1)},
			DefaultCacheBehavior: legacyDefault("s3-models"),
			CacheBehaviors: &types.CacheBehaviors{
				Items:    []types.CacheBehavior{pathBehavior("/branch/*", "s3-models", S3CorsPolicyID)},
				Quantity: awsv2.Int32(1),
			},
		},
		"E2": {
			Aliases: &types.Aliases{Quantity: awsv2.Int32(0)},
			Origins: &types.Origins{Items: []types.Origin{
				origin("s3-private", privateOrigin),
				origin("app", appOrigin),
			}, Quantity: awsv2.Int32(2)},
			DefaultCacheBehavior: legacyDefault("s3-private"),
			CacheBehaviors: &types.CacheBehaviors{
				Items:    []types.CacheBehavior{pathBehavior("/api/*", "app", "policy-app")},
				Quantity: awsv2.Int32(1),
			},
		},
		"E3": {
			Aliases:              &types.Aliases{Items: []string{"lab.concord.org"}, Quantity: awsv2.Int32(1)},
			Origins:              &types.Origins{Items: []types.Origin{origin("s3-lab", websiteOrigin, "Origin", "https://concord.org")}, Quantity: awsv2.Int32(1)},
			DefaultCacheBehavior: legacyDefault("s3-lab"),
		},
	}
}

type fakeCF struct {
	configs  map[string]*types.DistributionConfig
	order    []string
	etag     int
	stale    map[string]int
	updated  map[string]*types.DistributionConfig
	ifMatch  map[string]string
	policies map[string]string
	policyN  int
	pages    int
	maxItems int32
}

func newFakeCF() *fakeCF {
	return &fakeCF{
		configs:  fixtures(),
		order:    []string{"E1", "E2", "E3"},
		stale:    map[string]int{},
		updated:  map[string]*types.DistributionConfig{},
		ifMatch:  map[string]string{},
		policies: map[string]string{S3CorsPolicyID: "Managed-CORS-S3Origin"},
	}
}

func (f *fakeCF) summary(id string) types.DistributionSummary {
	cfg := f.configs[id]
	return types.DistributionSummary{
		Id:                   awsv2.String(id),
		DomainName:           awsv2.String(id + ".cloudfront.net"),
		Aliases:              cfg.Aliases,
		Origins:              cfg.Origins,
		DefaultCacheBehavior: cfg.DefaultCacheBehavior,
		CacheBehaviors:       cfg.CacheBehaviors,
	}
}

// ListDistributions pages two distributions at a time.
func (f *fakeCF) ListDistributions(_ context.Context, in *cfv2.ListDistributionsInput, _ ...func(*cfv2.Options)) (*cfv2.ListDistributionsOutput, error) {
	f.pages++
	f.maxItems = awsv2.ToInt32(in.MaxItems)
	start := 0
	if in.Marker != nil {
		_, _ = fmt.Sscanf(*in.Marker, "%d", &start)
	}
	end := min(start+2, len(f.order))

	list := &types.DistributionList{
		Quantity:    awsv2.Int32(int32(end - start)),
		IsTruncated: awsv2.Bool(end < len(f.order)),
	}
	for _, id := range f.order[start:end] {
		list.Items = append(list.Items, f.summary(id))
	}
	if end < len(f.order) {
		list.NextMarker = awsv2.String(fmt.Sprint(end))
	}
	return &cfv2.ListDistributionsOutput{DistributionList: list}, nil
}

func (f *fakeCF) GetDistributionConfig(_ context.Context, in *cfv2.GetDistributionConfigInput, _ ...func(*cfv2.Options)) (*cfv2.GetDistributionConfigOutput, error) {
	cfg, ok := f.configs[*in.Id]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchDistribution"}
	}
	f.etag++
	// Hand out a copy so modifications only land through UpdateDistribution.
	fresh := fixtures()[*in.Id]
	if fresh == nil {
		fresh = cfg
	}
	return &cfv2.GetDistributionConfigOutput{DistributionConfig: fresh, ETag: awsv2.String(fmt.Sprintf("etag-%d", f.etag))}, nil
}

func (f *fakeCF) UpdateDistribution(_ context.Context, in *cfv2.UpdateDistributionInput, _ ...func(*cfv2.Options)) (*cfv2.UpdateDistributionOutput, error) {
	id := *in.Id
	if f.stale[id] > 0 {
		f.stale[id]--
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed"}
	}
	f.updated[id] = in.DistributionConfig
	f.ifMatch[id] = awsv2.ToString(in.IfMatch)
	return &cfv2.UpdateDistributionOutput{}, nil
}

func (f *fakeCF) GetCachePolicy(_ context.Context, in *cfv2.GetCachePolicyInput, _ ...func(*cfv2.Options)) (*cfv2.GetCachePolicyOutput, error) {
	f.policyN++
	name, ok := f.policies[*in.Id]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchCachePolicy"}
	}
	return &cfv2.GetCachePolicyOutput{CachePolicy: &types.CachePolicy{
		Id:                awsv2.String(*in.Id),
		CachePolicyConfig: &types.CachePolicyConfig{Name: awsv2.String(name)},
	}}, nil
}

type fakeTags struct {
	tags  map[string]string
	calls map[string]int
}

func (f *fakeTags) GetBucketTagging(_ context.Context, in *s3v2.GetBucketTaggingInput, _ ...func(*s3v2.Options)) (*s3v2.GetBucketTaggingOutput, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[*in.Bucket]++
	bt, ok := f.tags[*in.Bucket]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "AccessDenied"}
	}
	return &s3v2.GetBucketTaggingOutput{TagSet: []s3types.Tag{
		{Key: awsv2.String("BucketType"), Value: awsv2.String(bt)},
	}}, nil
}

func newTags() *fakeTags {
	return &fakeTags{tags: map[string]string{
		"models-resources": "public",
		"lab.concord.org":  "public-custom-cors",
	}}
}

func TestBucketName(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{domain: "interactions-resources.s3.amazonaws.com", want: "interactions-resources"},
		{domain: "learn-resources.s3-website-us-east-1.amazonaws.com", want: "learn-resources"},
		{domain: "lab-framework.concord.org.s3-website-us-east-1.amazonaws.com", want: "lab-framework.concord.org"},
		{domain: "app.concord.org", want: ""},
		{domain: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketName(tt.domain))
		})
	}
}

func TestListBehaviors(t *testing.T) {
	f := newFakeCF()
	records, err := ListBehaviors(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 2, f.pages)
	assert.EqualValues(t, pageSize, f.maxItems)
	require.Len(t, records, 5)

	def := records[0]
	assert.Equal(t, "E1", def.Id)
	assert.Equal(t, "E1.cloudfront.net", def.DomainName)
	assert.Equal(t, "models.concord.org, m.concord.org", def.Aliases)
	assert.Empty(t, def.PathPattern)
	assert.Equal(t, publicOrigin, def.OriginDomainName)
	assert.Equal(t, "models-resources", def.BucketName)
	assert.Equal(t, "redirect-to-https", def.ViewerProtocolPolicy)
	assert.Equal(t, "GET, HEAD", def.AllowedMethods)
	assert.Equal(t, "Origin, Accept", def.WhitelistedHeaders)
	assert.Contains(t, def.RawBehavior, `"TargetOriginId": "s3-models"`)
	assert.Contains(t, def.RawOrigin, publicOrigin)

	path := records[1]
	assert.Equal(t, "/branch/*", path.PathPattern)
	assert.Equal(t, S3CorsPolicyID, path.CachePolicyId)

	app := records[3]
	assert.Equal(t, "E2", app.Id)
	assert.Equal(t, appOrigin, app.OriginDomainName)
	assert.Empty(t, app.BucketName)

	lab := records[4]
	assert.Equal(t, "Origin: https://concord.org", lab.OriginCustomHeaders)
	assert.Equal(t, "lab.concord.org", lab.BucketName)
}

func TestEnrich(t *testing.T) {
	t.Setenv("CLOUDOPS_CACHE_DIR", t.TempDir())

	f := newFakeCF()
	records, err := ListBehaviors(context.Background(), f)
	require.NoError(t, err)

	tg := newTags()
	known := EnrichBucketTypes(context.Background(), tg, records)

	assert.Equal(t, BucketTypes{"models-resources": "public", "lab.concord.org": "public-custom-cors"}, known)
	assert.Equal(t, "public", records[0].BucketType)
	assert.Equal(t, "public", records[1].BucketType)
	assert.Equal(t, ErrorFetching, records[2].BucketType)
	assert.Empty(t, records[3].BucketType)
	assert.Equal(t, 1, tg.calls["models-resources"], "tags are read once per bucket")
	assert.Equal(t, 1, tg.calls["cc-private"])

	store := cacheutil.New(0, "cloudfront", "cache-policies")
	EnrichCachePolicyNames(context.Background(), f, store, records)
	assert.Equal(t, "Managed-CORS-S3Origin", records[1].CachePolicyName)
	assert.Equal(t, ErrorFetching, records[3].CachePolicyName)
	assert.Empty(t, records[0].CachePolicyName)
	assert.Equal(t, 2, f.policyN)

	// A second pass is served from the cache for names that resolved.
	EnrichCachePolicyNames(context.Background(), f, store, records)
	assert.Equal(t, 3, f.policyN)
}

func TestCandidates(t *testing.T) {
	records := []BehaviorRecord{
		{Id: "E1", BucketType: "public"},
		{Id: "E1", BucketType: "public", CachePolicyId: S3CorsPolicyID},
		{Id: "E2", BucketType: "private"},
		{Id: "E3", BucketType: "public-custom-cors", CachePolicyId: S3Cors1PolicyID, OriginCustomHeaders: "Origin: https://concord.org"},
		{Id: "E4", BucketType: "public-custom-cors", OriginCustomHeaders: "X-Test: 1"},
		{Id: "E5", BucketType: ErrorFetching},
	}

	assert.Equal(t, []string{"E1", "E4"}, CorsCandidates(records, PublicBucketTypes, CorsPolicyIDs))
	assert.Equal(t, []string{"E1", "E4"}, OriginHeaderCandidates(records, PublicBucketTypes))
}

func TestCorsPolicy_Modify(t *testing.T) {
	known := BucketTypes{"models-resources": "public", "cc-private": "private"}
	m := CorsPolicy{
		PolicyID: S3CorsPolicyID,
		Known:    CorsPolicyIDs,
		IsPublic: PublicCheckFor(known, PublicBucketTypes),
	}

	cfg := fixtures()["E1"]
	assert.True(t, m.Modify(cfg))
	d := cfg.DefaultCacheBehavior
	assert.Equal(t, S3CorsPolicyID, awsv2.ToString(d.CachePolicyId))
	assert.Nil(t, d.DefaultTTL)
	assert.Nil(t, d.MinTTL)
	assert.Nil(t, d.MaxTTL)
	assert.Nil(t, d.ForwardedValues)

	assert.False(t, m.Modify(cfg), "second pass changes nothing")
	assert.False(t, m.Modify(fixtures()["E2"]), "private buckets are left alone")

	forced := CorsPolicy{PolicyID: S3Cors1PolicyID, Force: true}
	cfg = fixtures()["E2"]
	assert.True(t, forced.Modify(cfg))
	assert.Equal(t, S3Cors1PolicyID, awsv2.ToString(cfg.DefaultCacheBehavior.CachePolicyId))
	assert.Equal(t, S3Cors1PolicyID, awsv2.ToString(cfg.CacheBehaviors.Items[0].CachePolicyId))
}

func TestOriginHeader_Modify(t *testing.T) {
	known := BucketTypes{"models-resources": "public", "lab.concord.org": "public"}
	m := OriginHeader{IsPublic: PublicCheckFor(known, PublicBucketTypes)}

	cfg := fixtures()["E1"]
	assert.True(t, m.Modify(cfg))
	h := cfg.Origins.Items[0].CustomHeaders
	require.Len(t, h.Items, 1)
	assert.Equal(t, "Origin", awsv2.ToString(h.Items[0].HeaderName))
	assert.Equal(t, DefaultOriginHeaderValue, awsv2.ToString(h.Items[0].HeaderValue))
	assert.Equal(t, int32(1), awsv2.ToInt32(h.Quantity))

	assert.False(t, m.Modify(fixtures()["E3"]), "existing header is kept")
	assert.False(t, m.Modify(fixtures()["E2"]), "non public origins are skipped")

	forced := OriginHeader{Value: "https://example.org", Force: true}
	cfg = fixtures()["E2"]
	assert.True(t, forced.Modify(cfg))
	for _, o := range cfg.Origins.Items {
		assert.Equal(t, "https://example.org", awsv2.ToString(o.CustomHeaders.Items[0].HeaderValue))
	}
}

func TestUpdater_Run(t *testing.T) {
	known := BucketTypes{"models-resources": "public", "lab.concord.org": "public"}
	modifier := CorsPolicy{
		PolicyID: S3CorsPolicyID,
		Known:    CorsPolicyIDs,
		IsPublic: PublicCheckFor(known, PublicBucketTypes),
	}

	tests := []struct {
		name        string
		ids         []string
		apply       bool
		stale       map[string]int
		wantSummary util.Summary
		wantUpdated []string
	}{
		{
			name:        "apply",
			ids:         []string{"E1", "E2", "E3"},
			apply:       true,
			wantSummary: util.Summary{Updated: 2, Skipped: 1},
			wantUpdated: []string{"E1", "E3"},
		},
		{
			name:        "dry run",
			ids:         []string{"E1", "E3"},
			wantSummary: util.Summary{Skipped: 2},
		},
		{
			name:        "stale etag retried",
			ids:         []string{"E1"},
			apply:       true,
			stale:       map[string]int{"E1": 2},
			wantSummary: util.Summary{Updated: 1},
			wantUpdated: []string{"E1"},
		},
		{
			name:        "stale etag gives up",
			ids:         []string{"E1", "E3"},
			apply:       true,
			stale:       map[string]int{"E1": 3},
			wantSummary: util.Summary{Updated: 1, Failed: 1},
			wantUpdated: []string{"E3"},
		},
		{
			name:        "unknown distribution",
			ids:         []string{"E9", "E1"},
			apply:       true,
			wantSummary: util.Summary{Updated: 1, Failed: 1},
			wantUpdated: []string{"E1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeCF()
			if tt.stale != nil {
				f.stale = tt.stale
			}

			u := &Updater{API: f, Limiter: NewLimiter(0), Apply: tt.apply, Retries: DefaultRetries}
			summary := u.Run(context.Background(), tt.ids, modifier)
			assert.Equal(t, tt.wantSummary, summary)

			var updated []string
			for id, cfg := range f.updated {
				updated = append(updated, id)
				assert.Equal(t, S3CorsPolicyID, awsv2.ToString(cfg.DefaultCacheBehavior.CachePolicyId))
				assert.NotEmpty(t, f.ifMatch[id])
			}
			assert.ElementsMatch(t, tt.wantUpdated, updated)
		})
	}
}

func TestUpdater_Diff(t *testing.T) {
	var buf bytes.Buffer
	u := &Updater{API: newFakeCF(), Diff: &buf}
	modifier := CorsPolicy{PolicyID: S3Cors1PolicyID, Force: true}

	summary := u.Run(context.Background(), []string{"E1"}, modifier)
	assert.Equal(t, util.Summary{Skipped: 1}, summary)
	assert.Contains(t, buf.String(), "--- E1")
	assert.Contains(t, buf.String(), S3Cors1PolicyID)
}
