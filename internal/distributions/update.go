// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package distributions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	cfv2 "github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"golang.org/x/time/rate"

	awsx "github.com/concord-consortium/cloudops/internal/aws"
	"github.com/concord-consortium/cloudops/internal/differ"
	"github.com/concord-consortium/cloudops/internal/util"
)

const (
	// DefaultDelay spaces consecutive UpdateDistribution calls.
	DefaultDelay = 3 * time.Second
	// DefaultRetries is how often a stale ETag is re-read and re-applied.
	DefaultRetries = 2

	preconditionFailed = "PreconditionFailed"
)

// errStale is returned by updateOne when every attempt hit a stale ETag.
var errStale = errors.New("distribution config changed while updating")

// Updater applies a Modifier to distributions, one at a time.
type Updater struct {
	API API
	// Limiter paces writes. nil means no pacing.
	Limiter *rate.Limiter
	Apply   bool
	Retries int
	// Diff receives a delta of each changed config when not nil.
	Diff     io.Writer
	Coloring bool
}

// NewLimiter allows one update per delay.
func NewLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Run modifies every distribution in ids. A failing distribution is logged
// and counted; the rest are still processed.
func (u *Updater) Run(ctx context.Context, ids []string, m Modifier) util.Summary {
	var summary util.Summary

	for _, id := range ids {
		logger := log.WithField("distribution", id)

		changed, err := u.updateOne(ctx, id, m)
		switch {
		case err != nil:
			logger.WithError(err).Error("update failed")
			summary.Failed++
		case !changed:
			logger.Info("nothing to change")
			summary.Skipped++
		case !u.Apply:
			logger.Info("would update")
			summary.Skipped++
		default:
			logger.Info("updated")
			summary.Updated++
		}

		if ctx.Err() != nil {
			break
		}
	}

	return summary
}

// updateOne reads, modifies and writes a single distribution config. A
// PreconditionFailed write re-reads the config and tries again.
func (u *Updater) updateOne(ctx context.Context, id string, m Modifier) (bool, error) {
	retries := u.Retries
	if retries < 0 {
		retries = 0
	}

	for attempt := 0; attempt <= retries; attempt++ {
		out, err := u.API.GetDistributionConfig(ctx, &cfv2.GetDistributionConfigInput{Id: awsv2.String(id)})
		if err != nil {
			return false, fmt.Errorf("failed to get distribution config: %w", err)
		}
		cfg := out.DistributionConfig
		if cfg == nil {
			return false, fmt.Errorf("distribution %s has no config", id)
		}

		log.Infof("updating distribution %s aliases %s", id, aliases(cfg.Aliases))

		before, err := json.Marshal(cfg)
		if err != nil {
			return false, fmt.Errorf("failed to marshal config: %w", err)
		}

		if !m.Modify(cfg) {
			return false, nil
		}

		if u.Diff != nil && attempt == 0 {
			fmt.Fprintf(u.Diff, "--- %s\n", id)
			if _, err := differ.DiffValues(u.Diff, json.RawMessage(before), cfg, u.Coloring); err != nil {
				log.WithError(err).Warn("failed to render diff")
			}
		}

		if !u.Apply {
			return true, nil
		}

		if u.Limiter != nil {
			if err := u.Limiter.Wait(ctx); err != nil {
				return false, err
			}
		}

		// The ETag ties the write to the config that was just read.
		_, err = u.API.UpdateDistribution(ctx, &cfv2.UpdateDistributionInput{
			Id:                 awsv2.String(id),
			IfMatch:            out.ETag,
			DistributionConfig: cfg,
		})
		if err == nil {
			return true, nil
		}
		if !awsx.IsErrorCode(err, preconditionFailed) {
			return false, fmt.Errorf("failed to update distribution: %w", err)
		}
		log.WithField("attempt", attempt+1).Warnf("stale config for %s, retrying", id)
	}

	return false, errStale
}
