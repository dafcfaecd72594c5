// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package distributions lists CloudFront cache behaviors and rewrites
// distribution configs in bulk.
//
// Updates read the config together with its ETag and send the ETag back as
// IfMatch, so a config changed by someone else in between is rejected by
// CloudFront instead of overwritten. Such rejections are retried from a fresh
// read. Writes are paced with a rate limiter to stay clear of CloudFront's
// throttling.
package distributions
