// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package differ renders the delta between two JSON documents, such as a
// CloudFront distribution config before and after modification.
package differ
