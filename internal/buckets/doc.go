// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package buckets inventories S3 buckets and applies bulk tag and CORS
// changes to them.
package buckets
