// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package parquetlog migrates the Parquet log archive of the log ingester
// buckets. Files under processed_logs/ are rewritten into
// processed_logs_with_id/ with a random id column added to every row and
// second-resolution timestamps converted to milliseconds. The package can
// also compare the two prefixes and rewrite individual missed files to local
// disk.
package parquetlog
