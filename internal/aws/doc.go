// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package aws builds AWS SDK v2 configuration and service clients shared by
// every command, and classifies AWS API errors.
package aws
