// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package attrs parses --attrs column specs of the form key:title:transform
// and applies value transforms (local time, time ago, case, length).
package attrs
