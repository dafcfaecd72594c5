// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package picker is a small terminal autocomplete list used when a command
// needs the user to choose a stack or parameter file.
package picker
