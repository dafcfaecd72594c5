// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package command defines the CLI command set for cloudops. It wires flags,
// validators, actions, and shell completion for the bucket, cf, stack, logs,
// env and whoami command groups.
package command
