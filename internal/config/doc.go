// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package config provides loading and typed accessors for cloudops' user
// configuration. The configuration is a YAML document located in the user's
// configuration directory, typically:
//   - Linux/macOS: $XDG_CONFIG_HOME/cloudops.yaml or $HOME/.config/cloudops.yaml
//   - Windows: %APPDATA%/cloudops.yaml
//
// CLOUDOPS_CFG_FILE overrides the location.
package config
