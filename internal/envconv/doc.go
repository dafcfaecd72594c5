// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package envconv turns a docker-compose style environment definition into
// the Name/Value list a CloudFormation task definition expects.
package envconv
