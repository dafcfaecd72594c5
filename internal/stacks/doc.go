// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package stacks saves CloudFormation stack parameters to parameter set files
// and creates new stacks from an existing stack's parameters.
package stacks
