// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package envconv

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the environment definition read when none is named.
const DefaultFile = "environment.yml"

// ErrUnsupportedShape is returned for documents that are neither a mapping
// nor a sequence of KEY=value strings.
var ErrUnsupportedShape = errors.New("environment must be a mapping or a list of KEY=value")

// Variable is one task definition environment entry. Value keeps the YAML
// scalar as written so numbers and booleans stay unquoted.
type Variable struct {
	Name  string     `yaml:"Name"`
	Value *yaml.Node `yaml:"Value"`
}

// Read parses an environment definition in either docker-compose form,
// preserving input order.
func Read(r io.Reader) ([]Variable, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	var vars []Variable
	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			vars = append(vars, Variable{Name: root.Content[i].Value, Value: root.Content[i+1]})
		}
	case yaml.SequenceNode:
		for _, item := range root.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: %w", item.Line, ErrUnsupportedShape)
			}
			name, value, _ := strings.Cut(item.Value, "=")
			vars = append(vars, Variable{
				Name:  name,
				Value: &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
			})
		}
	default:
		return nil, ErrUnsupportedShape
	}

	return vars, nil
}

// Write emits vars as a YAML list of Name/Value pairs.
func Write(w io.Writer, vars []Variable) error {
	if vars == nil {
		vars = []Variable{}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) //nolint:mnd
	if err := enc.Encode(vars); err != nil {
		return fmt.Errorf("failed to write environment: %w", err)
	}
	return enc.Close()
}

// Convert reads an environment definition from r and writes the task
// definition form to w.
func Convert(r io.Reader, w io.Writer) error {
	vars, err := Read(r)
	if err != nil {
		return err
	}
	return Write(w, vars)
}
