// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package stacks

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultParamSetDir holds saved parameter sets.
const DefaultParamSetDir = "param-sets"

// ErrMissingParameters means the template declares parameters the new stack
// would not receive.
var ErrMissingParameters = errors.New("Template has parameters that are not defined") //nolint:staticcheck

// ModifyParams returns original with modifications merged in. Parameters that
// already exist keep their position and take the modified value; the rest of
// modifications are appended sorted by key. original is not changed.
func ModifyParams(original []Parameter, modifications map[string]string) []Parameter {
	remaining := make(map[string]string, len(modifications))
	for k, v := range modifications {
		remaining[k] = v
	}

	modified := make([]Parameter, 0, len(original)+len(modifications))
	for _, p := range original {
		if v, ok := remaining[p.ParameterKey]; ok {
			p.ParameterValue = v
			delete(remaining, p.ParameterKey)
		}
		modified = append(modified, p)
	}

	keys := make([]string, 0, len(remaining))
	for k := range remaining {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		modified = append(modified, Parameter{ParameterKey: k, ParameterValue: remaining[k]})
	}

	return modified
}

// TemplateParameterKeys returns the keys of a template's Parameters section
// in document order. The template may be JSON or YAML, including
// CloudFormation short form tags such as !Ref.
func TemplateParameterKeys(body []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("template is not a mapping")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "Parameters" {
			continue
		}
		section := root.Content[i+1]
		if section.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("template Parameters is not a mapping")
		}
		keys := make([]string, 0, len(section.Content)/2)
		for j := 0; j+1 < len(section.Content); j += 2 {
			keys = append(keys, section.Content[j].Value)
		}
		return keys, nil
	}

	return nil, nil
}

// FilterBasedOnTemplate checks params against the template's parameter keys.
// Every template parameter must be defined, otherwise ErrMissingParameters is
// returned after all missing ones are reported. Defined parameters the
// template does not know are removed.
func FilterBasedOnTemplate(w io.Writer, templateKeys []string, params []Parameter) ([]Parameter, error) {
	defined := make([]string, 0, len(params))
	for _, p := range params {
		defined = append(defined, p.ParameterKey)
	}

	missing := false
	for _, k := range templateKeys {
		if !slices.Contains(defined, k) {
			fmt.Fprintf(w, "missing param: %s\n", k)
			missing = true
		}
	}
	if missing {
		return nil, ErrMissingParameters
	}

	fmt.Fprintln(w, "=== Filtering parameters ===")
	filtered := make([]Parameter, 0, len(params))
	for _, p := range params {
		if slices.Contains(templateKeys, p.ParameterKey) {
			filtered = append(filtered, p)
		} else {
			fmt.Fprintf(w, "removing param: %s\n", p.ParameterKey)
		}
	}
	return filtered, nil
}

// WriteParams saves params as YAML to dir/file.
func WriteParams(dir, file string, params []Parameter) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := yaml.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal parameters: %w", err)
	}

	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:mnd,gosec
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ReadParams loads a parameter set from dir/file.
func ReadParams(dir, file string) ([]Parameter, error) {
	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return nil, err
	}

	var params []Parameter
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	return params, nil
}

// ListParamFiles returns the .yml files in dir, sorted.
func ListParamFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yml") {
			files = append(files, e.Name())
		}
	}
	return files, nil
}

// DefaultParamFile is the file name offered when saving stackName.
func DefaultParamFile(stackName string) string {
	return stackName + "-params.yml"
}
