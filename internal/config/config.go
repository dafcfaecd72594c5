// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

// EnvFile names the environment variable holding an explicit config file path.
const EnvFile = "CLOUDOPS_CFG_FILE"

// fileName is looked up in os.UserConfigDir when EnvFile is not set.
const fileName = "cloudops.yaml"

// Type is the loaded configuration. Namespace, usually the command group,
// makes getters try "<Namespace>.<key>" before "<key>".
type Type struct {
	Source    string
	Namespace string
	Data      map[string]interface{}
}

// Config is the process wide configuration, loaded lazily.
var Config Type

// A missing or broken config file is not fatal; flags and defaults apply.
func init() {
	_, _ = Load()
}

// Load reads the config file into Config, recording namespace when given.
func Load(namespace ...string) (Type, error) {
	ns := ""
	if len(namespace) > 0 {
		ns = namespace[0]
	}

	path, err := getConfigFile()
	if err != nil {
		return Type{Namespace: ns}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Type{Namespace: ns}, err
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Type{Namespace: ns}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	Config = Type{Source: path, Namespace: ns, Data: data}
	return Config, nil
}

// value looks key up and converts it. A missing key yields the single
// default when one is given; a present value that does not convert is always
// an error.
func value[T any](key string, convert func(any) (T, error), defaults []T) (T, error) {
	var zero T

	raw, err := lookup(key)
	if err != nil {
		if len(defaults) == 1 {
			return defaults[0], nil
		}
		return zero, err
	}

	v, err := convert(raw)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// GetInt returns the integer at the dotted key path.
func GetInt(key string, defaultValue ...int) (int, error) {
	return value(key, toInt, defaultValue)
}

// GetString returns the string at the dotted key path.
func GetString(key string, defaultValue ...string) (string, error) {
	return value(key, toString, defaultValue)
}

// GetStringSlice returns the list of strings at the dotted key path.
func GetStringSlice(key string, defaultValue ...[]string) ([]string, error) {
	return value(key, toStringSlice, defaultValue)
}

// GetStringMap returns the scalar values under the dotted key path, rendered
// with %v.
func GetStringMap(key string, defaultValue ...map[string]string) (map[string]string, error) {
	return value(key, toStringMap, defaultValue)
}

// YAML numbers may decode as int or float64 depending on content.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, errors.New("value is not an int")
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("value is not a string")
	}
	return s, nil
}

func toStringSlice(v any) ([]string, error) {
	switch s := v.(type) {
	case []string:
		return s, nil
	case []interface{}:
		out := make([]string, len(s))
		for i, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, errors.New("slice element is not a string")
			}
			out[i] = str
		}
		return out, nil
	}
	return nil, errors.New("value is not a slice")
}

func toStringMap(v any) (map[string]string, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.New("value is not a map")
	}

	out := make(map[string]string, len(m))
	for k, item := range m {
		switch item.(type) {
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("value for %s is not a scalar", k)
		}
		out[k] = fmt.Sprintf("%v", item)
	}
	return out, nil
}

// lookup resolves key against Config, loading it first when empty.
func lookup(key string) (any, error) {
	if len(Config.Data) == 0 {
		_, _ = Load(Config.Namespace)
	}
	return Config.get(key)
}

// get walks the tree along a dotted key, trying the namespaced key first.
func (cfg *Type) get(kspec string) (any, error) {
	candidates := []string{kspec}
	if cfg.Namespace != "" {
		candidates = []string{cfg.Namespace + "." + kspec, kspec}
	}

	for _, key := range candidates {
		if v, ok := walk(cfg.Data, strings.Split(key, ".")); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no valid path found among: %v", candidates)
}

func walk(node any, path []string) (any, bool) {
	for _, k := range path {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if node, ok = m[k]; !ok {
			return nil, false
		}
	}
	return node, true
}

// getConfigFile returns the config file path: EnvFile when set, which must
// then exist, otherwise cloudops.yaml in os.UserConfigDir.
func getConfigFile() (string, error) {
	if cfgPath := os.Getenv(EnvFile); cfgPath != "" {
		info, err := os.Stat(cfgPath)
		switch {
		case err != nil:
			return "", fmt.Errorf("config file not found at %s path: %s", EnvFile, cfgPath)
		case info.IsDir():
			return "", fmt.Errorf("%s points to a directory: %s", EnvFile, cfgPath)
		}
		log.Debugf("using config file from %s: %s", EnvFile, cfgPath)
		return cfgPath, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	file := filepath.Join(dir, fileName)
	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		log.Debugf("using config file: %s", file)
		return file, nil
	}
	return "", errors.New("no config file found in standard locations")
}

// File returns the config file path or "" when there is none. Flag sources
// are wired to it.
func File() string {
	path, err := getConfigFile()
	if err != nil {
		return ""
	}
	return path
}
