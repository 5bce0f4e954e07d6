// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package colorpolicy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of config.yaml.
type fileConfig struct {
	Colors map[string]string `yaml:"colors"`
}

// EnsureDefault writes the default config to path unless a file already
// exists there. It reports whether a file was created.
func EnsureDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat color config: %w", err)
	}

	data, err := marshalDefault()
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create color config: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return false, fmt.Errorf("write color config: %w", err)
	}
	return true, nil
}

// WriteDefault overwrites path with the default config.
func WriteDefault(path string) error {
	data, err := marshalDefault()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write color config: %w", err)
	}
	return nil
}

// Load reads and validates the config at path. It never writes.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read color config: %w", err)
	}
	return Parse(data)
}

// Parse validates a config document.
func Parse(data []byte) (Policy, error) {
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Policy{}, errors.New("color config is empty")
		}
		return Policy{}, fmt.Errorf("parse color config: %w", err)
	}
	if cfg.Colors == nil {
		return Policy{}, errors.New("color config has no colors section")
	}

	envs := make([]string, 0, len(cfg.Colors))
	for env := range cfg.Colors {
		envs = append(envs, env)
	}
	sort.Strings(envs)

	colors := make(map[string]Color, len(cfg.Colors))
	for _, env := range envs {
		c, ok := ParseColor(cfg.Colors[env])
		if !ok {
			return Policy{}, fmt.Errorf("colors.%s: unsupported color %q (available: %s)",
				env, cfg.Colors[env], strings.Join(Available(), ", "))
		}
		colors[env] = c
	}
	return New(colors), nil
}

// LoadOrDefault loads path, falling back to Default with a warning on any
// error.
func LoadOrDefault(path string, log *slog.Logger) Policy {
	p, err := Load(path)
	if err != nil {
		log.Warn("Failed to load color map from config file, using default one", "path", path, "error", err)
		return Default()
	}
	return p
}

func marshalDefault() ([]byte, error) {
	colors := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range defaultEntries {
		colors.Content = append(colors.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.env},
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(e.color)},
		)
	}

	key := &yaml.Node{
		Kind:        yaml.ScalarNode,
		Value:       "colors",
		HeadComment: "# env-status color config\n# available colors: " + strings.Join(Available(), ", "),
	}
	doc := &yaml.Node{
		Kind: yaml.DocumentNode,
		Content: []*yaml.Node{{
			Kind:    yaml.MappingNode,
			Content: []*yaml.Node{key, colors},
		}},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode default color config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode default color config: %w", err)
	}
	return buf.Bytes(), nil
}
