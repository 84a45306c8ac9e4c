// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings wraps every validation failure from Load.
var ErrInvalidSettings = errors.New("invalid settings")

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultPath returns the standard settings location, ~/.lexguard/lexguard.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".lexguard", "lexguard.yaml"), nil
}

// Load reads the settings file, creating it with defaults on first run.
//
// Inputs:
//
//	path - Settings file location. Empty means DefaultPath().
//
// Outputs:
//
//	Settings - The parsed and validated settings, with ~ expanded in
//	           every path field.
//	error - Non-nil when the file cannot be created or read, is not
//	        valid YAML, or fails validation (wraps ErrInvalidSettings).
func Load(path string) (Settings, error) {
	var err error
	if path == "" {
		if path, err = DefaultPath(); err != nil {
			return Settings{}, err
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return Settings{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates raw YAML settings.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}

	if err := validate.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("%w: %s", ErrInvalidSettings, err.Error())
	}

	if err := s.expandPaths(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// expandPaths resolves ~ in every filesystem path field.
func (s *Settings) expandPaths() error {
	for _, p := range []*string{
		&s.Logging.Dir,
		&s.Stores.BadgerPath,
		&s.Queues.ReviewPath,
		&s.Queues.EvalPath,
	} {
		expanded, err := expandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
