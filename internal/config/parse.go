// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

const hclExt = ".hcl"

var (
	// ErrInvalidDocument is returned when the file cannot be decoded.
	ErrInvalidDocument = errors.New("invalid configuration document")
	// ErrInvalidTimeout is returned when timeout is not a Go duration string.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// document mirrors the file layout. Pointers tell an absent key from a zero value,
// so that only keys present in the file override the defaults.
type document struct {
	Directories *[]string `yaml:"directories"`
	Ignore      *[]string `yaml:"ignore"`
	Verbose     *bool     `yaml:"verbose"`
	Silent      *bool     `yaml:"silent"`
	Parallel    *bool     `yaml:"parallel"`
	Timeout     *string   `yaml:"timeout,omitempty"`
	MaxParallel *int      `yaml:"max_parallel"`
	FailFast    *bool     `yaml:"fail_fast"`
}

// Parse decodes data read from path. The extension selects the format.
// Any failure is a *ConfigError naming path.
func Parse(path string, data []byte) (Config, error) {
	var (
		doc document
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case hclExt:
		doc, err = decodeHCL(path, data)
	default:
		doc, err = decodeYAML(data)
	}

	if err != nil {
		return Config{}, &ConfigError{Path: path, Err: errors.Join(ErrInvalidDocument, err)}
	}

	cfg, err := doc.apply(Default())
	if err != nil {
		return Config{}, &ConfigError{Path: path, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, &ConfigError{Path: path, Err: err}
	}

	return cfg, nil
}

func decodeYAML(data []byte) (document, error) {
	var doc document

	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, err //nolint:wrapcheck
	}

	return doc, nil
}

func decodeHCL(path string, data []byte) (document, error) {
	var doc document

	file, diags := hclsyntax.ParseConfig(data, path, hcl.InitialPos)
	if diags.HasErrors() {
		return doc, multierror.Append(nil, diags.Errs()...)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return doc, multierror.Append(nil, diags.Errs()...)
	}

	evalCtx := envEvalContext()

	var err error

	for name, attr := range attrs {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			err = multierror.Append(err, diags.Errs()...)
			continue
		}

		if decodeErr := doc.setHCL(name, val); decodeErr != nil {
			err = multierror.Append(err, fmt.Errorf("%s: %w", attr.NameRange, decodeErr))
		}
	}

	return doc, err
}

// setHCL assigns a single evaluated attribute. Unknown names are ignored.
func (d *document) setHCL(name string, val cty.Value) error {
	switch name {
	case "directories":
		d.Directories = new([]string)
		return fromCty(val, cty.List(cty.String), d.Directories)
	case "ignore":
		d.Ignore = new([]string)
		return fromCty(val, cty.List(cty.String), d.Ignore)
	case "verbose":
		d.Verbose = new(bool)
		return fromCty(val, cty.Bool, d.Verbose)
	case "silent":
		d.Silent = new(bool)
		return fromCty(val, cty.Bool, d.Silent)
	case "parallel":
		d.Parallel = new(bool)
		return fromCty(val, cty.Bool, d.Parallel)
	case "fail_fast":
		d.FailFast = new(bool)
		return fromCty(val, cty.Bool, d.FailFast)
	case "timeout":
		d.Timeout = new(string)
		return fromCty(val, cty.String, d.Timeout)
	case "max_parallel":
		d.MaxParallel = new(int)
		return fromCty(val, cty.Number, d.MaxParallel)
	}

	return nil
}

func fromCty(val cty.Value, want cty.Type, target any) error {
	if val.IsNull() {
		return errors.New("value must not be null")
	}

	converted, err := convert.Convert(val, want)
	if err != nil {
		return err //nolint:wrapcheck
	}

	return gocty.FromCtyValue(converted, target) //nolint:wrapcheck
}

// envEvalContext exposes the process environment to HCL as env.NAME.
func envEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}

		vars[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

func (d document) apply(cfg Config) (Config, error) {
	if d.Directories != nil {
		cfg.Directories = *d.Directories
	}

	if d.Ignore != nil {
		cfg.Ignore = *d.Ignore
	}

	if d.Verbose != nil {
		cfg.Verbose = *d.Verbose
	}

	if d.Silent != nil {
		cfg.Silent = *d.Silent
	}

	if d.Parallel != nil {
		cfg.Parallel = *d.Parallel
	}

	if d.FailFast != nil {
		cfg.FailFast = *d.FailFast
	}

	if d.MaxParallel != nil {
		cfg.MaxParallel = *d.MaxParallel
	}

	if d.Timeout != nil && *d.Timeout != "" {
		t, err := time.ParseDuration(*d.Timeout)
		if err != nil {
			return cfg, errors.Join(ErrInvalidTimeout, err)
		}

		cfg.Timeout = t
	}

	if cfg.Directories == nil {
		cfg.Directories = []string{}
	}

	if cfg.Ignore == nil {
		cfg.Ignore = []string{}
	}

	return cfg, nil
}

// MarshalYAML renders the effective configuration in the file layout.
func (c Config) MarshalYAML() ([]byte, error) {
	doc := document{
		Directories: &c.Directories,
		Ignore:      &c.Ignore,
		Verbose:     &c.Verbose,
		Silent:      &c.Silent,
		Parallel:    &c.Parallel,
		FailFast:    &c.FailFast,
		MaxParallel: &c.MaxParallel,
	}

	if c.Timeout > 0 {
		s := c.Timeout.String()
		doc.Timeout = &s
	}

	return yaml.Marshal(doc) //nolint:wrapcheck
}
