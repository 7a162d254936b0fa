// Copyright 2016 Qubit Digital Ltd.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the settings of the lsfindex command, loaded from a
// YAML file.
package config

import (
	"io"
	"os"
	"runtime"

	"github.com/QubitProducts/lsfindex/relabel"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Output formats understood by the CLI.
const (
	FormatText     = "text"
	FormatJSON     = "jsonl"
	FormatLogfmt   = "logfmt"
	FormatTemplate = "template"
	FormatNone     = "none"
)

// Output configures how exported records are written.
type Output struct {
	Format   string   `yaml:"format"`
	Template string   `yaml:"template"`
	Labels   []string `yaml:"labels"`
}

// Config is the CLI configuration.
type Config struct {
	// Schema is the global schema file, used for logs without a schema
	// file alongside them.
	Schema string `yaml:"schema"`

	// Names is a directory file of system and entity names.
	Names      string `yaml:"names"`
	WatchNames bool   `yaml:"watch_names"`

	Cache         bool `yaml:"cache"`
	Announcements bool `yaml:"announcements"`
	Parallelism   int  `yaml:"parallelism"`

	Output  Output         `yaml:"output"`
	Relabel relabel.Config `yaml:"relabel"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Cache:         true,
		Announcements: true,
		Parallelism:   runtime.NumCPU(),
		Output: Output{
			Format: FormatText,
		},
	}
}

// Load reads a configuration, applying it over the defaults. Unknown keys
// are an error.
func Load(r io.Reader) (*Config, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.UnmarshalStrict(bs, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the configuration in fn.
func LoadFile(fn string) (*Config, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", fn)
	}
	glog.V(1).Infof("loaded config %s", fn)
	return cfg, nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Parallelism < 1 {
		return errors.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	switch c.Output.Format {
	case FormatText, FormatJSON, FormatLogfmt, FormatNone:
	case FormatTemplate:
		if c.Output.Template == "" {
			return errors.New("template output needs a template")
		}
	default:
		return errors.Errorf("unknown output format %q", c.Output.Format)
	}
	return c.Relabel.Validate()
}
