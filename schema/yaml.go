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

package schema

import (
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

type yamlField struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Unit        string `yaml:"unit"`
	Length      int    `yaml:"length"`
	MessageType string `yaml:"message-type"`
}

type yamlMessage struct {
	ID     uint16      `yaml:"id"`
	Name   string      `yaml:"name"`
	Fields []yamlField `yaml:"fields"`
}

type yamlSchema struct {
	Version  string        `yaml:"version"`
	Messages []yamlMessage `yaml:"messages"`
}

// Load reads a YAML schema definition, for example:
//
//   version: "5.4"
//   messages:
//   - id: 350
//     name: EstimatedState
//     fields:
//     - {name: x, type: fp32_t, unit: m}
//     - {name: depth, type: fp32_t, unit: m}
//
// Unknown keys are rejected.
func Load(r io.Reader) (*Schema, error) {
	bs, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSchema, err.Error())
	}

	ys := yamlSchema{}
	if err := yaml.UnmarshalStrict(bs, &ys); err != nil {
		return nil, errors.Wrapf(ErrInvalidSchema, "parsing schema, %v", err)
	}

	entries := make([]Entry, 0, len(ys.Messages))
	for _, m := range ys.Messages {
		e := Entry{ID: m.ID, Name: m.Name}
		for _, yf := range m.Fields {
			k, err := ParseKind(yf.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "%s.%s", m.Name, yf.Name)
			}
			e.Fields = append(e.Fields, Field{
				Name:        yf.Name,
				Kind:        k,
				Unit:        yf.Unit,
				Length:      yf.Length,
				MessageType: yf.MessageType,
			})
		}
		entries = append(entries, e)
	}

	return New(ys.Version, entries...)
}

// LoadFile loads a schema from disk. Files ending in .gz are decompressed.
func LoadFile(fn string) (*Schema, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSchema, "opening %s, %v", fn, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(fn, ".gz") {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidSchema, "opening %s, %v", fn, err)
		}
		defer gzr.Close()
		r = gzr
	}

	s, err := Load(r)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", fn)
	}

	glog.V(1).Infof("Loaded schema %s version %q with %d types", fn, s.Version(), s.Len())
	return s, nil
}
