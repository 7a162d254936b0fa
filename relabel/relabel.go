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

// Package relabel rewrites and filters record labels using rules in the
// style of prometheus relabelling.
package relabel

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/common/model"
)

// Config is a collection of rules for updating the labels of a record.
type Config []*Rule

// Validate checks every rule can be applied.
func (rlc Config) Validate() error {
	for i, r := range rlc {
		if err := r.Validate(); err != nil {
			return errors.Wrapf(err, "relabel rule %d", i)
		}
	}
	return nil
}

// Relabel transforms the labels ls in place using the set of relabel rules.
// It returns false if the record should be dropped.
func (rlc Config) Relabel(ls map[string]string) bool {
	for _, r := range rlc {
		if !r.Relabel(ls) {
			return false
		}
	}
	return true
}

// Action names what a rule does with the labels it selects.
type Action string

// The supported rule actions.
const (
	ActionKeep      Action = "keep"
	ActionDrop      Action = "drop"
	ActionLabelKeep Action = "labelkeep"
	ActionLabelDrop Action = "labeldrop"
	ActionReplace   Action = "replace"
	ActionLabelMap  Action = "labelmap"
)

type actionFunc func(*Rule, map[string]string) bool

var actions = map[Action]actionFunc{
	ActionKeep:      (*Rule).applyKeep,
	ActionDrop:      (*Rule).applyDrop,
	ActionLabelKeep: (*Rule).applyLabelKeep,
	ActionLabelDrop: (*Rule).applyLabelDrop,
	ActionReplace:   (*Rule).applyReplace,
	ActionLabelMap:  (*Rule).applyLabelMap,
}

func (a *Action) set(s string) error {
	if _, ok := actions[Action(s)]; !ok {
		return errors.Errorf("unknown relabel action %q", s)
	}
	*a = Action(s)
	return nil
}

// UnmarshalYAML implements the yaml Unmarshaler interface, rejecting unknown
// actions.
func (a *Action) UnmarshalYAML(unmarshal func(interface{}) error) error {
	str := ""
	if err := unmarshal(&str); err != nil {
		return err
	}
	return a.set(str)
}

// UnmarshalJSON implements the json Unmarshaler interface, rejecting unknown
// actions.
func (a *Action) UnmarshalJSON(bs []byte) error {
	str := ""
	if err := json.Unmarshal(bs, &str); err != nil {
		return err
	}
	return a.set(str)
}

// Extra catches unknown Rule settings
type Extra map[string]interface{}

// Rule describes configuration for a rule to relabel a record.
type Rule struct {
	Action      Action      `json:"action" yaml:"action"`
	SrcLabels   []string    `json:"source_labels" yaml:"source_labels"`
	TargetLabel string      `json:"target_label" yaml:"target_label"`
	Regex       *JSONRegexp `json:"regex" yaml:"regex"`
	Replacement string      `json:"replacement" yaml:"replacement"`
	Separator   string      `json:"separator" yaml:"separator"`
	Extra       `json:"-" yaml:",omitempty,inline"`
}

func defaultRule() Rule {
	return Rule{
		Action:      ActionKeep,
		Regex:       &JSONRegexp{regexp.MustCompile("(.+)")},
		Replacement: "$1",
		SrcLabels:   []string{"type"},
		TargetLabel: "type",
		Separator:   ";",
	}
}

type defdRelabelRule Rule

// UnmarshalYAML unmarshals yaml to a Relabel rule with appropriate defaults
func (r *Rule) UnmarshalYAML(unmarshal func(interface{}) error) error {
	rr := defdRelabelRule(defaultRule())
	if err := unmarshal(&rr); err != nil {
		return err
	}
	if len(rr.Extra) != 0 {
		unknowns := make([]string, 0, len(rr.Extra))
		for k := range rr.Extra {
			unknowns = append(unknowns, k)
		}
		sort.Strings(unknowns)
		return errors.Errorf("unknown rule fields: %s", strings.Join(unknowns, ", "))
	}
	*r = Rule(rr)
	return nil
}

// UnmarshalJSON unmarshals json to a Relabel rule with appropriate defaults
func (r *Rule) UnmarshalJSON(bs []byte) error {
	rr := defdRelabelRule(defaultRule())
	if err := json.Unmarshal(bs, &rr); err != nil {
		return err
	}
	*r = Rule(rr)
	return nil
}

func (r *Rule) buildKey(ls map[string]string) string {
	vs := make([]string, 0, len(r.SrcLabels))
	for _, k := range r.SrcLabels {
		if v, ok := ls[k]; ok {
			vs = append(vs, v)
		}
	}
	return strings.Join(vs, r.Separator)
}

// Validate checks the rule can be applied.
func (r *Rule) Validate() error {
	if _, ok := actions[r.Action]; !ok {
		return errors.Errorf("unknown relabel action %q", r.Action)
	}
	if r.Regex == nil || r.Regex.Regexp == nil {
		return errors.Errorf("%s rule has no regex", r.Action)
	}
	return nil
}

// Relabel the provided labels using the described rule. Rules that fail
// Validate leave the labels untouched.
func (r *Rule) Relabel(ls map[string]string) bool {
	if r.Validate() != nil {
		return true
	}
	return actions[r.Action](r, ls)
}

func (r *Rule) applyDrop(ls map[string]string) bool {
	return !r.Regex.MatchString(r.buildKey(ls))
}

func (r *Rule) applyKeep(ls map[string]string) bool {
	return r.Regex.MatchString(r.buildKey(ls))
}

func (r *Rule) applyLabelDrop(ls map[string]string) bool {
	for k := range ls {
		if r.Regex.MatchString(k) {
			delete(ls, k)
		}
	}
	return true
}

func (r *Rule) applyLabelKeep(ls map[string]string) bool {
	for k := range ls {
		if !r.Regex.MatchString(k) {
			delete(ls, k)
		}
	}
	return true
}

func (r *Rule) applyReplace(ls map[string]string) bool {
	key := r.buildKey(ls)
	matches := r.Regex.FindStringSubmatchIndex(key)
	if matches == nil {
		return true
	}
	target := model.LabelName(r.Regex.ExpandString([]byte{}, r.TargetLabel, key, matches))
	if !target.IsValid() {
		return true
	}
	ls[string(target)] = string(r.Regex.ExpandString([]byte{}, r.Replacement, key, matches))
	return true
}

func (r *Rule) applyLabelMap(ls map[string]string) bool {
	added := map[string]string{}
	for k, v := range ls {
		if r.Regex.MatchString(k) {
			added[r.Regex.ReplaceAllString(k, r.Replacement)] = v
		}
	}
	for k, v := range added {
		ls[k] = v
	}
	return true
}

// JSONRegexp provides a means of directly unmarshaling a regexp
type JSONRegexp struct {
	*regexp.Regexp
}

// MarshalYAML implements the yaml Marshaler interface for JSON Regex
func (r *JSONRegexp) MarshalYAML() (interface{}, error) {
	return r.Regexp.String(), nil
}

// MarshalJSON implements the json Marshaler interface for JSON Regex
func (r *JSONRegexp) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Regexp.String())
}

// UnmarshalYAML implements the yaml Unmarshaler interface for JSON Regex
func (r *JSONRegexp) UnmarshalYAML(unmarshal func(interface{}) error) error {
	str := ""
	if err := unmarshal(&str); err != nil {
		return err
	}
	return r.compile(str)
}

// UnmarshalJSON implements the json Unmarshaler interface for JSON Regex
func (r *JSONRegexp) UnmarshalJSON(bs []byte) error {
	rstr := ""
	if err := json.Unmarshal(bs, &rstr); err != nil {
		return err
	}
	return r.compile(rstr)
}

func (r *JSONRegexp) compile(s string) error {
	re, err := regexp.Compile(s)
	if err != nil {
		return err
	}
	*r = JSONRegexp{re}
	return nil
}
