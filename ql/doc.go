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

// Package ql implements parsing and running of simple record selection
// expressions, and of awk programs over exported record text.
//
// A query expression is a set of label and value matches, evaluated against
// the labels of each record: type, system, entity, dst and dst_entity.
// Either label or value can be given as a quoted string using ", ', or `
// quotes. Four match types are supported:
//
//   = : an exact match, or the single wild card "*" for any value
//   != : any value not equal to the value
//   ~ : a regular expression match, against the whole label value
//   !~ : a negated regular expression match against the label value
//
// Matches for the same label are or'd together. Matches for different labels
// are and'd together. A label a record does not carry has the empty value.
//
// For example:
//
//   type=Position : position fixes only
//   type=Position type=Heading : position fixes and headings
//   system=ship entity~"Nav.*" : records from navigation entities on ship
//   type!~"Debug.*" : everything but debug records
package ql
