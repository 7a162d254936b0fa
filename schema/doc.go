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

// Package schema holds the message type definitions used to encode and decode
// telemetry log records.
//
// A Schema is an immutable snapshot of message types. Each Entry has a numeric
// id, a name and an ordered list of fields; the field order is the wire order.
// Schemas are normally loaded from a YAML definition file, which can live next
// to a log (a companion schema) or in a global location, see ForLog.
package schema
