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

package tmpl

import (
	"time"

	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/sinks"
)

// Data is the value templates are executed with.
type Data struct {
	*indexer.Record

	Time   time.Time
	Name   string
	Fields map[string]interface{}
	Flat   []sinks.Field
}

// NewData prepares a record for template execution.
func NewData(r *indexer.Record) *Data {
	return &Data{
		Record: r,
		Time:   r.Message.Time(),
		Name:   r.Message.Name(),
		Fields: r.Message.Map(),
		Flat:   sinks.Fields(r.Message),
	}
}
