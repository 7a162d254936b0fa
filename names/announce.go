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

package names

import (
	"github.com/golang/glog"

	"github.com/QubitProducts/lsfindex/codec"
)

// Announcer feeds identity announcement messages into a Resolver. A system
// announcement names the record's source system; an entity announcement
// labels one of the source system's entities.
type Announcer struct {
	Resolver *Resolver

	SystemType  string
	SystemField string

	EntityType       string
	EntityIDField    string
	EntityLabelField string
}

// NewAnnouncer returns an Announcer using the conventional Announce and
// EntityInfo message layouts.
func NewAnnouncer(r *Resolver) *Announcer {
	return &Announcer{
		Resolver:         r,
		SystemType:       "Announce",
		SystemField:      "sys_name",
		EntityType:       "EntityInfo",
		EntityIDField:    "id",
		EntityLabelField: "label",
	}
}

// Wants reports whether messages of the named type carry identities.
func (a *Announcer) Wants(typeName string) bool {
	return typeName == a.SystemType || typeName == a.EntityType
}

// Apply records any identity carried by m, and reports whether it did.
func (a *Announcer) Apply(m *codec.Message) bool {
	switch m.Name() {
	case a.SystemType:
		v, ok := m.Get(a.SystemField)
		if !ok {
			return false
		}
		name, ok := v.(string)
		if !ok || name == "" {
			return false
		}
		a.Resolver.ObserveSystem(m.Src, name)
		glog.V(3).Infof("system %d announced as %q", m.Src, name)
		return true

	case a.EntityType:
		iv, ok := m.Get(a.EntityIDField)
		if !ok {
			return false
		}
		id, ok := toUint8(iv)
		if !ok {
			return false
		}
		lv, ok := m.Get(a.EntityLabelField)
		if !ok {
			return false
		}
		label, ok := lv.(string)
		if !ok {
			return false
		}
		a.Resolver.ObserveEntity(m.Src, id, label)
		glog.V(3).Infof("entity %d/%d labelled %q", m.Src, id, label)
		return true
	}
	return false
}

func toUint8(v interface{}) (uint8, bool) {
	switch x := v.(type) {
	case uint8:
		return x, true
	case uint16:
		return uint8(x), x <= 0xFF
	case uint32:
		return uint8(x), x <= 0xFF
	case int8:
		return uint8(x), x >= 0
	case int16:
		return uint8(x), x >= 0 && x <= 0xFF
	case int32:
		return uint8(x), x >= 0 && x <= 0xFF
	}
	return 0, false
}
