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
	"context"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/rjeczalik/notify"
	yaml "gopkg.in/yaml.v2"
)

// Directory is the on disk format of a names file:
//
//   systems:
//     8193: lauv-xplore-1
//   entities:
//     "8193/3": Navigation
type Directory struct {
	Systems  map[uint16]string `yaml:"systems"`
	Entities map[string]string `yaml:"entities"`
}

// Apply adds the directory's names to r. Nothing is added if any
// entity reference is malformed.
func (d *Directory) Apply(r *Resolver) error {
	type entityName struct {
		src  uint16
		ent  uint8
		name string
	}
	ents := make([]entityName, 0, len(d.Entities))
	for k, n := range d.Entities {
		src, ent, err := parseEntityRef(k)
		if err != nil {
			return err
		}
		ents = append(ents, entityName{src, ent, n})
	}

	for id, n := range d.Systems {
		r.ObserveSystem(id, n)
	}
	for _, e := range ents {
		r.ObserveEntity(e.src, e.ent, e.name)
	}
	return nil
}

func parseEntityRef(s string) (uint16, uint8, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("entity reference %q is not system/entity", s)
	}
	src, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "entity reference %q", s)
	}
	ent, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "entity reference %q", s)
	}
	return uint16(src), uint8(ent), nil
}

// LoadFile reads a names file into r.
func LoadFile(fn string, r *Resolver) error {
	bs, err := ioutil.ReadFile(fn)
	if err != nil {
		return errors.Wrap(err, "reading names file")
	}

	d := Directory{}
	if err := yaml.Unmarshal(bs, &d); err != nil {
		return errors.Wrapf(err, "parsing names file %s", fn)
	}

	if err := d.Apply(r); err != nil {
		return errors.Wrapf(err, "names file %s", fn)
	}

	glog.V(2).Infof("Loaded %d system and %d entity names from %s", len(d.Systems), len(d.Entities), fn)
	return nil
}

const watchEvents = notify.Create | notify.Write | notify.Rename

// Watch loads a names file into r, and reloads it whenever it is written or
// replaced until ctx is cancelled. Reload failures are logged and the names
// already known are kept.
func Watch(ctx context.Context, fn string, r *Resolver) error {
	afn, err := filepath.Abs(fn)
	if err != nil {
		return err
	}

	if err := LoadFile(afn, r); err != nil {
		return err
	}

	// Watch the directory, editors tend to replace files rather than
	// writing to them.
	ec := make(chan notify.EventInfo, 10)
	if err := notify.Watch(filepath.Dir(afn), ec, watchEvents); err != nil {
		return errors.Wrapf(err, "watching %s", afn)
	}

	go func() {
		defer notify.Stop(ec)

		for {
			select {
			case <-ctx.Done():
				return
			case e := <-ec:
				if filepath.Base(e.Path()) != filepath.Base(afn) {
					continue
				}
				glog.V(2).Infof("Names file %s changed (%v)", afn, e.Event())
				if err := LoadFile(afn, r); err != nil {
					glog.Errorf("failed reloading names, %v", err)
				}
			}
		}
	}()

	return nil
}
