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

package indexer

import (
	"context"
	"sort"
	"sync"

	"github.com/QubitProducts/lsfindex/ql"
	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Archive is a collection of indexes searched together, ordered by the time
// their records start.
type Archive struct {
	sync.RWMutex
	indexes []*Index
}

// NewArchive creates an archive holding idxs.
func NewArchive(idxs ...*Index) *Archive {
	a := &Archive{}
	a.Add(idxs...)
	return a
}

// Add adds indexes to the archive.
func (a *Archive) Add(idxs ...*Index) {
	a.Lock()
	defer a.Unlock()

	for _, idx := range idxs {
		glog.V(2).Infof("Adding index %v of %s to archive (%v - %v)", idx.ID(), idx.Path(), idx.StartTime(), idx.EndTime())
		a.indexes = append(a.indexes, idx)
	}
	sort.SliceStable(a.indexes, func(i, j int) bool { return a.indexes[i].StartTime() < a.indexes[j].StartTime() })
}

// Indexes returns the indexes held, in start time order.
func (a *Archive) Indexes() []*Index {
	a.RLock()
	defer a.RUnlock()
	return append([]*Index(nil), a.indexes...)
}

func (a *Archive) findIndexes(from, to float64) []*Index {
	a.RLock()
	defer a.RUnlock()

	var qs []*Index
	for _, idx := range a.indexes {
		if idx.RecordCount() == 0 {
			continue
		}
		if idx.StartTime() > to {
			break
		}
		if idx.EndTime() < from {
			continue
		}
		qs = append(qs, idx)
	}
	return qs
}

// Search searches each index with records in [from, to], in start time
// order. If any of them is not ordered, ErrUnorderedTimestamps is returned
// after all of them have been searched.
func (a *Archive) Search(ctx context.Context, msgFunc MessageFunc, matcher ql.MatchFunc, from, to float64) error {
	found := a.findIndexes(from, to)
	glog.V(2).Infof("searching %v archived indexes", len(found))

	var unordered bool
	for _, idx := range found {
		err := idx.Search(ctx, msgFunc, matcher, from, to)
		switch {
		case errors.Is(err, ErrUnorderedTimestamps):
			unordered = true
		case err != nil:
			return err
		}
	}
	if unordered {
		return ErrUnorderedTimestamps
	}
	return nil
}

// Cleanup releases every index in the archive.
func (a *Archive) Cleanup() error {
	a.Lock()
	defer a.Unlock()

	var result error
	for _, idx := range a.indexes {
		if err := idx.Cleanup(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
