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

	"github.com/QubitProducts/lsfindex/codec"
	"github.com/QubitProducts/lsfindex/ql"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Record is a decoded record handed to a MessageFunc.
type Record struct {
	Entry
	Index   int
	Log     string
	Message *codec.Message
	Labels  map[string]string
}

// MessageFunc is called for each record a search finds. Returning an error
// stops the search.
type MessageFunc func(*Record) error

// Search decodes the records with timestamps in [from, to] whose labels are
// matched by matcher, and passes them to msgFunc in file order. A nil
// matcher matches everything. Records that fail to decode are skipped.
// Logs that are not ordered are scanned in full, and ErrUnorderedTimestamps
// is returned once every matching record has been passed on.
func (idx *Index) Search(ctx context.Context, msgFunc MessageFunc, matcher ql.MatchFunc, from, to float64) error {
	it, err := idx.EntriesBetween(from, to)
	unordered := errors.Is(err, ErrUnorderedTimestamps)
	switch {
	case unordered:
		glog.V(2).Infof("searching unordered log %s linearly", idx.path)
	case err != nil:
		return err
	}
	glog.V(3).Infof("Searching %s from %v to %v", idx.path, from, to)

	for it.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e := it.Entry()
		ls := idx.labels(e)
		if matcher != nil && !matcher(ls) {
			continue
		}

		m, err := it.Message()
		if errors.Is(err, ErrClosed) {
			return err
		}
		if err != nil {
			glog.V(2).Infof("skipping record, %v", err)
			continue
		}

		err = msgFunc(&Record{
			Entry:   e,
			Index:   it.Index(),
			Log:     idx.path,
			Message: m,
			Labels:  ls,
		})
		if err != nil {
			return err
		}
	}

	if err := it.Err(); err != nil {
		return err
	}
	if unordered {
		return ErrUnorderedTimestamps
	}
	return nil
}

// RecordAt decodes record i along with its labels.
func (idx *Index) RecordAt(i int) (*Record, error) {
	e, err := idx.EntryAt(i)
	if err != nil {
		return nil, err
	}
	m, err := idx.MessageAt(i)
	if err != nil {
		return nil, err
	}
	return &Record{
		Entry:   e,
		Index:   i,
		Log:     idx.path,
		Message: m,
		Labels:  idx.labels(e),
	}, nil
}
