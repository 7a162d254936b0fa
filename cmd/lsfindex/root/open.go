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

package root

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/QubitProducts/lsfindex/indexer"
	"github.com/QubitProducts/lsfindex/schema"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	schemaMu sync.Mutex
	schemas  = map[string]*schema.Schema{}
)

// SchemaFor returns the schema to read the log in fn with. Schemas are
// loaded once per file.
func SchemaFor(fn string) (*schema.Schema, error) {
	sfn, ok := schema.CompanionFile(fn)
	if !ok {
		sfn = cfg.Schema
	}
	if sfn == "" {
		return nil, errors.Wrapf(schema.ErrInvalidSchema, "no schema found for %s, use --schema", fn)
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemas[sfn]; ok {
		return s, nil
	}
	s, err := schema.LoadFile(sfn)
	if err != nil {
		return nil, err
	}
	schemas[sfn] = s
	return s, nil
}

// BuildOpts returns the index build options for the configuration in
// effect.
func BuildOpts() []indexer.Opt {
	return []indexer.Opt{
		indexer.WithResolver(resolver),
		indexer.WithAnnouncements(cfg.Announcements),
		indexer.WithCache(cfg.Cache),
	}
}

func isLog(fn string) bool {
	return strings.HasSuffix(fn, ".lsf") || strings.HasSuffix(fn, ".lsf.gz")
}

// ExpandPaths replaces directories in paths with the logs found beneath
// them. A log present both gzipped and inflated is only listed once.
func ExpandPaths(paths []string) ([]string, error) {
	var res []string
	seen := map[string]bool{}
	add := func(fn string) {
		key := strings.TrimSuffix(fn, ".gz")
		if seen[key] {
			return
		}
		seen[key] = true
		res = append(res, fn)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		err = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				glog.Errorf("failed walking %s, %v", p, err)
				return err
			}
			if !info.IsDir() && isLog(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(res) == 0 {
		return nil, errors.New("no logs found")
	}
	return res, nil
}

// OpenIndexes indexes the logs under paths, several at a time. Logs that
// end in a corrupt record are still returned, with a warning.
func OpenIndexes(ctx context.Context, paths []string, extra ...indexer.Opt) ([]*indexer.Index, error) {
	fns, err := ExpandPaths(paths)
	if err != nil {
		return nil, err
	}

	idxs := make([]*indexer.Index, len(fns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallelism)

	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			s, err := SchemaFor(fn)
			if err != nil {
				return err
			}
			opts := append(BuildOpts(), extra...)
			idx, err := indexer.Open(gctx, fn, s, opts...)
			if errors.Is(err, indexer.ErrCorruptRecord) {
				glog.Warningf("%s: %v", fn, err)
				err = nil
			}
			if err != nil {
				return errors.Wrapf(err, "indexing %s", fn)
			}
			idxs[i] = idx
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, idx := range idxs {
			if idx != nil {
				idx.Cleanup()
			}
		}
		return nil, err
	}
	return idxs, nil
}

// SearchDone turns the error from a completed archive search into the
// command's result. Unordered logs are searched in full, so that is only
// worth a note.
func SearchDone(err error) error {
	if errors.Is(err, indexer.ErrUnorderedTimestamps) {
		glog.V(1).Infof("some logs were not in time order and were scanned in full")
		return nil
	}
	return err
}
