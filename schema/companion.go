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
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// CompanionNames are the file names checked, in order, for a schema stored
// alongside a log file.
var CompanionNames = []string{"schema.yaml", "schema.yaml.gz"}

// CompanionFile returns the path of the schema stored next to logPath, if
// there is one.
func CompanionFile(logPath string) (string, bool) {
	dir := filepath.Dir(logPath)
	for _, n := range CompanionNames {
		fn := filepath.Join(dir, n)
		if info, err := os.Stat(fn); err == nil && !info.IsDir() {
			return fn, true
		}
	}
	return "", false
}

// ForLog loads the schema that should be used to read logPath. A companion
// schema in the log's directory takes precedence over the global one, as the
// log was written with it. globalPath may be empty.
func ForLog(logPath, globalPath string) (*Schema, error) {
	if fn, ok := CompanionFile(logPath); ok {
		glog.V(2).Infof("Using companion schema %s for %s", fn, logPath)
		return LoadFile(fn)
	}

	if globalPath == "" {
		return nil, errors.Wrapf(ErrInvalidSchema, "no schema found for %s", logPath)
	}

	glog.V(2).Infof("Using global schema %s for %s", globalPath, logPath)
	return LoadFile(globalPath)
}
