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

// Package names resolves numeric system and entity ids to display names.
//
// Names are late bound: they may be learnt from identity announcements while
// a log is being indexed, from a directory file that changes while the
// program runs, or set directly. Tables only ever grow or overwrite; a
// Resolver lives for the length of a session.
package names
