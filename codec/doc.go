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

// Package codec encodes and decodes individual telemetry log records.
//
// A record is a fixed 18 byte Header followed by a payload laid out in the
// field order of the record type's schema entry. All values are little
// endian. Fields holding nested messages carry the nested type id first, so
// decoding recurses using the nested type's own schema entry. Recursion is
// bounded by MaxDepth.
//
// Payloads may also embed compressed frames (a sync word, the inner type id and
// a zlib stream of the inner payload), see Decompress and Codec.Expand.
package codec
