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

package ql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokError
	tokWord   // a bare label name or value
	tokQuoted // a quoted value, text holds it unquoted
	tokOp     // a run of operator characters
)

var tokenNames = map[tokenType]string{
	tokEOF:    "EOF",
	tokError:  "error",
	tokWord:   "word",
	tokQuoted: "quoted",
	tokOp:     "operator",
}

func (t tokenType) String() string {
	if n, ok := tokenNames[t]; ok {
		return n
	}
	return fmt.Sprintf("token(%d)", int(t))
}

type token struct {
	typ  tokenType
	pos  int // byte offset in the query
	text string
}

func (t token) String() string {
	switch t.typ {
	case tokEOF:
		return "EOF"
	case tokError:
		return "error: " + t.text
	}
	return fmt.Sprintf("%s %q", t.typ, t.text)
}

const (
	opChars   = "!=~|&"
	wordChars = "-_.*/:+"
)

func isOpChar(r rune) bool {
	return strings.ContainsRune(opChars, r)
}

func isWordChar(r rune) bool {
	return strings.ContainsRune(wordChars, r) || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// scanner splits a query string into tokens.
type scanner struct {
	input string
	pos   int
}

func newScanner(q string) *scanner {
	return &scanner{input: q}
}

func (s *scanner) peekRune() (rune, int) {
	if s.pos >= len(s.input) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s.input[s.pos:])
}

func (s *scanner) skip(f func(rune) bool) {
	for {
		r, w := s.peekRune()
		if w == 0 || !f(r) {
			return
		}
		s.pos += w
	}
}

func (s *scanner) next() token {
	s.skip(unicode.IsSpace)

	start := s.pos
	r, w := s.peekRune()
	switch {
	case w == 0:
		return token{typ: tokEOF, pos: start}
	case r == '"', r == '\'', r == '`':
		s.pos += w
		return s.quoted(start, r)
	case isOpChar(r):
		s.skip(isOpChar)
		return token{typ: tokOp, pos: start, text: s.input[start:s.pos]}
	case isWordChar(r):
		s.skip(isWordChar)
		return token{typ: tokWord, pos: start, text: s.input[start:s.pos]}
	}

	s.pos += w
	return token{typ: tokError, pos: start, text: fmt.Sprintf("unexpected character %#U at %d", r, start)}
}

// quoted reads up to the closing quote q. A backslash only escapes the
// quote character and itself, so regular expressions can be quoted as is.
func (s *scanner) quoted(start int, q rune) token {
	var sb strings.Builder
	for {
		r, w := s.peekRune()
		if w == 0 {
			return token{typ: tokError, pos: start, text: fmt.Sprintf("unterminated quoted string at %d", start)}
		}
		s.pos += w

		switch r {
		case q:
			return token{typ: tokQuoted, pos: start, text: sb.String()}
		case '\\':
			if n, nw := s.peekRune(); nw != 0 && (n == q || n == '\\') {
				s.pos += nw
				r = n
			}
		}
		sb.WriteRune(r)
	}
}
