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
	"io"
)

// Parser reads query terms from a scanner.
//
//   QUERY: TERM*
//   TERM:  LABEL OP VALUE
//   LABEL: word | quoted
//   OP:    "=" | "!=" | "~" | "!~"
//   VALUE: word | quoted
type Parser struct {
	s      *scanner
	peeked *token

	operators opSet
}

func newParser(q string) *Parser {
	return &Parser{
		s:         newScanner(q),
		operators: defaultOps,
	}
}

func (p *Parser) next() token {
	if p.peeked != nil {
		tok := *p.peeked
		p.peeked = nil
		return tok
	}
	return p.s.next()
}

func (p *Parser) peek() token {
	if p.peeked == nil {
		tok := p.s.next()
		p.peeked = &tok
	}
	return *p.peeked
}

func (p *Parser) terms() (query, error) {
	var q query
	for {
		qt, err := p.term()
		if err == io.EOF {
			return q, nil
		}
		if err != nil {
			return nil, err
		}
		q = append(q, qt)
	}
}

func (p *Parser) term() (queryTerm, error) {
	if p.peek().typ == tokEOF {
		return queryTerm{}, io.EOF
	}

	label, err := p.operand("label name")
	if err != nil {
		return queryTerm{}, err
	}
	op, err := p.operator()
	if err != nil {
		return queryTerm{}, err
	}
	value, err := p.operand("label value")
	if err != nil {
		return queryTerm{}, err
	}

	return queryTerm{label: label, operator: op, value: value}, nil
}

func (p *Parser) operator() (string, error) {
	tok := p.next()
	switch tok.typ {
	case tokOp:
	case tokError:
		return "", fmt.Errorf("%s", tok.text)
	case tokEOF:
		return "", fmt.Errorf("expected operator, got EOF")
	default:
		return "", fmt.Errorf("expected operator at %d, got %s", tok.pos, tok)
	}

	if _, ok := p.operators.lookup(tok.text); !ok {
		return "", fmt.Errorf("unknown operator %q at %d", tok.text, tok.pos)
	}
	return tok.text, nil
}

func (p *Parser) operand(what string) (string, error) {
	tok := p.next()
	switch tok.typ {
	case tokWord, tokQuoted:
		return tok.text, nil
	case tokError:
		return "", fmt.Errorf("%s", tok.text)
	case tokEOF:
		return "", fmt.Errorf("expected %s, got EOF", what)
	}
	return "", fmt.Errorf("expected %s at %d, got %s", what, tok.pos, tok)
}
