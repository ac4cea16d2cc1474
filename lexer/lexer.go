// This file is part of steelc - https://github.com/kinderjosh/steelc
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lexer turns a source buffer into a lazy sequence of tokens.
//
// The whole file is read eagerly by New; Next then scans one token at a
// time on demand, tracking byte position, line and column. Two comment
// forms are skipped transparently: "/* ... */" (non-nesting) and "// ...".
//
// Identifiers match [A-Za-z_][A-Za-z_0-9]*. Integer literals are an
// optional leading '-' (only directly before the first digit) followed by
// one or more digits; character literals such as 'x' lex as an Int token
// whose lexeme is the decimal value of the byte, with escapes \n \t \r \0
// \' \" \\. Float literals are the integer rule followed by '.' and one or
// more digits, with the '.' consumed only when followed by a digit (so
// that e.g. "3.x" lexes as Int(3) then '.' is left for the caller to choke
// on, and method-call-like syntax never accidentally starts a float).
package lexer

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/kinderjosh/steelc/internal/diag"
	"github.com/kinderjosh/steelc/token"
)

// Lexer scans a single source file into tokens.
type Lexer struct {
	path string
	src  []byte
	pos  int
	ch   byte
	line int
	col  int
}

// New reads the file at path eagerly and returns a Lexer positioned at its
// first byte.
func New(path string) (*Lexer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.NoPos(path, "no such file exists")
	}
	l := &Lexer{path: path, src: data, line: 1, col: 1}
	if len(l.src) > 0 {
		l.ch = l.src[0]
	} else {
		l.ch = 0
	}
	return l, nil
}

func (l *Lexer) errorf(line, col int, format string, a ...interface{}) error {
	return diag.Errorf(l.path, line, col, format, a...)
}

func (l *Lexer) step() {
	if l.pos >= len(l.src) {
		return
	}
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
	if l.pos < len(l.src) {
		l.ch = l.src[l.pos]
	} else {
		l.ch = 0
	}
}

func (l *Lexer) peek(offset int) byte {
	p := l.pos + offset
	if p < 0 || p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

func (l *Lexer) stepWith(kind token.Kind, lexeme string, line, col int) token.Token {
	for range lexeme {
		l.step()
	}
	return token.Token{Kind: kind, Lexeme: lexeme, Line: line, Col: col}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Next scans and returns the next token. Once the source is exhausted it
// returns an EOF token on every call.
func (l *Lexer) Next() (token.Token, error) {
	for isSpace(l.ch) {
		l.step()
	}

	if l.ch == '/' && l.peek(1) == '*' {
		l.step()
		l.step()
		for l.ch != 0 && !(l.ch == '*' && l.peek(1) == '/') {
			l.step()
		}
		l.step()
		l.step()
		return l.Next()
	}
	if l.ch == '/' && l.peek(1) == '/' {
		for l.ch != 0 && l.ch != '\n' {
			l.step()
		}
		l.step()
		return l.Next()
	}

	line, col := l.line, l.col

	switch {
	case isAlpha(l.ch) || l.ch == '_':
		start := l.pos
		for isAlpha(l.ch) || l.ch == '_' || isDigit(l.ch) {
			l.step()
		}
		return token.Token{Kind: token.Ident, Lexeme: string(l.src[start:l.pos]), Line: line, Col: col}, nil

	case isDigit(l.ch) || (l.ch == '-' && isDigit(l.peek(1))):
		start := l.pos
		isFloat := false
		length := 0
		for isDigit(l.ch) || (l.ch == '-' && length < 1) || (l.ch == '.' && !isFloat && isDigit(l.peek(1))) {
			if l.ch == '.' {
				isFloat = true
			}
			l.step()
			length++
		}
		lexeme := string(l.src[start:l.pos])
		if isFloat {
			return token.Token{Kind: token.Float, Lexeme: lexeme, Line: line, Col: col}, nil
		}
		return token.Token{Kind: token.Int, Lexeme: lexeme, Line: line, Col: col}, nil

	case l.ch == '\'':
		return l.lexChar(line, col)

	case l.ch == '"':
		return l.lexString(line, col)
	}

	switch l.ch {
	case '(':
		return l.stepWith(token.LParen, "(", line, col), nil
	case ')':
		return l.stepWith(token.RParen, ")", line, col), nil
	case '{':
		return l.stepWith(token.LBrace, "{", line, col), nil
	case '}':
		return l.stepWith(token.RBrace, "}", line, col), nil
	case ';':
		return l.stepWith(token.Semi, ";", line, col), nil
	case ',':
		return l.stepWith(token.Comma, ",", line, col), nil
	case '[':
		return l.stepWith(token.LSquare, "[", line, col), nil
	case ']':
		return l.stepWith(token.RSquare, "]", line, col), nil
	case '#':
		return l.stepWith(token.Hash, "#", line, col), nil
	case '=':
		if l.peek(1) == '=' {
			return l.stepWith(token.EqEq, "==", line, col), nil
		}
		return l.stepWith(token.Equal, "=", line, col), nil
	case '+':
		if l.peek(1) == '=' {
			return l.stepWith(token.PlusEq, "+=", line, col), nil
		}
		return l.stepWith(token.Plus, "+", line, col), nil
	case '-':
		if l.peek(1) == '=' {
			return l.stepWith(token.MinusEq, "-=", line, col), nil
		}
		return l.stepWith(token.Minus, "-", line, col), nil
	case '*':
		if l.peek(1) == '=' {
			return l.stepWith(token.StarEq, "*=", line, col), nil
		}
		return l.stepWith(token.Star, "*", line, col), nil
	case '/':
		if l.peek(1) == '=' {
			return l.stepWith(token.SlashEq, "/=", line, col), nil
		}
		return l.stepWith(token.Slash, "/", line, col), nil
	case '%':
		if l.peek(1) == '=' {
			return l.stepWith(token.PercentEq, "%=", line, col), nil
		}
		return l.stepWith(token.Percent, "%", line, col), nil
	case '<':
		if l.peek(1) == '=' {
			return l.stepWith(token.Lte, "<=", line, col), nil
		}
		return l.stepWith(token.Lt, "<", line, col), nil
	case '>':
		if l.peek(1) == '=' {
			return l.stepWith(token.Gte, ">=", line, col), nil
		}
		return l.stepWith(token.Gt, ">", line, col), nil
	case '!':
		if l.peek(1) == '=' {
			return l.stepWith(token.NotEq, "!=", line, col), nil
		}
	case '&':
		if l.peek(1) == '&' {
			return l.stepWith(token.And, "&&", line, col), nil
		}
		return l.stepWith(token.Amp, "&", line, col), nil
	case '|':
		if l.peek(1) == '|' {
			return l.stepWith(token.Or, "||", line, col), nil
		}
	case 0:
		return token.Token{Kind: token.EOF, Lexeme: "<eof>", Line: line, Col: col}, nil
	}

	glog.V(2).Infof("%s:%d:%d: unknown byte %q", l.path, line, col, l.ch)
	return token.Token{}, l.errorf(line, col, "unknown character '%c'", l.ch)
}

func (l *Lexer) lexChar(line, col int) (token.Token, error) {
	l.step() // consume opening '
	var value int
	if l.ch == '\\' {
		l.step()
		switch l.ch {
		case 'n':
			value = '\n'
		case 't':
			value = '\t'
		case 'r':
			value = '\r'
		case '0':
			value = 0
		case '\'', '"', '\\':
			value = int(l.ch)
		default:
			return token.Token{}, l.errorf(l.line, col, "unsupported escape sequence '\\%c'", l.ch)
		}
	} else {
		value = int(l.ch)
	}
	l.step()
	if l.ch != '\'' {
		return token.Token{}, l.errorf(l.line, col, "unclosed character constant")
	}
	l.step()
	return token.Token{Kind: token.Int, Lexeme: fmt.Sprintf("%d", value), Line: line, Col: col}, nil
}

func (l *Lexer) lexString(line, col int) (token.Token, error) {
	l.step() // consume opening "
	start := l.pos
	for l.ch != '"' && l.ch != 0 && l.ch != '\n' {
		if l.ch == '\\' && l.peek(1) != 0 {
			l.step()
		}
		l.step()
	}
	raw := string(l.src[start:l.pos])
	if l.ch != '"' {
		return token.Token{}, l.errorf(line, col, "unclosed string literal")
	}
	if len(raw) < 1 {
		return token.Token{}, l.errorf(line, col, "empty string literal")
	}
	l.step()
	return token.Token{Kind: token.Str, Lexeme: raw, Line: line, Col: col}, nil
}
