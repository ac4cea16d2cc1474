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

package lexer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kinderjosh/steelc/lexer"
	"github.com/kinderjosh/steelc/token"
)

func lexAll(t *testing.T, src string) []token.Token {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.sc")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	l, err := lexer.New(path)
	if err != nil {
		t.Fatalf("lexer.New: %v", err)
	}
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}

func kindsEqual(a, b []token.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNextKinds(t *testing.T) {
	data := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{"ident_and_punct", "int x = 3;", []token.Kind{token.Ident, token.Ident, token.Equal, token.Int, token.Semi, token.EOF}},
		{"compound_assign", "x += 1;", []token.Kind{token.Ident, token.PlusEq, token.Int, token.Semi, token.EOF}},
		{"negative_int", "x = -1;", []token.Kind{token.Ident, token.Equal, token.Int, token.Semi, token.EOF}},
		{"float", "float f = 3.5;", []token.Kind{token.Ident, token.Ident, token.Equal, token.Float, token.Semi, token.EOF}},
		{"relops", "a <= b && c >= d", []token.Kind{token.Ident, token.Lte, token.Ident, token.And, token.Ident, token.Gte, token.Ident, token.EOF}},
		{"or", "a || b", []token.Kind{token.Ident, token.Or, token.Ident, token.EOF}},
		{"line_comment", "x // trailing comment\n= 1;", []token.Kind{token.Ident, token.Equal, token.Int, token.Semi, token.EOF}},
		{"block_comment", "x /* a b c */ = 1;", []token.Kind{token.Ident, token.Equal, token.Int, token.Semi, token.EOF}},
		{"string_lit", `char* s = "hi";`, []token.Kind{token.Ident, token.Star, token.Ident, token.Equal, token.Str, token.Semi, token.EOF}},
		{"subscript", "a[0] = 1;", []token.Kind{token.Ident, token.LSquare, token.Int, token.RSquare, token.Equal, token.Int, token.Semi, token.EOF}},
		{"addr_of", "f(&x);", []token.Kind{token.Ident, token.LParen, token.Amp, token.Ident, token.RParen, token.Semi, token.EOF}},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			toks := lexAll(t, d.src)
			got := kinds(toks)
			if !kindsEqual(got, d.want) {
				t.Errorf("kinds = %v, want %v", got, d.want)
			}
		})
	}
}

func TestCharLiteralDecodesToIntValue(t *testing.T) {
	toks := lexAll(t, "'a'")
	if len(toks) < 1 || toks[0].Kind != token.Int || toks[0].Lexeme != "97" {
		t.Fatalf("char literal 'a' = %+v, want Int(97)", toks[0])
	}
}

func TestCharLiteralEscape(t *testing.T) {
	toks := lexAll(t, `'\n'`)
	if toks[0].Kind != token.Int || toks[0].Lexeme != "10" {
		t.Fatalf("char literal '\\n' = %+v, want Int(10)", toks[0])
	}
}

func TestUnclosedStringIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.sc")
	if err := os.WriteFile(path, []byte(`"hello`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	l, err := lexer.New(path)
	if err != nil {
		t.Fatalf("lexer.New: %v", err)
	}
	if _, err := l.Next(); err == nil {
		t.Fatalf("expected an error for an unclosed string literal")
	}
}

func TestUnknownCharacterIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.sc")
	if err := os.WriteFile(path, []byte("@"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	l, err := lexer.New(path)
	if err != nil {
		t.Fatalf("lexer.New: %v", err)
	}
	if _, err := l.Next(); err == nil {
		t.Fatalf("expected an error for an unknown byte")
	}
}

func TestMissingFileIsFatal(t *testing.T) {
	if _, err := lexer.New(filepath.Join(t.TempDir(), "missing.sc")); err == nil {
		t.Fatalf("expected an error opening a nonexistent file")
	}
}
