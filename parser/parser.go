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

// Package parser is a predictive recursive-descent parser with one token
// of lookahead (peek can buffer further tokens, but no production calls
// it). It builds the typed AST, enforces
// every scope/type rule inline, and folds constant arithmetic as it goes —
// there is no separate checking or optimization pass.
package parser

import (
	"github.com/golang/glog"
	"github.com/kinderjosh/steelc/ast"
	"github.com/kinderjosh/steelc/internal/diag"
	"github.com/kinderjosh/steelc/lexer"
	"github.com/kinderjosh/steelc/token"
)

// Parser holds the single piece of mutable state a recursive-descent pass
// over the source language needs beyond the token stream: the current
// scope chain, the enclosing function (for direct-recursion detection and
// tagging nodes with FuncDef), and the symbol table being populated.
type Parser struct {
	path  string
	lex   *lexer.Lexer
	tok   token.Token
	queue []token.Token

	scope    string
	funcName string
	funcRet  ast.Type
	syms     *ast.Table

	scopeCnt int
}

// New creates a parser reading path through a fresh lexer, rooted at the
// global scope with an empty symbol table.
func New(path string) (*Parser, error) {
	l, err := lexer.New(path)
	if err != nil {
		return nil, err
	}
	p := &Parser{path: path, lex: l, scope: ast.GlobalScope, syms: ast.NewTable()}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Table returns the symbol table populated while parsing. The emitter
// consults it read-only, save for the frame-slot fields it overwrites on
// Assign nodes.
func (p *Parser) Table() *ast.Table { return p.syms }

func (p *Parser) errorf(line, col int, format string, a ...interface{}) error {
	return diag.Errorf(p.path, line, col, format, a...)
}

func (p *Parser) errorAt(n ast.Node, format string, a ...interface{}) error {
	line, col := n.Position()
	return p.errorf(line, col, format, a...)
}

// advance pulls the next token into p.tok, consuming the lookahead queue
// first.
func (p *Parser) advance() error {
	if len(p.queue) > 0 {
		p.tok = p.queue[0]
		p.queue = p.queue[1:]
		return nil
	}
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

// peek returns the token n positions ahead of p.tok (peek(1) is the token
// that advance() would produce next), buffering as many tokens as needed.
func (p *Parser) peek(n int) (token.Token, error) {
	for len(p.queue) < n {
		t, err := p.lex.Next()
		if err != nil {
			return token.Token{}, err
		}
		p.queue = append(p.queue, t)
	}
	return p.queue[n-1], nil
}

// eat verifies the current token has kind k, returns it, and advances.
func (p *Parser) eat(k token.Kind) (token.Token, error) {
	if p.tok.Kind != k {
		return token.Token{}, p.errorf(p.tok.Line, p.tok.Col, "expected %s but found %s", k, p.tok.Kind)
	}
	t := p.tok
	if t.Kind != token.EOF {
		if err := p.advance(); err != nil {
			return token.Token{}, err
		}
	}
	return t, nil
}

// isKeyword reports whether the current token is an Ident whose lexeme is
// the given keyword spelling.
func (p *Parser) isKeyword(word string) bool {
	return p.tok.Kind == token.Ident && p.tok.Lexeme == word
}

func isTypeKeyword(word string) bool {
	switch word {
	case "void", "char", "int", "float":
		return true
	}
	return false
}

// pushScope appends a hyphenated segment (kind:line:col) to the scope
// chain and returns the previous chain so the caller can restore it.
func (p *Parser) pushScope(kind string, line, col int) string {
	saved := p.scope
	p.scope = saved + "-" + kind + ":" + itoa(line) + ":" + itoa(col)
	return saved
}

func (p *Parser) popScope(saved string) { p.scope = saved }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Parse reads an entire file and returns its Root node plus the symbol
// table it populated. The returned error, if any, is a *diag.Error and
// should be treated as fatal by the caller, matching the source
// language's no-recovery error model.
func Parse(path string) (*ast.Root, *ast.Table, error) {
	p, err := New(path)
	if err != nil {
		return nil, nil, err
	}
	root, err := p.parseFile()
	if err != nil {
		return nil, nil, err
	}
	return root, p.syms, nil
}

func (p *Parser) parseFile() (*ast.Root, error) {
	root := &ast.Root{Base: ast.Base{ScopeDef: ast.GlobalScope, Line: 1, Col: 1}}
	for p.tok.Kind != token.EOF {
		decl, err := p.topLevelDecl()
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, decl)
	}
	glog.V(1).Infof("parser: %s: %d top-level declarations", p.path, len(root.Children))

	if main := p.syms.LookupFunc(ast.GlobalScope, "main"); main == nil {
		return nil, p.errorf(0, 0, "no 'main' function found")
	} else if !main.RetType.IsVoid() {
		return nil, p.errorAt(main, "function 'main' must return 'void'")
	}
	return root, nil
}

// topLevelDecl parses one `func` or `global_assign ';'` production.
func (p *Parser) topLevelDecl() (ast.Node, error) {
	if p.tok.Kind != token.Ident && !p.isKeyword("mut") {
		return nil, p.errorf(p.tok.Line, p.tok.Col, "expected a type but found %s", p.tok.Kind)
	}
	if !p.isKeyword("mut") && !isTypeKeyword(p.tok.Lexeme) {
		return nil, p.errorf(p.tok.Line, p.tok.Col, "expected a type but found %s", p.tok.Kind)
	}
	decl, err := p.declaration(false)
	if err != nil {
		return nil, err
	}
	if a, ok := decl.(*ast.Assign); ok {
		if err := p.checkGlobalInitializer(a); err != nil {
			return nil, err
		}
		if _, err := p.eat(token.Semi); err != nil {
			return nil, err
		}
	}
	return decl, nil
}

// checkGlobalInitializer rejects global initializers that did not fold to
// a literal: a global lives in .data and has no frame to compute into.
func (p *Parser) checkGlobalInitializer(a *ast.Assign) error {
	if a.Value == nil {
		return nil
	}
	switch v := a.Value.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.StrLit:
		return nil
	case *ast.ArrLit:
		for _, el := range v.Elems {
			switch el.(type) {
			case *ast.IntLit, *ast.FloatLit:
			default:
				return p.errorAt(el, "global '%s' must be initialized with a constant", a.Name)
			}
		}
		return nil
	}
	return p.errorAt(a.Value, "global '%s' must be initialized with a constant", a.Name)
}
