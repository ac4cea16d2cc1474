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

package parser

import (
	"github.com/kinderjosh/steelc/ast"
	"github.com/kinderjosh/steelc/token"
)

// parseType consumes a type keyword followed by zero or more '*'.
func (p *Parser) parseType() (ast.Type, int, int, error) {
	line, col := p.tok.Line, p.tok.Col
	if p.tok.Kind != token.Ident || !isTypeKeyword(p.tok.Lexeme) {
		return ast.Type{}, 0, 0, p.errorf(p.tok.Line, p.tok.Col, "expected a type but found %s", p.tok.Kind)
	}
	base, _ := ast.ParseBaseType(p.tok.Lexeme)
	if err := p.advance(); err != nil {
		return ast.Type{}, 0, 0, err
	}
	ptr := 0
	for p.tok.Kind == token.Star {
		ptr++
		if err := p.advance(); err != nil {
			return ast.Type{}, 0, 0, err
		}
	}
	return ast.Type{Base: base, Ptr: ptr}, line, col, nil
}

// declaration parses `('mut')? type ('*')* ID (...)` at the top level,
// where the thing after the name decides FUNC vs. ASSIGN. At the top
// level 'mut' is only meaningful on a global ASSIGN, never on a FUNC.
func (p *Parser) declaration(local bool) (ast.Node, error) {
	mut := false
	if p.isKeyword("mut") {
		mut = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	typ, tline, tcol, err := p.parseType()
	if err != nil {
		return nil, err
	}

	if p.tok.Kind != token.Ident {
		return nil, p.errorf(p.tok.Line, p.tok.Col, "expected an identifier but found %s", p.tok.Kind)
	}
	name := p.tok.Lexeme
	nline, ncol := p.tok.Line, p.tok.Col
	if err := p.advance(); err != nil {
		return nil, err
	}

	if !local && !mut && p.tok.Kind == token.LParen {
		return p.funcDecl(name, typ, nline, ncol)
	}
	return p.assignDecl(name, typ, mut, tline, tcol, nline, ncol)
}

// funcDecl parses the parameter list and body of a function whose return
// type and name have already been consumed.
func (p *Parser) funcDecl(name string, ret ast.Type, nline, ncol int) (ast.Node, error) {
	if existing := p.syms.LookupFunc(ast.GlobalScope, name); existing != nil {
		return nil, p.errorf(nline, ncol, "redefinition of function '%s'", name)
	}

	if _, err := p.eat(token.LParen); err != nil {
		return nil, err
	}

	fn := &ast.Func{
		Base:    ast.Base{ScopeDef: ast.GlobalScope, FuncDef: name, Line: nline, Col: ncol},
		Name:    name,
		RetType: ret,
	}
	// Register before the body is parsed so the function is visible to
	// calls inside its own body (direct recursion is still rejected later).
	p.syms.Append(fn)

	savedScope, savedFunc, savedRet := p.scope, p.funcName, p.funcRet
	p.scope, p.funcName, p.funcRet = name, name, ret

	for p.tok.Kind != token.RParen {
		param, err := p.declaration(true)
		if err != nil {
			return nil, err
		}
		assign, ok := param.(*ast.Assign)
		if !ok {
			return nil, p.errorAt(param, "parameters must be simple declarations")
		}
		if assign.Value != nil {
			return nil, p.errorAt(assign, "parameter '%s' may not have a default value", assign.Name)
		}
		// An array-shaped parameter decays to a pointer: the callee
		// receives an address, never in-place elements.
		assign.ArrCap = 0
		fn.Params = append(fn.Params, assign)
		if p.tok.Kind == token.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.tok.Kind != token.RParen {
			return nil, p.errorf(p.tok.Line, p.tok.Col, "expected ',' or ')' but found %s", p.tok.Kind)
		}
	}
	if _, err := p.eat(token.RParen); err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	fn.HasReturn = bodyEndsInReturn(body)

	if !ret.IsVoid() && !fn.HasReturn {
		return nil, p.errorAt(fn, "function '%s' must return a value of type '%s'", name, ret.String())
	}

	p.scope, p.funcName, p.funcRet = savedScope, savedFunc, savedRet
	return fn, nil
}

func bodyEndsInReturn(body []ast.Node) bool {
	if len(body) == 0 {
		return false
	}
	last := body[len(body)-1]
	if ret, ok := last.(*ast.Ret); ok {
		return ret.Value != nil
	}
	if ie, ok := last.(*ast.IfElse); ok && ie.Else != nil {
		return bodyEndsInReturn(ie.Body) && bodyEndsInReturn(ie.Else)
	}
	return false
}

// assignDecl parses the remainder of a declaration after its type, name,
// and mutability have been read: an optional array capacity and an
// optional initializer.
func (p *Parser) assignDecl(name string, typ ast.Type, mut bool, tline, tcol, nline, ncol int) (ast.Node, error) {
	if typ.IsVoid() {
		return nil, p.errorf(tline, tcol, "variable '%s' may not have type 'void'", name)
	}
	if existing := p.syms.LookupVar(p.scope, name); existing != nil {
		return nil, p.errorf(nline, ncol, "redefinition of '%s'", name)
	}

	a := &ast.Assign{
		Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: tline, Col: tcol},
		Name: name,
		Mut:  mut,
	}

	arrCap := 0
	isArray := false
	if p.tok.Kind == token.LSquare {
		isArray = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		capTok, err := p.eat(token.Int)
		if err != nil {
			return nil, err
		}
		arrCap = int(parseIntLit(capTok.Lexeme))
		if arrCap <= 0 {
			return nil, p.errorf(capTok.Line, capTok.Col, "array size must be greater than zero")
		}
		if _, err := p.eat(token.RSquare); err != nil {
			return nil, err
		}
	}

	declType := typ
	if isArray {
		declType = ast.Type{Base: typ.Base, Ptr: typ.Ptr + 1}
	}
	a.Type = &declType
	a.ArrCap = arrCap

	if p.tok.Kind == token.Equal {
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.value(&declType)
		if err != nil {
			return nil, err
		}
		if err := p.checkInitializer(a, val, isArray); err != nil {
			return nil, err
		}
		a.Value = val
	}
	a.Declared = true

	p.syms.Append(a)
	return a, nil
}

func parseIntLit(lexeme string) int64 {
	neg := false
	i := 0
	if len(lexeme) > 0 && lexeme[0] == '-' {
		neg = true
		i = 1
	}
	var v int64
	for ; i < len(lexeme); i++ {
		v = v*10 + int64(lexeme[i]-'0')
	}
	if neg {
		v = -v
	}
	return v
}
