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

// block parses `'{' stmt* '}'` or, when the next token is not '{', the
// single-statement form that if/else/while/for bodies allow.
func (p *Parser) block() ([]ast.Node, error) {
	if p.tok.Kind != token.LBrace {
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		return []ast.Node{s}, nil
	}

	if _, err := p.eat(token.LBrace); err != nil {
		return nil, err
	}
	var stmts []ast.Node
	for p.tok.Kind != token.RBrace {
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.eat(token.RBrace); err != nil {
		return nil, err
	}
	return stmts, nil
}

// stmt parses one statement inside a function body.
func (p *Parser) stmt() (ast.Node, error) {
	if p.tok.Kind == token.Star {
		return p.derefStoreStmt()
	}

	if p.tok.Kind != token.Ident {
		return nil, p.errorf(p.tok.Line, p.tok.Col, "unexpected token %s", p.tok.Kind)
	}

	switch p.tok.Lexeme {
	case "void", "char", "int", "float", "mut":
		n, err := p.declaration(true)
		if err != nil {
			return nil, err
		}
		if _, err := p.eat(token.Semi); err != nil {
			return nil, err
		}
		return n, nil
	case "return":
		return p.retStmt()
	case "if":
		return p.ifStmt()
	case "while":
		return p.whileStmt()
	case "do":
		return p.doWhileStmt()
	case "for":
		return p.forStmt()
	}

	n, err := p.identStmt()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(token.Semi); err != nil {
		return nil, err
	}
	return n, nil
}

// identStmt parses a statement that starts with a plain identifier: a
// call, a store, a subscript store, or a compound-assign store.
func (p *Parser) identStmt() (ast.Node, error) {
	line, col := p.tok.Line, p.tok.Col
	name := p.tok.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch {
	case p.tok.Kind == token.LParen:
		return p.stmtCall(name, line, col)

	case p.tok.Kind == token.Equal:
		target := p.syms.LookupVar(p.scope, name)
		if target == nil {
			return nil, p.errorf(line, col, "unknown identifier '%s'", name)
		}
		if err := p.checkStore(target, line, col); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.value(target.Type)
		if err != nil {
			return nil, err
		}
		if ref, ok := val.(*ast.Ref); ok {
			if err := p.checkRefBinding(target, ref); err != nil {
				return nil, err
			}
		}
		return &ast.Assign{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name, Value: val}, nil

	case p.tok.Kind == token.LSquare:
		return p.subscrStore(name, line, col)

	case p.tok.Kind.IsCompoundAssign():
		return p.compoundStore(name, line, col)
	}

	return nil, p.errorf(p.tok.Line, p.tok.Col, "unexpected token %s", p.tok.Kind)
}

// subscrStore parses `ID '[' value ']' '=' value`.
func (p *Parser) subscrStore(name string, line, col int) (ast.Node, error) {
	target := p.syms.LookupVar(p.scope, name)
	if target == nil {
		return nil, p.errorf(line, col, "unknown identifier '%s'", name)
	}
	if !target.Type.IsPointer() {
		return nil, p.errorf(line, col, "'%s' is not an array or pointer", name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	idx, err := p.value(&ast.Type{Base: ast.Int})
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(token.RSquare); err != nil {
		return nil, err
	}
	if _, err := p.eat(token.Equal); err != nil {
		return nil, err
	}
	elemType := target.Type.Deref()
	val, err := p.value(&elemType)
	if err != nil {
		return nil, err
	}
	return &ast.Subscr{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name, Index: idx, Value: val}, nil
}

// derefStoreStmt parses `'*' ID '=' value`.
func (p *Parser) derefStoreStmt() (ast.Node, error) {
	line, col := p.tok.Line, p.tok.Col
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, nline, ncol, err := p.identName()
	if err != nil {
		return nil, err
	}
	target := p.syms.LookupVar(p.scope, name)
	if target == nil {
		return nil, p.errorf(nline, ncol, "unknown identifier '%s'", name)
	}
	if !target.Type.IsPointer() {
		return nil, p.errorf(nline, ncol, "cannot dereference non-pointer '%s'", name)
	}
	if _, err := p.eat(token.Equal); err != nil {
		return nil, err
	}
	elemType := target.Type.Deref()
	val, err := p.value(&elemType)
	if err != nil {
		return nil, err
	}
	n := &ast.Deref{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name, Value: val}
	if _, err := p.eat(token.Semi); err != nil {
		return nil, err
	}
	return n, nil
}

// compoundStore desugars `ID op= value` into `ID = ID op value`.
func (p *Parser) compoundStore(name string, line, col int) (ast.Node, error) {
	target := p.syms.LookupVar(p.scope, name)
	if target == nil {
		return nil, p.errorf(line, col, "unknown identifier '%s'", name)
	}
	if err := p.checkStore(target, line, col); err != nil {
		return nil, err
	}
	opTok := p.tok
	if err := p.advance(); err != nil {
		return nil, err
	}
	rhs, err := p.value(target.Type)
	if err != nil {
		return nil, err
	}
	variable := &ast.Var{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name}
	m := &ast.Math{
		Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col},
		Expr: []ast.Node{
			variable,
			&ast.Oper{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: opTok.Line, Col: opTok.Col}, TokKind: opTok.Kind.CompoundBase()},
			rhs,
		},
	}
	return &ast.Assign{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name, Value: m}, nil
}

// retStmt parses `'return' value? ';'`.
func (p *Parser) retStmt() (ast.Node, error) {
	line, col := p.tok.Line, p.tok.Col
	if err := p.advance(); err != nil {
		return nil, err
	}
	r := &ast.Ret{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}}
	if p.tok.Kind != token.Semi {
		if p.funcRet.IsVoid() {
			return nil, p.errorf(line, col, "returning a value from void function '%s'", p.funcName)
		}
		val, err := p.value(&p.funcRet)
		if err != nil {
			return nil, err
		}
		r.Value = val
	} else if !p.funcRet.IsVoid() {
		return nil, p.errorf(line, col, "function '%s' must return a value of type '%s'", p.funcName, p.funcRet.String())
	}
	if _, err := p.eat(token.Semi); err != nil {
		return nil, err
	}
	return r, nil
}

// ifStmt parses `'if' '(' cond ')' block_or_stmt ('else' block_or_stmt)?`.
func (p *Parser) ifStmt() (ast.Node, error) {
	line, col := p.tok.Line, p.tok.Col
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.eat(token.LParen); err != nil {
		return nil, err
	}
	condTerms, err := p.cond()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(token.RParen); err != nil {
		return nil, err
	}

	saved := p.pushScope("if", line, col)
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	p.popScope(saved)

	ie := &ast.IfElse{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Cond: condTerms, Body: body}

	if p.isKeyword("else") {
		eline, ecol := p.tok.Line, p.tok.Col
		if err := p.advance(); err != nil {
			return nil, err
		}
		saved := p.pushScope("else", eline, ecol)
		elseBody, err := p.block()
		if err != nil {
			return nil, err
		}
		p.popScope(saved)
		ie.Else = elseBody
		if ie.Else == nil {
			ie.Else = []ast.Node{}
		}
	}
	return ie, nil
}

// whileStmt parses `'while' '(' cond ')' block_or_stmt`.
func (p *Parser) whileStmt() (ast.Node, error) {
	line, col := p.tok.Line, p.tok.Col
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.eat(token.LParen); err != nil {
		return nil, err
	}
	condTerms, err := p.cond()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(token.RParen); err != nil {
		return nil, err
	}
	saved := p.pushScope("while", line, col)
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	p.popScope(saved)
	return &ast.While{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Cond: condTerms, Body: body}, nil
}

// doWhileStmt parses `'do' block_or_stmt 'while' '(' cond ')' ';'`.
func (p *Parser) doWhileStmt() (ast.Node, error) {
	line, col := p.tok.Line, p.tok.Col
	if err := p.advance(); err != nil {
		return nil, err
	}
	saved := p.pushScope("while", line, col)
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	p.popScope(saved)
	if !p.isKeyword("while") {
		return nil, p.errorf(p.tok.Line, p.tok.Col, "expected 'while' but found %s", p.tok.Kind)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.eat(token.LParen); err != nil {
		return nil, err
	}
	condTerms, err := p.cond()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(token.RParen); err != nil {
		return nil, err
	}
	if _, err := p.eat(token.Semi); err != nil {
		return nil, err
	}
	return &ast.While{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Cond: condTerms, Body: body, DoFirst: true}, nil
}

// forStmt parses `'for' '(' assign ';' cond ';' assign ')' block_or_stmt`.
func (p *Parser) forStmt() (ast.Node, error) {
	line, col := p.tok.Line, p.tok.Col
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.eat(token.LParen); err != nil {
		return nil, err
	}

	saved := p.pushScope("for", line, col)

	initNode, err := p.declaration(true)
	if err != nil {
		return nil, err
	}
	init, ok := initNode.(*ast.Assign)
	if !ok {
		return nil, p.errorAt(initNode, "for-loop initializer must be an assignment")
	}
	if _, err := p.eat(token.Semi); err != nil {
		return nil, err
	}

	condTerms, err := p.cond()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(token.Semi); err != nil {
		return nil, err
	}

	stepNode, err := p.identStmt()
	if err != nil {
		return nil, err
	}
	step, ok := stepNode.(*ast.Assign)
	if !ok {
		return nil, p.errorAt(stepNode, "for-loop step must be an assignment")
	}
	if _, err := p.eat(token.RParen); err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}
	p.popScope(saved)

	return &ast.For{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Init: init, Cond: condTerms, Step: step, Body: body}, nil
}
