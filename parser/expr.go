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
	"strconv"

	"github.com/kinderjosh/steelc/ast"
	"github.com/kinderjosh/steelc/token"
)

// value parses `atom (binop value)?`: an atom, then, if it is followed by
// an arithmetic operator, hands off to math to accumulate the flat
// operand/operator list. expected, if non-nil, is the type the result is
// destined for (a variable, a parameter, a return value, an array index),
// used to narrow literals on the spot; comparison operands pass nil.
func (p *Parser) value(expected *ast.Type) (ast.Node, error) {
	first, err := p.atom(expected)
	if err != nil {
		return nil, err
	}
	if !p.tok.Kind.IsMathOp() {
		return first, nil
	}
	return p.math(first, expected)
}

// atom parses one operand: a literal, a variable/call/subscript reference,
// a dereference, an address-of, or a brace-enclosed list literal.
func (p *Parser) atom(expected *ast.Type) (ast.Node, error) {
	line, col := p.tok.Line, p.tok.Col

	switch p.tok.Kind {
	case token.Int:
		t, err := p.eat(token.Int)
		if err != nil {
			return nil, err
		}
		v, _ := strconv.ParseInt(t.Lexeme, 10, 64)
		n := &ast.IntLit{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Value: v}
		return p.narrowLiteral(n, expected), nil

	case token.Float:
		t, err := p.eat(token.Float)
		if err != nil {
			return nil, err
		}
		v, _ := strconv.ParseFloat(t.Lexeme, 64)
		n := &ast.FloatLit{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Value: v}
		return p.narrowLiteral(n, expected), nil

	case token.Str:
		t, err := p.eat(token.Str)
		if err != nil {
			return nil, err
		}
		return &ast.StrLit{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Bytes: t.Lexeme}, nil

	case token.LBrace:
		return p.arrLit(expected, line, col)

	case token.Star:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, nline, ncol, err := p.identName()
		if err != nil {
			return nil, err
		}
		if v := p.syms.LookupVar(p.scope, name); v == nil {
			return nil, p.errorf(nline, ncol, "unknown identifier '%s'", name)
		} else if !v.Type.IsPointer() {
			return nil, p.errorf(nline, ncol, "cannot dereference non-pointer '%s'", name)
		}
		return &ast.Deref{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name}, nil

	case token.Amp:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, nline, ncol, err := p.identName()
		if err != nil {
			return nil, err
		}
		if p.syms.LookupVar(p.scope, name) == nil {
			return nil, p.errorf(nline, ncol, "unknown identifier '%s'", name)
		}
		return &ast.Ref{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name}, nil

	case token.Ident:
		return p.identAtom(expected, line, col)
	}

	return nil, p.errorf(line, col, "unexpected token %s", p.tok.Kind)
}

func (p *Parser) identName() (string, int, int, error) {
	t, err := p.eat(token.Ident)
	if err != nil {
		return "", 0, 0, err
	}
	return t.Lexeme, t.Line, t.Col, nil
}

// identAtom resolves a bare identifier atom into a call, a subscript load,
// or a variable reference, decided by the token that follows the name.
func (p *Parser) identAtom(expected *ast.Type, line, col int) (ast.Node, error) {
	name := p.tok.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.tok.Kind {
	case token.LParen:
		return p.callExpr(name, line, col)

	case token.LSquare:
		v := p.syms.LookupVar(p.scope, name)
		if v == nil {
			return nil, p.errorf(line, col, "unknown identifier '%s'", name)
		}
		if !v.Type.IsPointer() {
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
		return &ast.Subscr{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name, Index: idx}, nil
	}

	v := p.syms.LookupVar(p.scope, name)
	if v == nil {
		return nil, p.errorf(line, col, "unknown identifier '%s'", name)
	}
	return &ast.Var{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name}, nil
}

// callExpr parses a call used in a value position: calling a void function
// here is fatal.
func (p *Parser) callExpr(name string, line, col int) (ast.Node, error) {
	call, fn, err := p.parseCall(name, line, col)
	if err != nil {
		return nil, err
	}
	if fn.RetType.IsVoid() {
		return nil, p.errorf(line, col, "calling void function '%s' in a value position", name)
	}
	return call, nil
}

// stmtCall parses a call used as a whole statement: a void return type is
// fine here, it is simply discarded if non-void.
func (p *Parser) stmtCall(name string, line, col int) (ast.Node, error) {
	call, _, err := p.parseCall(name, line, col)
	return call, err
}

// parseCall parses the argument list of a call whose name and opening '('
// have already been identified; '(' itself is still unconsumed.
func (p *Parser) parseCall(name string, line, col int) (*ast.Call, *ast.Func, error) {
	fn := p.syms.LookupFunc(ast.GlobalScope, name)
	if fn == nil {
		return nil, nil, p.errorf(line, col, "call to unknown function '%s'", name)
	}
	if err := p.checkDirectRecursion(fn, line, col); err != nil {
		return nil, nil, err
	}

	if _, err := p.eat(token.LParen); err != nil {
		return nil, nil, err
	}
	call := &ast.Call{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}, Name: name}

	i := 0
	for p.tok.Kind != token.RParen {
		if i >= len(fn.Params) {
			return nil, nil, p.errorf(p.tok.Line, p.tok.Col, "too many arguments to '%s'", name)
		}
		arg, err := p.value(fn.Params[i].Type)
		if err != nil {
			return nil, nil, err
		}
		if ref, ok := arg.(*ast.Ref); ok {
			if err := p.checkRefMutability(ref, fn.Params[i], p.tok.Line, p.tok.Col); err != nil {
				return nil, nil, err
			}
		}
		call.Args = append(call.Args, arg)
		i++
		if p.tok.Kind == token.Comma {
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
		} else if p.tok.Kind != token.RParen {
			return nil, nil, p.errorf(p.tok.Line, p.tok.Col, "expected ',' or ')' but found %s", p.tok.Kind)
		}
	}
	if i != len(fn.Params) {
		return nil, nil, p.errorf(line, col, "too few arguments to '%s': expected %d, got %d", name, len(fn.Params), i)
	}
	if _, err := p.eat(token.RParen); err != nil {
		return nil, nil, err
	}
	return call, fn, nil
}

func (p *Parser) checkDirectRecursion(fn *ast.Func, line, col int) error {
	if fn.Name == p.funcName {
		return p.errorf(line, col, "call to '%s' will result in infinite recursion", fn.Name)
	}
	return nil
}

// arrLit parses `'{' value (',' value)* '}'`.
func (p *Parser) arrLit(expected *ast.Type, line, col int) (ast.Node, error) {
	if _, err := p.eat(token.LBrace); err != nil {
		return nil, err
	}
	elemType := ast.Type{Base: ast.Int}
	if expected != nil && expected.IsPointer() {
		elemType = expected.Deref()
	}
	lit := &ast.ArrLit{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}}
	for p.tok.Kind != token.RBrace {
		v, err := p.value(&elemType)
		if err != nil {
			return nil, err
		}
		lit.Elems = append(lit.Elems, v)
		if p.tok.Kind == token.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.tok.Kind != token.RBrace {
			return nil, p.errorf(p.tok.Line, p.tok.Col, "expected ',' or '}' but found %s", p.tok.Kind)
		}
	}
	if _, err := p.eat(token.RBrace); err != nil {
		return nil, err
	}
	return lit, nil
}

// math accumulates the flat operand/operator list starting from an
// already-parsed first operand, then attempts constant folding.
func (p *Parser) math(first ast.Node, expected *ast.Type) (ast.Node, error) {
	line, col := first.Position()
	m := &ast.Math{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}}
	m.Expr = append(m.Expr, first)

	for p.tok.Kind.IsMathOp() {
		opTok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.atom(expected)
		if err != nil {
			return nil, err
		}
		m.Expr = append(m.Expr, &ast.Oper{Base: ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: opTok.Line, Col: opTok.Col}, TokKind: opTok.Kind})
		m.Expr = append(m.Expr, operand)
	}

	if err := p.checkModuloOnFloat(m); err != nil {
		return nil, err
	}

	if folded, ok, err := p.foldConstants(m); err != nil {
		return nil, err
	} else if ok {
		return folded, nil
	}
	return m, nil
}

func (p *Parser) checkModuloOnFloat(m *ast.Math) error {
	for i := 1; i < len(m.Expr); i += 2 {
		op := m.Expr[i].(*ast.Oper)
		if op.TokKind != token.Percent {
			continue
		}
		left, right := m.Expr[i-1], m.Expr[i+1]
		if p.isFloatNode(left) || p.isFloatNode(right) {
			return p.errorAt(op, "modulus on float is not supported")
		}
	}
	return nil
}

func (p *Parser) isFloatNode(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.FloatLit:
		return true
	case *ast.IntLit:
		return false
	case *ast.Var:
		if sym := p.syms.LookupVar(p.scope, v.Name); sym != nil {
			return sym.Type.IsFloat()
		}
	case *ast.Call:
		if fn := p.syms.LookupFunc(ast.GlobalScope, v.Name); fn != nil {
			return fn.RetType.IsFloat()
		}
	case *ast.MathVar:
		return v.IsFloat
	case *ast.Math:
		for _, e := range v.Expr {
			if _, isOp := e.(*ast.Oper); isOp {
				continue
			}
			if p.isFloatNode(e) {
				return true
			}
		}
	}
	return false
}

// foldConstants evaluates a flat expression at compile time in the same
// two-pass order the emitter uses (mul-level then add-level, left-to-right
// within each), triggering only when every operand in m.Expr is an INT or
// FLOAT literal.
func (p *Parser) foldConstants(m *ast.Math) (ast.Node, bool, error) {
	for i := 0; i < len(m.Expr); i += 2 {
		switch m.Expr[i].(type) {
		case *ast.IntLit, *ast.FloatLit:
		default:
			return nil, false, nil
		}
	}

	type operand struct {
		isFloat bool
		i       int64
		f       float64
		active  bool
	}
	n := (len(m.Expr) + 1) / 2
	ops := make([]operand, n)
	for i := 0; i < n; i++ {
		switch v := m.Expr[i*2].(type) {
		case *ast.IntLit:
			ops[i] = operand{i: v.Value, active: true}
		case *ast.FloatLit:
			ops[i] = operand{isFloat: true, f: v.Value, active: true}
		}
	}
	kinds := make([]token.Kind, n-1)
	for i := range kinds {
		kinds[i] = m.Expr[i*2+1].(*ast.Oper).TokKind
	}

	apply := func(li, ri, ki int) error {
		l, r := &ops[li], &ops[ri]
		isFloat := l.isFloat || r.isFloat
		var lf, rf float64
		if isFloat {
			lf, rf = l.f, r.f
			if !l.isFloat {
				lf = float64(l.i)
			}
			if !r.isFloat {
				rf = float64(r.i)
			}
		}
		var result operand
		result.active = true
		result.isFloat = isFloat
		switch kinds[ki] {
		case token.Plus:
			if isFloat {
				result.f = lf + rf
			} else {
				result.i = l.i + r.i
			}
		case token.Minus:
			if isFloat {
				result.f = lf - rf
			} else {
				result.i = l.i - r.i
			}
		case token.Star:
			if isFloat {
				result.f = lf * rf
			} else {
				result.i = l.i * r.i
			}
		case token.Slash:
			if isFloat {
				result.f = lf / rf
			} else {
				if r.i == 0 {
					return p.errorAt(m, "division by zero")
				}
				result.i = l.i / r.i
			}
		case token.Percent:
			if r.i == 0 {
				return p.errorAt(m, "division by zero")
			}
			result.i = l.i % r.i
		}
		*l = result
		return nil
	}

	// Operator kinds[i] sits between operand positions i and i+1. Its left
	// operand is the nearest still-active position at or left of i (earlier
	// folds collapse results leftward), its right the nearest active at or
	// right of i+1. The result lands on the left position; the right one is
	// retired.
	consumed := make([]bool, len(kinds))
	pass := func(pred func(token.Kind) bool) error {
		for i := 0; i < len(kinds); i++ {
			if consumed[i] || !pred(kinds[i]) {
				continue
			}
			li := i
			for !ops[li].active {
				li--
			}
			ri := i + 1
			for !ops[ri].active {
				ri++
			}
			if err := apply(li, ri, i); err != nil {
				return err
			}
			ops[ri].active = false
			consumed[i] = true
		}
		return nil
	}

	if err := pass(token.Kind.IsMulLevel); err != nil {
		return nil, false, err
	}
	if err := pass(token.Kind.IsAddLevel); err != nil {
		return nil, false, err
	}

	var last operand
	for i := range ops {
		if ops[i].active {
			last = ops[i]
		}
	}
	line, col := m.Position()
	base := ast.Base{ScopeDef: p.scope, FuncDef: p.funcName, Line: line, Col: col}
	if last.isFloat {
		return &ast.FloatLit{Base: base, Value: last.f}, true, nil
	}
	return &ast.IntLit{Base: base, Value: last.i}, true, nil
}

// cond parses `rel (('&&'|'||') rel)*` into a flat CondTerm list.
func (p *Parser) cond() ([]ast.CondTerm, error) {
	var terms []ast.CondTerm
	join := token.EOF
	for {
		left, err := p.value(nil)
		if err != nil {
			return nil, err
		}
		if !p.tok.Kind.IsRelOp() {
			return nil, p.errorf(p.tok.Line, p.tok.Col, "expected a comparison operator but found %s", p.tok.Kind)
		}
		op := p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.value(nil)
		if err != nil {
			return nil, err
		}
		terms = append(terms, ast.CondTerm{Left: left, Right: right, Op: op, Join: join})

		if p.tok.Kind == token.And {
			join = token.And
		} else if p.tok.Kind == token.Or {
			join = token.Or
		} else {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return terms, nil
}
