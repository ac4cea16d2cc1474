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

// Package ast defines the typed AST produced by the parser and the
// process-wide symbol table it populates.
//
// There is one Go type per node kind (a sum type in spirit: an interface
// with a fixed, closed set of implementations). Node kinds that define
// identifiers (Func, Assign) are also appended to the symbol Table as they
// are parsed.
package ast

import "github.com/kinderjosh/steelc/token"

// Kind discriminates the concrete Go type behind a Node.
type Kind int

const (
	KindRoot Kind = iota
	KindInt
	KindFloat
	KindStr
	KindVar
	KindFunc
	KindCall
	KindAssign
	KindRet
	KindMath
	KindOper
	KindMathVar
	KindIfElse
	KindWhile
	KindFor
	KindSubscr
	KindDeref
	KindRef
	KindArrLit
)

// Node is implemented by every AST node type. The parser and emitter
// switch exhaustively over the concrete types, so an unhandled node kind
// surfaces as an explicit internal error rather than silent miscompilation.
type Node interface {
	Kind() Kind
	Position() (line, col int)
}

// Base carries the fields common to every node: the scope chain and
// enclosing function name it was parsed in, its source position, and an
// Active flag. No parser or emitter code reads or writes Active: MATH
// folding and lowering track which operands are still live in their own
// local lists.
type Base struct {
	ScopeDef string
	FuncDef  string
	Line     int
	Col      int
	Active   bool
}

func (b Base) Position() (int, int) { return b.Line, b.Col }

// Root is the translation unit: a sequence of top-level Func and Assign
// declarations.
type Root struct {
	Base
	Children []Node
}

func (*Root) Kind() Kind { return KindRoot }

// IntLit is an integer literal, already range-reduced to its target width
// where the parser had one available.
type IntLit struct {
	Base
	Value int64
}

func (*IntLit) Kind() Kind { return KindInt }

// FloatLit is a single-precision floating point literal.
type FloatLit struct {
	Base
	Value float64
}

func (*FloatLit) Kind() Kind { return KindFloat }

// StrLit is a string literal. Bytes holds the raw lexeme; escapes are
// decoded at emit time, when the bytes are laid out, not at parse time.
type StrLit struct {
	Base
	Bytes string
}

func (*StrLit) Kind() Kind { return KindStr }

// Var is a reference to a previously declared variable, visible in the
// current scope.
type Var struct {
	Base
	Name string
}

func (*Var) Kind() Kind { return KindVar }

// Func is a function definition. Params are Assign nodes with Value==nil.
// HasReturn records whether the body ends in a Ret carrying a value, either
// directly or in both arms of a trailing if/else (required for every
// non-void function); a bare `return;` does not set it.
type Func struct {
	Base
	Name      string
	RetType   Type
	Params    []*Assign
	Body      []Node
	HasReturn bool
}

func (*Func) Kind() Kind { return KindFunc }

// Call is a function invocation used as a statement or nested inside an
// expression.
type Call struct {
	Base
	Name string
	Args []Node
}

func (*Call) Kind() Kind { return KindCall }

// Assign is either a declaration (Type != nil) or a store to an existing
// variable (Type == nil). FrameSlot is filled in by the emitter, not the
// parser: it is the byte offset below rbp reserved for this variable,
// and is also set in place for parameters, which the emitter spills from
// their arriving registers to a frame slot as its first action inside the
// function body. Globals never get a FrameSlot.
type Assign struct {
	Base
	Name      string
	Type      *Type
	FrameSlot int // set by the emitter when it lays out the frame
	Declared  bool // set by the parser once the declaration is parsed
	Value     Node
	Mut       bool
	ArrCap    int
}

func (*Assign) Kind() Kind { return KindAssign }

// Ret is a return statement. Value is nil in a void function.
type Ret struct {
	Base
	Value Node
}

func (*Ret) Kind() Kind { return KindRet }

// Math is a flat, alternating operand/operator sequence: Expr[0] is an
// operand, Expr[1] is an Oper, Expr[2] is an operand, and so on, ending in
// an operand. len(Expr) is always odd and >= 3: single operands never
// become a Math node.
type Math struct {
	Base
	Expr []Node
}

func (*Math) Kind() Kind { return KindMath }

// Oper wraps the token.Kind of one operator inside a Math.Expr or a
// condition list.
type Oper struct {
	Base
	TokKind token.Kind
}

func (*Oper) Kind() Kind { return KindOper }

// MathVar replaces a folded sub-expression inside Math.Expr during
// emission. When FrameSlot is set (HasSlot true) the partial result was
// spilled to the stack; otherwise it is still live in the accumulator
// register (eax or xmm0, per IsFloat).
type MathVar struct {
	Base
	HasSlot   bool
	FrameSlot int
	IsFloat   bool
}

func (*MathVar) Kind() Kind { return KindMathVar }

// CondTerm is one element of a flat condition list: either a relational
// comparison (Left op Right) or a logical connective (And/Or) joining the
// previous term to the next.
type CondTerm struct {
	Left, Right Node
	Op          token.Kind // relational operator for a comparison term
	Join        token.Kind // token.And, token.Or, or token.EOF for the first term
}

// IfElse is an if statement, optionally with an else clause.
type IfElse struct {
	Base
	Cond []CondTerm
	Body []Node
	Else []Node // nil if no else clause
}

func (*IfElse) Kind() Kind { return KindIfElse }

// While is a while or do-while loop. DoFirst encodes do-while.
type While struct {
	Base
	Cond    []CondTerm
	Body    []Node
	DoFirst bool
}

func (*While) Kind() Kind { return KindWhile }

// For is a C-style for loop. Init and Step are Assign nodes (Step is the
// desugared compound-assign/store that runs at the end of each
// iteration).
type For struct {
	Base
	Init *Assign
	Cond []CondTerm
	Step *Assign
	Body []Node
}

func (*For) Kind() Kind { return KindFor }

// Subscr is a[i]: a load when Value is nil, a store otherwise.
type Subscr struct {
	Base
	Name  string
	Index Node
	Value Node
}

func (*Subscr) Kind() Kind { return KindSubscr }

// Deref is *p: a load when Value is nil, a store otherwise.
type Deref struct {
	Base
	Name  string
	Value Node
}

func (*Deref) Kind() Kind { return KindDeref }

// Ref is &x.
type Ref struct {
	Base
	Name string
}

func (*Ref) Kind() Kind { return KindRef }

// ArrLit is a brace-enclosed list literal, valid only as an array
// declaration's initializer, e.g. `int a[4] = {1, 2, 3, 4};`.
type ArrLit struct {
	Base
	Elems []Node
}

func (*ArrLit) Kind() Kind { return KindArrLit }
