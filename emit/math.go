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

package emit

import "github.com/kinderjosh/steelc/ast"
import "github.com/kinderjosh/steelc/token"

type mathSlot struct {
	node   ast.Node
	active bool
}

// emitMath lowers a flat MATH node: two passes over its operator
// positions (mul-level, then add-level, left-to-right within each),
// emitting one arithmetic instruction per surviving operator. The final
// result is deposited into intReg/floatReg exactly like any other operand
// lowering.
func (f *Func) emitMath(m *ast.Math, intReg, floatReg string) error {
	n := (len(m.Expr) + 1) / 2
	slots := make([]mathSlot, n)
	kinds := make([]token.Kind, n-1)
	for i := 0; i < n; i++ {
		slots[i] = mathSlot{node: m.Expr[i*2], active: true}
	}
	for i := range kinds {
		kinds[i] = m.Expr[i*2+1].(*ast.Oper).TokKind
	}

	total := len(kinds)
	applied := 0

	// Operator kinds[i] sits between operand positions i and i+1; its left
	// operand is the nearest still-active position at or left of i (earlier
	// steps collapse their result onto their left position), its right the
	// nearest active at or right of i+1.
	pass := func(pred func(token.Kind) bool) error {
		for i := 0; i < len(kinds); i++ {
			if !pred(kinds[i]) {
				continue
			}
			li := i
			for !slots[li].active {
				li--
			}
			ri := i + 1
			for !slots[ri].active {
				ri++
			}
			applied++
			isLast := applied == total
			mv, err := f.emitBinOp(slots[li].node, slots[ri].node, kinds[i], isLast)
			if err != nil {
				return err
			}
			slots[li].node = mv
			slots[ri].active = false
		}
		return nil
	}

	if err := pass(token.Kind.IsMulLevel); err != nil {
		return err
	}
	if err := pass(token.Kind.IsAddLevel); err != nil {
		return err
	}

	var result ast.Node
	for i := range slots {
		if slots[i].active {
			result = slots[i].node
		}
	}
	return f.loadInto(result, intReg, floatReg)
}

// emitBinOp emits one `left op right` step: load both operands, convert a
// mixed int/float pair, pick the instruction (with power-of-two strength
// reduction when legal), and return a MATH_VAR standing in for the
// result — spilled to a fresh frame slot unless this was the very last
// operator in the expression, in which case the result stays live in the
// accumulator.
func (f *Func) emitBinOp(left, right ast.Node, op token.Kind, isLast bool) (*ast.MathVar, error) {
	leftFloat := f.mathOperandIsFloat(left)
	rightFloat := f.mathOperandIsFloat(right)
	isFloat := leftFloat || rightFloat

	if op == token.Percent && isFloat {
		return nil, f.e.errorf(0, 0, "internal error: modulus on float reached the emitter")
	}

	if err := f.loadInto(left, "eax", "xmm0"); err != nil {
		return nil, err
	}

	if !isFloat {
		if lit, ok := right.(*ast.IntLit); ok && op.IsMulLevel() {
			if shift, ok := isPow2(lit.Value); ok {
				switch op {
				case token.Star:
					f.emit("    sal eax, %d\n", shift)
				case token.Slash:
					f.emit("    sar eax, %d\n", shift)
				case token.Percent:
					f.emit("    and eax, %d\n", lit.Value-1)
				}
				return f.finishBinOp(false, isLast)
			}
		}
	}

	// Evaluating the right operand may route through the accumulator (a
	// call's return value, a nested MATH, a subscript with a computed
	// index), destroying the left value already sitting there; park the
	// left value in a frame slot across it.
	if f.clobbersAccum(right) {
		park := f.alloc(8)
		if leftFloat {
			f.emit("    movss %s, xmm0\n", dwordSlot(park))
		} else {
			f.emit("    mov %s, eax\n", dwordSlot(park))
		}
		if err := f.loadInto(right, "ebx", "xmm1"); err != nil {
			return nil, err
		}
		if leftFloat {
			f.emit("    movss xmm0, %s\n", dwordSlot(park))
		} else {
			f.emit("    mov eax, %s\n", dwordSlot(park))
		}
	} else if err := f.loadInto(right, "ebx", "xmm1"); err != nil {
		return nil, err
	}

	if isFloat {
		if !leftFloat {
			f.emit("    cvtsi2ss xmm0, eax\n")
		}
		if !rightFloat {
			f.emit("    cvtsi2ss xmm1, ebx\n")
		}
		switch op {
		case token.Plus:
			f.emit("    addss xmm0, xmm1\n")
		case token.Minus:
			f.emit("    subss xmm0, xmm1\n")
		case token.Star:
			f.emit("    mulss xmm0, xmm1\n")
		case token.Slash:
			f.emit("    divss xmm0, xmm1\n")
		}
		return f.finishBinOp(true, isLast)
	}

	switch op {
	case token.Plus:
		f.emit("    add eax, ebx\n")
	case token.Minus:
		f.emit("    sub eax, ebx\n")
	case token.Star:
		f.emit("    imul eax, ebx\n")
	case token.Slash, token.Percent:
		f.emit("    cqo\n")
		f.emit("    idiv ebx\n")
		if op == token.Percent {
			f.emit("    mov eax, edx\n")
		}
	}
	return f.finishBinOp(false, isLast)
}

func (f *Func) finishBinOp(isFloat, isLast bool) (*ast.MathVar, error) {
	if isLast {
		return &ast.MathVar{IsFloat: isFloat}, nil
	}
	slot := f.alloc(8)
	if isFloat {
		f.emit("    movss %s, xmm0\n", dwordSlot(slot))
	} else {
		f.emit("    mov %s, eax\n", dwordSlot(slot))
	}
	return &ast.MathVar{HasSlot: true, FrameSlot: slot, IsFloat: isFloat}, nil
}
