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

import (
	"github.com/kinderjosh/steelc/ast"
	"github.com/kinderjosh/steelc/token"
)

// callArgReg returns the register an integer-class argument in position
// idx should be staged into, sized for the parameter (qword for a
// pointer, dword otherwise — writing the dword alias is enough to set a
// char argument's low byte correctly, so char and int share it).
func callArgReg(idx, size int) string {
	if size == 8 {
		return intArgRegsQword[idx]
	}
	return intArgRegsDword[idx]
}

// containsCall reports whether n (an argument expression) has a Call
// anywhere inside it, direct, nested inside a MATH list, or buried in a
// subscript's index.
func containsCall(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.Call:
		return true
	case *ast.Math:
		for _, e := range v.Expr {
			if containsCall(e) {
				return true
			}
		}
	case *ast.Subscr:
		return containsCall(v.Index)
	}
	return false
}

// containsDiv reports whether n has an integer division or modulus inside
// it. idiv writes edx, which doubles as the third integer argument
// register, so a division inside an argument expression needs the same
// preservation a nested call does.
func containsDiv(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.Math:
		for i := 1; i < len(v.Expr); i += 2 {
			op := v.Expr[i].(*ast.Oper)
			if op.TokKind == token.Slash || op.TokKind == token.Percent {
				return true
			}
		}
		for i := 0; i < len(v.Expr); i += 2 {
			if containsDiv(v.Expr[i]) {
				return true
			}
		}
	case *ast.Subscr:
		return containsDiv(v.Index)
	}
	return false
}

// clobbersAccum reports whether evaluating n routes through eax/xmm0
// before its result reaches the requested destination register: true for
// a call (return value), a MATH list (accumulator arithmetic), and a
// subscript whose index itself needs evaluation through the accumulator.
func (f *Func) clobbersAccum(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.Call, *ast.Math:
		return true
	case *ast.Subscr:
		return f.clobbersAccum(v.Index)
	}
	return false
}

type floatPreserve struct {
	reg  string
	slot int
}

// emitCall lowers a CALL, implementing the nested-call preservation
// discipline: before evaluating an argument that itself
// contains a call, every already-populated integer argument register is
// pushed and every already-populated float argument register is spilled
// to a fresh frame slot; both are restored right after the inner call
// returns, so the outer call's argument setup survives it.
func (f *Func) emitCall(call *ast.Call) error {
	fn := f.e.syms.LookupFunc(ast.GlobalScope, call.Name)
	if fn == nil {
		return f.e.errorf(call.Line, call.Col, "internal error: call to unresolved function '%s'", call.Name)
	}

	intIdx, floatIdx := 0, 0
	var intRegsUsed []string   // 64-bit names, in placement order
	var floatRegsUsed []string // xmmN names, in placement order
	var overflowSlots []int

	for i, arg := range call.Args {
		param := fn.Params[i]
		isFloat := param.Type.IsFloat()
		preserve := containsCall(arg) || containsDiv(arg)
		preserveCount := len(intRegsUsed) // snapshot: this arg's own dest reg (added below) must not be popped

		var preservedFloats []floatPreserve
		if preserve {
			for j := preserveCount - 1; j >= 0; j-- {
				f.emit("    push %s\n", intRegsUsed[j])
			}
			for _, reg := range floatRegsUsed {
				s := f.alloc(8)
				f.emit("    movss %s, %s\n", dwordSlot(s), reg)
				preservedFloats = append(preservedFloats, floatPreserve{reg: reg, slot: s})
			}
		}

		switch {
		case isFloat && floatIdx < maxFloatArgRegs:
			dest := floatRegName(floatIdx)
			if err := f.loadInto(arg, "eax", dest); err != nil {
				return err
			}
			floatIdx++
			floatRegsUsed = append(floatRegsUsed, dest)

		case !isFloat && intIdx < len(intArgRegsQword):
			dest := callArgReg(intIdx, param.Type.Size())
			if err := f.loadInto(arg, dest, "xmm0"); err != nil {
				return err
			}
			intIdx++
			intRegsUsed = append(intRegsUsed, to64(dest))

		default:
			s := f.alloc(8)
			if isFloat {
				if err := f.loadInto(arg, "eax", "xmm1"); err != nil {
					return err
				}
				f.emit("    movss %s, xmm1\n", dwordSlot(s))
			} else {
				if err := f.loadInto(arg, "eax", "xmm0"); err != nil {
					return err
				}
				// Store the full rax: a pointer argument needs all 8
				// bytes, and 32-bit loads zero-extend so an int's upper
				// half is already clean.
				f.emit("    mov %s, rax\n", sizedSlot(s, 8))
			}
			overflowSlots = append(overflowSlots, s)
		}

		if preserve {
			for _, p := range preservedFloats {
				f.emit("    movss %s, %s\n", p.reg, dwordSlot(p.slot))
			}
			for j := 0; j < preserveCount; j++ {
				f.emit("    pop %s\n", intRegsUsed[j])
			}
		}
	}

	for i := len(overflowSlots) - 1; i >= 0; i-- {
		f.emit("    push qword %s\n", slot(overflowSlots[i]))
	}

	f.emit("    call %s_\n", call.Name)

	if len(overflowSlots) > 0 {
		f.emit("    add rsp, %d\n", 8*len(overflowSlots))
	}
	return nil
}

func floatRegName(idx int) string {
	return "xmm" + itoaEmit(idx+1)
}

func itoaEmit(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
