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

// Package emit walks the typed AST and writes NASM text directly, with no
// intermediate representation. It tracks a notional stack pointer per
// function, assigns frame slots to locals and parameter spills as it goes,
// and threads a small set of per-function counters/flags through every
// lowering routine (see Func).
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/kinderjosh/steelc/ast"
	"github.com/kinderjosh/steelc/internal/diag"
)

const subRspGranularity = 32

// intArgRegs*/maxFloatArgRegs are the fixed SysV register roles this emitter uses;
// there is no general allocator, just these named slots.
var intArgRegsQword = [...]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
var intArgRegsDword = [...]string{"edi", "esi", "edx", "ecx", "r8d", "r9d"}
var intArgRegsByte = [...]string{"dil", "sil", "dl", "cl", "r8b", "r9b"}

const maxFloatArgRegs = 15

// Emitter holds the whole-translation-unit state: the symbol table built
// by the parser (read for lookups, written only for Assign.FrameSlot) and
// the growing .data section contributed by global variables.
type Emitter struct {
	syms     *ast.Table
	text     strings.Builder
	sectData strings.Builder
	path     string
}

// New returns an Emitter bound to the given file path (used only for
// diagnostics) and symbol table.
func New(path string, syms *ast.Table) *Emitter {
	return &Emitter{syms: syms, path: path}
}

// Func is the per-function mutable emitter state: the
// committed/rounded stack size, the monotonic label counters, the
// function-local data builder for .fN/.sN constants, and the
// float-vs-integer flag communicating where the last expression's result
// landed.
type Func struct {
	e *Emitter

	name string
	fn   *ast.Func

	rsp      int
	rspCap   int
	floatN   int
	labelN   int
	strN     int
	retLabel string
	funcDat  strings.Builder

	body strings.Builder
}

func (e *Emitter) errorf(line, col int, format string, a ...interface{}) error {
	return diag.Errorf(e.path, line, col, format, a...)
}

// Emit lowers an entire translation unit to NASM source text.
func Emit(path string, root *ast.Root, syms *ast.Table) (string, error) {
	e := New(path, syms)
	e.text.WriteString("section .text\n")
	e.text.WriteString("    global main_\n")

	for _, child := range root.Children {
		switch n := child.(type) {
		case *ast.Func:
			if err := e.emitFunc(n); err != nil {
				return "", err
			}
		case *ast.Assign:
			e.emitGlobalVar(n)
		default:
			return "", e.errorf(0, 0, "internal error: unexpected top-level node %T", child)
		}
	}

	var out strings.Builder
	out.WriteString(e.text.String())
	if e.sectData.Len() > 0 {
		out.WriteString("section .data\n")
		out.WriteString(e.sectData.String())
	}
	glog.V(1).Infof("emit: %s: %d bytes of assembly", path, out.Len())
	return out.String(), nil
}

// alloc reserves size bytes at the bottom of the current frame and returns
// the frame slot (a positive byte offset below rbp). It grows rspCap in
// 32-byte increments whenever the committed size would exceed it,
// so the prologue reserves the whole frame in one sub.
func (f *Func) alloc(size int) int {
	f.rsp += size
	for f.rsp > f.rspCap {
		f.rspCap += subRspGranularity
	}
	return f.rsp
}

func slot(n int) string { return fmt.Sprintf("[rbp-%d]", n) }

func (f *Func) newFloatLabel() string {
	l := fmt.Sprintf(".f%d", f.floatN)
	f.floatN++
	return l
}

func (f *Func) newStrLabel() string {
	l := fmt.Sprintf(".s%d", f.strN)
	f.strN++
	return l
}

func (f *Func) newLocalLabel() string {
	l := fmt.Sprintf(".l%d", f.labelN)
	f.labelN++
	return l
}

func (f *Func) emit(format string, a ...interface{}) {
	fmt.Fprintf(&f.body, format, a...)
}

// emitFunc lowers one function: prologue, parameter spills, body,
// epilogue, then its accumulated float/string constants.
func (e *Emitter) emitFunc(fn *ast.Func) error {
	f := &Func{e: e, name: fn.Name, fn: fn}

	if err := f.spillParams(); err != nil {
		return err
	}
	for _, stmt := range fn.Body {
		if err := f.emitStmt(stmt); err != nil {
			return err
		}
	}

	e.text.WriteString(fn.Name + "_:\n")
	e.text.WriteString("    push rbp\n")
	e.text.WriteString("    mov rbp, rsp\n")
	if f.rspCap > 0 {
		e.text.WriteString(fmt.Sprintf("    sub rsp, %d\n", f.rspCap))
	}
	e.text.WriteString(f.body.String())
	e.text.WriteString(f.epilogueLabel() + ":\n")

	if f.rspCap > 0 {
		e.text.WriteString("    leave\n")
	} else {
		e.text.WriteString("    pop rbp\n")
	}
	if fn.Name == "main" {
		e.text.WriteString("    mov rax, 60\n")
		e.text.WriteString("    xor rdi, rdi\n")
		e.text.WriteString("    syscall\n")
	} else {
		e.text.WriteString("    ret\n")
	}
	e.text.WriteString(f.funcDat.String())
	return nil
}

// spillParams is the first action of every function body:
// classify each parameter into the integer or float register class, and
// spill it from its arriving register (or caller-pushed stack slot) into
// a freshly allocated frame slot, rewriting the parameter's FrameSlot so
// every later reference sees the stack copy.
func (f *Func) spillParams() error {
	intIdx, floatIdx := 0, 0
	stackOff := 16 // past the saved rbp and return address
	for _, param := range f.fn.Params {
		size := param.Type.Size()
		paramSlot := f.alloc(size)
		param.FrameSlot = paramSlot

		if param.Type.IsFloat() {
			if floatIdx < maxFloatArgRegs {
				f.emit("    movss %s, xmm%d\n", dwordSlot(paramSlot), floatIdx+1)
				floatIdx++
			} else {
				f.emit("    movss xmm0, [rbp+%d]\n", stackOff)
				f.emit("    movss %s, xmm0\n", dwordSlot(paramSlot))
				stackOff += 8
			}
			continue
		}

		if intIdx < len(intArgRegsQword) {
			reg := regForSize(intIdx, size)
			f.emit("    mov %s, %s\n", sizedSlot(paramSlot, size), reg)
			intIdx++
		} else {
			f.emit("    mov rax, [rbp+%d]\n", stackOff)
			f.emit("    mov %s, %s\n", sizedSlot(paramSlot, size), raxForSize(size))
			stackOff += 8
		}
	}
	return nil
}

func regForSize(idx, size int) string {
	switch size {
	case 1:
		return intArgRegsByte[idx]
	case 8:
		return intArgRegsQword[idx]
	default:
		return intArgRegsDword[idx]
	}
}

func raxForSize(size int) string {
	switch size {
	case 1:
		return "al"
	case 8:
		return "rax"
	default:
		return "eax"
	}
}

func dwordSlot(n int) string { return fmt.Sprintf("dword %s", slot(n)) }

func sizedSlot(n, size int) string {
	switch size {
	case 1:
		return "byte " + slot(n)
	case 8:
		return "qword " + slot(n)
	default:
		return "dword " + slot(n)
	}
}

// emitGlobalVar lays out a global ASSIGN in .data. Its initializer, if any,
// was already reduced to a literal by the parser's constant folding (no
// function calls or frame-relative values are reachable at global scope).
func (e *Emitter) emitGlobalVar(a *ast.Assign) {
	label := a.Name + "_"
	switch v := a.Value.(type) {
	case *ast.IntLit:
		e.sectData.WriteString(fmt.Sprintf("%s: %s %d\n", label, dataDirective(a.Type.Size()), v.Value))
	case *ast.FloatLit:
		e.sectData.WriteString(fmt.Sprintf("%s: dd %s\n", label, floatBits(v.Value)))
	case *ast.ArrLit:
		elemSize := a.Type.Deref().Size()
		dir := dataDirective(elemSize)
		vals := make([]string, len(v.Elems))
		for i, el := range v.Elems {
			switch lit := el.(type) {
			case *ast.IntLit:
				vals[i] = fmt.Sprintf("%d", lit.Value)
			case *ast.FloatLit:
				vals[i] = floatBits(lit.Value)
			}
		}
		pad := a.ArrCap - len(v.Elems)
		e.sectData.WriteString(fmt.Sprintf("%s: %s %s\n", label, dir, joinComma(vals)))
		if pad > 0 {
			e.sectData.WriteString(fmt.Sprintf("    resb %d\n", pad*elemSize))
		}
	case *ast.StrLit:
		if a.ArrCap > 0 {
			bytes := decodeCStringByteValues(v.Bytes)
			pad := a.ArrCap - len(bytes) - 1
			e.sectData.WriteString(fmt.Sprintf("%s: db %s, 0\n", label, decodeCStringBytes(v.Bytes)))
			if pad > 0 {
				e.sectData.WriteString(fmt.Sprintf("    resb %d\n", pad))
			}
		} else {
			strLbl := label + "str"
			e.sectData.WriteString(fmt.Sprintf("%s: db %s, 0\n", strLbl, decodeCStringBytes(v.Bytes)))
			e.sectData.WriteString(fmt.Sprintf("%s: dq %s\n", label, strLbl))
		}
	default:
		if a.ArrCap > 0 {
			e.sectData.WriteString(fmt.Sprintf("%s: resb %d\n", label, a.ArrCap*a.Type.Deref().Size()))
		} else {
			e.sectData.WriteString(fmt.Sprintf("%s: resb %d\n", label, a.Type.Size()))
		}
	}
}

func dataDirective(size int) string {
	switch size {
	case 1:
		return "db"
	case 8:
		return "dq"
	default:
		return "dd"
	}
}

// floatBits renders v as a NASM single-precision float constant. The text
// must contain a '.' (or exponent) for the assembler to encode IEEE-754
// bits instead of an integer.
func floatBits(v float64) string {
	s := strconv.FormatFloat(float64(float32(v)), 'f', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func joinComma(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	out := vals[0]
	for _, v := range vals[1:] {
		out += ", " + v
	}
	return out
}
