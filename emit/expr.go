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
	"fmt"

	"github.com/kinderjosh/steelc/ast"
	"github.com/kinderjosh/steelc/token"
)

func (f *Func) symLoc(name, scope string) (*ast.Assign, string) {
	sym := f.symbolFor(name, scope)
	if sym == nil {
		return nil, ""
	}
	return sym, f.addrOf(sym)
}

// symbolFor resolves a name from the scope the reference was parsed in, so
// that same-named variables in sibling scopes (an if-arm and its else-arm,
// say) each resolve to their own storage.
func (f *Func) symbolFor(name, scope string) *ast.Assign {
	for _, s := range f.fn.Params {
		if s.Name == name {
			return s
		}
	}
	if scope == "" {
		scope = f.fn.Name
	}
	return f.e.syms.LookupVar(scope, name)
}

// addrOf returns the memory operand for a resolved symbol's own storage: a
// RIP-relative label for a global, a frame slot otherwise.
func (f *Func) addrOf(sym *ast.Assign) string {
	if sym.ScopeDef == ast.GlobalScope {
		return "[rel " + sym.Name + "_]"
	}
	return slot(sym.FrameSlot)
}

// loadInto evaluates n and deposits its value into intReg (a 32-bit or
// 64-bit general-purpose register name) or floatReg (an xmm register
// name).
func (f *Func) loadInto(n ast.Node, intReg, floatReg string) error {
	switch v := n.(type) {
	case *ast.IntLit:
		f.emit("    mov %s, %d\n", intReg, v.Value)

	case *ast.FloatLit:
		lbl := f.newFloatLabel()
		fmt.Fprintf(&f.funcDat, "%s: dd %s\n", lbl, floatBits(v.Value))
		f.emit("    movss %s, [rel %s]\n", floatReg, lbl)

	case *ast.StrLit:
		lbl := f.newStrLabel()
		fmt.Fprintf(&f.funcDat, "%s: db %s, 0\n", lbl, decodeCStringBytes(v.Bytes))
		f.emit("    lea %s, [rel %s]\n", to64(intReg), lbl)

	case *ast.Var:
		sym, addr := f.symLoc(v.Name, v.ScopeDef)
		if sym == nil {
			return f.e.errorf(v.Line, v.Col, "internal error: unresolved variable '%s'", v.Name)
		}
		f.loadFromAddr(addr, *sym.Type, intReg, floatReg)

	case *ast.MathVar:
		if v.HasSlot {
			if v.IsFloat {
				f.emit("    movss %s, %s\n", floatReg, dwordSlot(v.FrameSlot))
			} else {
				f.emit("    mov %s, %s\n", intReg, dwordSlot(v.FrameSlot))
			}
		} else if v.IsFloat && floatReg != "xmm0" {
			f.emit("    movss %s, xmm0\n", floatReg)
		} else if !v.IsFloat && intReg != "eax" {
			f.emit("    mov %s, eax\n", intReg)
		}

	case *ast.Call:
		if err := f.emitCall(v); err != nil {
			return err
		}
		fn := f.e.syms.LookupFunc(ast.GlobalScope, v.Name)
		if fn.RetType.IsFloat() {
			if floatReg != "xmm0" {
				f.emit("    movss %s, xmm0\n", floatReg)
			}
		} else if intReg != "eax" {
			// Move the full rax so a 64-bit destination register gets a
			// matching source width; 32-bit results arrive zero-extended.
			f.emit("    mov %s, rax\n", to64(intReg))
		}

	case *ast.Deref:
		return f.loadInto(&ast.Subscr{Base: v.Base, Name: v.Name, Index: &ast.IntLit{Base: v.Base, Value: 0}}, intReg, floatReg)

	case *ast.Subscr:
		return f.loadSubscr(v, intReg, floatReg)

	case *ast.Ref:
		sym, addr := f.symLoc(v.Name, v.ScopeDef)
		if sym == nil {
			return f.e.errorf(v.Line, v.Col, "internal error: unresolved variable '%s'", v.Name)
		}
		f.emit("    lea %s, %s\n", to64(intReg), addr)

	case *ast.Math:
		return f.emitMath(v, intReg, floatReg)

	default:
		return f.e.errorf(0, 0, "internal error: no lowering for %T", n)
	}
	return nil
}

func (f *Func) loadFromAddr(addr string, typ ast.Type, intReg, floatReg string) {
	if typ.IsFloat() {
		f.emit("    movss %s, %s\n", floatReg, sizedAddr(addr, 4))
		return
	}
	switch typ.Size() {
	case 1:
		f.emit("    movzx %s, %s\n", intReg, sizedAddr(addr, 1))
	case 8:
		f.emit("    mov %s, %s\n", to64(intReg), sizedAddr(addr, 8))
	default:
		f.emit("    mov %s, %s\n", intReg, sizedAddr(addr, 4))
	}
}

func sizedAddr(addr string, size int) string {
	switch size {
	case 1:
		return "byte " + addr
	case 8:
		return "qword " + addr
	default:
		return "dword " + addr
	}
}

// to64 maps a 32-bit general-purpose register name to its 64-bit alias.
// It is used wherever a full-width value lands in a register named by its
// 32-bit alias: pointer-sized call arguments, string and reference
// addresses, call results, and 8-byte loads. Names without an entry are
// returned unchanged.
var reg64 = map[string]string{
	"eax": "rax", "ebx": "rbx", "edi": "rdi", "esi": "rsi",
	"edx": "rdx", "ecx": "rcx", "r8d": "r8", "r9d": "r9",
}

func to64(reg32 string) string {
	if r, ok := reg64[reg32]; ok {
		return r
	}
	return reg32
}

// decodeCStringBytes renders a raw source lexeme (with its \n \t \r \0 \'
// \" \\ escapes still literal) as a comma-separated list of NASM db byte
// values, so the assembler sees decoded bytes rather than escape text.
func decodeCStringBytes(raw string) string {
	var parts []string
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				parts = append(parts, "10")
			case 't':
				parts = append(parts, "9")
			case 'r':
				parts = append(parts, "13")
			case '0':
				parts = append(parts, "0")
			default:
				parts = append(parts, fmt.Sprintf("%d", raw[i]))
			}
			continue
		}
		parts = append(parts, fmt.Sprintf("%d", c))
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// decodeCStringByteValues is decodeCStringBytes's sibling for callers that
// need the decoded bytes as values rather than NASM db text.
func decodeCStringByteValues(raw string) []byte {
	var out []byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				out = append(out, 10)
			case 't':
				out = append(out, 9)
			case 'r':
				out = append(out, 13)
			case '0':
				out = append(out, 0)
			default:
				out = append(out, raw[i])
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// isPow2 reports whether v is a positive power of two, and returns its
// exponent.
func isPow2(v int64) (int, bool) {
	if v <= 0 {
		return 0, false
	}
	if v&(v-1) != 0 {
		return 0, false
	}
	shift := 0
	for v > 1 {
		v >>= 1
		shift++
	}
	return shift, true
}

// mathOperandIsFloat reports whether a not-yet-lowered Math.Expr operand
// is float-typed, for the purposes of deciding which instruction variant
// and accumulator to use.
func (f *Func) mathOperandIsFloat(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.FloatLit:
		return true
	case *ast.IntLit:
		return false
	case *ast.MathVar:
		return v.IsFloat
	case *ast.Var:
		if sym := f.symbolFor(v.Name, v.ScopeDef); sym != nil {
			return sym.Type.IsFloat()
		}
	case *ast.Call:
		if fn := f.e.syms.LookupFunc(ast.GlobalScope, v.Name); fn != nil {
			return fn.RetType.IsFloat()
		}
	case *ast.Subscr:
		if sym := f.symbolFor(v.Name, v.ScopeDef); sym != nil {
			return sym.Type.Deref().IsFloat()
		}
	case *ast.Deref:
		if sym := f.symbolFor(v.Name, v.ScopeDef); sym != nil {
			return sym.Type.Deref().IsFloat()
		}
	case *ast.Math:
		for _, e := range v.Expr {
			if _, isOp := e.(*ast.Oper); isOp {
				continue
			}
			if f.mathOperandIsFloat(e) {
				return true
			}
		}
	}
	return false
}

func relJump(op token.Kind, isFloat, invert bool) string {
	type pair struct{ jmp, inv string }
	var table map[token.Kind]pair
	if isFloat {
		table = map[token.Kind]pair{
			token.Lt:   {"jb", "jae"},
			token.Lte:  {"jbe", "ja"},
			token.Gt:   {"ja", "jbe"},
			token.Gte:  {"jae", "jb"},
			token.EqEq: {"je", "jne"},
			token.NotEq: {"jne", "je"},
		}
	} else {
		table = map[token.Kind]pair{
			token.Lt:   {"jl", "jge"},
			token.Lte:  {"jle", "jg"},
			token.Gt:   {"jg", "jle"},
			token.Gte:  {"jge", "jl"},
			token.EqEq: {"je", "jne"},
			token.NotEq: {"jne", "je"},
		}
	}
	p := table[op]
	if invert {
		return p.inv
	}
	return p.jmp
}
