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

import "github.com/kinderjosh/steelc/ast"

// narrowLiteral narrows a literal to its destination type on the spot: a
// float literal destined for a non-float slot becomes an int literal
// (truncating towards zero), and an integer literal destined for a
// narrower width wraps modulo that width exactly as a signed cast would.
func (p *Parser) narrowLiteral(lit ast.Node, expected *ast.Type) ast.Node {
	if expected == nil {
		return lit
	}
	switch v := lit.(type) {
	case *ast.FloatLit:
		if !expected.IsFloat() {
			return &ast.IntLit{Base: v.Base, Value: int64(v.Value)}
		}
	case *ast.IntLit:
		if expected.IsFloat() {
			return &ast.FloatLit{Base: v.Base, Value: float64(v.Value)}
		}
		v.Value = wrapToWidth(v.Value, expected.Size())
	}
	return lit
}

// wrapToWidth reduces v modulo the given width in bytes, matching a
// signed C cast (two's complement wraparound). Widths of 8 or more never
// wrap: pointers and 64-bit values have no narrower representation here.
func wrapToWidth(v int64, bytes int) int64 {
	if bytes <= 0 || bytes >= 8 {
		return v
	}
	bits := uint(bytes * 8)
	mask := (int64(1) << bits) - 1
	v &= mask
	signBit := int64(1) << (bits - 1)
	if v&signBit != 0 {
		v -= int64(1) << bits
	}
	return v
}

// checkInitializer validates an ASSIGN node's value against its declared
// type and, for arrays, its capacity.
func (p *Parser) checkInitializer(a *ast.Assign, val ast.Node, isArray bool) error {
	switch v := val.(type) {
	case *ast.StrLit:
		if a.Type.Ptr == 0 || a.Type.Base != ast.Char {
			return p.errorAt(v, "cannot initialize '%s' of type '%s' from a string literal", a.Name, a.Type.String())
		}
		if isArray {
			decoded := decodeStringLen(v.Bytes)
			if decoded+1 > a.ArrCap {
				return p.errorAt(v, "string literal initializer for '%s' does not fit in an array of size %d", a.Name, a.ArrCap)
			}
		}
	case *ast.ArrLit:
		if !isArray {
			return p.errorAt(v, "list initializer is only valid for array declarations")
		}
		if len(v.Elems) > a.ArrCap {
			return p.errorAt(v, "array initializer for '%s' has %d elements but the array holds %d", a.Name, len(v.Elems), a.ArrCap)
		}
	case *ast.Ref:
		return p.checkRefBinding(a, v)
	default:
		if isArray {
			return p.errorAt(v, "array '%s' must be initialized from a string or list literal", a.Name)
		}
	}
	return nil
}

// decodeStringLen returns the decoded byte length of a raw string lexeme
// (escapes collapse to one byte each), matching the emitter's later
// decoding so bounds are checked against the same length it will lay out.
func decodeStringLen(raw string) int {
	n := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
		}
		n++
	}
	return n
}

// checkStore validates a store to an already-declared variable: the
// target must be mutable. A stored reference's base type and mutability
// are checked separately, by checkRefBinding.
func (p *Parser) checkStore(target *ast.Assign, nameLine, nameCol int) error {
	if !target.Mut {
		return p.errorf(nameLine, nameCol, "reassigning immutable variable '%s'", target.Name)
	}
	return nil
}

// checkRefBinding validates storing &src into a pointer-typed variable:
// the target must actually be a pointer, the referent's type one level of
// indirection up must match the target's declared type, and an immutable
// referent may only sit behind an immutable pointer.
func (p *Parser) checkRefBinding(target *ast.Assign, ref *ast.Ref) error {
	if !target.Type.IsPointer() {
		return p.errorAt(ref, "cannot store a reference in non-pointer '%s'", target.Name)
	}
	src := p.syms.LookupVar(p.scope, ref.Name)
	if src == nil {
		return nil
	}
	if !src.Type.Ref().Equal(*target.Type) {
		return p.errorAt(ref, "cannot bind '%s' of type '%s' to '%s' of type '%s'",
			ref.Name, src.Type.String(), target.Name, target.Type.String())
	}
	if target.Mut && !src.Mut {
		return p.errorAt(ref, "cannot bind immutable '%s' to mutable pointer '%s'", ref.Name, target.Name)
	}
	return nil
}

// checkRefMutability implements "passing an immutable variable by
// reference to a parameter declared mut T* is a compile error".
func (p *Parser) checkRefMutability(ref *ast.Ref, param *ast.Assign, line, col int) error {
	src := p.syms.LookupVar(p.scope, ref.Name)
	if src == nil {
		return nil
	}
	if param.Mut && !src.Mut {
		return p.errorf(line, col, "cannot bind immutable '%s' to mutable reference parameter '%s'", ref.Name, param.Name)
	}
	return nil
}
