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

package ast

import "strings"

// BaseType is one of the four base types of the source language. Any
// pointer suffix is tracked separately in Type.Ptr.
type BaseType int

const (
	Void BaseType = iota
	Char
	Int
	Float
)

func (b BaseType) String() string {
	switch b {
	case Void:
		return "void"
	case Char:
		return "char"
	case Int:
		return "int"
	case Float:
		return "float"
	}
	return "?"
}

// ParseBaseType recognizes one of the four type keywords.
func ParseBaseType(s string) (BaseType, bool) {
	switch s {
	case "void":
		return Void, true
	case "char":
		return Char, true
	case "int":
		return Int, true
	case "float":
		return Float, true
	}
	return 0, false
}

// Type is a base type plus a pointer depth. Arrays are sugar: "T name[N]"
// is stored as a Type with Ptr>=1 and the owning Assign node's ArrCap set.
type Type struct {
	Base BaseType
	Ptr  int
}

// IsPointer reports whether t has at least one level of indirection.
func (t Type) IsPointer() bool { return t.Ptr > 0 }

// IsFloat reports whether t is the scalar float type (not a float*).
func (t Type) IsFloat() bool { return t.Base == Float && t.Ptr == 0 }

// IsVoid reports whether t is exactly void (not void*, which is not
// supported by this language but kept out of IsVoid's reach regardless).
func (t Type) IsVoid() bool { return t.Base == Void && t.Ptr == 0 }

// Size returns the size in bytes of one value of this type: 1 for char,
// 4 for int/float, 8 for any pointer.
func (t Type) Size() int {
	if t.Ptr > 0 {
		return 8
	}
	switch t.Base {
	case Char:
		return 1
	case Int, Float:
		return 4
	}
	return 0
}

// Deref returns the type one level of indirection down. Callers must only
// call this on pointer types.
func (t Type) Deref() Type {
	return Type{Base: t.Base, Ptr: t.Ptr - 1}
}

// Ref returns the type one level of indirection up (the type of &x for an
// x of type t).
func (t Type) Ref() Type {
	return Type{Base: t.Base, Ptr: t.Ptr + 1}
}

// Equal reports whether two types have the same base and pointer depth.
func (t Type) Equal(o Type) bool { return t.Base == o.Base && t.Ptr == o.Ptr }

func (t Type) String() string {
	if t.Ptr == 0 {
		return t.Base.String()
	}
	return t.Base.String() + strings.Repeat("*", t.Ptr)
}

// IsIntClass reports whether a value of this type is passed/held in the
// integer register class (char, int, or any pointer) as opposed to the
// float class.
func (t Type) IsIntClass() bool { return t.Ptr > 0 || t.Base == Char || t.Base == Int }
