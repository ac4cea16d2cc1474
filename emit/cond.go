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

// groupByOr breaks a flat condition list into OR-separated groups of
// AND-joined terms: "&&" binds tighter than "||", so a condition is true
// when at least one group has every one of its terms true.
func groupByOr(terms []ast.CondTerm) [][]ast.CondTerm {
	var groups [][]ast.CondTerm
	var cur []ast.CondTerm
	for i, t := range terms {
		if i > 0 && t.Join == token.Or {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// emitCond lowers a flat condition list, jumping to falseLabel when the
// overall condition is false and falling through to the statement that
// follows (the body) when it is true.
func (f *Func) emitCond(terms []ast.CondTerm, falseLabel string) error {
	groups := groupByOr(terms)
	trueLabel := f.newLocalLabel()

	for _, group := range groups {
		failLabel := f.newLocalLabel()
		for _, term := range group {
			if err := f.emitCompare(term, failLabel); err != nil {
				return err
			}
		}
		f.emit("    jmp %s\n", trueLabel)
		f.emit("%s:\n", failLabel)
	}
	f.emit("    jmp %s\n", falseLabel)
	f.emit("%s:\n", trueLabel)
	return nil
}

// emitCompare lowers one relational term, jumping to failLabel when it does
// not hold. The right operand is evaluated after the left one is already
// sitting in the accumulator; if evaluating it routes through the
// accumulator (a call, a MATH list), the left value is parked in a frame
// slot across it. A mixed int/float comparison converts the integer side
// and compares in the float domain.
func (f *Func) emitCompare(term ast.CondTerm, failLabel string) error {
	leftFloat := f.mathOperandIsFloat(term.Left)
	rightFloat := f.mathOperandIsFloat(term.Right)
	isFloat := leftFloat || rightFloat

	if err := f.loadInto(term.Left, "eax", "xmm0"); err != nil {
		return err
	}
	if isFloat && !leftFloat {
		f.emit("    cvtsi2ss xmm0, eax\n")
	}

	if f.clobbersAccum(term.Right) {
		park := f.alloc(8)
		if isFloat {
			f.emit("    movss %s, xmm0\n", dwordSlot(park))
		} else {
			f.emit("    mov %s, eax\n", dwordSlot(park))
		}
		if err := f.loadInto(term.Right, "ebx", "xmm1"); err != nil {
			return err
		}
		if isFloat {
			f.emit("    movss xmm0, %s\n", dwordSlot(park))
		} else {
			f.emit("    mov eax, %s\n", dwordSlot(park))
		}
	} else if err := f.loadInto(term.Right, "ebx", "xmm1"); err != nil {
		return err
	}

	if isFloat {
		if !rightFloat {
			f.emit("    cvtsi2ss xmm1, ebx\n")
		}
		f.emit("    comiss xmm0, xmm1\n")
	} else {
		f.emit("    cmp eax, ebx\n")
	}

	f.emit("    %s %s\n", relJump(term.Op, isFloat, true), failLabel)
	return nil
}
