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

// emitStmt lowers one body statement. Every function exit, regardless of
// how many RET statements the source has, funnels through the same
// epilogue text emitted once by emitFunc: a RET here only loads
// the return value and jumps to the function's single exit label.
func (f *Func) emitStmt(n ast.Node) error {
	switch v := n.(type) {
	case *ast.Assign:
		return f.emitAssign(v)
	case *ast.Ret:
		return f.emitRet(v)
	case *ast.IfElse:
		return f.emitIfElse(v)
	case *ast.While:
		return f.emitWhile(v)
	case *ast.For:
		return f.emitFor(v)
	case *ast.Call:
		return f.emitCall(v)
	case *ast.Subscr:
		return f.emitSubscrStore(v)
	case *ast.Deref:
		return f.emitDerefStore(v)
	default:
		return f.e.errorf(0, 0, "internal error: no statement lowering for %T", n)
	}
}

// emitAssign lowers both a declaration (Type != nil, reserves frame space
// and optionally stores an initializer) and a plain store to an
// already-declared variable (Type == nil).
func (f *Func) emitAssign(a *ast.Assign) error {
	if a.Type == nil {
		return f.emitStore(a)
	}

	size := a.Type.Size()
	if a.ArrCap > 0 {
		size = a.ArrCap * a.Type.Deref().Size()
	}
	a.FrameSlot = f.alloc(size)

	if a.Value == nil {
		return nil
	}

	switch val := a.Value.(type) {
	case *ast.ArrLit:
		return f.emitArrLitInit(a, val)
	case *ast.StrLit:
		if a.ArrCap > 0 {
			return f.emitStrArrInit(a, val)
		}
		if err := f.loadInto(val, "eax", "xmm0"); err != nil {
			return err
		}
		f.emit("    mov %s, rax\n", sizedAddr(slot(a.FrameSlot), 8))
		return nil
	default:
		if a.Type.IsFloat() {
			if err := f.loadInto(a.Value, "eax", "xmm0"); err != nil {
				return err
			}
			f.emit("    movss %s, xmm0\n", sizedAddr(slot(a.FrameSlot), a.Type.Size()))
			return nil
		}
		if err := f.loadInto(a.Value, "eax", "xmm0"); err != nil {
			return err
		}
		f.emit("    mov %s, %s\n", sizedAddr(slot(a.FrameSlot), a.Type.Size()), intStoreReg(a.Type.Size()))
		return nil
	}
}

// emitStore lowers `name = value;`, including compound-assign's desugared
// form, to a plain write into the target's existing storage.
func (f *Func) emitStore(a *ast.Assign) error {
	target := f.symbolFor(a.Name, a.ScopeDef)
	if target == nil {
		return f.e.errorf(a.Line, a.Col, "internal error: unresolved variable '%s'", a.Name)
	}
	addr := f.addrOf(target)
	size := target.Type.Size()

	if target.Type.IsFloat() {
		if err := f.loadInto(a.Value, "eax", "xmm0"); err != nil {
			return err
		}
		f.emit("    movss %s, xmm0\n", sizedAddr(addr, size))
		return nil
	}
	if err := f.loadInto(a.Value, "eax", "xmm0"); err != nil {
		return err
	}
	f.emit("    mov %s, %s\n", sizedAddr(addr, size), intStoreReg(size))
	return nil
}

// emitRet loads the return value (if any) and jumps to the function's
// single epilogue; a bare `ret`/exit-syscall site never appears more than
// once per function body.
func (f *Func) emitRet(r *ast.Ret) error {
	if r.Value != nil {
		if err := f.loadInto(r.Value, "eax", "xmm0"); err != nil {
			return err
		}
	}
	f.emit("    jmp %s\n", f.epilogueLabel())
	return nil
}

func (f *Func) epilogueLabel() string {
	if f.retLabel == "" {
		f.retLabel = ".ret_" + f.name
	}
	return f.retLabel
}

func (f *Func) emitIfElse(ie *ast.IfElse) error {
	elseLabel := f.newLocalLabel()
	endLabel := f.newLocalLabel()

	if err := f.emitCond(ie.Cond, elseLabel); err != nil {
		return err
	}
	for _, stmt := range ie.Body {
		if err := f.emitStmt(stmt); err != nil {
			return err
		}
	}
	if ie.Else != nil {
		f.emit("    jmp %s\n", endLabel)
	}
	f.emit("%s:\n", elseLabel)
	if ie.Else != nil {
		for _, stmt := range ie.Else {
			if err := f.emitStmt(stmt); err != nil {
				return err
			}
		}
		f.emit("%s:\n", endLabel)
	}
	return nil
}

func (f *Func) emitWhile(w *ast.While) error {
	startLabel := f.newLocalLabel()
	endLabel := f.newLocalLabel()

	if w.DoFirst {
		bodyLabel := f.newLocalLabel()
		f.emit("%s:\n", bodyLabel)
		for _, stmt := range w.Body {
			if err := f.emitStmt(stmt); err != nil {
				return err
			}
		}
		if err := f.emitCond(w.Cond, endLabel); err != nil {
			return err
		}
		f.emit("    jmp %s\n", bodyLabel)
		f.emit("%s:\n", endLabel)
		return nil
	}

	f.emit("%s:\n", startLabel)
	if err := f.emitCond(w.Cond, endLabel); err != nil {
		return err
	}
	for _, stmt := range w.Body {
		if err := f.emitStmt(stmt); err != nil {
			return err
		}
	}
	f.emit("    jmp %s\n", startLabel)
	f.emit("%s:\n", endLabel)
	return nil
}

func (f *Func) emitFor(fr *ast.For) error {
	if err := f.emitAssign(fr.Init); err != nil {
		return err
	}

	startLabel := f.newLocalLabel()
	endLabel := f.newLocalLabel()

	f.emit("%s:\n", startLabel)
	if err := f.emitCond(fr.Cond, endLabel); err != nil {
		return err
	}
	for _, stmt := range fr.Body {
		if err := f.emitStmt(stmt); err != nil {
			return err
		}
	}
	if err := f.emitStore(fr.Step); err != nil {
		return err
	}
	f.emit("    jmp %s\n", startLabel)
	f.emit("%s:\n", endLabel)
	return nil
}
