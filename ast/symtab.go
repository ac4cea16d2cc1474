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

import "github.com/golang/glog"

// Table is the symbol table: a flat, append-only list of the Func and
// Assign nodes that define identifiers. It is mutated (append-only) by
// the parser and read by both the parser (scope/type checks) and the
// emitter (frame-slot assignment on the Assign nodes it returns).
//
// Lookup keeps the append-only vector as the source of truth but layers
// a map index over it, keyed by name, to avoid a full rescan on every
// reference in large files. The map holds candidates only; the final
// kind/scope check still runs per candidate, so behavior is identical to
// a linear scan, just faster in the common case of few same-named
// symbols.
type Table struct {
	all   []Node
	byKey map[string][]Node
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	return &Table{byKey: make(map[string][]Node)}
}

func nameOf(n Node) string {
	switch v := n.(type) {
	case *Func:
		return v.Name
	case *Assign:
		return v.Name
	}
	return ""
}

// Append registers a defining node. Only *Func and *Assign carry names;
// Append panics for any other kind, since only those two kinds can
// legitimately define a symbol.
func (t *Table) Append(n Node) {
	name := nameOf(n)
	if name == "" {
		panic("ast: Table.Append called with a non-defining node")
	}
	t.all = append(t.all, n)
	t.byKey[name] = append(t.byKey[name], n)
	glog.V(3).Infof("symtab: append %T %q", n, name)
}

// Lookup returns the first registered *Func (kind=KindFunc) or *Assign
// (kind=KindAssign) named name that is visible from scope, or nil.
// Functions are always registered at the global scope; variables are
// registered at their defining scope, so visibility is checked against
// each candidate's own ScopeDef.
func (t *Table) Lookup(kind Kind, scope, name string) Node {
	for _, n := range t.byKey[name] {
		if n.Kind() != kind {
			continue
		}
		var def string
		switch v := n.(type) {
		case *Func:
			def = v.ScopeDef
		case *Assign:
			def = v.ScopeDef
		}
		if ScopeVisible(def, scope) {
			return n
		}
	}
	return nil
}

// LookupFunc is a typed convenience wrapper over Lookup for KindFunc.
func (t *Table) LookupFunc(scope, name string) *Func {
	if n := t.Lookup(KindFunc, scope, name); n != nil {
		return n.(*Func)
	}
	return nil
}

// LookupVar is a typed convenience wrapper over Lookup for KindAssign.
func (t *Table) LookupVar(scope, name string) *Assign {
	if n := t.Lookup(KindAssign, scope, name); n != nil {
		return n.(*Assign)
	}
	return nil
}

// All returns every registered definition, in registration order.
func (t *Table) All() []Node { return t.all }
