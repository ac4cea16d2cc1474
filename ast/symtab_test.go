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

package ast_test

import (
	"testing"

	"github.com/kinderjosh/steelc/ast"
)

func TestTableLookupRespectsScope(t *testing.T) {
	tab := ast.NewTable()
	global := &ast.Assign{Base: ast.Base{ScopeDef: ast.GlobalScope}, Name: "g", Type: &ast.Type{Base: ast.Int}}
	local := &ast.Assign{Base: ast.Base{ScopeDef: "main-if:1:1"}, Name: "x", Type: &ast.Type{Base: ast.Int}}
	tab.Append(global)
	tab.Append(local)

	if got := tab.LookupVar("main", "g"); got != global {
		t.Errorf("global var not visible from an unrelated scope")
	}
	if got := tab.LookupVar("main-if:1:1", "x"); got != local {
		t.Errorf("local var not visible from its own defining scope")
	}
	if got := tab.LookupVar("main", "x"); got != local {
		t.Errorf("local var declared inside an if-block not visible from its enclosing function scope (visibility is a symmetric prefix test): %v", got)
	}
	if got := tab.LookupVar("main-if:1:1-while:2:2", "x"); got != local {
		t.Errorf("local var not visible from a scope nested below its own")
	}
	if got := tab.LookupVar("other", "x"); got != nil {
		t.Errorf("local var leaked into an unrelated scope")
	}
}

func TestTableAppendPanicsOnNonDefiningNode(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected a panic appending a non-defining node")
		}
	}()
	ast.NewTable().Append(&ast.IntLit{Value: 1})
}

func TestScopeVisibleSymmetricPrefix(t *testing.T) {
	data := []struct {
		def, ref string
		want     bool
	}{
		{"main", "main", true},
		{ast.GlobalScope, "main-if:1:1", true},
		{"main-if:1:1", ast.GlobalScope, true},
		{"main-if:1:1", "main-if:1:1-while:2:2", true},
		{"main-if:1:1-while:2:2", "main-if:1:1", true},
		{"main", "other", false},
		{"main-if:1:1", "main-else:3:3", false},
	}
	for _, d := range data {
		if got := ast.ScopeVisible(d.def, d.ref); got != d.want {
			t.Errorf("ScopeVisible(%q, %q) = %v, want %v", d.def, d.ref, got, d.want)
		}
	}
}
