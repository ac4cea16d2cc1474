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

package compile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kinderjosh/steelc/compile"
)

func TestSourceProducesAssemblyText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.sc")
	if err := os.WriteFile(path, []byte("void main() { return; }"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	asm, err := compile.Source(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(asm, "global main_") {
		t.Errorf("expected the entry point to be declared global:\n%s", asm)
	}
	if !strings.Contains(asm, "main_:") {
		t.Errorf("expected a main_ label:\n%s", asm)
	}
}

func TestSourceMissingFileReturnsError(t *testing.T) {
	_, err := compile.Source(filepath.Join(t.TempDir(), "missing.sc"))
	if err == nil {
		t.Fatalf("expected an error for a nonexistent source file")
	}
}

func TestSourcePropagatesParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.sc")
	if err := os.WriteFile(path, []byte("void main() { unknown_fn(); }"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := compile.Source(path)
	if err == nil {
		t.Fatalf("expected an error calling an unknown function")
	}
	if _, ok := err.(*compile.Error); !ok {
		t.Errorf("expected the error to be a *compile.Error, got %T: %v", err, err)
	}
}
