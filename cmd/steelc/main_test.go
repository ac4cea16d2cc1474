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

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOutputBase(t *testing.T) {
	data := []struct{ input, want string }{
		{"prog.sc", "prog"},
		{"/a/b/prog.sc", "prog"},
		{"prog", "prog"},
		{"./nested/dir/prog.sc", "prog"},
	}
	for _, d := range data {
		if got := outputBase(d.input); got != d.want {
			t.Errorf("outputBase(%q) = %q, want %q", d.input, got, d.want)
		}
	}
}

func TestRunTestsSkipsIncludeFileAndPasses(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "include.sc"), []byte("this is not valid steelc source at all {{{"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ok.sc"), []byte("void main() { return; }"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := runTests(dir); err != nil {
		t.Fatalf("runTests: %v", err)
	}
}

func TestRunTestsPropagatesCompileError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.sc"), []byte("void main() { x = 1; }"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := runTests(dir); err == nil {
		t.Fatalf("expected runTests to propagate a compile error")
	}
}

func TestRunTestsMissingDirectoryIsFatal(t *testing.T) {
	if err := runTests(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatalf("expected an error for a nonexistent test directory")
	}
}
