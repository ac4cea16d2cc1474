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

// Package compile composes the lex/parse/emit pipeline into the single
// entry point cmd/steelc calls: a source path in, NASM text out.
package compile

import (
	"os"

	"github.com/golang/glog"
	"github.com/kinderjosh/steelc/emit"
	"github.com/kinderjosh/steelc/internal/diag"
	"github.com/kinderjosh/steelc/parser"
	"github.com/pkg/errors"
)

// Error is re-exported from internal/diag so callers outside this module
// tree never need to import an internal package to type-assert on it.
type Error = diag.Error

// Source reads a source file, runs the full lex/parse/emit pipeline over
// it, and returns the resulting NASM assembly text.
func Source(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrapf(err, "cannot read %s", path)
	}

	root, syms, err := parser.Parse(path)
	if err != nil {
		return "", err
	}
	glog.V(1).Infof("compile: %s: parsed %d top-level declarations", path, len(root.Children))

	asm, err := emit.Emit(path, root, syms)
	if err != nil {
		return "", err
	}
	return asm, nil
}
