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
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kinderjosh/steelc/compile"
	"github.com/pkg/errors"
)

var (
	stopAfterAsm bool
	stopAfterObj bool
	outFileName  string
	testDir      string
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: steelc [options] <input>")
	fmt.Fprintln(os.Stderr, "  --help       print this message and exit")
	fmt.Fprintln(os.Stderr, "  -S           stop after assembly emission")
	fmt.Fprintln(os.Stderr, "  -c           stop after assembling to an object file")
	fmt.Fprintln(os.Stderr, "  -o <path>    set the linker output path (default a.out)")
	fmt.Fprintln(os.Stderr, "  -t <dir>     test mode: parse+emit every file in <dir>, discarding output")
}

func main() {
	help := flag.Bool("help", false, "print usage and exit")
	flag.BoolVar(&stopAfterAsm, "S", false, "stop after assembly emission")
	flag.BoolVar(&stopAfterObj, "c", false, "stop after assembling to an object file")
	flag.StringVar(&outFileName, "o", "a.out", "linker output path")
	flag.StringVar(&testDir, "t", "", "test mode directory")
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	if testDir != "" {
		if flag.NArg() > 0 {
			fmt.Fprintln(os.Stderr, "error: <input> is forbidden together with -t")
			os.Exit(1)
		}
		if err := runTests(testDir); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// run lowers one source file to assembly and, unless -S/-c stop it early,
// assembles and links it into an executable at outFileName.
func run(input string) error {
	asm, err := compile.Source(input)
	if err != nil {
		return err
	}

	base := outputBase(input)
	asmPath := base + ".asm"
	objPath := base + ".o"

	if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
		return errors.Wrapf(err, "cannot write %s", asmPath)
	}

	if stopAfterAsm {
		return nil
	}

	if err := runTool("nasm", "-felf64", asmPath, "-o", objPath); err != nil {
		return err
	}
	if err := os.Remove(asmPath); err != nil {
		return errors.Wrapf(err, "cannot remove %s", asmPath)
	}

	if stopAfterObj {
		return nil
	}

	if err := runTool("ld", "-emain_", objPath, "-o", outFileName); err != nil {
		return err
	}
	if err := os.Remove(objPath); err != nil {
		return errors.Wrapf(err, "cannot remove %s", objPath)
	}
	return nil
}

// runTests walks a directory in test mode: every entry except ".", "..",
// and "include.sc" is parsed and emitted (output discarded), announced and
// checked one at a time so a crashed run is attributable to a specific
// file.
func runTests(dir string) error {
	dir = strings.TrimSuffix(dir, "/")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "cannot read test directory %s", dir)
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." || name == "include.sc" {
			continue
		}
		path := dir + "/" + name
		fmt.Fprintf(os.Stderr, "Testing '%s'...\n", path)
		if _, err := compile.Source(path); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Test passed.")
	}
	return nil
}

// outputBase strips directories and any extension from the input path.
func outputBase(input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

func runTool(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s failed", name)
	}
	return nil
}
