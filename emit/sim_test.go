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

package emit_test

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
)

// intSim is a tiny interpreter for the narrow instruction subset emitted
// for integer conditions, loops, and stores (mov/add/sub/cmp/jCC/jmp plus
// labels). It exists to catch branch-direction bugs in emitCond that a
// text-substring check on the assembly cannot: it actually walks the
// generated jump graph for given inputs and reports where execution ends
// up, the same way an assembler+CPU would.
type intSim struct {
	regs   map[string]int64
	mem    map[string]int64
	lines  []string
	labels map[string]int
}

var memKeyRe = regexp.MustCompile(`\[[^\]]+\]`)

func stripSizePrefix(operand string) string {
	m := memKeyRe.FindString(operand)
	if m == "" {
		return operand
	}
	return m
}

// newIntSim extracts the body of fnLabel (everything between its prologue
// and its `.ret_<fn>:` epilogue label) and seeds memory from any `dd`
// globals declared in the .data section.
func newIntSim(t *testing.T, asm, fnLabel string) *intSim {
	t.Helper()
	bodyStart := strings.Index(asm, fnLabel+"_:\n")
	if bodyStart == -1 {
		t.Fatalf("function label %s_ not found:\n%s", fnLabel, asm)
	}
	rest := asm[bodyStart:]
	afterPrologue := strings.Index(rest, "mov rbp, rsp\n")
	if afterPrologue == -1 {
		t.Fatalf("prologue not found for %s_:\n%s", fnLabel, asm)
	}
	rest = rest[afterPrologue+len("mov rbp, rsp\n"):]
	if strings.HasPrefix(rest, "    sub rsp, ") {
		nl := strings.Index(rest, "\n")
		rest = rest[nl+1:]
	}
	retLabel := ".ret_" + fnLabel + ":"
	bodyEnd := strings.Index(rest, retLabel)
	if bodyEnd == -1 {
		t.Fatalf("epilogue label %s not found:\n%s", retLabel, asm)
	}
	body := rest[:bodyEnd]

	s := &intSim{
		regs:   map[string]int64{"eax": 0, "ebx": 0},
		mem:    map[string]int64{},
		labels: map[string]int{},
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.lines = append(s.lines, line)
	}
	for i, line := range s.lines {
		if strings.HasSuffix(line, ":") {
			s.labels[strings.TrimSuffix(line, ":")] = i
		}
	}

	if data := dataSection(asm); data != "" {
		re := regexp.MustCompile(`(\S+): dd (-?\d+)`)
		for _, m := range re.FindAllStringSubmatch(data, -1) {
			n, err := strconv.ParseInt(m[2], 10, 64)
			if err != nil {
				continue
			}
			s.mem["[rel "+m[1]+"]"] = n
		}
	}
	return s
}

func dataSection(asm string) string {
	idx := strings.Index(asm, "section .data\n")
	if idx == -1 {
		return ""
	}
	return asm[idx:]
}

func (s *intSim) value(operand string) int64 {
	if v, ok := s.regs[operand]; ok {
		return v
	}
	if strings.Contains(operand, "[") {
		return s.mem[stripSizePrefix(operand)]
	}
	n, err := strconv.ParseInt(operand, 10, 64)
	if err != nil {
		panic("intSim: operand " + operand + " is neither a register, a memory operand, nor an integer literal")
	}
	return n
}

func (s *intSim) store(operand string, v int64) {
	if _, ok := s.regs[operand]; ok {
		s.regs[operand] = v
		return
	}
	s.mem[stripSizePrefix(operand)] = v
}

// run executes from the top of the extracted body to its end (steelc's
// bodies never loop forever in these tests; a runaway program is itself a
// test failure) and returns the final memory contents.
func (s *intSim) run(t *testing.T) map[string]int64 {
	t.Helper()
	const maxSteps = 100000
	steps := 0
	pc := 0
	var lastDiff int64
	for pc < len(s.lines) {
		steps++
		if steps > maxSteps {
			t.Fatalf("intSim: runaway execution past %d instructions (jump loop?)", maxSteps)
		}
		line := s.lines[pc]
		if strings.HasSuffix(line, ":") {
			pc++
			continue
		}
		sp := strings.IndexByte(line, ' ')
		mnemonic := line
		var rest string
		if sp != -1 {
			mnemonic = line[:sp]
			rest = strings.TrimSpace(line[sp+1:])
		}
		var ops []string
		if rest != "" {
			ops = strings.Split(rest, ", ")
		}

		switch mnemonic {
		case "mov":
			s.store(ops[0], s.value(ops[1]))
		case "add":
			s.store(ops[0], s.value(ops[0])+s.value(ops[1]))
		case "sub":
			s.store(ops[0], s.value(ops[0])-s.value(ops[1]))
		case "imul":
			s.store(ops[0], s.value(ops[0])*s.value(ops[1]))
		case "cmp":
			lastDiff = s.value(ops[0]) - s.value(ops[1])
		case "jmp":
			pc = s.jumpTarget(t, ops[0])
			continue
		case "jl", "jle", "jg", "jge", "je", "jne":
			if jccTaken(mnemonic, lastDiff) {
				pc = s.jumpTarget(t, ops[0])
				continue
			}
		default:
			t.Fatalf("intSim: unsupported instruction %q (extend the simulator or simplify the test program)", line)
		}
		pc++
	}
	return s.mem
}

func (s *intSim) jumpTarget(t *testing.T, label string) int {
	t.Helper()
	idx, ok := s.labels[label]
	if !ok {
		t.Fatalf("intSim: jump target %q has no label", label)
	}
	return idx
}

func jccTaken(mnemonic string, diff int64) bool {
	switch mnemonic {
	case "jl":
		return diff < 0
	case "jle":
		return diff <= 0
	case "jg":
		return diff > 0
	case "jge":
		return diff >= 0
	case "je":
		return diff == 0
	case "jne":
		return diff != 0
	}
	return false
}
