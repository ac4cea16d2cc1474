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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kinderjosh/steelc/compile"
	"github.com/sergi/go-diff/diffmatchpatch"
)

func compileSrc(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.sc")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	asm, err := compile.Source(path)
	if err != nil {
		t.Fatalf("compile.Source: %v", err)
	}
	return asm
}

// assertEqual fails with a readable diff, rather than a giant string dump,
// when the generated assembly drifts from the golden text.
func assertEqual(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(want, got, false)
	t.Errorf("assembly mismatch:\n%s", dmp.DiffPrettyText(diffs))
}

func TestEmitEmptyMainGolden(t *testing.T) {
	asm := compileSrc(t, "void main() { return; }")
	want := `section .text
    global main_
main_:
    push rbp
    mov rbp, rsp
    jmp .ret_main
.ret_main:
    pop rbp
    mov rax, 60
    xor rdi, rdi
    syscall
`
	assertEqual(t, asm, want)
}

func TestEmitNonMainFunctionReturnsPlainRet(t *testing.T) {
	asm := compileSrc(t, `
int id(int a) {
    return a;
}
void main() {
    id(1);
}
`)
	if !strings.Contains(asm, "id_:\n") {
		t.Errorf("missing id_ label:\n%s", asm)
	}
	if !strings.Contains(asm, ".ret_id:\n    pop rbp\n    ret\n") &&
		!strings.Contains(asm, ".ret_id:\n    leave\n    ret\n") {
		t.Errorf("id should end with a plain ret (not the exit syscall main gets):\n%s", asm)
	}
	if strings.Contains(asm, "id_:\n    push rbp\n    mov rbp, rsp\n    mov rax, 60") {
		t.Errorf("non-main function must not contain the exit syscall")
	}
}

func TestEmitGlobalIntVariable(t *testing.T) {
	asm := compileSrc(t, `
int counter = 5;
void main() { return; }
`)
	if !strings.Contains(asm, "section .data\n") {
		t.Fatalf("expected a .data section:\n%s", asm)
	}
	if !strings.Contains(asm, "counter_: dd 5\n") {
		t.Errorf("expected counter_ global initialized to 5:\n%s", asm)
	}
}

func TestEmitGlobalArrayWithPadding(t *testing.T) {
	asm := compileSrc(t, `
int nums[4] = {1, 2};
void main() { return; }
`)
	if !strings.Contains(asm, "nums_: dd 1, 2\n") {
		t.Errorf("expected partial array initializer:\n%s", asm)
	}
	// Two declared elements out of four leaves two dwords (8 bytes) unset.
	if !strings.Contains(asm, "resb 8\n") {
		t.Errorf("expected 8 bytes of padding for the remaining array slots:\n%s", asm)
	}
}

func TestEmitCallNestedCallPreservesIntArgRegister(t *testing.T) {
	asm := compileSrc(t, `
int inc(int a) {
    return a + 1;
}
int add(int a, int b) {
    return a + b;
}
void main() {
    add(1, inc(2));
}
`)
	// The first argument (1) lands in edi before the second argument, which
	// itself contains a call, is evaluated; edi must be pushed beforehand
	// and popped after inc_ returns, so the outer add_ call still sees it.
	if !strings.Contains(asm, "push rdi\n") {
		t.Errorf("expected rdi to be preserved across the nested call:\n%s", asm)
	}
	if !strings.Contains(asm, "call inc_\n") {
		t.Errorf("expected a call to inc_:\n%s", asm)
	}
	if !strings.Contains(asm, "pop rdi\n") {
		t.Errorf("expected rdi to be restored after the nested call:\n%s", asm)
	}
	if !strings.Contains(asm, "call add_\n") {
		t.Errorf("expected a call to add_:\n%s", asm)
	}
}

func TestEmitCallOverflowArgPushedBeforeCall(t *testing.T) {
	asm := compileSrc(t, `
int sum7(int a, int b, int c, int d, int e, int f, int g) {
    return a;
}
void main() {
    sum7(1, 2, 3, 4, 5, 6, 7);
}
`)
	// Only 6 integer argument registers exist; the 7th argument overflows
	// onto the stack and must be pushed right before the call.
	if !strings.Contains(asm, "push qword") {
		t.Errorf("expected the 7th argument to be pushed onto the stack:\n%s", asm)
	}
	idxPush := strings.Index(asm, "push qword")
	idxCall := strings.Index(asm, "call sum7_")
	if idxPush == -1 || idxCall == -1 || idxPush > idxCall {
		t.Errorf("overflow push must precede the call instruction:\n%s", asm)
	}
	if !strings.Contains(asm, "add rsp, 8\n") {
		t.Errorf("expected the caller to clean up the one overflow slot:\n%s", asm)
	}
	// On the callee side the 7th parameter sits just past the saved rbp
	// and return address.
	if !strings.Contains(asm, "mov rax, [rbp+16]\n") {
		t.Errorf("expected sum7 to load its 7th parameter from [rbp+16]:\n%s", asm)
	}
}

// The tests below actually execute the generated jump graph with intSim
// (emit/sim_test.go) instead of pattern-matching the assembly text, so an
// inverted or dead branch in emitCond fails them even when every label and
// mnemonic it would otherwise expect is still present in the output.

func TestEmitIfTakesThenBranchWhenConditionHolds(t *testing.T) {
	asm := compileSrc(t, `
int x = 1;
mut int result = 0;
void main() {
    if (x > 0) {
        result = 111;
    } else {
        result = 222;
    }
}
`)
	mem := newIntSim(t, asm, "main").run(t)
	if got := mem["[rel result_]"]; got != 111 {
		t.Errorf("result = %d, want 111 (condition x > 0 holds for x = 1)", got)
	}
}

func TestEmitIfTakesElseBranchWhenConditionFails(t *testing.T) {
	asm := compileSrc(t, `
int x = -1;
mut int result = 0;
void main() {
    if (x > 0) {
        result = 111;
    } else {
        result = 222;
    }
}
`)
	mem := newIntSim(t, asm, "main").run(t)
	if got := mem["[rel result_]"]; got != 222 {
		t.Errorf("result = %d, want 222 (condition x > 0 fails for x = -1)", got)
	}
}

func TestEmitOrOfAndsTakesBodyWhenOnlyLastGroupHolds(t *testing.T) {
	// The first AND-group (x > 0 && x < 10) is false for x = 100; only the
	// last OR-group (x == 100) holds. This is exactly the case the old
	// emitCond got wrong: a last-group success still fell through to the
	// false branch because only non-last groups jumped to trueLabel.
	asm := compileSrc(t, `
int x = 100;
mut int result = 0;
void main() {
    if (x > 0 && x < 10 || x == 100) {
        result = 111;
    } else {
        result = 222;
    }
}
`)
	mem := newIntSim(t, asm, "main").run(t)
	if got := mem["[rel result_]"]; got != 111 {
		t.Errorf("result = %d, want 111 (last OR group alone should take the body)", got)
	}
}

func TestEmitOrOfAndsTakesElseWhenNoGroupHolds(t *testing.T) {
	asm := compileSrc(t, `
int x = 50;
mut int result = 0;
void main() {
    if (x > 0 && x < 10 || x == 100) {
        result = 111;
    } else {
        result = 222;
    }
}
`)
	mem := newIntSim(t, asm, "main").run(t)
	if got := mem["[rel result_]"]; got != 222 {
		t.Errorf("result = %d, want 222 (neither OR group holds for x = 50)", got)
	}
}

func TestEmitWhileLoopRunsBodyExpectedNumberOfTimes(t *testing.T) {
	asm := compileSrc(t, `
mut int x = 0;
void main() {
    while (x < 3) {
        x += 1;
    }
}
`)
	mem := newIntSim(t, asm, "main").run(t)
	if got := mem["[rel x_]"]; got != 3 {
		t.Errorf("x = %d, want 3 (loop body must run exactly while x < 3 holds)", got)
	}
}

func TestEmitDoWhileRunsBodyAtLeastOnce(t *testing.T) {
	// The condition is false before the loop is ever entered; a do-while
	// still must run its body exactly once.
	asm := compileSrc(t, `
mut int x = 5;
void main() {
    do {
        x += 1;
    } while (x < 3);
}
`)
	mem := newIntSim(t, asm, "main").run(t)
	if got := mem["[rel x_]"]; got != 6 {
		t.Errorf("x = %d, want 6 (do-while body runs once even though the condition starts false)", got)
	}
}

func TestEmitForLoopAccumulatesExpectedSum(t *testing.T) {
	asm := compileSrc(t, `
mut int sum = 0;
void main() {
    for (mut int i = 0; i < 3; i += 1) {
        sum += i;
    }
}
`)
	mem := newIntSim(t, asm, "main").run(t)
	if got := mem["[rel sum_]"]; got != 3 {
		t.Errorf("sum = %d, want 3 (0 + 1 + 2 over a for loop from 0 to 2 inclusive)", got)
	}
}

func TestEmitMathMixedPrecedenceEvaluatesBothProducts(t *testing.T) {
	// a*b + c*d folds the two products first, then adds their spilled
	// partial results. An emitter that loses track of a folded-away
	// operand position would drop one product entirely.
	asm := compileSrc(t, `
int a = 2;
int b = 3;
int c = 4;
int d = 5;
mut int r = 0;
void main() {
    r = a * b + c * d;
}
`)
	mem := newIntSim(t, asm, "main").run(t)
	if got := mem["[rel r_]"]; got != 26 {
		t.Errorf("a*b + c*d = %d, want 26", got)
	}
}

func TestEmitConstantFoldedReturnIsASingleMov(t *testing.T) {
	asm := compileSrc(t, `
int fourteen() {
    return 2 + 3 * 4;
}
void main() {
    fourteen();
}
`)
	if !strings.Contains(asm, "mov eax, 14\n") {
		t.Errorf("expected the folded literal 14 in a single mov:\n%s", asm)
	}
	if strings.Contains(asm, "imul") {
		t.Errorf("constant arithmetic must not reach the emitter as an imul:\n%s", asm)
	}
}

func TestEmitPowerOfTwoMultiplyBecomesShift(t *testing.T) {
	asm := compileSrc(t, `
int f(int x) {
    return x * 8;
}
void main() {
    f(1);
}
`)
	if !strings.Contains(asm, "sal eax, 3\n") {
		t.Errorf("expected x * 8 to strength-reduce to sal eax, 3:\n%s", asm)
	}
	if strings.Contains(asm, "imul") {
		t.Errorf("power-of-two multiply must not emit imul:\n%s", asm)
	}
}

func TestEmitDivisionInLaterArgPreservesRdx(t *testing.T) {
	// The third integer argument lives in rdx, which idiv overwrites; a
	// division inside the fourth argument must push/pop it.
	asm := compileSrc(t, `
int pick(int a, int b, int c, int d) {
    return a;
}
void main() {
    mut int x = 9;
    pick(1, 2, 3, x / 3);
}
`)
	if !strings.Contains(asm, "push rdx\n") || !strings.Contains(asm, "pop rdx\n") {
		t.Errorf("expected rdx to be preserved across the idiv in the fourth argument:\n%s", asm)
	}
	idxPush := strings.Index(asm, "push rdx")
	idxDiv := strings.Index(asm, "idiv")
	idxPop := strings.Index(asm, "pop rdx")
	if !(idxPush < idxDiv && idxDiv < idxPop) {
		t.Errorf("rdx push/pop must bracket the idiv:\n%s", asm)
	}
}

func TestEmitMixedIntFloatCompareConvertsIntSide(t *testing.T) {
	asm := compileSrc(t, `
float f = 1.5;
mut int r = 0;
void main() {
    if (f > 1) {
        r = 1;
    }
}
`)
	if !strings.Contains(asm, "comiss xmm0, xmm1\n") {
		t.Errorf("expected a float-domain comparison:\n%s", asm)
	}
	if !strings.Contains(asm, "cvtsi2ss xmm1, ebx\n") {
		t.Errorf("expected the integer side to be converted before comiss:\n%s", asm)
	}
}

func TestEmitFloatParamSpilledFromXmm1(t *testing.T) {
	asm := compileSrc(t, `
float half(float a) {
    return a;
}
void main() {
    half(1.0);
}
`)
	if !strings.Contains(asm, "movss") {
		t.Errorf("expected a float parameter to be spilled with movss:\n%s", asm)
	}
	if !strings.Contains(asm, "xmm1") {
		t.Errorf("expected the first float argument register xmm1 to be used:\n%s", asm)
	}
}
