package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// runVMExpectError runs the input, expecting a runtime error. Returns what
// the VM reported. Fails the test if the program compiles badly or succeeds.
func runVMExpectError(t *testing.T, input string, opts ...Option) string {
	t.Helper()
	out, errOut, result := interpret(t, input, opts...)
	if result != InterpretRuntimeError {
		t.Fatalf("expected runtime error, got %s\nstdout:\n%s\nstderr:\n%s", result, out, errOut)
	}
	return errOut
}

// runVMExpectErrorMessage checks the first reported line is the message.
func runVMExpectErrorMessage(t *testing.T, input, want string) {
	t.Helper()
	reported := runVMExpectError(t, input)
	first := strings.SplitN(reported, "\n", 2)[0]
	if first != "runtime error: "+want {
		t.Errorf("got %q, want %q", first, "runtime error: "+want)
	}
}

// =============================================================================
// Operand type errors
// =============================================================================

func TestVMError_OperandTypes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"subtract string", `print 1 - "a";`, "Operands must be numbers"},
		{"multiply nil", "print nil * 2;", "Operands must be numbers"},
		{"divide bool", "print 4 / true;", "Operands must be numbers"},
		{"compare string", `print "a" < 1;`, "Operands must be numbers"},
		{"compare strings", `print "a" > "b";`, "Operands must be numbers"},
		{"greater equal", `print nil >= 1;`, "Operands must be numbers"},
		{"negate string", `print -"a";`, "Operand must be a number"},
		{"negate nil", "print -nil;", "Operand must be a number"},
		{"add mixed", `print 1 + "a";`, "Operands must be two numbers or two strings"},
		{"add nils", "print nil + nil;", "Operands must be two numbers or two strings"},
		{"add instance", `class A {} print A() + "a";`, "Operands must be two numbers or two strings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runVMExpectErrorMessage(t, tt.input, tt.want)
		})
	}
}

// =============================================================================
// Variables
// =============================================================================

func TestVMError_UndefinedVariable(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"read", "print x;", "Undefined variable 'x'"},
		{"assign", "x = 1;", "Undefined variable 'x'"},
		{"read in function", "fun f() { return missing; } f();", "Undefined variable 'missing'"},
		{"assign in function", "fun f() { missing = 1; } f();", "Undefined variable 'missing'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runVMExpectErrorMessage(t, tt.input, tt.want)
		})
	}
}

func TestVMError_AssignmentDoesNotDefine(t *testing.T) {
	var out, errOut bytes.Buffer
	machine := newTestVM(&out, &errOut)
	if got := machine.Interpret("x = 1;"); got != InterpretRuntimeError {
		t.Fatalf("got %s", got)
	}
	if _, ok := machine.Global("x"); ok {
		t.Error("failed assignment created a global")
	}
}

// =============================================================================
// Calls
// =============================================================================

func TestVMError_Calls(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"call bool", "true();", "Can only call functions and classes"},
		{"call string", `"str"();`, "Can only call functions and classes"},
		{"call nil", "nil();", "Can only call functions and classes"},
		{"call number", "var a = 1; a();", "Can only call functions and classes"},
		{"call instance", "class A {} A()();", "Can only call functions and classes"},
		{"too few", "fun f(a, b) {} f(1);", "Expected 2 arguments but got 1"},
		{"too many", "fun f(a) {} f(1, 2, 3);", "Expected 1 arguments but got 3"},
		{"class without init", "class Foo {} Foo(1, 2, 3);", "Expected 0 arguments but got 3"},
		{"init arity", "class Foo { init(a, b) {} } Foo(1, 2, 3, 4);", "Expected 2 arguments but got 4"},
		{"method arity", "class Foo { m(a) {} } Foo().m();", "Expected 1 arguments but got 0"},
		{"closure arity", `
			fun outer() {
				var x = 1;
				fun inner(y) { return x + y; }
				return inner;
			}
			outer()();`, "Expected 1 arguments but got 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runVMExpectErrorMessage(t, tt.input, tt.want)
		})
	}
}

// =============================================================================
// Properties and fields
// =============================================================================

func TestVMError_Properties(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"get on bool", "true.foo;", "Only instances have properties"},
		{"get on class", "class Foo {} Foo.bar;", "Only instances have properties"},
		{"get on function", "fun f() {} f.bar;", "Only instances have properties"},
		{"get on string", `"str".length;`, "Only instances have properties"},
		{"set on number", "123.foo = 1;", "Only instances have fields"},
		{"set on nil", "nil.foo = 1;", "Only instances have fields"},
		{"set on class", "class Foo {} Foo.bar = 1;", "Only instances have fields"},
		{"undefined", "class Foo {} var foo = Foo(); foo.bar;", "Undefined property 'bar'"},
		{"undefined via this", "class Foo { m() { return this.missing; } } Foo().m();", "Undefined property 'missing'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runVMExpectErrorMessage(t, tt.input, tt.want)
		})
	}
}

// =============================================================================
// Stack overflow
// =============================================================================

func TestVMError_StackOverflow(t *testing.T) {
	runVMExpectErrorMessage(t, "fun f() { f(); } f();", "Stack overflow")
	runVMExpectErrorMessage(t, `
		class Node { recurse() { return this.recurse(); } }
		Node().recurse();`, "Stack overflow")
}

func TestVMError_MaxFrames(t *testing.T) {
	source := `
		fun r(n) {
			if (n == 0) return 0;
			return r(n - 1);
		}
		print r(%s);`

	out, errOut, result := interpret(t, strings.Replace(source, "%s", "6", 1), WithMaxFrames(8))
	if result != InterpretOK {
		t.Fatalf("depth 6 in 8 frames: %s\n%s", result, errOut)
	}
	expectLines(t, outputLines(out), "0")

	reported := runVMExpectError(t, strings.Replace(source, "%s", "10", 1), WithMaxFrames(8))
	if !strings.HasPrefix(reported, "runtime error: Stack overflow\n") {
		t.Errorf("got %q", reported)
	}
	// One trace line per live frame.
	if got := strings.Count(reported, "[line "); got != 8 {
		t.Errorf("trace has %d lines, want 8", got)
	}
}

func TestVMError_ValueStackExhausted(t *testing.T) {
	var out, errOut bytes.Buffer
	machine := newTestVM(&out, &errOut, WithMaxFrames(1))
	fn, err := machine.Compile("print 1;")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	closure := newClosure(fn)
	machine.push(ObjVal(closure))
	if err := machine.call(closure, 0); err != nil {
		t.Fatalf("call: %v", err)
	}
	// The first OP_CONSTANT has nowhere to go.
	machine.sp = len(machine.stack)
	if err := machine.execute(); !errors.Is(err, errStackOverflow) {
		t.Fatalf("got %v, want stack overflow", err)
	}

	if err := machine.Run(fn); err != nil {
		t.Fatalf("run after overflow: %v\n%s", err, errOut.String())
	}
	expectLines(t, outputLines(out.String()), "1")
}

// =============================================================================
// Trace format and recovery
// =============================================================================

func TestVMError_TraceFormat(t *testing.T) {
	source := "fun a() { b(); }\n" +
		"fun b() { c(); }\n" +
		"fun c() { return 1 + nil; }\n" +
		"a();\n"

	want := strings.Join([]string{
		"runtime error: Operands must be two numbers or two strings",
		"[line 3] in c()",
		"[line 2] in b()",
		"[line 1] in a()",
		"[line 4] in script",
	}, "\n") + "\n"

	if got := runVMExpectError(t, source); got != want {
		t.Errorf("trace mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestVMError_TraceNamesMethods(t *testing.T) {
	source := "class Foo {\n" +
		"  bar() {\n" +
		"    return -this;\n" +
		"  }\n" +
		"}\n" +
		"Foo().bar();\n"

	want := "runtime error: Operand must be a number\n" +
		"[line 3] in bar()\n" +
		"[line 6] in script\n"
	if got := runVMExpectError(t, source); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestVMError_OutputBeforeErrorIsKept(t *testing.T) {
	out, _, result := interpret(t, `print "first"; print 1 + nil; print "never";`)
	if result != InterpretRuntimeError {
		t.Fatalf("got %s", result)
	}
	expectLines(t, outputLines(out), "first")
}

func TestVMError_RecoversAfterError(t *testing.T) {
	var out, errOut bytes.Buffer
	machine := newTestVM(&out, &errOut)

	machine.Interpret("var a = 1;")
	if got := machine.Interpret("fun f() { return a + nil; } f();"); got != InterpretRuntimeError {
		t.Fatalf("got %s", got)
	}
	if got := machine.Interpret(`print a; print "ok";`); got != InterpretOK {
		t.Fatalf("after error: %s\n%s", got, errOut.String())
	}
	expectLines(t, outputLines(out.String()), "1", "ok")
}

func TestVMError_RunReturnsRuntimeError(t *testing.T) {
	var out, errOut bytes.Buffer
	machine := newTestVM(&out, &errOut)

	fn, err := machine.Compile("fun f() { nil(); }\nf();")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	err = machine.Run(fn)

	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if rtErr.Message != "Can only call functions and classes" {
		t.Errorf("message: %q", rtErr.Message)
	}
	wantTrace := []TraceLine{{Line: 1, Function: "f"}, {Line: 2, Function: ""}}
	if len(rtErr.Trace) != len(wantTrace) {
		t.Fatalf("trace: %v", rtErr.Trace)
	}
	for i := range wantTrace {
		if rtErr.Trace[i] != wantTrace[i] {
			t.Errorf("trace[%d]: got %+v, want %+v", i, rtErr.Trace[i], wantTrace[i])
		}
	}
	if ResultOf(err) != InterpretRuntimeError {
		t.Errorf("ResultOf: %s", ResultOf(err))
	}
}
