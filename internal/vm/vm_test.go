package vm_test

import (
	"bytes"
	"testing"

	"poise/internal/compiler"
	"poise/internal/namespace"
	"poise/internal/objects"
	"poise/internal/value"
	"poise/internal/vm"
)

// compileAndRun compiles source as a standalone main file under a fresh
// namespace.Manager and runs it to completion, capturing stdout/stderr.
func compileAndRun(t *testing.T, path, source string) (stdout, stderr string, result vm.RunResult) {
	t.Helper()
	manager := namespace.NewManager()
	c := compiler.New(path, path, manager, "", true, true)
	res := c.Compile(source)
	if res.HadError {
		t.Fatalf("unexpected compile error in %q", path)
	}
	if res.EntryFunction == nil {
		t.Fatalf("no main function found in %q", path)
	}

	m := vm.New(manager)
	var out, errOut bytes.Buffer
	m.Stdout = &out
	m.Stderr = &errOut

	rr, err := m.Run(res.EntryFunction, res.EntryOpIndex, res.EntryConstIndex)
	if err != nil {
		t.Fatalf("VM.Run returned an internal error: %v", err)
	}
	return out.String(), errOut.String(), rr
}

func TestArithmeticPrecedenceAndPrint(t *testing.T) {
	src := `
func main() {
    var x = 2 + 3 * 4;
    println x;
}
`
	out, _, result := compileAndRun(t, "arith.poise", src)
	if result != vm.Success {
		t.Fatalf("expected Success, got %v", result)
	}
	if out != "14\n" {
		t.Fatalf("expected stdout %q, got %q", "14\n", out)
	}
}

func TestLambdaClosureCapturesOuterLocal(t *testing.T) {
	src := `
func main() {
    var n = 10;
    var addN = |n|(x) => x + n;
    println addN(5);
}
`
	out, _, result := compileAndRun(t, "lambda.poise", src)
	if result != vm.Success {
		t.Fatalf("expected Success, got %v", result)
	}
	if out != "15\n" {
		t.Fatalf("expected stdout %q, got %q", "15\n", out)
	}
}

func TestForLoopOverRangeSum(t *testing.T) {
	src := `
func main() {
    var sum = 0;
    for i in 0..5 {
        sum = i + sum;
    }
    println sum;
}
`
	out, _, result := compileAndRun(t, "range.poise", src)
	if result != vm.Success {
		t.Fatalf("expected Success, got %v", result)
	}
	if out != "10\n" {
		t.Fatalf("expected stdout %q, got %q", "10\n", out)
	}
}

func TestTryCatchBindsThrownValue(t *testing.T) {
	src := `
func main() {
    var caught = none;
    try {
        throw "boom";
    } catch e {
        caught = e;
    }
    println caught;
}
`
	out, _, result := compileAndRun(t, "trycatch.poise", src)
	if result != vm.Success {
		t.Fatalf("expected Success, got %v", result)
	}
	if out != "Exception: boom\n" {
		t.Fatalf("expected stdout %q, got %q", "Exception: boom\n", out)
	}
}

func TestDictConstructionAndIndex(t *testing.T) {
	src := `
func main() {
    var d = {"a": 1, "b": 2};
    println d["a"] + d["b"];
}
`
	out, _, result := compileAndRun(t, "dict.poise", src)
	if result != vm.Success {
		t.Fatalf("expected Success, got %v", result)
	}
	if out != "3\n" {
		t.Fatalf("expected stdout %q, got %q", "3\n", out)
	}
}

func TestCrossFileImportCallsExportedFunction(t *testing.T) {
	dir := t.TempDir()
	helperPath := dir + "/helper.poise"
	mainPath := dir + "/main.poise"

	writeFile(t, helperPath, `
export func add(a, b) {
    return a + b;
}
`)
	writeFile(t, mainPath, `
import helper;

func main() {
    println helper::add(2, 3);
}
`)

	manager := namespace.NewManager()
	mainSource := readFile(t, mainPath)
	c := compiler.New(mainPath, mainPath, manager, "", true, false)
	res := c.Compile(mainSource)
	if res.HadError {
		t.Fatalf("unexpected compile error")
	}

	m := vm.New(manager)
	var out, errOut bytes.Buffer
	m.Stdout = &out
	m.Stderr = &errOut

	rr, err := m.Run(res.EntryFunction, res.EntryOpIndex, res.EntryConstIndex)
	if err != nil {
		t.Fatalf("VM.Run returned an internal error: %v", err)
	}
	if rr != vm.Success {
		t.Fatalf("expected Success, got %v; stderr: %s", rr, errOut.String())
	}
	if out.String() != "5\n" {
		t.Fatalf("expected stdout %q, got %q", "5\n", out.String())
	}
}

// TestMutatingListDuringIterationInvalidatesIterator registers a native
// list-append function (the only way this package can mutate a List without
// a standard library loaded) and confirms a for-loop over a List it mutates
// in its own body surfaces as an unhandled InvalidIterator, not a silent
// infinite loop or a stale read.
func TestMutatingListDuringIterationInvalidatesIterator(t *testing.T) {
	src := `
func main() {
    var l = [1, 2, 3];
    for x in l {
        __NATIVE_listAppend(l, x);
    }
}
`
	manager := namespace.NewManager()
	c := compiler.New("iterbreak.poise", "iterbreak.poise", manager, "", true, true)
	res := c.Compile(src)
	if res.HadError {
		t.Fatalf("unexpected compile error")
	}

	m := vm.New(manager)
	m.RegisterNative("__NATIVE_listAppend", 2, func(args []value.Value) (value.Value, *objects.Exception) {
		l, ok := objects.AsList(args[0].Object())
		if !ok {
			return value.None(), objects.NewException(objects.ExcInvalidArgument, "expected a List")
		}
		l.Append(args[1])
		args[0].Release()
		return value.None(), nil
	})
	var out, errOut bytes.Buffer
	m.Stdout = &out
	m.Stderr = &errOut

	rr, err := m.Run(res.EntryFunction, res.EntryOpIndex, res.EntryConstIndex)
	if err != nil {
		t.Fatalf("VM.Run returned an internal error: %v", err)
	}
	if rr != vm.RuntimeError {
		t.Fatalf("expected RuntimeError from the invalidated iterator, got %v", rr)
	}
	if !bytes.Contains(errOut.Bytes(), []byte("InvalidIterator")) {
		t.Fatalf("expected an InvalidIterator backtrace, got: %s", errOut.String())
	}
}
