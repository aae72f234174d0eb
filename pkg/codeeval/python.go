package codeeval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"reflect"
	"time"

	"github.com/firstround/interviewd/pkg/models"
)

// testTimeout is the per-test wall clock budget.
const testTimeout = time.Second

// harness executes the candidate's code with restricted builtins, calls the
// target function with the test input, and reports a single JSON object on
// stdout. It reads {"code","functionName","input"} as JSON on stdin; the
// comparison against the expected value happens on the Go side so that JSON
// round-tripping treats both values identically.
const harness = `
import json, sys

payload = json.load(sys.stdin)
allowed = {
    "len": len, "range": range, "list": list, "dict": dict, "set": set,
    "sum": sum, "min": min, "max": max, "sorted": sorted,
    "enumerate": enumerate, "abs": abs, "all": all, "any": any,
}
g = {"__builtins__": allowed}
l = {}
try:
    exec(payload["code"], g, l)
    fn = l.get(payload["functionName"]) or g.get(payload["functionName"])
    if not callable(fn):
        print(json.dumps({"error": "function_not_found"}))
        sys.exit(0)
    inp = payload["input"]
    actual = fn(*inp) if isinstance(inp, list) else fn(inp)
    try:
        print(json.dumps({"actual": actual}))
    except (TypeError, ValueError):
        print(json.dumps({"actual": repr(actual)}))
except Exception as e:
    print(json.dumps({"error": str(e)}))
`

// PythonRunner executes tests via `python3 -I` (isolated mode: no site
// packages, no user environment).
type PythonRunner struct {
	// Binary overrides the interpreter path; empty means "python3".
	Binary string
}

type harnessInput struct {
	Code         string `json:"code"`
	FunctionName string `json:"functionName"`
	Input        []any  `json:"input"`
}

type harnessOutput struct {
	Actual any    `json:"actual"`
	Error  string `json:"error"`
}

var _ Runner = (*PythonRunner)(nil)

// RunTest runs one test case with the per-test deadline. All failures are
// reported in the Result, never as a process error.
func (r *PythonRunner) RunTest(ctx context.Context, code, functionName string, test models.CodeTest) Result {
	res := Result{Input: test.Input, Expected: test.Expected}

	stdin, err := json.Marshal(harnessInput{Code: code, FunctionName: functionName, Input: test.Input})
	if err != nil {
		res.Error = fmt.Sprintf("encoding test input: %v", err)
		return res
	}

	runCtx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	bin := r.Binary
	if bin == "" {
		bin = "python3"
	}
	cmd := exec.CommandContext(runCtx, bin, "-I", "-c", harness)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res.Error = "timeout"
			return res
		}
		res.Error = fmt.Sprintf("interpreter failed: %v", err)
		if s := stderr.String(); s != "" {
			res.Error = fmt.Sprintf("interpreter failed: %s", firstLine(s))
		}
		return res
	}

	var out harnessOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		res.Error = "no_result"
		return res
	}
	if out.Error != "" {
		res.Error = out.Error
		return res
	}
	res.Actual = out.Actual
	res.Pass = jsonEqual(out.Actual, test.Expected)
	return res
}

func firstLine(s string) string {
	if i := bytes.IndexByte([]byte(s), '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// jsonEqual compares two values through a JSON round trip so that Go and
// Python number representations agree (every number becomes float64).
func jsonEqual(a, b any) bool {
	na, err := normalizeJSON(a)
	if err != nil {
		return false
	}
	nb, err := normalizeJSON(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func normalizeJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
