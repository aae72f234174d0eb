package codeeval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstround/interviewd/pkg/models"
)

// fakeRunner passes a test iff the expected value equals "ok".
type fakeRunner struct {
	calls int
}

func (f *fakeRunner) RunTest(_ context.Context, _, _ string, test models.CodeTest) Result {
	f.calls++
	res := Result{Input: test.Input, Expected: test.Expected}
	if s, ok := test.Expected.(string); ok && s == "ok" {
		res.Pass = true
		res.Actual = "ok"
	} else {
		res.Error = "wrong"
	}
	return res
}

func TestScreenRejectsDangerousTokens(t *testing.T) {
	for _, code := range []string{
		"import os\nprint(1)",
		"__IMPORT__('os')", // matching is case-insensitive
		"f = open('/etc/passwd')",
		"eval('1+1')",
		"subprocess.run(['ls'])",
	} {
		assert.ErrorIs(t, Screen(code), ErrDisallowedCode, "code: %s", code)
	}
	assert.NoError(t, Screen("def solution(xs):\n    return sorted(set(xs))"))
}

func TestEvaluateScreensBeforeRunning(t *testing.T) {
	fr := &fakeRunner{}
	e := NewEvaluator(fr)

	_, err := e.Evaluate(context.Background(), Request{
		Code:  "import os",
		Tests: []models.CodeTest{{Expected: "ok"}},
	})
	assert.ErrorIs(t, err, ErrDisallowedCode)
	assert.Zero(t, fr.calls, "nothing runs after a failed screen")
}

func TestEvaluateCountsPasses(t *testing.T) {
	e := NewEvaluator(&fakeRunner{})

	resp, err := e.Evaluate(context.Background(), Request{
		Code: "def solution(x): return x",
		Tests: []models.CodeTest{
			{Input: []any{1}, Expected: "ok"},
			{Input: []any{2}, Expected: "nope"},
			{Input: []any{3}, Expected: "ok"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Passed)
	require.Len(t, resp.Results, 3)
	assert.False(t, resp.Results[1].Pass)
	assert.Equal(t, "wrong", resp.Results[1].Error)
}

func TestJSONEqualNormalizesNumbers(t *testing.T) {
	assert.True(t, jsonEqual(float64(3), 3))
	assert.True(t, jsonEqual([]any{1, 2}, []any{float64(1), float64(2)}))
	assert.True(t, jsonEqual(map[string]any{"a": 1}, map[string]any{"a": float64(1)}))
	assert.False(t, jsonEqual(3, "3"))
}
