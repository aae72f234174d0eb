// Package codeeval runs candidate-submitted Python against a question's test
// cases. This is a screening harness, not a production sandbox: a fast token
// screen rejects obviously dangerous code, and each test then runs in its own
// `python3 -I` subprocess with restricted builtins and a one second deadline.
package codeeval

import (
	"context"
	"errors"
	"strings"

	"github.com/firstround/interviewd/pkg/models"
)

// ErrDisallowedCode is returned when the submission trips the token screen.
var ErrDisallowedCode = errors.New("disallowed code")

// bannedTokens is the quick pre-screen applied to the lowercased submission.
// The subprocess has no builtins that reach the OS either; this just fails
// fast with a clearer error.
var bannedTokens = []string{
	"import ",
	"__import__",
	"open(",
	"exec(",
	"eval(",
	"os.",
	"sys.",
	"subprocess",
	"socket",
	"thread",
	"fork",
	"spawn",
}

// Request is the wire shape for a code-eval call.
type Request struct {
	Code         string            `json:"code" validate:"required"`
	FunctionName string            `json:"functionName"`
	Tests        []models.CodeTest `json:"tests"`
}

// Result is the outcome of one test case. Actual is present only when the
// function returned; Error carries timeout, function_not_found, or the
// Python exception text.
type Result struct {
	Input    any    `json:"input"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual,omitempty"`
	Pass     bool   `json:"pass"`
	Error    string `json:"error,omitempty"`
}

// Response aggregates all test outcomes.
type Response struct {
	Results []Result `json:"results"`
	Passed  int      `json:"passed"`
	Total   int      `json:"total"`
}

// Runner executes one test case. The production implementation shells out to
// python3; tests substitute a fake.
type Runner interface {
	RunTest(ctx context.Context, code, functionName string, test models.CodeTest) Result
}

// Evaluator screens submissions and fans the tests out to the Runner.
type Evaluator struct {
	runner Runner
}

// NewEvaluator builds an Evaluator over runner.
func NewEvaluator(runner Runner) *Evaluator {
	return &Evaluator{runner: runner}
}

// Screen rejects code containing any banned token. Matching is on the
// lowercased source, same as the wire contract clients test against.
func Screen(code string) error {
	lowered := strings.ToLower(code)
	for _, tok := range bannedTokens {
		if strings.Contains(lowered, tok) {
			return ErrDisallowedCode
		}
	}
	return nil
}

// Evaluate screens the code and runs every test sequentially. Individual
// test failures (including timeouts) land in their Result; only the screen
// fails the call as a whole.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Response, error) {
	if err := Screen(req.Code); err != nil {
		return Response{}, err
	}
	fname := req.FunctionName
	if fname == "" {
		fname = "solution"
	}

	resp := Response{Total: len(req.Tests), Results: make([]Result, 0, len(req.Tests))}
	for _, test := range req.Tests {
		res := e.runner.RunTest(ctx, req.Code, fname, test)
		if res.Pass {
			resp.Passed++
		}
		resp.Results = append(resp.Results, res)
	}
	return resp, nil
}
