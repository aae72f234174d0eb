package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstround/interviewd/pkg/models"
)

func TestFallbackQuestionShapes(t *testing.T) {
	f := &Fallback{}
	ctx := context.Background()
	sess := models.Session{ID: "s1", Config: models.SessionConfig{Difficulty: "medium"}}

	coding, err := f.GenerateQuestion(ctx, QuestionRequest{Session: sess, Ordinal: 1, Type: models.QuestionCoding})
	require.NoError(t, err)
	assert.True(t, coding.Fallback)
	assert.Equal(t, "find_duplicates", coding.FunctionName)
	assert.NotEmpty(t, coding.Signature)
	assert.NotEmpty(t, coding.Tests)

	mcq, err := f.GenerateQuestion(ctx, QuestionRequest{Session: sess, Ordinal: 2, Type: models.QuestionMCQ})
	require.NoError(t, err)
	assert.Len(t, mcq.Options, 4)

	fib, err := f.GenerateQuestion(ctx, QuestionRequest{Session: sess, Ordinal: 3, Type: models.QuestionFIB})
	require.NoError(t, err)
	assert.NotEmpty(t, fib.Slots)

	b1, err := f.GenerateQuestion(ctx, QuestionRequest{Session: sess, Ordinal: 1, Type: models.QuestionBehavioral})
	require.NoError(t, err)
	b2, err := f.GenerateQuestion(ctx, QuestionRequest{Session: sess, Ordinal: 2, Type: models.QuestionBehavioral})
	require.NoError(t, err)
	assert.NotEqual(t, b1.Text, b2.Text, "bank rotates by ordinal")
}

func TestFallbackAnalyzeScoresByLength(t *testing.T) {
	f := &Fallback{}
	ctx := context.Background()
	q := models.Question{Type: models.QuestionBehavioral}

	empty, err := f.AnalyzeAnswer(ctx, q, models.Answer{})
	require.NoError(t, err)
	assert.Equal(t, 40, empty.Score)
	assert.True(t, empty.Fallback)

	short, err := f.AnalyzeAnswer(ctx, q, models.Answer{ResponseText: "I fixed the bug quickly."})
	require.NoError(t, err)
	assert.Equal(t, 60, short.Score)

	long, err := f.AnalyzeAnswer(ctx, q, models.Answer{ResponseText: strings.Repeat("word ", 500)})
	require.NoError(t, err)
	assert.Equal(t, 100, long.Score, "score caps at 100")
}

func TestFallbackSummaryShape(t *testing.T) {
	f := &Fallback{}
	q := models.Question{ID: "q1", Ordinal: 1, Text: "Tell me."}
	ans := models.Answer{ID: "a1", QuestionID: "q1", ResponseText: "ok", Feedback: &models.Feedback{Score: 72, Feedback: "fine"}}

	sum, err := f.GenerateSummary(context.Background(), SummaryRequest{
		Session: models.Session{ID: "s1"},
		QA: []QA{
			{Question: q, Answer: &ans},
			{Question: models.Question{ID: "q2", Ordinal: 2, Text: "And?"}},
		},
	})
	require.NoError(t, err)
	assert.True(t, sum.Fallback)
	assert.Equal(t, 75, sum.Overall)
	assert.Equal(t, 3, sum.Rubric["communication"])
	require.Len(t, sum.Review, 2)
	assert.Equal(t, 72, sum.Review[0].Score)
	assert.Equal(t, 40, sum.Review[1].Score)
}
