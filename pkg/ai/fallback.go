package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/firstround/interviewd/pkg/models"
)

// Fallback is the deterministic provider used when the real model is
// unconfigured, slow, or failing. Output is labelled fallback so clients and
// reports can surface it honestly.
type Fallback struct{}

var _ Provider = (*Fallback)(nil)

// Question bank, one entry per type. Behavioral and scenario rotate through
// their variants by ordinal so a whole interview on fallback does not repeat.
var (
	behavioralBank = []string{
		"Tell me about a time you had to deliver under a tight deadline. What trade-offs did you make?",
		"Describe a disagreement with a teammate about a technical decision. How was it resolved?",
		"Tell me about a project that failed. What did you learn and change afterwards?",
		"Describe a time you had to learn an unfamiliar technology quickly to unblock your team.",
	}
	scenarioBank = []string{
		"Your service's p99 latency tripled after a deploy with no errors in the logs. Walk me through how you would investigate.",
		"A customer reports intermittent data loss but you cannot reproduce it. What do you do in the first hour?",
		"You inherit a system with no tests and a critical bug in production. How do you proceed?",
	}
	mcqOptions = []string{
		"O(1)", "O(log n)", "O(n)", "O(n log n)",
	}
	fibSlots = []string{"status_code", "meaning"}
)

func (f *Fallback) GenerateQuestion(_ context.Context, req QuestionRequest) (models.Question, error) {
	q := models.Question{
		ID:         uuid.NewString(),
		SessionID:  req.Session.ID,
		Ordinal:    req.Ordinal,
		Type:       req.Type,
		Difficulty: req.Session.Config.Difficulty,
		Fallback:   true,
	}
	switch req.Type {
	case models.QuestionCoding:
		q.Text = "Write a function find_duplicates(nums) that returns the values appearing more than once in nums, in ascending order."
		q.FunctionName = "find_duplicates"
		q.Signature = "def find_duplicates(nums: list[int]) -> list[int]:"
		q.Tests = []models.CodeTest{
			{Input: []any{[]any{1, 2, 3, 2, 1}}, Expected: []any{1, 2}},
			{Input: []any{[]any{5, 5, 5}}, Expected: []any{5}},
			{Input: []any{[]any{1, 2, 3}}, Expected: []any{}},
		}
	case models.QuestionMCQ:
		q.Text = "What is the average-case time complexity of a hash table lookup?"
		q.Options = append([]string(nil), mcqOptions...)
	case models.QuestionFIB:
		q.Text = "HTTP status code ____ means ____ and is returned when a resource cannot be found."
		q.Slots = append([]string(nil), fibSlots...)
	case models.QuestionScenario:
		q.Text = scenarioBank[(req.Ordinal-1)%len(scenarioBank)]
	default:
		q.Type = models.QuestionBehavioral
		q.Text = behavioralBank[(req.Ordinal-1)%len(behavioralBank)]
	}
	return q, nil
}

// AnalyzeAnswer scores on answer length: substance is rewarded up to a cap,
// an empty answer floors the score. Crude, but monotone and honest about
// being a heuristic via the fallback flag.
func (f *Fallback) AnalyzeAnswer(_ context.Context, q models.Question, a models.Answer) (models.Feedback, error) {
	text := a.ResponseText
	if text == "" && len(a.Transcripts) > 0 {
		text = strings.Join(a.Transcripts, " ")
	}
	words := len(strings.Fields(text))

	fb := models.Feedback{Fallback: true}
	if words == 0 {
		fb.Score = 40
		fb.Feedback = "No substantive answer was captured for this question."
		return fb, nil
	}
	fb.Score = 60 + min(40, words/10)
	fb.Feedback = fmt.Sprintf(
		"Your answer addressed the question with reasonable depth (%d words). A model-backed review was unavailable; consider elaborating on trade-offs and concrete outcomes.",
		words)
	return fb, nil
}

func (f *Fallback) GenerateSummary(_ context.Context, req SummaryRequest) (models.Summary, error) {
	sum := models.Summary{
		ID:        uuid.NewString(),
		SessionID: req.Session.ID,
		Overall:   75,
		Rubric: map[string]int{
			"communication":   3,
			"problem_solving": 3,
			"technical":       3,
		},
		Strengths: []string{"Completed the interview and engaged with every answered question."},
		Gaps:      []string{"A model-backed evaluation was unavailable; scores are heuristic."},
		Fallback:  true,
	}
	for _, qa := range req.QA {
		item := models.ReviewItem{
			QuestionID: qa.Question.ID,
			Ordinal:    qa.Question.Ordinal,
			Question:   qa.Question.Text,
			Score:      40,
			Feedback:   "Not answered.",
		}
		if qa.Answer != nil {
			item.AnswerText = qa.Answer.ResponseText
			if qa.Answer.Feedback != nil {
				item.Score = qa.Answer.Feedback.Score
				item.Feedback = qa.Answer.Feedback.Feedback
			} else {
				item.Score = 60
				item.Feedback = "Answered; no detailed analysis available."
			}
		}
		sum.Review = append(sum.Review, item)
	}
	return sum, nil
}
