package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/firstround/interviewd/pkg/codeeval"
	"github.com/firstround/interviewd/pkg/models"
)

func questionMetadata(q models.Question) map[string]any {
	md := map[string]any{}
	if q.Difficulty != "" {
		md["difficulty"] = q.Difficulty
	}
	if q.FunctionName != "" {
		md["functionName"] = q.FunctionName
	}
	if q.Signature != "" {
		md["signature"] = q.Signature
	}
	if len(q.Tests) > 0 {
		md["tests"] = q.Tests
	}
	if len(q.Options) > 0 {
		md["options"] = q.Options
	}
	if len(q.Slots) > 0 {
		md["slots"] = q.Slots
	}
	if q.Fallback {
		md["fallback"] = true
	}
	if len(md) == 0 {
		return nil
	}
	return md
}

// nextQuestionHandler handles POST /interview/:id/next-question under AIPT.
func (s *Server) nextQuestionHandler(c *echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	sessionID := c.Param("id")

	q, err := s.sessions.NextQuestion(ctx, sessionID, tokenClaims(c).Generation)
	if err != nil {
		return err
	}
	sess, err := s.sessions.Get(ctx, sessionID, "")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &QuestionResponse{
		QuestionID:     q.ID,
		QuestionNumber: q.Ordinal,
		TotalQuestions: sess.Config.QuestionCount,
		Type:           q.Type,
		Text:           q.Text,
		Metadata:       questionMetadata(q),
	})
}

// answerHandler handles POST /interview/:id/answer under IST.
func (s *Server) answerHandler(c *echo.Context) error {
	var req models.SubmitAnswerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ans, err := s.sessions.SubmitAnswer(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &AnswerResponse{
		Status:            "submitted",
		AnswerID:          ans.ID,
		ImmediateFeedback: ans.Feedback,
	})
}

// codeEvalHandler handles POST /interview/:id/code-eval under IST.
func (s *Server) codeEvalHandler(c *echo.Context) error {
	var req codeeval.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Code == "" {
		return newAPIError(http.StatusBadRequest, "validation_failed", "code is required")
	}

	// The evaluator only runs for sessions that are actually underway.
	sess, err := s.sessions.Get(c.Request().Context(), c.Param("id"), "")
	if err != nil {
		return err
	}
	if sess.State != models.StateActive {
		return newAPIError(http.StatusConflict, "invalid_state", "code eval requires an active session")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	resp, err := s.evaluator.Evaluate(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// finalizeHandler handles POST /interview/:id/finalize under IST.
func (s *Server) finalizeHandler(c *echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sum, err := s.sessions.Finalize(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &FinalizeResponse{SummaryID: sum.ID, Status: "completed"})
}
