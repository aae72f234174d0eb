package events

import (
	"log/slog"

	"github.com/firstround/interviewd/pkg/models"
)

// Publisher is the typed publishing facade over the Bus. Domain packages call
// these instead of hand-building payloads; publish failures are logged, never
// propagated, because a lost fan-out frame must not fail the write that
// produced it.
type Publisher struct {
	bus *Bus
}

// NewPublisher creates a Publisher over bus.
func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) publish(sessionID, eventType string, payload any) {
	if _, err := p.bus.Publish(sessionID, eventType, payload); err != nil {
		slog.Warn("Failed to publish stream event",
			"session_id", sessionID, "type", eventType, "error", err)
	}
}

// PublishQuestionCreated emits QUESTION_CREATED for a freshly asked question.
func (p *Publisher) PublishQuestionCreated(q models.Question) {
	p.publish(q.SessionID, EventTypeQuestionCreated, QuestionCreatedPayload{
		QuestionID: q.ID,
		Ordinal:    q.Ordinal,
		Type:       q.Type,
		Text:       q.Text,
		Fallback:   q.Fallback,
	})
}

// PublishAnswerRecorded emits ANSWER_RECORDED.
func (p *Publisher) PublishAnswerRecorded(a models.Answer) {
	p.publish(a.SessionID, EventTypeAnswerRecorded, AnswerRecordedPayload{
		AnswerID:   a.ID,
		QuestionID: a.QuestionID,
		AnswerType: a.AnswerType,
	})
}

// PublishFeedbackCreated emits FEEDBACK_CREATED once analysis lands.
func (p *Publisher) PublishFeedbackCreated(a models.Answer) {
	if a.Feedback == nil {
		return
	}
	p.publish(a.SessionID, EventTypeFeedbackCreated, FeedbackCreatedPayload{
		AnswerID:   a.ID,
		QuestionID: a.QuestionID,
		Score:      a.Feedback.Score,
		Fallback:   a.Feedback.Fallback,
	})
}

// PublishStrikeCreated emits STRIKE_CREATED.
func (p *Publisher) PublishStrikeCreated(s models.Strike) {
	p.publish(s.SessionID, EventTypeStrikeCreated, StrikeCreatedPayload{
		StrikeID:  s.ID,
		EventType: s.EventType,
		EventSeq:  s.EventSeq,
		Severity:  s.Severity,
		Action:    s.Action,
	})
}

// PublishSessionState emits the lifecycle frame for a state transition and,
// for terminal states, seals the topic after the frame.
func (p *Publisher) PublishSessionState(sessionID string, state models.SessionState, cause string, countdownSeconds int) {
	var eventType string
	switch state {
	case models.StatePaused:
		eventType = EventTypeSessionPaused
	case models.StateActive:
		eventType = EventTypeSessionResumed
	case models.StateEnded:
		eventType = EventTypeSessionEnded
	case models.StateCompleted:
		eventType = EventTypeSessionCompleted
	default:
		return
	}
	p.publish(sessionID, eventType, SessionStatePayload{
		State:            state,
		Cause:            cause,
		CountdownSeconds: countdownSeconds,
	})
	if state.Terminal() {
		p.bus.CloseTopic(sessionID)
	}
}
