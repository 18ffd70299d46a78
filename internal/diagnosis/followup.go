package diagnosis

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// CandidateSource proposes symptoms a patient has not mentioned yet but
// which co-occur with the suspected diseases.
type CandidateSource interface {
	TopCandidates(symptoms, suspected []string, k int) []string
}

// QuestionRequest carries everything the phrasing collaborator needs to
// word one follow-up question.
type QuestionRequest struct {
	Dimension       Dimension
	Symptoms        []string
	Suspected       []string
	MissingSymptoms []string
	Profile         Profile
	TopDisease      string
	Confidence      float64
	Context         []string
}

// QuestionGenerator words a follow-up question for a dimension.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, req QuestionRequest) (string, error)
}

// NextQuestion is one scheduling decision. Dimension is always set when a
// decision exists and must be recorded by the caller exactly once, even if
// Text came back empty (candidate exhaustion consumes the dimension too).
type NextQuestion struct {
	Dimension Dimension
	Text      string
}

// Scheduler walks the fixed dimension order and produces at most one
// follow-up question per evaluation pass.
type Scheduler struct {
	order      []Dimension
	candidates CandidateSource
	questions  QuestionGenerator
	log        *zap.Logger
}

func NewScheduler(order []Dimension, candidates CandidateSource, questions QuestionGenerator, log *zap.Logger) *Scheduler {
	if len(order) == 0 {
		order = DefaultDimensionOrder
	}
	return &Scheduler{order: order, candidates: candidates, questions: questions, log: log}
}

// Next picks the first dimension not yet asked and words a question for it.
// The second return is false only when every dimension has been consumed.
// The asked set is read, never written; recording the returned dimension is
// the orchestrator's job.
func (s *Scheduler) Next(ctx context.Context, sess *Session, history []string) (NextQuestion, bool) {
	var current Dimension
	found := false
	for _, dim := range s.order {
		if !sess.AskedDimensions[dim] {
			current = dim
			found = true
			break
		}
	}
	if !found {
		return NextQuestion{}, false
	}

	var top Prediction
	if len(sess.CurrentPredictions) > 0 {
		top = sess.CurrentPredictions[0]
	}
	suspected := suspectedDiseases(sess.CurrentPredictions, 3)

	req := QuestionRequest{
		Dimension:  current,
		Symptoms:   sess.PendingSymptoms,
		Suspected:  suspected,
		Profile:    sess.Profile,
		TopDisease: top.Disease,
		Confidence: top.Confidence,
		Context:    history,
	}

	if current == DimMissingSymptoms {
		k := 3
		switch {
		case top.Confidence > 0.8:
			k = 1
		case top.Confidence > 0.5:
			k = 2
		}
		missing := s.candidates.TopCandidates(sess.PendingSymptoms, suspected, k)
		if len(missing) == 0 {
			// Nothing left to probe on this dimension; it stays
			// consumed and the turn falls through to finalization.
			return NextQuestion{Dimension: current}, true
		}
		req.MissingSymptoms = missing
	}

	text, err := s.questions.GenerateQuestion(ctx, req)
	if err != nil || text == "" {
		if err != nil {
			s.log.Warn("question generation failed, using template",
				zap.String("dimension", string(current)), zap.Error(err))
		}
		text = fallbackQuestion(req)
	}
	return NextQuestion{Dimension: current, Text: text}, true
}

// fallbackQuestion keeps the session moving when the phrasing collaborator
// is unavailable.
func fallbackQuestion(req QuestionRequest) string {
	if req.Dimension == DimMissingSymptoms && len(req.MissingSymptoms) > 0 {
		return fmt.Sprintf("Are you experiencing %s?", req.MissingSymptoms[0])
	}
	return fmt.Sprintf("Can you tell me more about your %s?", req.Dimension.Label())
}

func suspectedDiseases(preds []Prediction, limit int) []string {
	if len(preds) < limit {
		limit = len(preds)
	}
	names := make([]string, 0, limit)
	for _, p := range preds[:limit] {
		names = append(names, p.Disease)
	}
	return names
}
