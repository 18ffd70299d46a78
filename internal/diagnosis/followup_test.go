package diagnosis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCandidates struct {
	candidates []string
	gotK       int
}

func (f *fakeCandidates) TopCandidates(_, _ []string, k int) []string {
	f.gotK = k
	if len(f.candidates) > k {
		return f.candidates[:k]
	}
	return f.candidates
}

type fakeQuestions struct {
	text string
	err  error
	got  []QuestionRequest
}

func (f *fakeQuestions) GenerateQuestion(_ context.Context, req QuestionRequest) (string, error) {
	f.got = append(f.got, req)
	return f.text, f.err
}

func schedulerSession(conf float64, asked ...Dimension) *Session {
	sess := NewSession("s1")
	sess.PendingSymptoms = []string{"fever", "cough"}
	sess.CurrentPredictions = []Prediction{{Disease: "influenza", ICD10: "J11", Confidence: conf}}
	for _, d := range asked {
		sess.AskedDimensions[d] = true
	}
	return sess
}

func TestSchedulerFollowsDimensionOrder(t *testing.T) {
	questions := &fakeQuestions{text: "How severe is it?"}
	s := NewScheduler(nil, &fakeCandidates{}, questions, zap.NewNop())

	// missing_symptoms has no candidates, so it is consumed silently;
	// the next call must move on to severity.
	sess := schedulerSession(0.4)
	q, ok := s.Next(context.Background(), sess, nil)
	require.True(t, ok)
	assert.Equal(t, DimMissingSymptoms, q.Dimension)
	assert.Empty(t, q.Text)

	sess.AskedDimensions[q.Dimension] = true
	q, ok = s.Next(context.Background(), sess, nil)
	require.True(t, ok)
	assert.Equal(t, DimSeverity, q.Dimension)
	assert.Equal(t, "How severe is it?", q.Text)
}

func TestSchedulerExhaustion(t *testing.T) {
	s := NewScheduler(nil, &fakeCandidates{}, &fakeQuestions{text: "q"}, zap.NewNop())
	sess := schedulerSession(0.4, DefaultDimensionOrder...)

	_, ok := s.Next(context.Background(), sess, nil)
	assert.False(t, ok)
}

func TestSchedulerCandidateBanding(t *testing.T) {
	tests := []struct {
		confidence float64
		wantK      int
	}{
		{0.85, 1},
		{0.6, 2},
		{0.3, 3},
	}
	for _, tt := range tests {
		candidates := &fakeCandidates{candidates: []string{"chills", "fatigue", "nausea"}}
		s := NewScheduler(nil, candidates, &fakeQuestions{text: "q"}, zap.NewNop())

		_, ok := s.Next(context.Background(), schedulerSession(tt.confidence), nil)
		require.True(t, ok)
		assert.Equal(t, tt.wantK, candidates.gotK, "confidence %.2f", tt.confidence)
	}
}

func TestSchedulerFallbackOnGenerationFailure(t *testing.T) {
	candidates := &fakeCandidates{candidates: []string{"chills"}}
	questions := &fakeQuestions{err: errors.New("api down")}
	s := NewScheduler(nil, candidates, questions, zap.NewNop())

	q, ok := s.Next(context.Background(), schedulerSession(0.4), nil)
	require.True(t, ok)
	assert.Equal(t, DimMissingSymptoms, q.Dimension)
	assert.Equal(t, "Are you experiencing chills?", q.Text)

	sess := schedulerSession(0.4, DimMissingSymptoms)
	q, ok = s.Next(context.Background(), sess, nil)
	require.True(t, ok)
	assert.Equal(t, "Can you tell me more about your severity?", q.Text)
}

func TestSchedulerDoesNotMutateAskedSet(t *testing.T) {
	s := NewScheduler(nil, &fakeCandidates{candidates: []string{"chills"}}, &fakeQuestions{text: "q"}, zap.NewNop())
	sess := schedulerSession(0.4)

	_, ok := s.Next(context.Background(), sess, nil)
	require.True(t, ok)
	assert.Empty(t, sess.AskedDimensions, "recording the ask is the orchestrator's job")
}

func TestSchedulerPassesSuspectedDiseases(t *testing.T) {
	questions := &fakeQuestions{text: "q"}
	s := NewScheduler(nil, &fakeCandidates{candidates: []string{"chills"}}, questions, zap.NewNop())

	sess := schedulerSession(0.4)
	sess.CurrentPredictions = []Prediction{
		{Disease: "influenza", ICD10: "J11", Confidence: 0.4},
		{Disease: "common cold", ICD10: "J00", Confidence: 0.3},
		{Disease: "pneumonia", ICD10: "J18", Confidence: 0.2},
		{Disease: "covid", ICD10: "U07", Confidence: 0.1},
	}

	_, ok := s.Next(context.Background(), sess, nil)
	require.True(t, ok)
	require.Len(t, questions.got, 1)
	assert.Equal(t, []string{"influenza", "common cold", "pneumonia"}, questions.got[0].Suspected)
}
