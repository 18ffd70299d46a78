package diagnosis

import (
	"time"
)

// Phase is the user-facing state of a diagnostic session. The evaluation
// pass (predict, fuse, stop-rule) happens inside a single Handle call and
// never leaves a session parked in an intermediate phase.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseAwaitingDemographics Phase = "awaiting_demographics"
	PhaseAwaitingFollowup     Phase = "awaiting_followup"
)

// Intent is the classified purpose of an incoming message.
type Intent string

const (
	IntentSymptomDiagnosis Intent = "symptom_diagnosis"
	IntentPatientHistory   Intent = "patient_history"
	IntentChat             Intent = "chat"
)

// Prediction is one candidate diagnosis. ICD10 is the identity key used
// when merging prediction lists from different sources.
type Prediction struct {
	Disease    string  `json:"disease"`
	ICD10      string  `json:"icd10"`
	Confidence float64 `json:"confidence"`
}

// Dimension is one clarification topic a follow-up question can probe.
type Dimension string

const (
	DimMissingSymptoms   Dimension = "missing_symptoms"
	DimSeverity          Dimension = "severity"
	DimOnsetDuration     Dimension = "onset_duration"
	DimFrequency         Dimension = "frequency"
	DimTriggersRelievers Dimension = "triggers_relievers"
	DimAssociatedSigns   Dimension = "associated_signs"
	DimFunctionalImpact  Dimension = "functional_impact"
	DimRiskFactors       Dimension = "risk_factors"
	DimTreatmentResponse Dimension = "treatment_response"
)

// DefaultDimensionOrder fixes the priority in which dimensions are probed.
// Missing symptoms go first because they narrow the differential the most.
var DefaultDimensionOrder = []Dimension{
	DimMissingSymptoms,
	DimSeverity,
	DimOnsetDuration,
	DimFrequency,
	DimTriggersRelievers,
	DimAssociatedSigns,
	DimFunctionalImpact,
	DimRiskFactors,
	DimTreatmentResponse,
}

// Label renders a dimension for patient-facing text ("onset duration").
func (d Dimension) Label() string {
	b := []byte(d)
	for i := range b {
		if b[i] == '_' {
			b[i] = ' '
		}
	}
	return string(b)
}

// Session holds all per-conversation mutable state. A session is owned by a
// single Handle call at a time; the store enforces the single-writer rule.
type Session struct {
	ID                 string
	Phase              Phase
	Profile            Profile
	PendingSymptoms    []string
	AskedDimensions    map[Dimension]bool
	FollowupCount      int
	LastQuestion       string
	CurrentPredictions []Prediction
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:              id,
		Phase:           PhaseIdle,
		AskedDimensions: make(map[Dimension]bool),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Reset returns the session to its initial phase, dropping all diagnostic
// state including the patient profile.
func (s *Session) Reset() {
	s.Phase = PhaseIdle
	s.Profile = Profile{}
	s.PendingSymptoms = nil
	s.AskedDimensions = make(map[Dimension]bool)
	s.FollowupCount = 0
	s.LastQuestion = ""
	s.CurrentPredictions = nil
	s.UpdatedAt = time.Now()
}

// AddSymptoms unions new symptoms into the pending set, preserving the
// order in which symptoms were first reported.
func (s *Session) AddSymptoms(symptoms []string) {
	for _, sym := range symptoms {
		if sym == "" {
			continue
		}
		seen := false
		for _, existing := range s.PendingSymptoms {
			if existing == sym {
				seen = true
				break
			}
		}
		if !seen {
			s.PendingSymptoms = append(s.PendingSymptoms, sym)
		}
	}
}

// Report is the finalized outcome of a session, handed to the report
// service for persistence and PDF export.
type Report struct {
	SessionID  string    `json:"session_id"`
	Disease    string    `json:"disease"`
	ICD10      string    `json:"icd10"`
	Confidence float64   `json:"confidence"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reasoning is the reasoning collaborator's output: the full step-by-step
// analysis and a condensed patient-facing summary.
type Reasoning struct {
	Steps   string `json:"steps"`
	Summary string `json:"summary"`
}
