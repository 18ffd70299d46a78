package diagnosis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AssistantClient defines the language-model interactions the engine
// depends on. We define it here to decouple from the specific client
// implementation.
type AssistantClient interface {
	ClassifyIntent(ctx context.Context, text string) (Intent, error)
	ExtractSymptoms(ctx context.Context, text string) ([]string, error)
	AnalyzeFollowupResponse(ctx context.Context, question, answer string) ([]string, error)
	GenerateReasoning(ctx context.Context, req ReasoningRequest) (Reasoning, error)
	Chat(ctx context.Context, text string) (string, error)
	PatientHistory(ctx context.Context, text string) (string, error)
}

// Predictor is one independent diagnosis source.
type Predictor interface {
	Predict(ctx context.Context, symptoms []string) ([]Prediction, error)
}

// KnowledgeStore is the retrieval-backed evidence store consulted for
// reasoning and cleared on session reset.
type KnowledgeStore interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
	Clear(ctx context.Context) error
}

// Memory is the per-session conversational transcript.
type Memory interface {
	SaveContext(sessionID, input, output string)
	Recent(sessionID string, n int) []string
	Clear(sessionID string)
}

// TreatmentSource looks up treatment text from the reference data.
type TreatmentSource interface {
	Treatment(disease string) (string, bool)
}

// Reporter receives finalized reports for persistence and export. Storage
// failure must never affect the chat reply.
type Reporter interface {
	Store(ctx context.Context, r Report)
}

// ReasoningRequest is the input to the final reasoning collaborator.
type ReasoningRequest struct {
	Symptoms      []string
	Diagnosis     Prediction
	Profile       Profile
	LastUserInput string
	Context       []string
	Knowledge     []string
}

// Config tunes the stop rule and collaborator calls.
type Config struct {
	// ConfidenceHigh is the fused-confidence threshold above which the
	// engine finalizes without further questions.
	ConfidenceHigh float64
	// MaxFollowups caps follow-up questions per session. This is the
	// authoritative bound; reaching it forces best-effort finalization.
	MaxFollowups int
	// DimensionOrder overrides the default follow-up dimension priority.
	DimensionOrder []Dimension
	// CollaboratorTimeout bounds each external call so an unreachable
	// dependency cannot stall a session.
	CollaboratorTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConfidenceHigh == 0 {
		c.ConfidenceHigh = 0.8
	}
	if c.MaxFollowups == 0 {
		c.MaxFollowups = 3
	}
	if len(c.DimensionOrder) == 0 {
		c.DimensionOrder = DefaultDimensionOrder
	}
	if c.CollaboratorTimeout == 0 {
		c.CollaboratorTimeout = 30 * time.Second
	}
	return c
}

// Deps bundles the orchestrator's collaborators. Knowledge and Reporter
// may be nil; the engine degrades without them.
type Deps struct {
	Assistant      AssistantClient
	ModelPredictor Predictor
	RAGPredictor   Predictor
	Candidates     CandidateSource
	Questions      QuestionGenerator
	Knowledge      KnowledgeStore
	Memory         Memory
	Treatments     TreatmentSource
	Reporter       Reporter
}

// Fixed replies and report fragments.
const (
	replyCleared         = "🗑️ Chat and memory cleared."
	replyNoConditions    = "⚠️ Could not determine likely conditions. Please try describing your symptoms differently."
	replyNoSymptoms      = "Couldn't identify symptoms. Please describe more detail."
	replyUnavailable     = "I'm sorry, I couldn't process that right now. Please try again."
	treatmentPlaceholder = "No established treatment found"
	reportDisclaimer     = "⚠️ This is an AI-generated assessment. Please consult a licensed medical professional."
)

// Orchestrator is the top-level session state machine. It routes each
// incoming message by phase, runs the prediction fan-out and fusion, and
// applies the stop rule.
type Orchestrator struct {
	cfg       Config
	sessions  *SessionStore
	scheduler *Scheduler
	deps      Deps
	log       *zap.Logger
}

func NewOrchestrator(cfg Config, deps Deps, log *zap.Logger) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		cfg:       cfg,
		sessions:  NewSessionStore(),
		scheduler: NewScheduler(cfg.DimensionOrder, deps.Candidates, deps.Questions, log),
		deps:      deps,
		log:       log,
	}
}

// Handle processes one user message for the given session and always
// returns a reply. Calls for the same session are serialized; distinct
// sessions proceed in parallel.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, message string) string {
	sess, release := o.sessions.Acquire(sessionID)
	defer release()

	text := strings.TrimSpace(message)

	if lower := strings.ToLower(text); lower == "/clear" || lower == "/reset" {
		o.deps.Memory.Clear(sess.ID)
		if o.deps.Knowledge != nil {
			if err := o.deps.Knowledge.Clear(ctx); err != nil {
				o.log.Warn("knowledge store clear failed", zap.Error(err))
			}
		}
		sess.Reset()
		return replyCleared
	}

	switch sess.Phase {
	case PhaseAwaitingDemographics:
		return o.handleDemographics(ctx, sess, text)
	case PhaseAwaitingFollowup:
		return o.handleFollowupAnswer(ctx, sess, text)
	default:
		return o.handleIdle(ctx, sess, text)
	}
}

func (o *Orchestrator) handleIdle(ctx context.Context, sess *Session, text string) string {
	cctx, cancel := o.callCtx(ctx)
	intent, err := o.deps.Assistant.ClassifyIntent(cctx, text)
	cancel()
	if err != nil {
		o.log.Warn("intent classification failed, treating as chat",
			zap.String("session", sess.ID), zap.Error(err))
		intent = IntentChat
	}

	switch intent {
	case IntentSymptomDiagnosis:
		sess.Profile.OriginalQuery = text
		if sess.Profile.NeedsMore() {
			sess.Phase = PhaseAwaitingDemographics
			sess.Profile.DemographicsAsked = true
			return DemographicsPrompt
		}
		return o.beginDiagnosis(ctx, sess, text)

	case IntentPatientHistory:
		cctx, cancel := o.callCtx(ctx)
		defer cancel()
		reply, err := o.deps.Assistant.PatientHistory(cctx, text)
		if err != nil {
			o.log.Warn("patient history handling failed", zap.Error(err))
			return replyUnavailable
		}
		return reply

	default:
		cctx, cancel := o.callCtx(ctx)
		defer cancel()
		reply, err := o.deps.Assistant.Chat(cctx, text)
		if err != nil {
			o.log.Warn("chat handling failed", zap.Error(err))
			return replyUnavailable
		}
		return reply
	}
}

func (o *Orchestrator) handleDemographics(ctx context.Context, sess *Session, text string) string {
	sess.Profile.Merge(ExtractProfile(text))

	if sess.Profile.NeedsMore() {
		return MissingReply(sess.Profile.Missing())
	}

	sess.Phase = PhaseIdle
	return o.beginDiagnosis(ctx, sess, sess.Profile.OriginalQuery)
}

func (o *Orchestrator) handleFollowupAnswer(ctx context.Context, sess *Session, text string) string {
	question := sess.LastQuestion

	cctx, cancel := o.callCtx(ctx)
	newSymptoms, err := o.deps.Assistant.AnalyzeFollowupResponse(cctx, question, text)
	cancel()
	if err != nil {
		o.log.Warn("follow-up response analysis failed",
			zap.String("session", sess.ID), zap.Error(err))
	}
	sess.AddSymptoms(newSymptoms)

	o.deps.Memory.SaveContext(sess.ID, question, text)
	sess.LastQuestion = ""
	sess.Phase = PhaseIdle

	return o.evaluate(ctx, sess, text)
}

// beginDiagnosis extracts symptoms from the query text and enters the
// evaluation pass. An empty extraction is a retry prompt, not an error,
// and advances no state.
func (o *Orchestrator) beginDiagnosis(ctx context.Context, sess *Session, query string) string {
	cctx, cancel := o.callCtx(ctx)
	symptoms, err := o.deps.Assistant.ExtractSymptoms(cctx, query)
	cancel()
	if err != nil {
		o.log.Warn("symptom extraction failed", zap.String("session", sess.ID), zap.Error(err))
	}
	if len(symptoms) == 0 {
		return replyNoSymptoms
	}
	sess.AddSymptoms(symptoms)
	return o.evaluate(ctx, sess, query)
}

// evaluate runs one full prediction pass and applies the stop rule: fuse
// both sources, finalize on high confidence, the follow-up cap, or
// scheduler exhaustion, otherwise ask exactly one question.
func (o *Orchestrator) evaluate(ctx context.Context, sess *Session, lastInput string) string {
	ragPreds, modelPreds := o.fanOutPredictions(ctx, sess.PendingSymptoms)

	sess.CurrentPredictions = Merge(ragPreds, modelPreds)
	if len(sess.CurrentPredictions) == 0 {
		sess.Reset()
		return replyNoConditions
	}

	top := sess.CurrentPredictions[0]

	if top.Confidence < o.cfg.ConfidenceHigh && sess.FollowupCount < o.cfg.MaxFollowups {
		history := o.deps.Memory.Recent(sess.ID, 3)
		if q, ok := o.scheduler.Next(ctx, sess, history); ok {
			// Record the ask exactly once, before the question can
			// still turn out empty.
			sess.AskedDimensions[q.Dimension] = true
			if q.Text != "" {
				sess.FollowupCount++
				sess.LastQuestion = q.Text
				sess.Phase = PhaseAwaitingFollowup
				return "🤔 " + q.Text
			}
		}
	}

	return o.finalize(ctx, sess, top, lastInput)
}

// fanOutPredictions queries both diagnosis sources concurrently. A failed
// branch degrades to an empty list and never blocks the other.
func (o *Orchestrator) fanOutPredictions(ctx context.Context, symptoms []string) (rag, model []Prediction) {
	var ragErr, modelErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cctx, cancel := o.callCtx(gctx)
		defer cancel()
		rag, ragErr = o.deps.RAGPredictor.Predict(cctx, symptoms)
		return nil
	})
	g.Go(func() error {
		cctx, cancel := o.callCtx(gctx)
		defer cancel()
		model, modelErr = o.deps.ModelPredictor.Predict(cctx, symptoms)
		return nil
	})
	_ = g.Wait()

	if ragErr != nil || modelErr != nil {
		var merr *multierror.Error
		merr = multierror.Append(merr, ragErr, modelErr)
		o.log.Warn("prediction source failed, degrading to empty list",
			zap.Bool("both", ragErr != nil && modelErr != nil),
			zap.Error(merr.ErrorOrNil()))
	}
	if ragErr != nil {
		rag = nil
	}
	if modelErr != nil {
		model = nil
	}
	return rag, model
}

// finalize produces the final report, hands it to the reporter, and resets
// the session. Every collaborator failure on this path degrades to a
// fallback string.
func (o *Orchestrator) finalize(ctx context.Context, sess *Session, top Prediction, lastInput string) string {
	req := ReasoningRequest{
		Symptoms:      sess.PendingSymptoms,
		Diagnosis:     top,
		Profile:       sess.Profile,
		LastUserInput: lastInput,
		Context:       o.deps.Memory.Recent(sess.ID, 6),
		Knowledge:     o.searchKnowledge(ctx, sess, top),
	}

	cctx, cancel := o.callCtx(ctx)
	reasoning, err := o.deps.Assistant.GenerateReasoning(cctx, req)
	cancel()
	if err != nil {
		o.log.Warn("reasoning generation failed, using fallback",
			zap.String("session", sess.ID), zap.Error(err))
		reasoning = Reasoning{Summary: fallbackReasoning(sess.PendingSymptoms, top)}
	}

	treatment, ok := o.deps.Treatments.Treatment(top.Disease)
	if !ok || treatment == "" {
		treatment = treatmentPlaceholder
	}
	precautions := fmt.Sprintf("Please consult your doctor about precautions for %s.", top.Disease)

	body := ComposeReport(top, reasoning.Summary, treatment, precautions)

	o.deps.Memory.SaveContext(sess.ID, "final_diagnosis",
		fmt.Sprintf("%s (Confidence: %.0f%%)", top.Disease, top.Confidence*100))
	if o.deps.Reporter != nil {
		o.deps.Reporter.Store(ctx, Report{
			SessionID:  sess.ID,
			Disease:    top.Disease,
			ICD10:      top.ICD10,
			Confidence: top.Confidence,
			Body:       body,
			CreatedAt:  time.Now(),
		})
	}

	sess.Reset()
	return body
}

func (o *Orchestrator) searchKnowledge(ctx context.Context, sess *Session, top Prediction) []string {
	if o.deps.Knowledge == nil {
		return nil
	}
	query := fmt.Sprintf("Patient presenting with: %s\nPossible diagnosis: %s\n"+
		"Required: pathophysiology, diagnostic criteria, differential diagnosis",
		strings.Join(sess.PendingSymptoms, ", "), top.Disease)

	cctx, cancel := o.callCtx(ctx)
	defer cancel()
	chunks, err := o.deps.Knowledge.Search(cctx, query, 5)
	if err != nil {
		o.log.Warn("knowledge search failed", zap.Error(err))
		return nil
	}
	return chunks
}

func (o *Orchestrator) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.cfg.CollaboratorTimeout)
}

// ComposeReport renders the patient-facing final report, disclaimer
// included.
func ComposeReport(top Prediction, summary, treatment, precautions string) string {
	return fmt.Sprintf(
		"📋 **Diagnosis:** %s (ICD-10: %s, Confidence: %.0f%%)\n\n"+
			"**Summary:** %s\n\n"+
			"**Treatment:** %s\n\n"+
			"**Precautions:** %s\n\n%s",
		top.Disease, top.ICD10, top.Confidence*100,
		summary, treatment, precautions, reportDisclaimer)
}

func fallbackReasoning(symptoms []string, d Prediction) string {
	return fmt.Sprintf("Based on symptoms %s, the most likely condition is %s.\n"+
		"Confidence level: %.0f%%.\n"+
		"Please consult a healthcare provider for a definitive diagnosis.",
		strings.Join(symptoms, ", "), d.Disease, d.Confidence*100)
}
