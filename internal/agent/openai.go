package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/diagnosis"
)

// Client implements every language-model collaborator the session engine
// depends on, backed by the OpenAI chat completion and embedding APIs.
// Model names are loaded from the environment with sensible defaults.
type Client struct {
	api            *openai.Client
	chatModel      string
	reasoningModel string
	embeddingModel openai.EmbeddingModel
	log            *zap.Logger
}

func NewClient(apiKey string, log *zap.Logger) *Client {
	chatModel := os.Getenv("OPENAI_MODEL_CHAT")
	if chatModel == "" {
		chatModel = openai.GPT3Dot5Turbo
	}
	reasoningModel := os.Getenv("OPENAI_MODEL_REASONING")
	if reasoningModel == "" {
		reasoningModel = openai.GPT4
	}
	return &Client{
		api:            openai.NewClient(apiKey),
		chatModel:      chatModel,
		reasoningModel: reasoningModel,
		embeddingModel: openai.AdaEmbeddingV2,
		log:            log,
	}
}

func (c *Client) complete(ctx context.Context, model, system, user string, temperature float32) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: user,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ClassifyIntent labels a message as diagnosis, history, or chat. Unknown
// labels fall back to chat.
func (c *Client) ClassifyIntent(ctx context.Context, text string) (diagnosis.Intent, error) {
	out, err := c.complete(ctx, c.chatModel, intentSystemPrompt, text, 0)
	if err != nil {
		return diagnosis.IntentChat, err
	}
	switch strings.ToLower(strings.TrimSpace(out)) {
	case string(diagnosis.IntentSymptomDiagnosis):
		return diagnosis.IntentSymptomDiagnosis, nil
	case string(diagnosis.IntentPatientHistory):
		return diagnosis.IntentPatientHistory, nil
	default:
		return diagnosis.IntentChat, nil
	}
}

// ExtractSymptoms pulls symptom keywords from free text. The model is
// instructed to answer with a bare JSON array; anything unparsable counts
// as an extraction failure.
func (c *Client) ExtractSymptoms(ctx context.Context, text string) ([]string, error) {
	out, err := c.complete(ctx, c.chatModel, extractSystemPrompt, text, 0)
	if err != nil {
		return nil, err
	}

	var symptoms []string
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &symptoms); err != nil {
		return nil, fmt.Errorf("symptom extraction returned non-JSON output: %w", err)
	}
	return symptoms, nil
}

// AnalyzeFollowupResponse parses a patient's answer against the question
// that was asked and returns any newly mentioned symptoms.
func (c *Client) AnalyzeFollowupResponse(ctx context.Context, question, answer string) ([]string, error) {
	user := fmt.Sprintf("Question asked: %s\nPatient answer: %s", question, answer)
	out, err := c.complete(ctx, c.chatModel, analyzeSystemPrompt, user, 0)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		NewSymptoms []string `json:"new_symptoms"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &parsed); err != nil {
		return nil, fmt.Errorf("follow-up analysis returned non-JSON output: %w", err)
	}
	return parsed.NewSymptoms, nil
}

// GenerateQuestion words one follow-up question for the scheduler.
func (c *Client) GenerateQuestion(ctx context.Context, req diagnosis.QuestionRequest) (string, error) {
	return c.complete(ctx, c.reasoningModel, questionSystemPrompt, questionPrompt(req), 0.7)
}

// GenerateReasoning runs the two-step reasoning flow: a step-by-step
// clinical analysis, then a condensed one-paragraph summary.
func (c *Client) GenerateReasoning(ctx context.Context, req diagnosis.ReasoningRequest) (diagnosis.Reasoning, error) {
	steps, err := c.complete(ctx, c.reasoningModel, reasoningSystemPrompt, reasoningPrompt(req), 0.3)
	if err != nil {
		return diagnosis.Reasoning{}, err
	}

	summaryPrompt := fmt.Sprintf("Here is a detailed clinical reasoning:\n%s\n\n"+
		"Please condense that into one paragraph, ending with the disclaimer: "+
		"'This is not medical advice—please consult a qualified healthcare professional.'", steps)
	summary, err := c.complete(ctx, c.chatModel, "", summaryPrompt, 0.3)
	if err != nil {
		// The detailed steps are still usable on their own.
		c.log.Warn("reasoning summary condensation failed", zap.Error(err))
		summary = steps
	}

	return diagnosis.Reasoning{Steps: steps, Summary: summary}, nil
}

// Chat answers non-diagnostic messages.
func (c *Client) Chat(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, c.chatModel, chatSystemPrompt, text, 0.2)
}

// PatientHistory answers questions about prior visits and records.
func (c *Client) PatientHistory(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, c.chatModel, historySystemPrompt, text, 0.2)
}

// Embed returns the embedding vector used by the retrieval predictor and
// the knowledge store.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: c.embeddingModel,
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}

// questionPrompt builds the user prompt for one follow-up question,
// tailored to the dimension and confidence band.
func questionPrompt(req diagnosis.QuestionRequest) string {
	contextBlock := "No previous context"
	if len(req.Context) > 0 {
		lines := make([]string, 0, len(req.Context))
		for _, m := range req.Context {
			lines = append(lines, "- "+m)
		}
		contextBlock = strings.Join(lines, "\n")
	}

	if req.Dimension == diagnosis.DimMissingSymptoms && len(req.MissingSymptoms) > 0 {
		if req.Confidence > 0.8 {
			return fmt.Sprintf("Context: %s\nPatient Symptoms: %s\nPotential Diagnoses: %s\n\n"+
				"Ask one precise yes/no question about whether they have: %s",
				contextBlock, strings.Join(req.Symptoms, ", "),
				strings.Join(req.Suspected, ", "), req.MissingSymptoms[0])
		}
		return fmt.Sprintf("Context: %s\nPatient Symptoms: %s\nPotential Diagnoses: %s\nMissing Symptoms: %s\n\n"+
			"Generate one natural follow-up question asking about these symptoms:",
			contextBlock, strings.Join(req.Symptoms, ", "),
			strings.Join(req.Suspected, ", "), strings.Join(req.MissingSymptoms, ", "))
	}

	return fmt.Sprintf("You're a doctor conducting a diagnosis interview.\n\n"+
		"Patient Profile: %s\nCurrent Symptoms: %s\n"+
		"Top Diagnosis Considered: %s (confidence: %.0f%%)\nConversation History:\n%s\n\n"+
		"Ask one follow-up question about the patient's %s, tailored to the confidence level (%s):",
		profileLine(req.Profile), strings.Join(req.Symptoms, ", "),
		req.TopDisease, req.Confidence*100, contextBlock,
		req.Dimension.Label(), confidenceBand(req.Confidence))
}

// reasoningPrompt builds the chain-of-thought prompt for the final report.
func reasoningPrompt(req diagnosis.ReasoningRequest) string {
	contextBlock := ""
	if len(req.Context) > 0 {
		lines := make([]string, 0, len(req.Context))
		for _, m := range req.Context {
			lines = append(lines, "- "+m)
		}
		contextBlock = strings.Join(lines, "\n")
	}

	knowledgeBlock := "No specific evidence found"
	if len(req.Knowledge) > 0 {
		lines := make([]string, 0, len(req.Knowledge))
		for _, chunk := range req.Knowledge {
			lines = append(lines, "- "+chunk)
		}
		knowledgeBlock = strings.Join(lines, "\n")
	}

	return fmt.Sprintf("Perform clinical reasoning step-by-step:\n"+
		"Context: %s\nPatient Info: %s\n"+
		"Patient presenting with: %s\n"+
		"Potential Diagnosis: %s (ICD-10: %s, Confidence: %.0f%%)\n"+
		"Relevant Medical Knowledge: %s\n\n"+
		"1. Pathophysiological Basis\n"+
		"2. Diagnostic Criteria\n"+
		"3. Symptom Match\n"+
		"4. Differential Diagnosis\n"+
		"5. Evidence Evaluation\n"+
		"6. Confidence Assessment\n\n"+
		"Final Analysis:",
		contextBlock, profileLine(req.Profile),
		strings.Join(req.Symptoms, ", "),
		req.Diagnosis.Disease, req.Diagnosis.ICD10, req.Diagnosis.Confidence*100,
		knowledgeBlock)
}

func profileLine(p diagnosis.Profile) string {
	if p.Age == "" && p.Sex == "" && p.Weight == "" && p.Height == "" {
		return "Not specified"
	}
	return fmt.Sprintf("%sy, %s, %skg, %scm",
		orUnknown(p.Age), orUnknown(p.Sex), orUnknown(p.Weight), orUnknown(p.Height))
}

func orUnknown(v string) string {
	if v == "" {
		return "?"
	}
	return v
}

func confidenceBand(confidence float64) string {
	switch {
	case confidence > 0.8:
		return "high"
	case confidence > 0.5:
		return "medium"
	default:
		return "low"
	}
}

// stripCodeFence unwraps ```json fenced replies the model sometimes
// produces despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
