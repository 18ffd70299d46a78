// Package predictor calls the fine-tuned disease prediction model served
// over HTTP by the inference service.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/diagnosis"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/platform/icd"
	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/reference"
)

const defaultTopK = 5

// Client predicts diseases from symptoms via the inference service and
// maps each disease to an ICD-10 code, preferring the local reference
// table over the terminology API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	ref        *reference.Table
	icd        *icd.Client
	topK       int
	log        *zap.Logger
}

func NewClient(baseURL string, ref *reference.Table, icdClient *icd.Client, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		ref:  ref,
		icd:  icdClient,
		topK: defaultTopK,
		log:  log,
	}
}

type predictRequest struct {
	Symptoms []string `json:"symptoms"`
	TopK     int      `json:"top_k"`
}

type predictResponse struct {
	Predictions []struct {
		Disease    string  `json:"disease"`
		Confidence float64 `json:"confidence"`
	} `json:"predictions"`
}

// Predict returns candidate diagnoses sorted by descending confidence.
func (c *Client) Predict(ctx context.Context, symptoms []string) ([]diagnosis.Prediction, error) {
	if len(symptoms) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(predictRequest{Symptoms: symptoms, TopK: c.topK})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict",
		bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "inference service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("inference service returned %s: %s", resp.Status, string(respBody))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to decode inference response")
	}

	predictions := make([]diagnosis.Prediction, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		if p.Disease == "" {
			continue
		}
		predictions = append(predictions, diagnosis.Prediction{
			Disease:    p.Disease,
			ICD10:      c.mapICD(ctx, p.Disease),
			Confidence: p.Confidence,
		})
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})
	return predictions, nil
}

func (c *Client) mapICD(ctx context.Context, disease string) string {
	if c.ref != nil {
		if code, ok := c.ref.ICD10(disease); ok {
			return code
		}
	}
	if c.icd != nil {
		code, err := c.icd.Lookup(ctx, disease)
		if err != nil {
			c.log.Warn("ICD lookup failed", zap.String("disease", disease), zap.Error(err))
			return "Unknown"
		}
		return code
	}
	return "Unknown"
}
