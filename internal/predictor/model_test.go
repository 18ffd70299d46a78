package predictor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Bhushan4829/multi-agent-diagnosis-chatbot/internal/reference"
)

func testReference(t *testing.T) *reference.Table {
	t.Helper()
	csv := "disease,icd10,symptoms,treatment\nInfluenza,J11,\"['fever']\",Rest\n"
	path := filepath.Join(t.TempDir(), "ref.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	table, err := reference.Load(path)
	require.NoError(t, err)
	return table
}

func TestPredictParsesAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)

		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"fever", "cough"}, req.Symptoms)

		json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{
				{"disease": "common cold", "confidence": 0.3},
				{"disease": "Influenza", "confidence": 0.8},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testReference(t), nil, zap.NewNop())
	preds, err := c.Predict(context.Background(), []string{"fever", "cough"})

	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Influenza", preds[0].Disease)
	assert.Equal(t, "J11", preds[0].ICD10, "code resolved from local reference data")
	assert.Equal(t, "Unknown", preds[1].ICD10, "no reference entry and no ICD client")
}

func TestPredictEmptySymptomsSkipsCall(t *testing.T) {
	c := NewClient("http://unused", nil, nil, zap.NewNop())
	preds, err := c.Predict(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, preds)
}

func TestPredictServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil, zap.NewNop())
	_, err := c.Predict(context.Background(), []string{"fever"})
	assert.Error(t, err)
}
