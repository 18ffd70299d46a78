package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeKeepsMaxConfidencePerCode(t *testing.T) {
	a := []Prediction{
		{Disease: "influenza", ICD10: "J11", Confidence: 0.6},
		{Disease: "common cold", ICD10: "J00", Confidence: 0.3},
	}
	b := []Prediction{
		{Disease: "flu", ICD10: "J11", Confidence: 0.85},
		{Disease: "pneumonia", ICD10: "J18", Confidence: 0.4},
	}

	merged := Merge(a, b)

	require.Len(t, merged, 3)
	assert.Equal(t, "J11", merged[0].ICD10)
	assert.Equal(t, 0.85, merged[0].Confidence)
	assert.Equal(t, "flu", merged[0].Disease, "higher-confidence entry wins the slot")
	assert.Equal(t, "J18", merged[1].ICD10)
	assert.Equal(t, "J00", merged[2].ICD10)
}

func TestMergeTieKeepsFirstSeen(t *testing.T) {
	a := []Prediction{{Disease: "flu a", ICD10: "J11", Confidence: 0.5}}
	b := []Prediction{{Disease: "flu b", ICD10: "J11", Confidence: 0.5}}

	merged := Merge(a, b)

	require.Len(t, merged, 1)
	assert.Equal(t, "flu a", merged[0].Disease)
}

func TestMergeEmptyInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))

	only := []Prediction{{Disease: "flu", ICD10: "J11", Confidence: 0.85}}
	assert.Equal(t, only, Merge(only, nil))
	assert.Equal(t, only, Merge(nil, only))
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := []Prediction{
		{Disease: "a", ICD10: "A00", Confidence: 0.1},
		{Disease: "b", ICD10: "B00", Confidence: 0.9},
	}
	b := []Prediction{{Disease: "c", ICD10: "A00", Confidence: 0.8}}
	aCopy := append([]Prediction(nil), a...)
	bCopy := append([]Prediction(nil), b...)

	_ = Merge(a, b)

	assert.Equal(t, aCopy, a)
	assert.Equal(t, bCopy, b)
}

func TestMergeSortedDescending(t *testing.T) {
	a := []Prediction{
		{Disease: "a", ICD10: "A00", Confidence: 0.2},
		{Disease: "b", ICD10: "B00", Confidence: 0.7},
	}
	b := []Prediction{
		{Disease: "c", ICD10: "C00", Confidence: 0.5},
		{Disease: "d", ICD10: "D00", Confidence: 0.9},
	}

	merged := Merge(a, b)

	require.Len(t, merged, 4)
	for i := 1; i < len(merged); i++ {
		assert.GreaterOrEqual(t, merged[i-1].Confidence, merged[i].Confidence)
	}
}
