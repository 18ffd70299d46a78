package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `disease,icd10,symptoms,treatment
Influenza,J11,"['fever', 'dry cough', 'chills', 'fatigue']",Rest and fluids
Common Cold,J00,"['runny nose', 'sneezing', 'fatigue']",Symptomatic care
Pneumonia,J18,"fever; chest pain; dry cough; shortness of breath",Antibiotics
Mystery Illness,,"['dizziness']",
`

func loadTestTable(t *testing.T) *Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diseases.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	return table
}

func TestLoadParsesBothSymptomFormats(t *testing.T) {
	table := loadTestTable(t)
	assert.Equal(t, 4, table.Len())

	treatment, ok := table.Treatment("influenza")
	require.True(t, ok)
	assert.Equal(t, "Rest and fluids", treatment)

	code, ok := table.ICD10("Pneumonia")
	require.True(t, ok)
	assert.Equal(t, "J18", code)
}

func TestLookupMissesAreReported(t *testing.T) {
	table := loadTestTable(t)

	_, ok := table.Treatment("nonexistent")
	assert.False(t, ok)

	_, ok = table.Treatment("Mystery Illness")
	assert.False(t, ok, "empty treatment counts as absent")

	_, ok = table.ICD10("Mystery Illness")
	assert.False(t, ok)
}

func TestTopCandidatesExcludesKnownSymptoms(t *testing.T) {
	table := loadTestTable(t)

	candidates := table.TopCandidates([]string{"fever", "dry cough"}, []string{"Influenza"}, 3)

	assert.NotContains(t, candidates, "fever")
	assert.NotContains(t, candidates, "dry cough")
	assert.ElementsMatch(t, []string{"chills", "fatigue"}, candidates)
}

func TestTopCandidatesRespectsLimitAndDeterminism(t *testing.T) {
	table := loadTestTable(t)

	first := table.TopCandidates([]string{"fever"}, []string{"Influenza", "Pneumonia"}, 2)
	second := table.TopCandidates([]string{"fever"}, []string{"Influenza", "Pneumonia"}, 2)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestTopCandidatesUnknownDisease(t *testing.T) {
	table := loadTestTable(t)
	assert.Empty(t, table.TopCandidates([]string{"fever"}, []string{"unknown"}, 3))
	assert.Empty(t, table.TopCandidates([]string{"fever"}, nil, 3))
}

func TestLoadRejectsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("disease,notes\nflu,x\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
