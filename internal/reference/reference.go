// Package reference loads the disease reference CSV shipped with the
// service: disease name, ICD-10 code, known symptoms, and treatment text.
// The table is read-only after load and shared across all sessions. The
// symptom co-occurrence counts derived from it drive the missing-symptom
// follow-up candidates.
package reference

import (
	"encoding/csv"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

type Disease struct {
	Name      string
	ICD10     string
	Symptoms  []string
	Treatment string
}

type Table struct {
	diseases  []Disease
	byName    map[string]int
	cooccur   map[string]map[string]int
	bySymptom map[string][]int
}

// Load reads the disease reference CSV. Expected header columns:
// disease, icd10, symptoms, treatment. The symptoms column accepts either
// a Python-style list literal (as exported from the training pipeline) or
// a semicolon-separated list.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open disease reference CSV")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse disease reference CSV")
	}
	if len(rows) < 2 {
		return nil, errors.New("disease reference CSV has no data rows")
	}

	col := make(map[string]int)
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"disease", "icd10", "symptoms", "treatment"} {
		if _, ok := col[required]; !ok {
			return nil, errors.Errorf("disease reference CSV missing column %q", required)
		}
	}

	t := &Table{
		byName:    make(map[string]int),
		cooccur:   make(map[string]map[string]int),
		bySymptom: make(map[string][]int),
	}

	for _, row := range rows[1:] {
		if len(row) <= col["treatment"] {
			continue
		}
		d := Disease{
			Name:      strings.TrimSpace(row[col["disease"]]),
			ICD10:     strings.TrimSpace(row[col["icd10"]]),
			Symptoms:  parseSymptomList(row[col["symptoms"]]),
			Treatment: strings.TrimSpace(row[col["treatment"]]),
		}
		if d.Name == "" {
			continue
		}
		idx := len(t.diseases)
		t.diseases = append(t.diseases, d)
		t.byName[strings.ToLower(d.Name)] = idx
		for _, sym := range d.Symptoms {
			t.bySymptom[sym] = append(t.bySymptom[sym], idx)
		}
	}

	t.buildCooccurrence()
	return t, nil
}

func (t *Table) buildCooccurrence() {
	for _, d := range t.diseases {
		for _, a := range d.Symptoms {
			for _, b := range d.Symptoms {
				if a == b {
					continue
				}
				if t.cooccur[a] == nil {
					t.cooccur[a] = make(map[string]int)
				}
				t.cooccur[a][b]++
			}
		}
	}
}

// parseSymptomList accepts "['fever', 'dry cough']" or "fever; dry cough".
func parseSymptomList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	sep := ","
	if strings.Contains(raw, ";") {
		sep = ";"
	}

	var symptoms []string
	for _, part := range strings.Split(raw, sep) {
		s := strings.TrimSpace(part)
		s = strings.Trim(s, `'"`)
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			symptoms = append(symptoms, s)
		}
	}
	return symptoms
}

// Treatment returns the treatment text for a disease, if known.
func (t *Table) Treatment(disease string) (string, bool) {
	idx, ok := t.byName[strings.ToLower(disease)]
	if !ok || t.diseases[idx].Treatment == "" {
		return "", false
	}
	return t.diseases[idx].Treatment, true
}

// ICD10 returns the locally known ICD-10 code for a disease, if any.
func (t *Table) ICD10(disease string) (string, bool) {
	idx, ok := t.byName[strings.ToLower(disease)]
	if !ok || t.diseases[idx].ICD10 == "" {
		return "", false
	}
	return t.diseases[idx].ICD10, true
}

// Len reports the number of loaded diseases.
func (t *Table) Len() int {
	return len(t.diseases)
}

// TopCandidates proposes up to k symptoms the patient has not reported
// yet. Candidates come from the suspected diseases' known symptoms and are
// ranked by how strongly they co-occur with the symptoms already present;
// name order breaks ties so the result is deterministic.
func (t *Table) TopCandidates(symptoms, suspected []string, k int) []string {
	if k <= 0 {
		return nil
	}

	have := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		have[strings.ToLower(strings.TrimSpace(s))] = true
	}

	scores := make(map[string]int)
	for _, name := range suspected {
		idx, ok := t.byName[strings.ToLower(name)]
		if !ok {
			continue
		}
		for _, candidate := range t.diseases[idx].Symptoms {
			if have[candidate] {
				continue
			}
			score := 1
			for s := range have {
				score += t.cooccur[candidate][s]
			}
			if score > scores[candidate] {
				scores[candidate] = score
			}
		}
	}

	candidates := make([]string, 0, len(scores))
	for c := range scores {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if scores[candidates[i]] != scores[candidates[j]] {
			return scores[candidates[i]] > scores[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
