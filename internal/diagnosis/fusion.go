package diagnosis

import "sort"

// Merge fuses two ranked prediction lists into one. For every ICD-10 code
// appearing in either list the prediction with the higher confidence wins;
// on a tie the one encountered first is kept. The result is sorted by
// descending confidence with the first-seen order preserved among equals.
// Inputs are never mutated.
func Merge(a, b []Prediction) []Prediction {
	byCode := make(map[string]int)
	merged := make([]Prediction, 0, len(a)+len(b))

	for _, list := range [][]Prediction{a, b} {
		for _, pred := range list {
			idx, ok := byCode[pred.ICD10]
			if !ok {
				byCode[pred.ICD10] = len(merged)
				merged = append(merged, pred)
				continue
			}
			if pred.Confidence > merged[idx].Confidence {
				merged[idx] = pred
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}
