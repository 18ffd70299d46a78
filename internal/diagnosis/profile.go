package diagnosis

import (
	"regexp"
	"strings"
)

// Profile holds the demographic attributes required before any diagnosis
// runs. Fields stay empty until extracted from patient text; they are only
// ever filled in, never replaced.
type Profile struct {
	Age    string
	Sex    string
	Weight string
	Height string

	// OriginalQuery keeps the symptom description that started the
	// diagnosis while the demographics sub-dialogue runs.
	OriginalQuery     string
	DemographicsAsked bool
}

// requiredFields fixes the reporting order for missing demographics.
var requiredFields = []string{"age", "sex", "weight", "height"}

// DemographicsPrompt asks the patient for all four required attributes.
const DemographicsPrompt = "Before we proceed with your diagnosis, I'd like to know some basic information " +
	"to provide better care. Could you please share your:\n" +
	"- Age (in years)\n" +
	"- Sex or gender\n" +
	"- Weight (in kg)\n" +
	"- Height (in cm)\n\n" +
	"For example: 'I'm 35 years old, male, 70 kg, 175 cm'"

func (p *Profile) field(name string) string {
	switch name {
	case "age":
		return p.Age
	case "sex":
		return p.Sex
	case "weight":
		return p.Weight
	case "height":
		return p.Height
	}
	return ""
}

// NeedsMore reports whether any required demographic field is still empty.
func (p *Profile) NeedsMore() bool {
	return len(p.Missing()) > 0
}

// Missing lists the empty required fields in declaration order.
func (p *Profile) Missing() []string {
	var missing []string
	for _, name := range requiredFields {
		if p.field(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Merge fills gaps in p from extracted. Populated fields are never
// overwritten; a later, lower-confidence extraction cannot clobber an
// answer the patient already gave.
func (p *Profile) Merge(extracted Profile) {
	if p.Age == "" {
		p.Age = extracted.Age
	}
	if p.Sex == "" {
		p.Sex = extracted.Sex
	}
	if p.Weight == "" {
		p.Weight = extracted.Weight
	}
	if p.Height == "" {
		p.Height = extracted.Height
	}
}

var (
	reAgeYears   = regexp.MustCompile(`(?i)(\d+)\s*years?`)
	reAgeBare    = regexp.MustCompile(`\b(\d{2})\b`)
	reSexMale    = regexp.MustCompile(`(?i)\bmale\b|\bman\b|boy`)
	reSexFemale  = regexp.MustCompile(`(?i)\bfemale\b|\bwoman\b|girl`)
	reWeightUnit = regexp.MustCompile(`(?i)(\d+)\s*(?:kg|kilos)`)
	reWeightVerb = regexp.MustCompile(`(?i)weighs?\s*(\d+)`)
	reHeightUnit = regexp.MustCompile(`(?i)(\d+)\s*(?:cm|centimeters)`)
	reHeightBare = regexp.MustCompile(`\b(\d{3})\b\s*(kg|kilos)?`)
)

// ExtractProfile pulls demographic attributes out of free text using the
// lexical patterns patients actually type. No model calls are involved.
// Only the fields found are returned; merging is the caller's concern.
func ExtractProfile(text string) Profile {
	var p Profile

	if m := reAgeYears.FindStringSubmatch(text); m != nil {
		p.Age = m[1]
	} else if m := reAgeBare.FindStringSubmatch(text); m != nil {
		p.Age = m[1]
	}

	// \bmale\b cannot match inside "female", so checking male cues
	// first is safe.
	if reSexMale.MatchString(text) {
		p.Sex = "male"
	} else if reSexFemale.MatchString(text) {
		p.Sex = "female"
	}

	if m := reWeightUnit.FindStringSubmatch(text); m != nil {
		p.Weight = m[1]
	} else if m := reWeightVerb.FindStringSubmatch(text); m != nil {
		p.Weight = m[1]
	}

	if m := reHeightUnit.FindStringSubmatch(text); m != nil {
		p.Height = m[1]
	} else {
		// A bare three-digit number reads as height in cm, unless it
		// carries a weight unit or was already captured as the weight.
		for _, m := range reHeightBare.FindAllStringSubmatch(text, -1) {
			if m[2] != "" {
				continue
			}
			if m[1] == p.Weight {
				continue
			}
			p.Height = m[1]
			break
		}
	}

	return p
}

// MissingReply formats the retry prompt listing the fields still needed.
func MissingReply(missing []string) string {
	return "I still need: " + strings.Join(missing, ", ") + "."
}
