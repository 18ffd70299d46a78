package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractProfileFullSentence(t *testing.T) {
	p := ExtractProfile("I'm 35 years old, male, 70 kg, 175 cm")

	assert.Equal(t, "35", p.Age)
	assert.Equal(t, "male", p.Sex)
	assert.Equal(t, "70", p.Weight)
	assert.Equal(t, "175", p.Height)
}

func TestExtractProfilePatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Profile
	}{
		{
			name: "bare two-digit age",
			text: "42, female",
			want: Profile{Age: "42", Sex: "female"},
		},
		{
			name: "weighs verb form",
			text: "she weighs 65 and is a woman",
			want: Profile{Age: "65", Sex: "female", Weight: "65"},
		},
		{
			name: "female not shadowed by male pattern",
			text: "female, 30 years",
			want: Profile{Age: "30", Sex: "female"},
		},
		{
			name: "bare three-digit height",
			text: "28 years old man, 180",
			want: Profile{Age: "28", Sex: "male", Height: "180"},
		},
		{
			name: "three-digit number with kg stays weight",
			text: "105 kg",
			want: Profile{Weight: "105"},
		},
		{
			name: "centimeters unit",
			text: "168 centimeters tall",
			want: Profile{Height: "168"},
		},
		{
			name: "nothing extractable",
			text: "I feel terrible",
			want: Profile{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractProfile(tt.text)
			assert.Equal(t, tt.want.Age, got.Age)
			assert.Equal(t, tt.want.Sex, got.Sex)
			assert.Equal(t, tt.want.Weight, got.Weight)
			assert.Equal(t, tt.want.Height, got.Height)
		})
	}
}

func TestProfileMergeNeverOverwrites(t *testing.T) {
	p := Profile{Age: "35", Sex: "male"}
	p.Merge(Profile{Age: "99", Sex: "female", Weight: "70"})

	assert.Equal(t, "35", p.Age)
	assert.Equal(t, "male", p.Sex)
	assert.Equal(t, "70", p.Weight, "gaps are still filled")
}

func TestProfileMissingOrderIsStable(t *testing.T) {
	p := Profile{Sex: "male"}
	assert.Equal(t, []string{"age", "weight", "height"}, p.Missing())
	assert.True(t, p.NeedsMore())

	p = Profile{Age: "35", Sex: "male", Weight: "70", Height: "175"}
	assert.Empty(t, p.Missing())
	assert.False(t, p.NeedsMore())
}

func TestMissingReply(t *testing.T) {
	assert.Equal(t, "I still need: age, weight.", MissingReply([]string{"age", "weight"}))
}
