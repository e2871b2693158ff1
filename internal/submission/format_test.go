package submission

import (
	"testing"

	"slimwell/intake-backend/internal/quiz"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	catalog := quiz.MustDefaultCatalog()

	tests := []struct {
		name     string
		answers  quiz.Answers
		expected []Pair
	}{
		{
			name:     "Unknown keys are dropped",
			answers:  quiz.Answers{"name": quiz.Text("A"), "unknownKey": quiz.Text("x")},
			expected: []Pair{{Question: "Name", Answer: "A"}},
		},
		{
			name: "Lists are comma joined in catalog order",
			answers: quiz.Answers{
				"medicalConditions": quiz.List("PCOS", "Sleep Apnea"),
				"age":               quiz.Text("34"),
			},
			expected: []Pair{
				{Question: "Age", Answer: "34"},
				{Question: "Do you have any of the following medical conditions?", Answer: "PCOS, Sleep Apnea"},
			},
		},
		{
			name: "Empty answers are skipped",
			answers: quiz.Answers{
				"email":        quiz.Text(""),
				"eatingHabits": quiz.List(),
				"pincode":      quiz.Text("560001"),
			},
			expected: []Pair{{Question: "Pincode", Answer: "560001"}},
		},
		{
			name: "Detail is sent while its trigger holds",
			answers: quiz.Answers{
				"cancerHistory":        quiz.Text("Yes"),
				"cancerHistoryDetails": quiz.Text("Aunt, 2019"),
			},
			expected: []Pair{
				{Question: "Personal or family history of medullary thyroid cancer or MEN2?", Answer: "Yes"},
				{Question: "Cancer history details", Answer: "Aunt, 2019"},
			},
		},
		{
			name: "Stale detail is left out",
			answers: quiz.Answers{
				"cancerHistory":        quiz.Text("No"),
				"cancerHistoryDetails": quiz.Text("Aunt, 2019"),
			},
			expected: []Pair{
				{Question: "Personal or family history of medullary thyroid cancer or MEN2?", Answer: "No"},
			},
		},
		{
			name: "Only the selected branch is sent",
			answers: quiz.Answers{
				"previousWeightLoss":           quiz.Text("Yes, without medication"),
				"previousWeightLossMedication": quiz.Text("Orlistat"),
				"previousWeightLossMethods":    quiz.List("Diet", "Yoga"),
			},
			expected: []Pair{
				{Question: "Previous weight loss attempts", Answer: "Yes, without medication"},
				{Question: "Previous weight loss methods", Answer: "Diet, Yoga"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Format(catalog, tc.answers))
		})
	}
}

func TestKeyed(t *testing.T) {
	catalog := quiz.MustDefaultCatalog()

	keyed, unknown := Keyed(catalog, []Pair{
		{Question: "Height (inches)", Answer: "64"},
		{Question: "Current Weight (kg)", Answer: "92"},
		{Question: "Favourite colour", Answer: "Blue"},
	})

	require.Equal(t, map[string]string{"height": "64", "currentWeight": "92"}, keyed)
	require.Equal(t, []string{"Favourite colour"}, unknown)
}
