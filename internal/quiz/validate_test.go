package quiz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func completeProfile() Answers {
	return Answers{
		"name":          Text("Asha Rao"),
		"age":           Text("34"),
		"gender":        Text("Female"),
		"height":        Text("64"),
		"currentWeight": Text("82"),
		"email":         Text("asha@example.com"),
		"pincode":       Text("560001"),
	}
}

func TestCanProceed(t *testing.T) {
	c := MustDefaultCatalog()
	step := func(id string) Step {
		s, ok := c.Step(id)
		require.True(t, ok)
		return s
	}

	tests := []struct {
		name     string
		step     Step
		answers  Answers
		expected bool
	}{
		{
			name:     "Profile complete",
			step:     step("profile"),
			answers:  completeProfile(),
			expected: true,
		},
		{
			name: "Profile missing pincode",
			step: step("profile"),
			answers: func() Answers {
				a := completeProfile()
				a.Set("pincode", Text("  "))
				return a
			}(),
			expected: false,
		},
		{
			name:     "Goal weight empty",
			step:     step("goalWeight"),
			answers:  Answers{},
			expected: false,
		},
		{
			name:     "Goal weight set",
			step:     step("goalWeight"),
			answers:  Answers{"goalWeight": Text("68")},
			expected: true,
		},
		{
			name:     "Checkbox with nothing selected",
			step:     step("medicalConditions"),
			answers:  Answers{"medicalConditions": List()},
			expected: false,
		},
		{
			name:     "Checkbox with only None",
			step:     step("medicalConditions"),
			answers:  Answers{"medicalConditions": List(NoneOption)},
			expected: true,
		},
		{
			name:     "Radio unanswered",
			step:     step("pancreatitis"),
			answers:  Answers{},
			expected: false,
		},
		{
			name:     "Radio answered",
			step:     step("pancreatitis"),
			answers:  Answers{"pancreatitis": Text("No")},
			expected: true,
		},
		{
			name:     "Conditional No needs no details",
			step:     step("cancerHistory"),
			answers:  Answers{"cancerHistory": Text("No")},
			expected: true,
		},
		{
			name:     "Conditional Yes without details",
			step:     step("cancerHistory"),
			answers:  Answers{"cancerHistory": Text("Yes")},
			expected: false,
		},
		{
			name:     "Conditional Yes with details",
			step:     step("cancerHistory"),
			answers:  Answers{"cancerHistory": Text("Yes"), "cancerHistoryDetails": Text("Mother, 2012")},
			expected: true,
		},
		{
			name:     "Branch first option without text",
			step:     step("previousWeightLoss"),
			answers:  Answers{"previousWeightLoss": Text("Yes, with medication")},
			expected: false,
		},
		{
			name:     "Branch first option with text",
			step:     step("previousWeightLoss"),
			answers:  Answers{"previousWeightLoss": Text("Yes, with medication"), "previousWeightLossMedication": Text("Orlistat")},
			expected: true,
		},
		{
			name:     "Branch second option without checklist",
			step:     step("previousWeightLoss"),
			answers:  Answers{"previousWeightLoss": Text("Yes, without medication"), "previousWeightLossMedication": Text("Orlistat")},
			expected: false,
		},
		{
			name:     "Branch second option with checklist",
			step:     step("previousWeightLoss"),
			answers:  Answers{"previousWeightLoss": Text("Yes, without medication"), "previousWeightLossMethods": List("Yoga")},
			expected: true,
		},
		{
			name:     "Branch third option needs nothing else",
			step:     step("previousWeightLoss"),
			answers:  Answers{"previousWeightLoss": Text("No")},
			expected: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, CanProceed(tc.step, tc.answers))
		})
	}
}

func TestRevealed(t *testing.T) {
	c := MustDefaultCatalog()
	entry, ok := c.Entry("cancerHistoryDetails")
	require.True(t, ok)

	require.False(t, Revealed(entry, Answers{"cancerHistory": Text("No")}))
	require.True(t, Revealed(entry, Answers{"cancerHistory": Text("Yes")}))

	name, _ := c.Entry("name")
	require.True(t, Revealed(name, Answers{}))
}
