package quiz

import (
	"errors"
	"testing"

	"slimwell/intake-backend/internal"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := NewCatalog(DefaultSteps())
	require.NoError(t, err)
	require.Equal(t, 14, c.Len())

	first, ok := c.At(0)
	require.True(t, ok)
	require.Equal(t, KindMixedProfile, first.Kind)

	_, ok = c.At(c.Len())
	require.False(t, ok)

	for _, entry := range c.Entries() {
		require.NotEmpty(t, entry.Label, entry.Key)
		key, ok := c.KeyForLabel(entry.Label)
		require.True(t, ok)
		require.Equal(t, entry.Key, key)
	}
}

func TestNewCatalog(t *testing.T) {
	tests := []struct {
		name        string
		steps       []Step
		expectedErr error
	}{
		{
			name:        "Empty catalog",
			steps:       nil,
			expectedErr: internal.ErrValidationFailed,
		},
		{
			name: "Radio step without label",
			steps: []Step{
				{ID: "pancreatitis", Kind: KindRadio, Options: yesNo},
			},
			expectedErr: internal.ErrMissingSubmissionLabel,
		},
		{
			name: "Conditional detail without label",
			steps: []Step{
				{
					ID: "allergies", Kind: KindRadioConditional, Options: yesNo, SubmissionLabel: "Allergies",
					Conditional: &Conditional{ID: "allergiesDetails", Trigger: "Yes"},
				},
			},
			expectedErr: internal.ErrMissingSubmissionLabel,
		},
		{
			name: "Profile field without label",
			steps: []Step{
				{ID: "profile", Kind: KindMixedProfile, Fields: []Field{{ID: "name", SubmissionLabel: "Name"}, {ID: "age"}}},
			},
			expectedErr: internal.ErrMissingSubmissionLabel,
		},
		{
			name: "Duplicate step id",
			steps: []Step{
				{ID: "sleep", Kind: KindRadio, SubmissionLabel: "Sleep"},
				{ID: "sleep", Kind: KindRadio, SubmissionLabel: "Sleep again"},
			},
			expectedErr: internal.ErrValidationFailed,
		},
		{
			name: "Branch step with one branch",
			steps: []Step{
				{ID: "previous", Kind: KindRadioBranch, SubmissionLabel: "Previous", Branches: []Branch{{ID: "a", Option: "A", SubmissionLabel: "A"}}},
			},
			expectedErr: internal.ErrValidationFailed,
		},
		{
			name: "Unknown kind",
			steps: []Step{
				{ID: "slider", Kind: Kind("slider"), SubmissionLabel: "Slider"},
			},
			expectedErr: internal.ErrValidationFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCatalog(tc.steps)
			require.Error(t, err)
			if !errors.Is(err, tc.expectedErr) {
				t.Errorf("expected error %v, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestCatalog_StepForKey(t *testing.T) {
	c := MustDefaultCatalog()

	tests := []struct {
		key      string
		expected string
	}{
		{key: "email", expected: "profile"},
		{key: "goalWeight", expected: "goalWeight"},
		{key: "cancerHistoryDetails", expected: "cancerHistory"},
		{key: "previousWeightLossMethods", expected: "previousWeightLoss"},
		{key: "motivation", expected: "motivation"},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			step, ok := c.StepForKey(tc.key)
			require.True(t, ok)
			require.Equal(t, tc.expected, step.ID)
		})
	}

	_, ok := c.StepForKey("unknownKey")
	require.False(t, ok)
}
