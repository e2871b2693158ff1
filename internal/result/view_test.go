package result

import (
	"testing"

	"slimwell/intake-backend/internal/coverage"

	"github.com/stretchr/testify/require"
)

func ptr(s string) *string {
	return &s
}

func TestResolve(t *testing.T) {
	covered := &coverage.Info{
		Status:  coverage.StatusCovered,
		Title:   ptr("Great news"),
		Message: ptr("Your plan is covered"),
	}

	tests := []struct {
		name            string
		state           State
		expectedKind    Kind
		expectedMessage string
	}{
		{
			name:            "Purchase beats everything",
			state:           State{PurchaseSucceeded: true, Error: "boom", Coverage: covered, Success: true, PincodeNotice: true},
			expectedKind:    KindPurchaseSuccess,
			expectedMessage: PurchaseMessage,
		},
		{
			name:            "Error beats coverage",
			state:           State{Error: "Network error", Coverage: covered, Success: true},
			expectedKind:    KindError,
			expectedMessage: "Network error",
		},
		{
			name:            "Failure without message uses fallback",
			state:           State{Failed: true},
			expectedKind:    KindError,
			expectedMessage: FallbackError,
		},
		{
			name:            "Coverage beats generic success",
			state:           State{Coverage: covered, Success: true, Message: "Thanks"},
			expectedKind:    KindCoverage,
			expectedMessage: "Your plan is covered",
		},
		{
			name:            "Generic success",
			state:           State{Success: true, Message: "Thanks", PincodeNotice: true},
			expectedKind:    KindSuccess,
			expectedMessage: "Thanks",
		},
		{
			name:            "Pincode notice",
			state:           State{PincodeNotice: true},
			expectedKind:    KindPincodeNotice,
			expectedMessage: PincodeMessage,
		},
		{
			name:         "Nothing",
			state:        State{},
			expectedKind: KindNone,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			view := Resolve(tc.state)
			require.Equal(t, tc.expectedKind, view.Kind)
			require.Equal(t, tc.expectedMessage, view.Message)
		})
	}
}

func TestResolve_CoverageWithNullFields(t *testing.T) {
	view := Resolve(State{Coverage: &coverage.Info{Status: coverage.StatusPartial}})

	require.Equal(t, KindCoverage, view.Kind)
	require.Empty(t, view.Title)
	require.Empty(t, view.Message)
	require.Equal(t, coverage.StatusPartial, view.Coverage.Status)
}

func TestResolve_NotApplicableCoverageShowsSuccess(t *testing.T) {
	view := Resolve(State{
		Success:  true,
		Message:  "Thanks",
		Coverage: &coverage.Info{Status: coverage.StatusNotApplicable},
	})

	require.Equal(t, KindSuccess, view.Kind)
	require.Equal(t, SuccessTitle, view.Title)
	require.Equal(t, "Thanks", view.Message)
	require.Nil(t, view.Coverage)
}
