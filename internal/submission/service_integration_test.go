//go:build integration

package submission

import (
	"context"
	"testing"

	"slimwell/intake-backend/internal/coverage"
	"slimwell/intake-backend/internal/quiz"
	"slimwell/intake-backend/internal/user"
	"slimwell/intake-backend/test/testdata/dbbuilder"
	registrationbuilder "slimwell/intake-backend/test/testdata/dbbuilder/registration"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_SubmitPersists(t *testing.T) {
	db := dbbuilder.Postgres(t)
	ctx := context.Background()

	registration := registrationbuilder.New(t, db).Create(registrationbuilder.Verified())

	resolver, err := coverage.NewResolver(zap.NewNop())
	require.NoError(t, err)
	users := user.NewService(zap.NewNop(), db)
	observer := &fakeObserver{}
	s := NewService(zap.NewNop(), db, quiz.MustDefaultCatalog(), &fakeVerifier{phone: registration.MobileNumber}, resolver, users, observer)

	first := uuid.New()
	res, err := s.Submit(ctx, Request{
		Answers:             testPairs,
		InsuranceProviderID: "star-health",
		VerificationToken:   "id-token",
		Name:                "Asha Rao",
		SubmissionID:        first,
	})
	require.NoError(t, err)
	require.Equal(t, coverage.StatusCovered, res.Coverage.Status)
	require.Equal(t, first, res.SubmissionID)

	replay, err := s.Submit(ctx, Request{Answers: testPairs, VerificationToken: "id-token", SubmissionID: first})
	require.NoError(t, err)
	require.True(t, replay.Replayed)
	require.Equal(t, res.Coverage.Status, replay.Coverage.Status)
	require.Equal(t, []string{string(coverage.StatusCovered)}, observer.statuses)

	stored, err := users.GetByMobileNumber(ctx, registration.MobileNumber)
	require.NoError(t, err)
	require.True(t, stored.HasQuizSubmission)

	// A later submission from the same number replaces the earlier one.
	second := uuid.New()
	_, err = s.Submit(ctx, Request{Answers: testPairs[:1], VerificationToken: "id-token", SubmissionID: second})
	require.NoError(t, err)

	row, err := New(db).GetBySubmissionID(ctx, second)
	require.NoError(t, err)
	require.Equal(t, registration.MobileNumber, row.MobileNumber.String)
	require.Equal(t, string(coverage.StatusNotApplicable), row.CoverageStatus)

	_, err = New(db).GetBySubmissionID(ctx, first)
	require.Error(t, err)
}
