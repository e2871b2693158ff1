package identity

import (
	"context"
	"testing"
	"time"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/metrics"
	"slimwell/intake-backend/internal/ratelimit"
	"slimwell/intake-backend/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) SendVerificationCode(ctx context.Context, phone, challengeToken string) (string, error) {
	args := m.Called(ctx, phone, challengeToken)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) SignInWithPhoneNumber(ctx context.Context, sessionInfo, code string) (SignInResult, error) {
	args := m.Called(ctx, sessionInfo, code)
	result, _ := args.Get(0).(SignInResult)
	return result, args.Error(1)
}

func (m *mockProvider) Lookup(ctx context.Context, idToken string) (string, error) {
	args := m.Called(ctx, idToken)
	return args.String(0), args.Error(1)
}

type fakeRegistrations struct {
	registered map[string]bool
	verified   []string
}

func (f *fakeRegistrations) IsPreRegistered(_ context.Context, mobileNumber string) (bool, error) {
	return f.registered[mobileNumber], nil
}

func (f *fakeRegistrations) MarkVerified(_ context.Context, mobileNumber string) error {
	f.verified = append(f.verified, mobileNumber)
	return nil
}

type fakeTokens struct{}

func (fakeTokens) New(_ context.Context, sessionID uuid.UUID, _ string) (string, error) {
	return "session-token-" + sessionID.String(), nil
}

type fixture struct {
	service       *Service
	provider      *mockProvider
	registrations *fakeRegistrations
	sessions      *session.MemoryStore
	pending       *MemoryPendingStore
}

func newFixture(t *testing.T, limiter *ratelimit.Keyed) fixture {
	t.Helper()
	if limiter == nil {
		limiter = ratelimit.NewKeyed(60, 10)
	}
	provider := &mockProvider{}
	registrations := &fakeRegistrations{registered: map[string]bool{"+919876543210": true}}
	sessions := session.NewMemoryStore(time.Hour)
	pending := NewMemoryPendingStore()

	s := NewService(zap.NewNop(), provider, registrations, sessions, pending, fakeTokens{}, metrics.New(), limiter, 10*time.Minute)
	return fixture{service: s, provider: provider, registrations: registrations, sessions: sessions, pending: pending}
}

func TestService_ChallengeLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	lease, err := f.service.AcquireChallenge(ctx, "otp-container")
	require.NoError(t, err)
	require.NotEmpty(t, lease.Token)

	_, err = f.service.AcquireChallenge(ctx, "otp-container")
	require.ErrorIs(t, err, internal.ErrChallengeInUse)

	_, err = f.service.AcquireChallenge(ctx, "other-container")
	require.NoError(t, err)

	require.NoError(t, f.service.ReleaseChallenge(ctx, "otp-container"))
	require.ErrorIs(t, f.service.ReleaseChallenge(ctx, "otp-container"), internal.ErrChallengeNotFound)

	again, err := f.service.AcquireChallenge(ctx, "otp-container")
	require.NoError(t, err)
	require.NotEqual(t, lease.Token, again.Token)
}

func TestService_SendCodeRejections(t *testing.T) {
	tests := []struct {
		name        string
		mobile      string
		useToken    bool
		expectedErr error
	}{
		{name: "Malformed number", mobile: "12345", useToken: true, expectedErr: internal.ErrInvalidPhoneNumber},
		{name: "Not pre-registered", mobile: "9123456789", useToken: true, expectedErr: internal.ErrNotPreRegistered},
		{name: "Challenge not mounted", mobile: "9876543210", useToken: false, expectedErr: internal.ErrChallengeNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			lease, err := f.service.AcquireChallenge(context.Background(), "otp-container")
			require.NoError(t, err)

			token := "wrong-token"
			if tc.useToken {
				token = lease.Token
			}

			_, err = f.service.SendCode(context.Background(), tc.mobile, "otp-container", token)
			require.ErrorIs(t, err, tc.expectedErr)
			f.provider.AssertNotCalled(t, "SendVerificationCode", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_SendCodeFailureReleasesChallenge(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	lease, err := f.service.AcquireChallenge(ctx, "otp-container")
	require.NoError(t, err)

	f.provider.On("SendVerificationCode", mock.Anything, "+919876543210", lease.Token).
		Return("", newProviderError(400, "TOO_MANY_ATTEMPTS_TRY_LATER")).Once()

	_, err = f.service.SendCode(ctx, "9876543210", "otp-container", lease.Token)
	require.ErrorIs(t, err, internal.ErrTooManyOTPAttempts)

	_, err = f.service.AcquireChallenge(ctx, "otp-container")
	require.NoError(t, err, "a failed send tears the challenge down")
}

func TestService_SendCodeIsRateLimited(t *testing.T) {
	f := newFixture(t, ratelimit.NewKeyed(1, 1))
	ctx := context.Background()
	lease, err := f.service.AcquireChallenge(ctx, "otp-container")
	require.NoError(t, err)

	f.provider.On("SendVerificationCode", mock.Anything, "+919876543210", lease.Token).Return("session-info", nil).Once()

	_, err = f.service.SendCode(ctx, "9876543210", "otp-container", lease.Token)
	require.NoError(t, err)

	_, err = f.service.SendCode(ctx, "9876543210", "otp-container", lease.Token)
	require.ErrorIs(t, err, internal.ErrTooManyOTPAttempts)
	f.provider.AssertExpectations(t)
}

func TestService_ConfirmAndOpenSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	lease, err := f.service.AcquireChallenge(ctx, "otp-container")
	require.NoError(t, err)

	f.provider.On("SendVerificationCode", mock.Anything, "+919876543210", lease.Token).Return("session-info", nil)
	f.provider.On("SignInWithPhoneNumber", mock.Anything, "session-info", "000000").
		Return(SignInResult{}, newProviderError(400, "INVALID_CODE")).Once()
	f.provider.On("SignInWithPhoneNumber", mock.Anything, "session-info", "123456").
		Return(SignInResult{IDToken: "id-token", PhoneNumber: "+919876543210"}, nil).Once()

	handle, err := f.service.SendCode(ctx, "9876543210", "otp-container", lease.Token)
	require.NoError(t, err)

	_, err = f.service.Handle(handle.VerificationID).Confirm(ctx, "000000")
	require.ErrorIs(t, err, internal.ErrInvalidVerificationCode)

	cred, err := f.service.Handle(handle.VerificationID).Confirm(ctx, "123456")
	require.NoError(t, err, "a wrong code can be retried")
	token, err := cred.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "id-token", token)

	_, err = f.service.Handle(handle.VerificationID).Confirm(ctx, "123456")
	require.ErrorIs(t, err, internal.ErrVerificationNotFound, "a confirmed verification is single use")

	confirmation, err := f.service.OpenSession(ctx, cred, "Asha Rao")
	require.NoError(t, err)
	require.Equal(t, "id-token", confirmation.VerificationToken)
	require.Equal(t, "session-token-"+confirmation.SessionID.String(), confirmation.SessionToken)
	require.Equal(t, []string{"+919876543210"}, f.registrations.verified)

	stored, err := f.sessions.Get(ctx, confirmation.SessionID)
	require.NoError(t, err)
	require.Equal(t, "Asha Rao", stored.Name)
	require.Equal(t, "id-token", stored.VerificationToken)
	require.Equal(t, "+919876543210", stored.Phone)
}

func TestService_ConfirmExpired(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	now := time.Now()
	f.pending.now = func() time.Time { return now }
	require.NoError(t, f.pending.Put(ctx, "verification", Pending{
		Phone:       "+919876543210",
		SessionInfo: "session-info",
		ExpiresAt:   now.Add(10 * time.Minute),
	}))

	now = now.Add(11 * time.Minute)
	_, err := f.service.Handle("verification").Confirm(ctx, "123456")
	require.ErrorIs(t, err, internal.ErrCodeExpired)

	_, err = f.service.Handle("verification").Confirm(ctx, "123456")
	require.ErrorIs(t, err, internal.ErrVerificationNotFound)
}

func TestService_CleanupDropsExpiredState(t *testing.T) {
	provider := &mockProvider{}
	provider.On("SendVerificationCode", mock.Anything, "+919876543210", mock.Anything).Return("session-info", nil)
	registrations := &fakeRegistrations{registered: map[string]bool{"+919876543210": true}}
	pending := NewMemoryPendingStore()
	s := NewService(zap.NewNop(), provider, registrations, session.NewMemoryStore(time.Hour), pending, fakeTokens{}, metrics.New(), ratelimit.NewKeyed(600, 100), 200*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 20; i++ {
		container := "otp-container-" + uuid.NewString()
		lease, err := s.AcquireChallenge(ctx, container)
		require.NoError(t, err)
		_, err = s.SendCode(ctx, "9876543210", container, lease.Token)
		require.NoError(t, err)
	}
	require.Equal(t, 20, pending.Len())
	require.Equal(t, 20, s.challenges.Len())

	go s.Cleanup(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return pending.Len() == 0 && s.challenges.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestService_VerifyIdentity(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.On("Lookup", mock.Anything, "id-token").Return("+919876543210", nil)

	confirmation, err := f.service.VerifyIdentity(context.Background(), "id-token", "Asha Rao")
	require.NoError(t, err)
	require.Equal(t, "+919876543210", confirmation.MobileNumber)

	_, err = f.service.VerifyIdentity(context.Background(), " ", "Asha Rao")
	require.ErrorIs(t, err, internal.ErrMissingVerification)
}
