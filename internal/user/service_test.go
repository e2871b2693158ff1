package user

import (
	"context"
	"errors"
	"testing"

	"slimwell/intake-backend/internal"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Upsert(ctx context.Context, arg UpsertParams) (Registration, error) {
	args := m.Called(ctx, arg)
	row, _ := args.Get(0).(Registration)
	return row, args.Error(1)
}

func (m *mockQuerier) GetByMobileNumber(ctx context.Context, mobileNumber string) (Registration, error) {
	args := m.Called(ctx, mobileNumber)
	row, _ := args.Get(0).(Registration)
	return row, args.Error(1)
}

func (m *mockQuerier) MarkVerified(ctx context.Context, mobileNumber string) error {
	args := m.Called(ctx, mobileNumber)
	return args.Error(0)
}

func (m *mockQuerier) MarkQuizSubmitted(ctx context.Context, mobileNumber string) error {
	args := m.Called(ctx, mobileNumber)
	return args.Error(0)
}

func newTestService(t *testing.T) (*Service, *mockQuerier) {
	t.Helper()

	q := &mockQuerier{}
	return &Service{
		logger:  zap.NewNop(),
		queries: q,
		tracer:  noop.NewTracerProvider().Tracer("test"),
	}, q
}

func TestService_PreRegister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		inputName    string
		inputMobile  string
		expectedCall *UpsertParams
		expectedErr  error
	}{
		{
			name:         "National number is stored in E.164",
			inputName:    "  Asha Rao ",
			inputMobile:  "98765 43210",
			expectedCall: &UpsertParams{MobileNumber: "+919876543210", Name: "Asha Rao"},
		},
		{
			name:         "Prefixed number keeps its digits",
			inputName:    "Ravi Kumar",
			inputMobile:  "+919123456789",
			expectedCall: &UpsertParams{MobileNumber: "+919123456789", Name: "Ravi Kumar"},
		},
		{
			name:        "Landline style number is rejected",
			inputName:   "Asha Rao",
			inputMobile: "0801234567",
			expectedErr: internal.ErrInvalidMobileNumber,
		},
		{
			name:        "Blank name is rejected",
			inputName:   "   ",
			inputMobile: "9876543210",
			expectedErr: internal.ErrInvalidName,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, q := newTestService(t)
			if tc.expectedCall != nil {
				q.On("Upsert", mock.Anything, *tc.expectedCall).Return(Registration{
					ID:           uuid.New(),
					MobileNumber: tc.expectedCall.MobileNumber,
					Name:         tc.expectedCall.Name,
				}, nil).Once()
			}

			registration, err := s.PreRegister(context.Background(), tc.inputName, tc.inputMobile)
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				q.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectedCall.MobileNumber, registration.MobileNumber)
			q.AssertExpectations(t)
		})
	}
}

func TestService_PreRegister_RepeatedNameIsUpsert(t *testing.T) {
	s, q := newTestService(t)
	name := gofakeit.FirstName() + " " + gofakeit.LastName()
	params := UpsertParams{MobileNumber: "+919876543210", Name: name}
	q.On("Upsert", mock.Anything, params).Return(Registration{ID: uuid.New(), MobileNumber: params.MobileNumber, Name: name}, nil).Twice()

	_, err := s.PreRegister(context.Background(), name, "9876543210")
	require.NoError(t, err)
	_, err = s.PreRegister(context.Background(), name, "9876543210")
	require.NoError(t, err)

	q.AssertExpectations(t)
}

func TestService_CheckRegistration(t *testing.T) {
	tests := []struct {
		name     string
		row      Registration
		err      error
		expected Status
	}{
		{
			name:     "Unknown number",
			err:      pgx.ErrNoRows,
			expected: Status{},
		},
		{
			name:     "Registered without quiz",
			row:      Registration{MobileNumber: "+919876543210"},
			expected: Status{Exists: true},
		},
		{
			name:     "Registered with quiz",
			row:      Registration{MobileNumber: "+919876543210", HasQuizSubmission: true},
			expected: Status{Exists: true, HasQuizSubmission: true, Message: ResubmissionMessage},
		},
		{
			name:     "Lookup failure is advisory",
			err:      errors.New("connection reset"),
			expected: Status{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, q := newTestService(t)
			q.On("GetByMobileNumber", mock.Anything, "+919876543210").Return(tc.row, tc.err)

			require.Equal(t, tc.expected, s.CheckRegistration(context.Background(), "9876543210"))
		})
	}
}

func TestService_IsPreRegistered(t *testing.T) {
	s, q := newTestService(t)
	q.On("GetByMobileNumber", mock.Anything, "+919876543210").Return(Registration{
		ID:         uuid.New(),
		VerifiedAt: pgtype.Timestamptz{},
	}, nil)
	q.On("GetByMobileNumber", mock.Anything, "+919123456789").Return(Registration{}, pgx.ErrNoRows)

	ok, err := s.IsPreRegistered(context.Background(), "9876543210")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.IsPreRegistered(context.Background(), "9123456789")
	require.NoError(t, err)
	require.False(t, ok)
}
