package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/session"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	registrations map[string]Registration
}

func (f *fakeStore) PreRegister(_ context.Context, name, mobileNumber string) (Registration, error) {
	phone, err := internal.NormalizeMobileNumber(mobileNumber)
	if err != nil {
		return Registration{}, err
	}
	r := Registration{MobileNumber: phone, Name: name}
	f.registrations[phone] = r
	return r, nil
}

func (f *fakeStore) CheckRegistration(_ context.Context, mobileNumber string) Status {
	phone, _ := internal.NormalizeMobileNumber(mobileNumber)
	r, ok := f.registrations[phone]
	if !ok {
		return Status{}
	}
	return Status{Exists: true, HasQuizSubmission: r.HasQuizSubmission}
}

func (f *fakeStore) GetByMobileNumber(_ context.Context, mobileNumber string) (Registration, error) {
	r, ok := f.registrations[mobileNumber]
	if !ok {
		return Registration{}, internal.ErrNotPreRegistered
	}
	return r, nil
}

func newTestHandler() (*Handler, *fakeStore) {
	store := &fakeStore{registrations: map[string]Registration{}}
	return NewHandler(zap.NewNop(), internal.NewValidator(), internal.NewProblemWriter(), store), store
}

func TestHandler_PreRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		expectedOK bool
	}{
		{name: "Valid request", body: `{"name":"Asha Rao","mobileNumber":"9876543210"}`, expectedOK: true},
		{name: "Short number", body: `{"name":"Asha Rao","mobileNumber":"98765"}`},
		{name: "Missing name", body: `{"mobileNumber":"9876543210"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, store := newTestHandler()
			req := httptest.NewRequest(http.MethodPost, "/api/pre-register", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			h.PreRegister(rec, req)

			if tc.expectedOK {
				require.Equal(t, http.StatusNoContent, rec.Code)
				require.Contains(t, store.registrations, "+919876543210")
				return
			}
			require.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
			require.Less(t, rec.Code, http.StatusInternalServerError)
			require.Empty(t, store.registrations)
		})
	}
}

func TestHandler_GetMe(t *testing.T) {
	h, store := newTestHandler()
	store.registrations["+919876543210"] = Registration{
		MobileNumber:      "+919876543210",
		Name:              "Asha Rao",
		VerifiedAt:        pgtype.Timestamptz{Valid: true},
		HasQuizSubmission: true,
	}
	current := session.New("+919876543210", "", "")

	tests := []struct {
		name           string
		url            string
		withSession    bool
		expectedStatus int
		expectedUser   *Me
	}{
		{name: "Optional without session", url: "/api/user/me?optional=1", expectedStatus: http.StatusOK},
		{name: "Required without session", url: "/api/user/me", expectedStatus: http.StatusUnauthorized},
		{
			name:           "With session",
			url:            "/api/user/me?optional=1",
			withSession:    true,
			expectedStatus: http.StatusOK,
			expectedUser:   &Me{MobileNumber: "+919876543210", Name: "Asha Rao", Verified: true, HasQuizSubmission: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.withSession {
				req = req.WithContext(session.WithSession(req.Context(), &current))
			}
			rec := httptest.NewRecorder()

			h.GetMe(rec, req)

			require.Equal(t, tc.expectedStatus, rec.Code)
			if tc.expectedStatus != http.StatusOK {
				return
			}
			var resp MeResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, tc.expectedUser, resp.User)
		})
	}
}
