package session

import (
	"context"
	"testing"
	"time"

	"slimwell/intake-backend/internal"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

func TestSession_Consume(t *testing.T) {
	name := gofakeit.Name()
	s := New("+919876543210", name, "id-token-abc")
	require.True(t, s.HasCredentials())

	creds := s.Consume()
	require.Equal(t, "id-token-abc", creds.VerificationToken)
	require.Equal(t, name, creds.Name)
	require.False(t, s.HasCredentials())
	require.Equal(t, "+919876543210", s.Phone)

	require.Equal(t, Credentials{}, s.Consume(), "second consume is empty")
}

func TestFlowContext_Query(t *testing.T) {
	tests := []struct {
		name     string
		ctx      FlowContext
		expected string
	}{
		{name: "Empty", ctx: FlowContext{}, expected: ""},
		{
			name:     "Provider selection",
			ctx:      FlowContext{InsuranceProviderID: "star-health", InsuranceProviderName: "Star Health"},
			expected: "insuranceProviderId=star-health&insuranceProviderName=Star+Health",
		},
		{
			name:     "Plan and flow",
			ctx:      FlowContext{PlanID: "p2", Flow: "purchase"},
			expected: "flow=purchase&planId=p2",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.ctx.Query())
		})
	}
}

func TestFlowContext_DisplayOnlyPlan(t *testing.T) {
	require.False(t, FlowContext{}.DisplayOnlyPlan())
	require.True(t, FlowContext{PlanID: "p1"}.DisplayOnlyPlan())
	require.False(t, FlowContext{PlanID: "p1", Flow: "purchase"}.DisplayOnlyPlan())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s := New("+919876543210", "Asha Rao", "token")
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s.Phone, loaded.Phone)
	require.Equal(t, "token", loaded.VerificationToken)

	loaded.Consume()
	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "token", again.VerificationToken, "store is not aliased")

	token, ok, err := store.TryLock(ctx, s.ID, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = store.TryLock(ctx, s.ID, time.Second)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, store.Unlock(ctx, s.ID, token))
	_, ok, err = store.TryLock(ctx, s.ID, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Hour)
	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, internal.ErrSessionNotFound)
}

func TestMemoryStore_ExpiredLockOwnerCannotUnlock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	id := New("+919876543210", "Asha Rao", "token").ID

	first, ok, err := store.TryLock(ctx, id, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(20 * time.Millisecond)
	second, ok, err := store.TryLock(ctx, id, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired lock can be taken over")
	require.NotEqual(t, first, second)

	require.ErrorIs(t, store.Unlock(ctx, id, first), ErrLockNotHeld)

	_, ok, err = store.TryLock(ctx, id, time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "the second holder keeps its lock")

	require.NoError(t, store.Unlock(ctx, id, second))
}
