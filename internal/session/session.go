package session

import (
	"context"
	"errors"
	"net/url"
	"time"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/coverage"
	"slimwell/intake-backend/internal/quiz"

	"github.com/google/uuid"
)

// ErrLockNotHeld is returned by Unlock when the lock expired and may now
// belong to another request.
var ErrLockNotHeld = errors.New("session lock is not held by this token")

// FlowContext is the provider and plan context a visitor arrives with. It is
// echoed back as a query string so a reload keeps the selection.
type FlowContext struct {
	PlanID                string `json:"planId,omitempty"`
	Flow                  string `json:"flow,omitempty"`
	InsuranceProviderID   string `json:"insuranceProviderId,omitempty"`
	InsuranceProviderName string `json:"insuranceProviderName,omitempty"`
}

// Query renders the context as canonical URL query parameters.
func (f FlowContext) Query() string {
	values := url.Values{}
	set := func(k, v string) {
		if v != "" {
			values.Set(k, v)
		}
	}
	set("planId", f.PlanID)
	set("flow", f.Flow)
	set("insuranceProviderId", f.InsuranceProviderID)
	set("insuranceProviderName", f.InsuranceProviderName)
	return values.Encode()
}

// DisplayOnlyPlan reports whether an incoming planId is only shown and must
// not start checkout on its own.
func (f FlowContext) DisplayOnlyPlan() bool {
	return f.PlanID != "" && f.Flow != "purchase"
}

// Outcome is the stored result of the last submission attempt.
type Outcome struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message,omitempty"`
	Coverage     *coverage.Info `json:"coverage,omitempty"`
	Error        string         `json:"error,omitempty"`
	SubmissionID uuid.UUID      `json:"submissionId"`
}

// Credentials is the verification state handed to a submission exactly once.
type Credentials struct {
	VerificationToken string
	Name              string
}

type Session struct {
	ID                uuid.UUID     `json:"id"`
	Phone             string        `json:"phone"`
	Name              string        `json:"name,omitempty"`
	VerificationToken string        `json:"verificationToken,omitempty"`
	Context           FlowContext   `json:"context"`
	Wizard            quiz.Snapshot `json:"wizard"`
	Outcome           *Outcome      `json:"outcome,omitempty"`
	SubmitStartedAt   time.Time     `json:"submitStartedAt,omitempty"`
	CheckoutFired     bool          `json:"checkoutFired"`
	CheckoutURL       string        `json:"checkoutUrl,omitempty"`
	PurchaseSucceeded bool          `json:"purchaseSucceeded"`
	CreatedAt         time.Time     `json:"createdAt"`
}

func New(phone, name, verificationToken string) Session {
	return Session{
		ID:                uuid.New(),
		Phone:             phone,
		Name:              name,
		VerificationToken: verificationToken,
		Wizard:            quiz.NewWizard(quiz.MustDefaultCatalog()).Snapshot(),
		CreatedAt:         time.Now(),
	}
}

func (s Session) GetID() uuid.UUID {
	return s.ID
}

// HasCredentials reports whether a verification token is still unconsumed.
func (s Session) HasCredentials() bool {
	return s.VerificationToken != ""
}

// Consume returns the verification token and cached name and clears both.
// A second call returns empty credentials.
func (s *Session) Consume() Credentials {
	c := Credentials{VerificationToken: s.VerificationToken, Name: s.Name}
	s.VerificationToken = ""
	s.Name = ""
	return c
}

// GetFromContext extracts the intake session placed by the session middleware.
func GetFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(internal.SessionContextKey).(*Session)
	return s, ok
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, internal.SessionContextKey, s)
}

// Store persists intake sessions between requests.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	TryLock(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, id uuid.UUID, token string) error
}
