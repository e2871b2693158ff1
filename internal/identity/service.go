package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/ratelimit"
	"slimwell/intake-backend/internal/resource"
	"slimwell/intake-backend/internal/session"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Provider interface {
	SendVerificationCode(ctx context.Context, phone, challengeToken string) (string, error)
	SignInWithPhoneNumber(ctx context.Context, sessionInfo, code string) (SignInResult, error)
	Lookup(ctx context.Context, idToken string) (string, error)
}

type RegistrationStore interface {
	IsPreRegistered(ctx context.Context, mobileNumber string) (bool, error)
	MarkVerified(ctx context.Context, mobileNumber string) error
}

type SessionStore interface {
	Save(ctx context.Context, s session.Session) error
}

type TokenIssuer interface {
	New(ctx context.Context, sessionID uuid.UUID, phone string) (string, error)
}

type Observer interface {
	ObserveOTP(operation string, err error)
}

// ConfirmationHandle refers to a code that has been sent and awaits
// confirmation.
type ConfirmationHandle struct {
	VerificationID string
	service        *Service
}

func (h ConfirmationHandle) Confirm(ctx context.Context, code string) (Credential, error) {
	return h.service.confirm(ctx, h.VerificationID, code)
}

// Credential is a confirmed phone identity.
type Credential struct {
	Phone   string
	idToken string
}

func (c Credential) Token(ctx context.Context) (string, error) {
	if c.idToken == "" {
		return "", internal.ErrInvalidVerification
	}
	return c.idToken, nil
}

// Confirmation is what the caller keeps after verification: the provider
// token for the one-shot submission and a bearer token for the intake session.
type Confirmation struct {
	VerificationToken string    `json:"verificationToken"`
	SessionToken      string    `json:"sessionToken"`
	SessionID         uuid.UUID `json:"-"`
	MobileNumber      string    `json:"mobileNumber"`
}

type Service struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	provider      Provider
	registrations RegistrationStore
	sessions      SessionStore
	tokens        TokenIssuer
	observer      Observer

	challenges      *resource.Leases
	pending         PendingStore
	limiter         *ratelimit.Keyed
	verificationTTL time.Duration
	now             func() time.Time
}

func NewService(
	logger *zap.Logger,
	provider Provider,
	registrations RegistrationStore,
	sessions SessionStore,
	pending PendingStore,
	tokens TokenIssuer,
	observer Observer,
	limiter *ratelimit.Keyed,
	verificationTTL time.Duration,
) *Service {
	return &Service{
		logger:        logger,
		tracer:        otel.Tracer("identity/service"),
		provider:      provider,
		registrations: registrations,
		sessions:      sessions,
		tokens:        tokens,
		observer:      observer,
		challenges:      resource.NewLeases(verificationTTL, uuid.NewString),
		pending:         pending,
		limiter:         limiter,
		verificationTTL: verificationTTL,
		now:             time.Now,
	}
}

// Cleanup drops expired challenges, and expired pending verifications when
// they are kept in process, every interval until ctx is done.
func (s *Service) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.challenges.Sweep()
			if sweeper, ok := s.pending.(interface{ Sweep() }); ok {
				sweeper.Sweep()
			}
		}
	}
}

// AcquireChallenge mounts the challenge for a container. A container holds at
// most one live challenge; it must be released before a new one is issued.
func (s *Service) AcquireChallenge(ctx context.Context, containerID string) (resource.Lease, error) {
	traceCtx, span := s.tracer.Start(ctx, "AcquireChallenge")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	lease, err := s.challenges.Acquire(containerID)
	if err != nil {
		if errors.Is(err, resource.ErrLeaseHeld) {
			err = internal.ErrChallengeInUse
		}
		span.RecordError(err)
		return resource.Lease{}, err
	}

	logger.Debug("Challenge acquired", zap.String("container_id", containerID))
	return lease, nil
}

func (s *Service) ReleaseChallenge(ctx context.Context, containerID string) error {
	_, span := s.tracer.Start(ctx, "ReleaseChallenge")
	defer span.End()

	if !s.challenges.Release(containerID) {
		span.RecordError(internal.ErrChallengeNotFound)
		return internal.ErrChallengeNotFound
	}
	return nil
}

// SendCode requests an OTP for a pre-registered number. A provider rejection
// tears the challenge down so the caller can mount a fresh one and retry.
func (s *Service) SendCode(ctx context.Context, mobileNumber, containerID, challengeToken string) (ConfirmationHandle, error) {
	traceCtx, span := s.tracer.Start(ctx, "SendCode")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	handle, err := s.sendCode(traceCtx, logger, mobileNumber, containerID, challengeToken)
	s.observer.ObserveOTP("send", err)
	if err != nil {
		span.RecordError(err)
		return ConfirmationHandle{}, err
	}
	return handle, nil
}

func (s *Service) sendCode(ctx context.Context, logger *zap.Logger, mobileNumber, containerID, challengeToken string) (ConfirmationHandle, error) {
	phone, err := internal.NormalizeMobileNumber(mobileNumber)
	if err != nil {
		return ConfirmationHandle{}, internal.ErrInvalidPhoneNumber
	}

	registered, err := s.registrations.IsPreRegistered(ctx, phone)
	if err != nil {
		return ConfirmationHandle{}, err
	}
	if !registered {
		return ConfirmationHandle{}, internal.ErrNotPreRegistered
	}

	if _, err := s.challenges.Check(containerID, challengeToken); err != nil {
		return ConfirmationHandle{}, internal.ErrChallengeNotFound
	}

	if !s.limiter.Allow(phone) {
		return ConfirmationHandle{}, internal.ErrTooManyOTPAttempts
	}

	sessionInfo, err := s.provider.SendVerificationCode(ctx, phone, challengeToken)
	if err != nil {
		s.challenges.Release(containerID)
		logger.Info("Released challenge after failed code request", zap.String("container_id", containerID), zap.Error(err))
		return ConfirmationHandle{}, err
	}

	id := uuid.NewString()
	err = s.pending.Put(ctx, id, Pending{
		Phone:       phone,
		SessionInfo: sessionInfo,
		ExpiresAt:   s.now().Add(s.verificationTTL),
	})
	if err != nil {
		return ConfirmationHandle{}, err
	}

	logger.Debug("Verification code sent", zap.String("verification_id", id))
	return ConfirmationHandle{VerificationID: id, service: s}, nil
}

// Handle rebuilds the handle for a verification id received from a client.
func (s *Service) Handle(verificationID string) ConfirmationHandle {
	return ConfirmationHandle{VerificationID: verificationID, service: s}
}

func (s *Service) confirm(ctx context.Context, verificationID, code string) (Credential, error) {
	traceCtx, span := s.tracer.Start(ctx, "Confirm")
	defer span.End()

	cred, err := s.confirmCode(traceCtx, verificationID, code)
	s.observer.ObserveOTP("confirm", err)
	if err != nil {
		span.RecordError(err)
		return Credential{}, err
	}
	return cred, nil
}

func (s *Service) confirmCode(ctx context.Context, verificationID, code string) (Credential, error) {
	entry, err := s.pending.Get(ctx, verificationID)
	if err != nil {
		return Credential{}, err
	}

	result, err := s.provider.SignInWithPhoneNumber(ctx, entry.SessionInfo, strings.TrimSpace(code))
	if err != nil {
		return Credential{}, err
	}
	if err := s.pending.Delete(ctx, verificationID); err != nil {
		logutil.WithContext(ctx, s.logger).Warn("Failed to consume pending verification", zap.String("verification_id", verificationID), zap.Error(err))
	}

	phone := entry.Phone
	if result.PhoneNumber != "" {
		phone = result.PhoneNumber
	}
	return Credential{Phone: phone, idToken: result.IDToken}, nil
}

// OpenSession stores the verification token and display name in a new intake
// session and returns the bearer token for it.
func (s *Service) OpenSession(ctx context.Context, cred Credential, name string) (Confirmation, error) {
	traceCtx, span := s.tracer.Start(ctx, "OpenSession")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	name = strings.TrimSpace(name)
	if !internal.IsPersonName(name) {
		span.RecordError(internal.ErrInvalidName)
		return Confirmation{}, internal.ErrInvalidName
	}

	token, err := cred.Token(traceCtx)
	if err != nil {
		span.RecordError(err)
		return Confirmation{}, err
	}

	if err := s.registrations.MarkVerified(traceCtx, cred.Phone); err != nil {
		logger.Warn("Failed to mark registration verified", zap.String("mobile_number", cred.Phone), zap.Error(err))
	}

	current := session.New(cred.Phone, name, token)
	if err := s.sessions.Save(traceCtx, current); err != nil {
		span.RecordError(err)
		return Confirmation{}, err
	}

	sessionToken, err := s.tokens.New(traceCtx, current.ID, current.Phone)
	if err != nil {
		span.RecordError(err)
		return Confirmation{}, err
	}

	logger.Info("Opened intake session", zap.String("session_id", current.ID.String()))
	return Confirmation{
		VerificationToken: token,
		SessionToken:      sessionToken,
		SessionID:         current.ID,
		MobileNumber:      current.Phone,
	}, nil
}

// VerifyIdentity accepts a token obtained directly from the provider, checks
// it and opens an intake session for the phone it belongs to.
func (s *Service) VerifyIdentity(ctx context.Context, verificationToken, name string) (Confirmation, error) {
	traceCtx, span := s.tracer.Start(ctx, "VerifyIdentity")
	defer span.End()

	phone, err := s.Lookup(traceCtx, verificationToken)
	if err != nil {
		span.RecordError(err)
		return Confirmation{}, err
	}

	return s.OpenSession(traceCtx, Credential{Phone: phone, idToken: verificationToken}, name)
}

// Lookup returns the phone number bound to a verification token.
func (s *Service) Lookup(ctx context.Context, verificationToken string) (string, error) {
	if strings.TrimSpace(verificationToken) == "" {
		return "", internal.ErrMissingVerification
	}

	phone, err := s.provider.Lookup(ctx, verificationToken)
	if err != nil {
		return "", err
	}

	normalized, err := internal.NormalizeMobileNumber(phone)
	if err != nil {
		return phone, nil
	}
	return normalized, nil
}
