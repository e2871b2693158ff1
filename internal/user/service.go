package user

import (
	"context"
	"errors"
	"strings"

	"slimwell/intake-backend/internal"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const ResubmissionMessage = "You have already completed the quiz. Submitting again will update your answers."

type Querier interface {
	Upsert(ctx context.Context, arg UpsertParams) (Registration, error)
	GetByMobileNumber(ctx context.Context, mobileNumber string) (Registration, error)
	MarkVerified(ctx context.Context, mobileNumber string) error
	MarkQuizSubmitted(ctx context.Context, mobileNumber string) error
}

// Status is the advisory answer of the registration check. The zero value
// means "unknown" and never blocks the flow.
type Status struct {
	Exists            bool   `json:"exists"`
	HasQuizSubmission bool   `json:"hasQuizSubmission"`
	Message           string `json:"message,omitempty"`
}

type Service struct {
	logger  *zap.Logger
	queries Querier
	tracer  trace.Tracer
}

func NewService(logger *zap.Logger, db DBTX) *Service {
	return &Service{
		logger:  logger,
		queries: New(db),
		tracer:  otel.Tracer("user/service"),
	}
}

// PreRegister records (or refreshes) the registration stub for a mobile
// number. It must succeed before an OTP is sent to that number.
func (s *Service) PreRegister(ctx context.Context, name, mobileNumber string) (Registration, error) {
	traceCtx, span := s.tracer.Start(ctx, "PreRegister")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	phone, err := internal.NormalizeMobileNumber(mobileNumber)
	if err != nil {
		span.RecordError(err)
		return Registration{}, err
	}

	name = strings.TrimSpace(name)
	if !internal.IsPersonName(name) {
		span.RecordError(internal.ErrInvalidName)
		return Registration{}, internal.ErrInvalidName
	}

	dbParams := map[string]interface{}{
		"mobile_number": phone,
		"name":          name,
	}
	tracker := logutil.StartDBOperation(traceCtx, logger, "Upsert", dbParams)

	registration, err := s.queries.Upsert(traceCtx, UpsertParams{
		MobileNumber: phone,
		Name:         name,
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "upsert registration")
		span.RecordError(err)
		return Registration{}, err
	}

	tracker.SuccessWrite(registration.ID.String())

	return registration, nil
}

func (s *Service) GetByMobileNumber(ctx context.Context, mobileNumber string) (Registration, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByMobileNumber")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	phone, err := internal.NormalizeMobileNumber(mobileNumber)
	if err != nil {
		span.RecordError(err)
		return Registration{}, err
	}

	registration, err := s.queries.GetByMobileNumber(traceCtx, phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(internal.ErrNotPreRegistered)
			return Registration{}, internal.ErrNotPreRegistered
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "registrations", "mobile_number", phone, logger, "get registration by mobile number")
		span.RecordError(err)
		return Registration{}, err
	}

	return registration, nil
}

// IsPreRegistered reports whether PreRegister has succeeded for the number.
func (s *Service) IsPreRegistered(ctx context.Context, mobileNumber string) (bool, error) {
	_, err := s.GetByMobileNumber(ctx, mobileNumber)
	if errors.Is(err, internal.ErrNotPreRegistered) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CheckRegistration is advisory: lookup failures are logged and reported as
// the zero Status so the caller can carry on.
func (s *Service) CheckRegistration(ctx context.Context, mobileNumber string) Status {
	traceCtx, span := s.tracer.Start(ctx, "CheckRegistration")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	registration, err := s.GetByMobileNumber(traceCtx, mobileNumber)
	if err != nil {
		if !errors.Is(err, internal.ErrNotPreRegistered) {
			logger.Warn("Registration check failed, continuing without it", zap.Error(err))
		}
		return Status{}
	}

	status := Status{
		Exists:            true,
		HasQuizSubmission: registration.HasQuizSubmission,
	}
	if status.HasQuizSubmission {
		status.Message = ResubmissionMessage
	}
	return status
}

func (s *Service) MarkVerified(ctx context.Context, mobileNumber string) error {
	traceCtx, span := s.tracer.Start(ctx, "MarkVerified")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	tracker := logutil.StartDBOperation(traceCtx, logger, "MarkVerified", map[string]interface{}{
		"mobile_number": mobileNumber,
	})

	err := s.queries.MarkVerified(traceCtx, mobileNumber)
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "mark registration verified")
		span.RecordError(err)
		return err
	}

	tracker.SuccessWrite(mobileNumber)
	return nil
}

func (s *Service) MarkQuizSubmitted(ctx context.Context, mobileNumber string) error {
	traceCtx, span := s.tracer.Start(ctx, "MarkQuizSubmitted")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	tracker := logutil.StartDBOperation(traceCtx, logger, "MarkQuizSubmitted", map[string]interface{}{
		"mobile_number": mobileNumber,
	})

	err := s.queries.MarkQuizSubmitted(traceCtx, mobileNumber)
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "mark quiz submitted")
		span.RecordError(err)
		return err
	}

	tracker.SuccessWrite(mobileNumber)
	return nil
}
