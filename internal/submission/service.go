package submission

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/coverage"
	"slimwell/intake-backend/internal/quiz"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const SuccessMessage = "Thank you! Your responses have been recorded."

type Querier interface {
	GetByID(ctx context.Context, id uuid.UUID) (QuizSubmission, error)
	GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) (QuizSubmission, error)
	Upsert(ctx context.Context, arg UpsertParams) (QuizSubmission, error)
}

type Verifier interface {
	Lookup(ctx context.Context, verificationToken string) (string, error)
}

type CoverageResolver interface {
	Resolve(ctx context.Context, input coverage.Input) coverage.Info
}

type RegistrationMarker interface {
	MarkQuizSubmitted(ctx context.Context, mobileNumber string) error
}

type Observer interface {
	ObserveSubmission(status string)
}

// Request is the body of a quiz submission. Phone is set by callers that
// already hold a verified intake session; otherwise VerificationToken is
// looked up with the identity provider.
type Request struct {
	Answers             []Pair    `json:"answers"`
	InsuranceProviderID string    `json:"insuranceProviderId,omitempty"`
	VerificationToken   string    `json:"verificationToken,omitempty"`
	Name                string    `json:"name,omitempty"`
	SubmissionID        uuid.UUID `json:"submissionId,omitempty"`
	Phone               string    `json:"-"`
}

type Result struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message,omitempty"`
	Coverage     *coverage.Info `json:"coverage,omitempty"`
	Error        string         `json:"error,omitempty"`
	SubmissionID uuid.UUID      `json:"submissionId"`
	Replayed     bool           `json:"-"`
}

type Service struct {
	logger        *zap.Logger
	queries       Querier
	tracer        trace.Tracer
	catalog       *quiz.Catalog
	verifier      Verifier
	resolver      CoverageResolver
	registrations RegistrationMarker
	observer      Observer
}

func NewService(
	logger *zap.Logger,
	db DBTX,
	catalog *quiz.Catalog,
	verifier Verifier,
	resolver CoverageResolver,
	registrations RegistrationMarker,
	observer Observer,
) *Service {
	return &Service{
		logger:        logger,
		queries:       New(db),
		tracer:        otel.Tracer("submission/service"),
		catalog:       catalog,
		verifier:      verifier,
		resolver:      resolver,
		registrations: registrations,
		observer:      observer,
	}
}

// Submit records a quiz submission and resolves its coverage. A request that
// repeats a known SubmissionID returns the stored result untouched.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	traceCtx, span := s.tracer.Start(ctx, "Submit")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	tracker := logutil.StartMethod(traceCtx, logger, "Submit", map[string]interface{}{
		"submission_id":         req.SubmissionID.String(),
		"insurance_provider_id": req.InsuranceProviderID,
		"answer_count":          len(req.Answers),
	})

	if len(req.Answers) == 0 {
		span.RecordError(internal.ErrEmptySubmission)
		return Result{}, internal.ErrEmptySubmission
	}

	if req.SubmissionID != uuid.Nil {
		stored, found, err := s.findBySubmissionID(traceCtx, logger, req.SubmissionID)
		if err != nil {
			span.RecordError(err)
			return Result{}, err
		}
		if found {
			logger.Info("Replayed submission returned from store", zap.String("submission_id", req.SubmissionID.String()))
			return stored, nil
		}
	} else {
		req.SubmissionID = uuid.New()
	}

	phone := req.Phone
	if phone == "" {
		var err error
		phone, err = s.verifier.Lookup(traceCtx, req.VerificationToken)
		if err != nil {
			span.RecordError(err)
			return Result{}, err
		}
	}

	keyed, unknown := Keyed(s.catalog, req.Answers)
	if len(unknown) > 0 {
		logger.Debug("Dropped unknown questions from submission", zap.Strings("questions", unknown))
	}

	info := s.resolver.Resolve(traceCtx, coverage.Input{
		ProviderID: req.InsuranceProviderID,
		Answers:    keyed,
	})

	answersJSON, err := json.Marshal(req.Answers)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	coverageJSON, err := json.Marshal(info)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	dbTracker := logutil.StartDBOperation(traceCtx, logger, "Upsert", map[string]interface{}{
		"submission_id":   req.SubmissionID.String(),
		"mobile_number":   phone,
		"coverage_status": string(info.Status),
	})
	row, err := s.queries.Upsert(traceCtx, UpsertParams{
		SubmissionID:        req.SubmissionID,
		MobileNumber:        pgtype.Text{String: phone, Valid: phone != ""},
		Name:                strings.TrimSpace(req.Name),
		InsuranceProviderID: req.InsuranceProviderID,
		Answers:             answersJSON,
		CoverageStatus:      string(info.Status),
		Coverage:            coverageJSON,
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, dbTracker, "upsert quiz submission")
		if errors.Is(err, databaseutil.ErrUniqueViolation) {
			// a concurrent request with the same submission id won the insert
			stored, found, lookupErr := s.findBySubmissionID(traceCtx, logger, req.SubmissionID)
			if lookupErr == nil && found {
				return stored, nil
			}
		}
		span.RecordError(err)
		return Result{}, err
	}
	dbTracker.SuccessWrite(row.ID.String())

	if phone != "" {
		if err := s.registrations.MarkQuizSubmitted(traceCtx, phone); err != nil {
			logger.Warn("Failed to flag registration as submitted", zap.String("mobile_number", phone), zap.Error(err))
		}
	}

	s.observer.ObserveSubmission(string(info.Status))

	tracker.Complete(map[string]interface{}{
		"id":              row.ID.String(),
		"coverage_status": string(info.Status),
	})

	return Result{
		Success:      true,
		Message:      SuccessMessage,
		Coverage:     &info,
		SubmissionID: row.SubmissionID,
	}, nil
}

func (s *Service) findBySubmissionID(ctx context.Context, logger *zap.Logger, submissionID uuid.UUID) (Result, bool, error) {
	row, err := s.queries.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, false, nil
		}
		return Result{}, false, databaseutil.WrapDBErrorWithKeyValue(err, "quiz_submissions", "submission_id", submissionID.String(), logger, "get submission by submission id")
	}

	var info coverage.Info
	if err := json.Unmarshal(row.Coverage, &info); err != nil {
		return Result{}, false, err
	}

	return Result{
		Success:      true,
		Message:      SuccessMessage,
		Coverage:     &info,
		SubmissionID: row.SubmissionID,
		Replayed:     true,
	}, true, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (QuizSubmission, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	row, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(internal.ErrSubmissionNotFound)
			return QuizSubmission{}, internal.ErrSubmissionNotFound
		}
		err = databaseutil.WrapDBError(err, logger, "get submission by id")
		span.RecordError(err)
		return QuizSubmission{}, err
	}

	return row, nil
}
