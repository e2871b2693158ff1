package plan

import (
	"context"
	"errors"

	"slimwell/intake-backend/internal"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Querier interface {
	ListGeneral(ctx context.Context) ([]Plan, error)
	ListByProvider(ctx context.Context, insuranceProviderID pgtype.Text) ([]Plan, error)
	GetByID(ctx context.Context, id string) (Plan, error)
}

type Service struct {
	logger  *zap.Logger
	queries Querier
	tracer  trace.Tracer
	group   singleflight.Group
}

func NewService(logger *zap.Logger, db DBTX) *Service {
	return &Service{
		logger:  logger,
		queries: New(db),
		tracer:  otel.Tracer("plan/service"),
	}
}

// ResolveApplicable picks the plan to offer: the explicit id when it is in
// the list, else the default-flagged plan, else the first one.
func ResolveApplicable(plans []Plan, explicitID string) *Plan {
	if len(plans) == 0 {
		return nil
	}
	if explicitID != "" {
		for i := range plans {
			if plans[i].ID == explicitID {
				return &plans[i]
			}
		}
	}
	for i := range plans {
		if plans[i].IsDefault {
			return &plans[i]
		}
	}
	return &plans[0]
}

// List returns the active plans for an insurance provider. Providers without
// partner plans, and callers without a provider, get the general catalog.
// Concurrent calls for the same provider share one query, which does not
// inherit the cancellation of whichever caller started it.
func (s *Service) List(ctx context.Context, providerID string) ([]Plan, error) {
	traceCtx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	v, err, shared := s.group.Do("plans:"+providerID, func() (interface{}, error) {
		return s.list(context.WithoutCancel(traceCtx), logger, providerID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if shared {
		logger.Debug("Plan list shared with a concurrent caller", zap.String("insurance_provider_id", providerID))
	}

	plans := v.([]Plan)
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out, nil
}

func (s *Service) list(ctx context.Context, logger *zap.Logger, providerID string) ([]Plan, error) {
	tracker := logutil.StartDBOperation(ctx, logger, "List", map[string]interface{}{
		"insurance_provider_id": providerID,
	})

	if providerID != "" {
		plans, err := s.queries.ListByProvider(ctx, pgtype.Text{String: providerID, Valid: true})
		if err != nil {
			return nil, databaseutil.WrapDBErrorWithTracker(err, tracker, "list plans by provider")
		}
		if len(plans) > 0 {
			tracker.SuccessRead(len(plans), providerID)
			return plans, nil
		}
	}

	plans, err := s.queries.ListGeneral(ctx)
	if err != nil {
		return nil, databaseutil.WrapDBErrorWithTracker(err, tracker, "list general plans")
	}
	tracker.SuccessRead(len(plans), "general")
	return plans, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Plan, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	p, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(internal.ErrPlanNotFound)
			return Plan{}, internal.ErrPlanNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "plans", "id", id, logger, "get plan by id")
		span.RecordError(err)
		return Plan{}, err
	}

	return p, nil
}

// Applicable fetches the catalog for a provider and resolves the plan to
// offer. It returns ErrNoPlans when the catalog is empty.
func (s *Service) Applicable(ctx context.Context, providerID, explicitID string) (Plan, error) {
	plans, err := s.List(ctx, providerID)
	if err != nil {
		return Plan{}, err
	}

	p := ResolveApplicable(plans, explicitID)
	if p == nil {
		return Plan{}, internal.ErrNoPlans
	}
	return *p, nil
}
