package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/plan"
	"slimwell/intake-backend/internal/resource"
	"slimwell/intake-backend/internal/session"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	"github.com/cenkalti/backoff/v4"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"

	webhookLockTTL = 5 * time.Second
)

// newLockBackOff bounds how long a webhook waits for an intake request that
// holds the session lock. Past that the gateway redelivers the event.
var newLockBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return b
}

type Querier interface {
	CreatePending(ctx context.Context, arg CreatePendingParams) (Subscription, error)
	Activate(ctx context.Context, gatewaySessionID string) (Subscription, error)
	HasActive(ctx context.Context, mobileNumber string) (bool, error)
}

type PlanSource interface {
	Applicable(ctx context.Context, providerID, explicitID string) (plan.Plan, error)
}

type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (session.Session, error)
	Save(ctx context.Context, s session.Session) error
	TryLock(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, id uuid.UUID, token string) error
}

type Observer interface {
	ObserveCheckout(trigger string)
	ObservePurchase()
}

// Handoff is what the client needs to send the visitor to the gateway.
// Available is false when no plan could be resolved.
type Handoff struct {
	Available        bool           `json:"available"`
	Plan             *plan.Response `json:"plan,omitempty"`
	CheckoutURL      string         `json:"checkoutUrl,omitempty"`
	GatewaySessionID string         `json:"gatewaySessionId,omitempty"`
}

type Service struct {
	logger   *zap.Logger
	queries  Querier
	tracer   trace.Tracer
	gateway  *resource.Loader[Gateway]
	plans    PlanSource
	sessions SessionStore
	observer Observer
}

func NewService(
	logger *zap.Logger,
	db DBTX,
	gateway *resource.Loader[Gateway],
	plans PlanSource,
	sessions SessionStore,
	observer Observer,
) *Service {
	return &Service{
		logger:   logger,
		queries:  New(db),
		tracer:   otel.Tracer("checkout/service"),
		gateway:  gateway,
		plans:    plans,
		sessions: sessions,
		observer: observer,
	}
}

// Open starts a hosted checkout for the session's applicable plan. The
// caller persists the updated session.
func (s *Service) Open(ctx context.Context, sess *session.Session, explicitPlanID, trigger string) (Handoff, error) {
	traceCtx, span := s.tracer.Start(ctx, "Open")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	if sess.Outcome == nil || !sess.Outcome.Success {
		span.RecordError(internal.ErrCheckoutNotSubmitted)
		return Handoff{}, internal.ErrCheckoutNotSubmitted
	}

	if explicitPlanID == "" {
		explicitPlanID = sess.Context.PlanID
	}
	selected, err := s.plans.Applicable(traceCtx, sess.Context.InsuranceProviderID, explicitPlanID)
	if err != nil {
		logger.Warn("Checkout unavailable, no plan resolved", zap.String("session_id", sess.ID.String()), zap.Error(err))
		return Handoff{Available: false}, nil
	}
	response := plan.ToResponse(selected)

	active, err := s.queries.HasActive(traceCtx, sess.Phone)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "check active subscription")
		span.RecordError(err)
		return Handoff{}, err
	}
	if active {
		span.RecordError(internal.ErrActiveSubscription)
		return Handoff{}, internal.ErrActiveSubscription
	}

	gw, err := s.gateway.Acquire(traceCtx)
	if err != nil {
		err = fmt.Errorf("%w: %v", internal.ErrGatewayUnavailable, err)
		span.RecordError(err)
		return Handoff{}, err
	}

	opened, err := gw.CreateSession(traceCtx, SessionParams{
		IdempotencyKey: "checkout:" + sess.ID.String() + ":" + selected.ID,
		PlanID:         selected.ID,
		PlanName:       selected.Name,
		Amount:         int64(selected.Price) * 100,
		Currency:       selected.Currency,
		Phone:          sess.Phone,
		Email:          sess.Wizard.Answers.Text("email"),
		IntakeSession:  sess.ID.String(),
	})
	if err != nil {
		span.RecordError(err)
		return Handoff{}, err
	}

	tracker := logutil.StartDBOperation(traceCtx, logger, "CreatePending", map[string]interface{}{
		"plan_id":            selected.ID,
		"gateway_session_id": opened.ID,
	})
	row, err := s.queries.CreatePending(traceCtx, CreatePendingParams{
		MobileNumber:     sess.Phone,
		PlanID:           selected.ID,
		GatewaySessionID: opened.ID,
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "create pending subscription")
		span.RecordError(err)
		return Handoff{}, err
	}
	tracker.SuccessWrite(row.ID.String())

	sess.CheckoutURL = opened.URL
	s.observer.ObserveCheckout(trigger)

	logger.Info("Checkout opened",
		zap.String("session_id", sess.ID.String()),
		zap.String("plan_id", selected.ID),
		zap.String("trigger", trigger),
	)

	return Handoff{
		Available:        true,
		Plan:             &response,
		CheckoutURL:      opened.URL,
		GatewaySessionID: opened.ID,
	}, nil
}

// AutoTrigger opens checkout once per session after a successful
// submission. It is a no-op when it already fired, when the visitor came
// with a plan only meant for display, or when a subscription is active.
func (s *Service) AutoTrigger(ctx context.Context, sess *session.Session) (Handoff, bool, error) {
	traceCtx, span := s.tracer.Start(ctx, "AutoTrigger")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	if sess.CheckoutFired || sess.Outcome == nil || !sess.Outcome.Success || sess.Context.DisplayOnlyPlan() {
		return Handoff{}, false, nil
	}
	sess.CheckoutFired = true

	handoff, err := s.Open(traceCtx, sess, "", TriggerAuto)
	if err != nil {
		if errors.Is(err, internal.ErrActiveSubscription) {
			logger.Debug("Skipped automatic checkout, subscription already active", zap.String("session_id", sess.ID.String()))
			return Handoff{}, false, nil
		}
		span.RecordError(err)
		return Handoff{}, false, err
	}

	return handoff, handoff.Available, nil
}

// HandleWebhook records a completed checkout: the pending subscription turns
// active and the intake session is flagged as purchased. Unknown checkout
// sessions are acknowledged so the gateway stops retrying.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	traceCtx, span := s.tracer.Start(ctx, "HandleWebhook")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	gw, err := s.gateway.Acquire(traceCtx)
	if err != nil {
		err = fmt.Errorf("%w: %v", internal.ErrGatewayUnavailable, err)
		span.RecordError(err)
		return err
	}

	completed, ok, err := gw.ParseEvent(payload, signature)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		return nil
	}

	tracker := logutil.StartDBOperation(traceCtx, logger, "Activate", map[string]interface{}{
		"gateway_session_id": completed.ID,
	})
	row, err := s.queries.Activate(traceCtx, completed.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("Webhook for unknown checkout session", zap.String("gateway_session_id", completed.ID))
			return nil
		}
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "activate subscription")
		span.RecordError(err)
		return err
	}
	tracker.SuccessWrite(row.ID.String())
	s.observer.ObservePurchase()

	sessionID, err := uuid.Parse(completed.IntakeSession)
	if err != nil {
		return nil
	}
	if err := s.markPurchased(traceCtx, logger, sessionID); err != nil {
		if errors.Is(err, internal.ErrSessionNotFound) {
			logger.Info("Intake session gone before purchase completed", zap.String("session_id", sessionID.String()))
			return nil
		}
		logger.Warn("Failed to flag purchase on intake session", zap.String("session_id", sessionID.String()), zap.Error(err))
		span.RecordError(err)
		return err
	}

	return nil
}

// markPurchased sets the purchase flag under the session lock so a
// concurrent intake update cannot write back a copy without it.
func (s *Service) markPurchased(ctx context.Context, logger *zap.Logger, id uuid.UUID) error {
	operation := func() error {
		token, ok, err := s.sessions.TryLock(ctx, id, webhookLockTTL)
		if err != nil {
			return err
		}
		if !ok {
			return internal.ErrSessionBusy
		}
		defer func() {
			if err := s.sessions.Unlock(context.WithoutCancel(ctx), id, token); err != nil {
				logger.Warn("Failed to release session lock", zap.String("session_id", id.String()), zap.Error(err))
			}
		}()

		current, err := s.sessions.Get(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		current.PurchaseSucceeded = true
		return s.sessions.Save(ctx, current)
	}

	return backoff.Retry(operation, backoff.WithContext(newLockBackOff(), ctx))
}

// Close releases the gateway client.
func (s *Service) Close() error {
	return s.gateway.Release()
}
