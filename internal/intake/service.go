package intake

import (
	"context"
	"errors"
	"time"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/checkout"
	"slimwell/intake-backend/internal/quiz"
	"slimwell/intake-backend/internal/result"
	"slimwell/intake-backend/internal/session"
	"slimwell/intake-backend/internal/submission"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultLockTTL = 30 * time.Second
	// staleSubmitAfter is how long a stored Submitting state is trusted
	// before it is taken as left over from a request that never finished.
	staleSubmitAfter = 5 * time.Minute
)

type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (submission.Result, error)
}

type Checkout interface {
	Open(ctx context.Context, sess *session.Session, explicitPlanID, trigger string) (checkout.Handoff, error)
	AutoTrigger(ctx context.Context, sess *session.Session) (checkout.Handoff, bool, error)
}

// WizardView is the state the client renders for the current step.
type WizardView struct {
	Step            quiz.Step    `json:"step"`
	Index           int          `json:"index"`
	Total           int          `json:"total"`
	State           quiz.State   `json:"state"`
	Answers         quiz.Answers `json:"answers"`
	CanProceed      bool         `json:"canProceed"`
	Missing         []string     `json:"missing,omitempty"`
	IsLastStep      bool         `json:"isLastStep"`
	Submitted       bool         `json:"submitted"`
	SubmitRequested bool         `json:"submitRequested,omitempty"`
	ScrollEpoch     int          `json:"scrollEpoch"`
	Query           string       `json:"query"`
}

type SubmitOutcome struct {
	Result   result.View       `json:"result"`
	Checkout *checkout.Handoff `json:"checkout,omitempty"`
}

type Service struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	catalog   *quiz.Catalog
	sessions  session.Store
	submitter Submitter
	checkout  Checkout
	pincodes  *Serviceability
	lockTTL   time.Duration
	now       func() time.Time
}

func NewService(
	logger *zap.Logger,
	catalog *quiz.Catalog,
	sessions session.Store,
	submitter Submitter,
	checkout Checkout,
	pincodes *Serviceability,
) *Service {
	return &Service{
		logger:    logger,
		tracer:    otel.Tracer("intake/service"),
		catalog:   catalog,
		sessions:  sessions,
		submitter: submitter,
		checkout:  checkout,
		pincodes:  pincodes,
		lockTTL:   defaultLockTTL,
		now:       time.Now,
	}
}

func (s *Service) Steps() []quiz.Step {
	return s.catalog.Steps()
}

// update runs fn on the stored session while holding its lock and saves the
// result when fn succeeds.
func (s *Service) update(ctx context.Context, id uuid.UUID, fn func(sess *session.Session) error) (session.Session, error) {
	token, ok, err := s.sessions.TryLock(ctx, id, s.lockTTL)
	if err != nil {
		return session.Session{}, err
	}
	if !ok {
		return session.Session{}, internal.ErrSessionBusy
	}
	defer func() {
		if err := s.sessions.Unlock(context.WithoutCancel(ctx), id, token); err != nil {
			s.logger.Warn("Failed to release session lock", zap.String("session_id", id.String()), zap.Error(err))
		}
	}()

	current, err := s.sessions.Get(ctx, id)
	if err != nil {
		return session.Session{}, err
	}

	if err := fn(&current); err != nil {
		return session.Session{}, err
	}

	if err := s.sessions.Save(ctx, current); err != nil {
		return session.Session{}, err
	}
	return current, nil
}

func (s *Service) view(sess session.Session) WizardView {
	w := quiz.Restore(s.catalog, sess.Wizard)
	return WizardView{
		Step:        w.Current(),
		Index:       w.Index(),
		Total:       s.catalog.Len(),
		State:       w.State(),
		Answers:     w.Answers(),
		CanProceed:  w.CanProceed(),
		Missing:     w.MissingKeys(),
		IsLastStep:  w.IsLastStep(),
		Submitted:   w.Submitted(),
		ScrollEpoch: w.ScrollEpoch(),
		Query:       sess.Context.Query(),
	}
}

func (s *Service) View(ctx context.Context, id uuid.UUID) (WizardView, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return WizardView{}, err
	}
	return s.view(sess), nil
}

func (s *Service) SetAnswer(ctx context.Context, id uuid.UUID, key string, v quiz.Value) (WizardView, error) {
	traceCtx, span := s.tracer.Start(ctx, "SetAnswer")
	defer span.End()

	sess, err := s.update(traceCtx, id, func(sess *session.Session) error {
		w := quiz.Restore(s.catalog, sess.Wizard)
		if err := w.Set(key, v); err != nil {
			return err
		}
		sess.Wizard = w.Snapshot()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return WizardView{}, err
	}
	return s.view(sess), nil
}

func (s *Service) ToggleAnswer(ctx context.Context, id uuid.UUID, key, option string) (WizardView, error) {
	traceCtx, span := s.tracer.Start(ctx, "ToggleAnswer")
	defer span.End()

	sess, err := s.update(traceCtx, id, func(sess *session.Session) error {
		w := quiz.Restore(s.catalog, sess.Wizard)
		if err := w.Toggle(key, option); err != nil {
			return err
		}
		sess.Wizard = w.Snapshot()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return WizardView{}, err
	}
	return s.view(sess), nil
}

// SetContext stores the provider and plan context and returns the canonical
// query string the client writes back into its URL.
func (s *Service) SetContext(ctx context.Context, id uuid.UUID, flow session.FlowContext) (string, error) {
	traceCtx, span := s.tracer.Start(ctx, "SetContext")
	defer span.End()

	sess, err := s.update(traceCtx, id, func(sess *session.Session) error {
		sess.Context = flow
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return sess.Context.Query(), nil
}

// Next advances the wizard. Leaving the profile step with a pincode outside
// the served area stops the quiz with the pincode notice. On the last step
// the view reports SubmitRequested and the client calls Submit.
func (s *Service) Next(ctx context.Context, id uuid.UUID) (WizardView, error) {
	traceCtx, span := s.tracer.Start(ctx, "Next")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	var transition quiz.Transition
	sess, err := s.update(traceCtx, id, func(sess *session.Session) error {
		w := quiz.Restore(s.catalog, sess.Wizard)

		current := w.Current()
		if current.Kind == quiz.KindMixedProfile && w.State() == quiz.StateAnswering && w.CanProceed() {
			pincode := sess.Wizard.Answers.Text("pincode")
			if !s.pincodes.Serves(pincode) {
				logger.Info("Pincode outside served area", zap.String("session_id", sess.ID.String()), zap.String("pincode", pincode))
				w.ShowPincodeNotice()
				sess.Wizard = w.Snapshot()
				return nil
			}
		}

		var err error
		transition, err = w.Next()
		if err != nil {
			return err
		}
		sess.Wizard = w.Snapshot()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return WizardView{}, err
	}

	v := s.view(sess)
	v.SubmitRequested = transition.SubmitRequested
	return v, nil
}

func (s *Service) Back(ctx context.Context, id uuid.UUID) (WizardView, error) {
	traceCtx, span := s.tracer.Start(ctx, "Back")
	defer span.End()

	sess, err := s.update(traceCtx, id, func(sess *session.Session) error {
		w := quiz.Restore(s.catalog, sess.Wizard)
		if err := w.Back(); err != nil {
			return err
		}
		sess.Wizard = w.Snapshot()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return WizardView{}, err
	}
	return s.view(sess), nil
}

// Restart returns to the first step after a failed submission or a pincode
// notice. Answers are kept.
func (s *Service) Restart(ctx context.Context, id uuid.UUID) (WizardView, error) {
	traceCtx, span := s.tracer.Start(ctx, "Restart")
	defer span.End()

	sess, err := s.update(traceCtx, id, func(sess *session.Session) error {
		w := quiz.Restore(s.catalog, sess.Wizard)
		if err := w.Restart(); err != nil {
			return err
		}
		sess.Wizard = w.Snapshot()
		sess.Outcome = nil
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return WizardView{}, err
	}
	return s.view(sess), nil
}

// Submit formats the answers, transmits them once and stores the outcome.
// A failed transmit is a result too: the wizard shows it and waits for a
// restart. After a success the checkout is opened automatically once.
//
// The Submitting state is saved before transmitting, so a request that gets
// the lock after it expired still sees the submission in flight.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (SubmitOutcome, error) {
	traceCtx, span := s.tracer.Start(ctx, "Submit")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	var handoff *checkout.Handoff
	sess, err := s.update(traceCtx, id, func(sess *session.Session) error {
		w := quiz.Restore(s.catalog, sess.Wizard)
		if w.State() == quiz.StateSubmitting && s.now().Sub(sess.SubmitStartedAt) > staleSubmitAfter {
			logger.Warn("Recovering stale in-flight submission", zap.String("session_id", sess.ID.String()), zap.Time("started_at", sess.SubmitStartedAt))
			w.AbandonSubmit()
		}
		if err := w.BeginSubmit(); err != nil {
			return err
		}
		sess.Wizard = w.Snapshot()
		sess.SubmitStartedAt = s.now()
		if err := s.sessions.Save(traceCtx, *sess); err != nil {
			return err
		}

		answers := w.Answers()
		name := sess.Name
		if name == "" {
			name = answers.Text("name")
		}

		res, err := s.submitter.Submit(traceCtx, submission.Request{
			Answers:             submission.Format(s.catalog, answers),
			InsuranceProviderID: sess.Context.InsuranceProviderID,
			VerificationToken:   sess.VerificationToken,
			Name:                name,
			SubmissionID:        uuid.NewSHA1(sess.ID, []byte("quiz-submission")),
			Phone:               sess.Phone,
		})
		if err != nil {
			logger.Warn("Quiz submission failed", zap.String("session_id", sess.ID.String()), zap.Error(err))
			w.FinishSubmit(false)
			sess.Wizard = w.Snapshot()
			sess.Outcome = &session.Outcome{Success: false, Error: displayError(err)}
			return nil
		}

		sess.Consume()
		w.FinishSubmit(true)
		sess.Wizard = w.Snapshot()
		sess.Outcome = &session.Outcome{
			Success:      res.Success,
			Message:      res.Message,
			Coverage:     res.Coverage,
			Error:        res.Error,
			SubmissionID: res.SubmissionID,
		}

		opened, fired, err := s.checkout.AutoTrigger(traceCtx, sess)
		if err != nil {
			logger.Warn("Automatic checkout failed", zap.String("session_id", sess.ID.String()), zap.Error(err))
			return nil
		}
		if fired {
			handoff = &opened
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return SubmitOutcome{}, err
	}

	return SubmitOutcome{Result: resolveResult(sess), Checkout: handoff}, nil
}

func (s *Service) Result(ctx context.Context, id uuid.UUID) (result.View, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return result.View{}, err
	}
	return resolveResult(sess), nil
}

// OpenCheckout opens checkout on request, for example after the automatic
// attempt was skipped or the visitor picked another plan.
func (s *Service) OpenCheckout(ctx context.Context, id uuid.UUID, planID string) (checkout.Handoff, error) {
	traceCtx, span := s.tracer.Start(ctx, "OpenCheckout")
	defer span.End()

	var handoff checkout.Handoff
	_, err := s.update(traceCtx, id, func(sess *session.Session) error {
		var err error
		handoff, err = s.checkout.Open(traceCtx, sess, planID, checkout.TriggerManual)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return checkout.Handoff{}, err
	}
	return handoff, nil
}

func resolveResult(sess session.Session) result.View {
	state := result.State{
		PurchaseSucceeded: sess.PurchaseSucceeded,
		PincodeNotice:     sess.Wizard.PincodeNotice,
	}
	if o := sess.Outcome; o != nil {
		state.Error = o.Error
		state.Failed = !o.Success
		state.Coverage = o.Coverage
		state.Success = o.Success
		state.Message = o.Message
	}
	return result.Resolve(state)
}

var displayable = []error{
	internal.ErrMissingVerification,
	internal.ErrInvalidVerification,
	internal.ErrEmptySubmission,
	internal.ErrIdentityProvider,
}

// displayError keeps messages meant for the visitor and hides the rest
// behind the generic fallback.
func displayError(err error) string {
	for _, target := range displayable {
		if errors.Is(err, target) {
			return err.Error()
		}
	}
	return result.FallbackError
}
