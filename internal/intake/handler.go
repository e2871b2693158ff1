package intake

import (
	"context"
	"net/http"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/checkout"
	"slimwell/intake-backend/internal/quiz"
	"slimwell/intake-backend/internal/result"
	"slimwell/intake-backend/internal/session"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type AnswerRequest struct {
	QuestionID string      `json:"questionId" validate:"required"`
	Value      *quiz.Value `json:"value,omitempty"`
	Toggle     string      `json:"toggle,omitempty"`
}

type ContextRequest struct {
	PlanID                string `json:"planId" validate:"max=64"`
	Flow                  string `json:"flow" validate:"max=32"`
	InsuranceProviderID   string `json:"insuranceProviderId" validate:"max=64"`
	InsuranceProviderName string `json:"insuranceProviderName" validate:"max=255"`
}

type ContextResponse struct {
	Query string `json:"query"`
}

type CheckoutRequest struct {
	PlanID string `json:"planId" validate:"max=64"`
}

type StepsResponse struct {
	Steps []quiz.Step `json:"steps"`
}

type Store interface {
	Steps() []quiz.Step
	View(ctx context.Context, id uuid.UUID) (WizardView, error)
	SetAnswer(ctx context.Context, id uuid.UUID, key string, v quiz.Value) (WizardView, error)
	ToggleAnswer(ctx context.Context, id uuid.UUID, key, option string) (WizardView, error)
	SetContext(ctx context.Context, id uuid.UUID, flow session.FlowContext) (string, error)
	Next(ctx context.Context, id uuid.UUID) (WizardView, error)
	Back(ctx context.Context, id uuid.UUID) (WizardView, error)
	Restart(ctx context.Context, id uuid.UUID) (WizardView, error)
	Submit(ctx context.Context, id uuid.UUID) (SubmitOutcome, error)
	Result(ctx context.Context, id uuid.UUID) (result.View, error)
	OpenCheckout(ctx context.Context, id uuid.UUID, planID string) (checkout.Handoff, error)
}

type Handler struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	store         Store
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("intake/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
	}
}

func sessionID(ctx context.Context) (uuid.UUID, error) {
	id, ok := internal.GetSessionIDFromContext(ctx)
	if !ok {
		return uuid.Nil, internal.ErrNoSessionInContext
	}
	return id, nil
}

func (h *Handler) GetSteps(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "GetSteps")
	defer span.End()

	handlerutil.WriteJSONResponse(w, http.StatusOK, StepsResponse{Steps: h.store.Steps()})
}

// wizardAction wraps the endpoints that act on the caller's session and
// answer with the wizard view.
func (h *Handler) wizardAction(name string, action func(ctx context.Context, id uuid.UUID) (WizardView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := h.tracer.Start(r.Context(), name)
		defer span.End()
		logger := logutil.WithContext(traceCtx, h.logger)

		id, err := sessionID(traceCtx)
		if err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}

		view, err := action(traceCtx, id)
		if err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}

		handlerutil.WriteJSONResponse(w, http.StatusOK, view)
	}
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.wizardAction("GetSession", h.store.View)(w, r)
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.wizardAction("Next", h.store.Next)(w, r)
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	h.wizardAction("Back", h.store.Back)(w, r)
}

func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	h.wizardAction("Restart", h.store.Restart)(w, r)
}

func (h *Handler) PutAnswer(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "PutAnswer")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := sessionID(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req AnswerRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var view WizardView
	switch {
	case req.Toggle != "":
		view, err = h.store.ToggleAnswer(traceCtx, id, req.QuestionID, req.Toggle)
	case req.Value != nil:
		view, err = h.store.SetAnswer(traceCtx, id, req.QuestionID, *req.Value)
	default:
		err = internal.ErrInvalidAnswerValue
	}
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, view)
}

func (h *Handler) PutContext(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "PutContext")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := sessionID(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req ContextRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	query, err := h.store.SetContext(traceCtx, id, session.FlowContext{
		PlanID:                req.PlanID,
		Flow:                  req.Flow,
		InsuranceProviderID:   req.InsuranceProviderID,
		InsuranceProviderName: req.InsuranceProviderName,
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ContextResponse{Query: query})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Submit")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := sessionID(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	outcome, err := h.store.Submit(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, outcome)
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetResult")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := sessionID(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	view, err := h.store.Result(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, view)
}

func (h *Handler) OpenCheckout(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "OpenCheckout")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := sessionID(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req CheckoutRequest
	if r.ContentLength != 0 {
		if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
	}

	handoff, err := h.store.OpenCheckout(traceCtx, id, req.PlanID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, handoff)
}
