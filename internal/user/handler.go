package user

import (
	"context"
	"net/http"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/session"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type PreRegisterRequest struct {
	Name         string `json:"name" validate:"required,person_name"`
	MobileNumber string `json:"mobileNumber" validate:"required,mobile_number"`
}

type CheckRegistrationRequest struct {
	MobileNumber string `json:"mobileNumber" validate:"required,mobile_number"`
}

type Me struct {
	MobileNumber      string `json:"mobileNumber"`
	Name              string `json:"name"`
	Verified          bool   `json:"verified"`
	HasQuizSubmission bool   `json:"hasQuizSubmission"`
}

type MeResponse struct {
	User *Me `json:"user,omitempty"`
}

type Store interface {
	PreRegister(ctx context.Context, name, mobileNumber string) (Registration, error)
	CheckRegistration(ctx context.Context, mobileNumber string) Status
	GetByMobileNumber(ctx context.Context, mobileNumber string) (Registration, error)
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
		tracer:        otel.Tracer("user/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
	}
}

func (h *Handler) PreRegister(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "PreRegister")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req PreRegisterRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if _, err := h.store.PreRegister(traceCtx, req.Name, req.MobileNumber); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CheckRegistration(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CheckRegistration")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req CheckRegistrationRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, h.store.CheckRegistration(traceCtx, req.MobileNumber))
}

// GetMe returns the registration behind the current intake session. With
// ?optional=1 a missing session yields an empty object instead of 401.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetMe")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	optional := r.URL.Query().Get("optional") == "1"

	current, ok := session.GetFromContext(traceCtx)
	if !ok {
		if optional {
			handlerutil.WriteJSONResponse(w, http.StatusOK, MeResponse{})
			return
		}
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoSessionInContext, logger)
		return
	}

	me := &Me{
		MobileNumber: current.Phone,
		Name:         current.Name,
	}

	registration, err := h.store.GetByMobileNumber(traceCtx, current.Phone)
	switch {
	case err == nil:
		me.Name = registration.Name
		me.Verified = registration.VerifiedAt.Valid
		me.HasQuizSubmission = registration.HasQuizSubmission
	case optional:
		logger.Debug("Registration lookup failed for optional profile", zap.Error(err))
	default:
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, MeResponse{User: me})
}
