package identity

import (
	"net/http"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ChallengeRequest struct {
	ContainerID string `json:"containerId" validate:"required,max=128"`
}

type ChallengeResponse struct {
	ChallengeToken string `json:"challengeToken"`
}

type SendRequest struct {
	MobileNumber   string `json:"mobileNumber" validate:"required"`
	ContainerID    string `json:"containerId" validate:"required"`
	ChallengeToken string `json:"challengeToken" validate:"required"`
}

type SendResponse struct {
	VerificationID string `json:"verificationId"`
}

type ConfirmRequest struct {
	VerificationID string `json:"verificationId" validate:"required"`
	Code           string `json:"code" validate:"required,numeric,len=6"`
	Name           string `json:"name" validate:"required"`
}

type VerifyRequest struct {
	VerificationToken string `json:"verificationToken" validate:"required"`
	Name              string `json:"name" validate:"required"`
}

type Handler struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	service       *Service
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, service *Service) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("identity/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		service:       service,
	}
}

func (h *Handler) AcquireChallenge(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "AcquireChallenge")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req ChallengeRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	lease, err := h.service.AcquireChallenge(traceCtx, req.ContainerID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, ChallengeResponse{ChallengeToken: lease.Token})
}

func (h *Handler) ReleaseChallenge(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ReleaseChallenge")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	if err := h.service.ReleaseChallenge(traceCtx, r.PathValue("containerId")); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SendCode(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "SendCode")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req SendRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handle, err := h.service.SendCode(traceCtx, req.MobileNumber, req.ContainerID, req.ChallengeToken)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SendResponse{VerificationID: handle.VerificationID})
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Confirm")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req ConfirmRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	cred, err := h.service.Handle(req.VerificationID).Confirm(traceCtx, req.Code)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	confirmation, err := h.service.OpenSession(traceCtx, cred, req.Name)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, confirmation)
}

func (h *Handler) VerifyIdentity(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "VerifyIdentity")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req VerifyRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	confirmation, err := h.service.VerifyIdentity(traceCtx, req.VerificationToken, req.Name)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, confirmation)
}
