package submission

import (
	"context"
	"fmt"
	"net/http"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SubmitRequest struct {
	Answers             []Pair    `json:"answers" validate:"required,min=1,dive"`
	InsuranceProviderID string    `json:"insuranceProviderId"`
	VerificationToken   string    `json:"verificationToken"`
	Name                string    `json:"name"`
	SubmissionID        uuid.UUID `json:"submissionId"`
}

type Store interface {
	Submit(ctx context.Context, req Request) (Result, error)
	Export(ctx context.Context, id uuid.UUID) ([]byte, error)
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
		tracer:        otel.Tracer("submission/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
	}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Submit")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req SubmitRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	result, err := h.store.Submit(traceCtx, Request{
		Answers:             req.Answers,
		InsuranceProviderID: req.InsuranceProviderID,
		VerificationToken:   req.VerificationToken,
		Name:                req.Name,
		SubmissionID:        req.SubmissionID,
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, result)
}

// Export serves the stored submission as a spreadsheet. Access is checked by
// the operator middleware in front of this route.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Export")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	data, err := h.store.Export(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="submission-%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warn("Failed to write export body", zap.Error(err))
	}
}
