package plan

import (
	"context"
	"net/http"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Response struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Price               int32  `json:"price"`
	OriginalPrice       *int32 `json:"originalPrice,omitempty"`
	Currency            string `json:"currency"`
	IsDefault           bool   `json:"isDefault"`
	DurationDays        int32  `json:"durationDays"`
	InsuranceProviderID string `json:"insuranceProviderId,omitempty"`
}

type ListResponse struct {
	Plans []Response `json:"plans"`
}

func ToResponse(p Plan) Response {
	r := Response{
		ID:                  p.ID,
		Name:                p.Name,
		Price:               p.Price,
		Currency:            p.Currency,
		IsDefault:           p.IsDefault,
		DurationDays:        p.DurationDays,
		InsuranceProviderID: p.InsuranceProviderID.String,
	}
	if p.OriginalPrice.Valid {
		original := p.OriginalPrice.Int32
		r.OriginalPrice = &original
	}
	return r
}

type Store interface {
	List(ctx context.Context, providerID string) ([]Plan, error)
}

type Handler struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	problemWriter *problem.HttpWriter
	store         Store
}

func NewHandler(logger *zap.Logger, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("plan/handler"),
		problemWriter: problemWriter,
		store:         store,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "List")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	plans, err := h.store.List(traceCtx, r.URL.Query().Get("insuranceProviderId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	response := ListResponse{Plans: make([]Response, 0, len(plans))}
	for _, p := range plans {
		response.Plans = append(response.Plans, ToResponse(p))
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, response)
}
