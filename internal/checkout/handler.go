package checkout

import (
	"context"
	"io"
	"net/http"

	"slimwell/intake-backend/internal"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	SignatureHeader = "Stripe-Signature"
	maxWebhookBytes = 64 << 10
)

type WebhookStore interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// WebhookHandler receives gateway callbacks. Opening a checkout is served by
// the intake handler because it needs the locked intake session.
type WebhookHandler struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	problemWriter *problem.HttpWriter
	store         WebhookStore
}

func NewWebhookHandler(logger *zap.Logger, problemWriter *problem.HttpWriter, store WebhookStore) *WebhookHandler {
	return &WebhookHandler{
		logger:        logger,
		tracer:        otel.Tracer("checkout/handler"),
		problemWriter: problemWriter,
		store:         store,
	}
}

func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Webhook")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidWebhook, logger)
		return
	}

	if err := h.store.HandleWebhook(traceCtx, payload, r.Header.Get(SignatureHeader)); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, map[string]bool{"received": true})
}
