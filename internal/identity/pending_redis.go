package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"slimwell/intake-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	pendingKeyPrefix = "intake:verification:"
	// expiredGrace keeps an expired entry around long enough to answer
	// ErrCodeExpired instead of ErrVerificationNotFound.
	expiredGrace = 5 * time.Minute
)

// RedisPendingStore shares pending verifications between instances, so a
// code sent through one instance can be confirmed through another.
type RedisPendingStore struct {
	logger *zap.Logger
	tracer trace.Tracer
	client *redis.Client
	now    func() time.Time
}

func NewRedisPendingStore(logger *zap.Logger, client *redis.Client) *RedisPendingStore {
	return &RedisPendingStore{
		logger: logger,
		tracer: otel.Tracer("identity/pending"),
		client: client,
		now:    time.Now,
	}
}

func (r *RedisPendingStore) Put(ctx context.Context, id string, p Pending) error {
	traceCtx, span := r.tracer.Start(ctx, "Put")
	defer span.End()
	logger := logutil.WithContext(traceCtx, r.logger)

	data, err := json.Marshal(p)
	if err != nil {
		span.RecordError(err)
		return err
	}

	ttl := p.ExpiresAt.Sub(r.now()) + expiredGrace
	if err := r.client.Set(traceCtx, pendingKeyPrefix+id, data, ttl).Err(); err != nil {
		logger.Error("Failed to store pending verification", zap.String("verification_id", id), zap.Error(err))
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *RedisPendingStore) Get(ctx context.Context, id string) (Pending, error) {
	traceCtx, span := r.tracer.Start(ctx, "Get")
	defer span.End()

	data, err := r.client.Get(traceCtx, pendingKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, internal.ErrVerificationNotFound
	}
	if err != nil {
		span.RecordError(err)
		return Pending{}, err
	}

	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		span.RecordError(err)
		return Pending{}, err
	}
	if r.now().After(p.ExpiresAt) {
		_ = r.client.Del(traceCtx, pendingKeyPrefix+id).Err()
		return Pending{}, internal.ErrCodeExpired
	}
	return p, nil
}

func (r *RedisPendingStore) Delete(ctx context.Context, id string) error {
	traceCtx, span := r.tracer.Start(ctx, "Delete")
	defer span.End()

	if err := r.client.Del(traceCtx, pendingKeyPrefix+id).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
