package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"slimwell/intake-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix = "intake:session:"
	lockKeyPrefix    = "intake:lock:"
)

// unlockScript deletes the lock key only when it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisStore struct {
	logger *zap.Logger
	tracer trace.Tracer
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects and pings the server described by a redis:// URL.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = 50
	opts.MinIdleConns = 5

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func NewRedisStore(logger *zap.Logger, client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		logger: logger,
		tracer: otel.Tracer("session/redis"),
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	traceCtx, span := r.tracer.Start(ctx, "Get")
	defer span.End()
	logger := logutil.WithContext(traceCtx, r.logger)

	data, err := r.client.Get(traceCtx, sessionKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, internal.ErrSessionNotFound
	}
	if err != nil {
		logger.Error("Failed to read session from redis", zap.String("session_id", id.String()), zap.Error(err))
		span.RecordError(err)
		return Session{}, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		logger.Error("Failed to decode session", zap.String("session_id", id.String()), zap.Error(err))
		span.RecordError(err)
		return Session{}, err
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	traceCtx, span := r.tracer.Start(ctx, "Save")
	defer span.End()
	logger := logutil.WithContext(traceCtx, r.logger)

	data, err := json.Marshal(s)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := r.client.Set(traceCtx, sessionKeyPrefix+s.ID.String(), data, r.ttl).Err(); err != nil {
		logger.Error("Failed to write session to redis", zap.String("session_id", s.ID.String()), zap.Error(err))
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	traceCtx, span := r.tracer.Start(ctx, "Delete")
	defer span.End()

	if err := r.client.Del(traceCtx, sessionKeyPrefix+id.String()).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// TryLock takes a short-lived exclusive lock on the session with SET NX. The
// returned token identifies the holder for Unlock.
func (r *RedisStore) TryLock(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, bool, error) {
	traceCtx, span := r.tracer.Start(ctx, "TryLock")
	defer span.End()

	token := uuid.NewString()
	ok, err := r.client.SetNX(traceCtx, lockKeyPrefix+id.String(), token, ttl).Result()
	if err != nil {
		span.RecordError(err)
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisStore) Unlock(ctx context.Context, id uuid.UUID, token string) error {
	traceCtx, span := r.tracer.Start(ctx, "Unlock")
	defer span.End()

	deleted, err := unlockScript.Run(traceCtx, r.client, []string{lockKeyPrefix + id.String()}, token).Int()
	if err != nil {
		span.RecordError(err)
		return err
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
