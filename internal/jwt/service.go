package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"slimwell/intake-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const Issuer = "intake-backend"

type Service struct {
	logger     *zap.Logger
	tracer     trace.Tracer
	secret     string
	expiration time.Duration
	now        func() time.Time
}

func NewService(logger *zap.Logger, secret string, expiration time.Duration) *Service {
	return &Service{
		logger:     logger,
		tracer:     otel.Tracer("jwt/service"),
		secret:     secret,
		expiration: expiration,
		now:        time.Now,
	}
}

// claims identifies one intake session. Phone is carried for logging only;
// the session store stays the source of truth.
type claims struct {
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

// New signs a session token for an intake session.
func (s Service) New(ctx context.Context, sessionID uuid.UUID, phone string) (string, error) {
	traceCtx, span := s.tracer.Start(ctx, "New")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	now := s.now()
	c := &claims{
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   sessionID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		logger.Error("failed to sign session token", zap.Error(err), zap.String("session_id", sessionID.String()))
		span.RecordError(err)
		return "", err
	}

	logger.Debug("Generated session token", zap.String("session_id", sessionID.String()))
	return tokenString, nil
}

// Parse validates a session token and returns the session id it carries.
func (s Service) Parse(ctx context.Context, tokenString string) (uuid.UUID, error) {
	traceCtx, span := s.tracer.Start(ctx, "Parse")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	secret := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	}

	tokenClaims := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, tokenClaims, secret,
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			logger.Warn("Failed to parse session token due to malformed structure", zap.String("error", err.Error()))
		case errors.Is(err, jwt.ErrSignatureInvalid):
			logger.Warn("Failed to parse session token due to invalid signature", zap.String("error", err.Error()))
		case errors.Is(err, jwt.ErrTokenExpired):
			logger.Warn("Failed to parse session token due to expired timestamp", zap.String("error", err.Error()))
		default:
			logger.Warn("Failed to parse session token", zap.Error(err))
		}
		return uuid.Nil, fmt.Errorf("%w: %v", internal.ErrInvalidJWTToken, err)
	}

	sessionID, err := uuid.Parse(tokenClaims.Subject)
	if err != nil {
		logger.Error("Failed to parse session ID from JWT subject", zap.Error(err))
		return uuid.Nil, fmt.Errorf("%w: %v", internal.ErrInvalidJWTToken, err)
	}

	return sessionID, nil
}
