package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SignInResult is the credential returned when a code is confirmed.
type SignInResult struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	PhoneNumber  string `json:"phoneNumber"`
}

// Client talks to the Identity Toolkit phone-auth REST API.
type Client struct {
	logger  *zap.Logger
	tracer  trace.Tracer
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewClient(logger *zap.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		logger: logger,
		tracer: otel.Tracer("identity/client"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/accounts:%s?key=%s", c.baseURL, method, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if jsonErr := json.Unmarshal(data, &apiErr); jsonErr != nil || apiErr.Error.Message == "" {
			return &ProviderError{Status: resp.StatusCode}
		}
		return newProviderError(resp.StatusCode, apiErr.Error.Message)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// SendVerificationCode asks the provider to text a code to phone. The
// returned session info identifies the pending verification.
func (c *Client) SendVerificationCode(ctx context.Context, phone, challengeToken string) (string, error) {
	traceCtx, span := c.tracer.Start(ctx, "SendVerificationCode")
	defer span.End()
	logger := logutil.WithContext(traceCtx, c.logger)

	var resp struct {
		SessionInfo string `json:"sessionInfo"`
	}
	err := c.call(traceCtx, "sendVerificationCode", map[string]string{
		"phoneNumber":    phone,
		"recaptchaToken": challengeToken,
	}, &resp)
	if err != nil {
		logger.Warn("Identity provider rejected code request", zap.Error(err))
		span.RecordError(err)
		return "", err
	}

	return resp.SessionInfo, nil
}

func (c *Client) SignInWithPhoneNumber(ctx context.Context, sessionInfo, code string) (SignInResult, error) {
	traceCtx, span := c.tracer.Start(ctx, "SignInWithPhoneNumber")
	defer span.End()
	logger := logutil.WithContext(traceCtx, c.logger)

	var result SignInResult
	err := c.call(traceCtx, "signInWithPhoneNumber", map[string]string{
		"sessionInfo": sessionInfo,
		"code":        code,
	}, &result)
	if err != nil {
		logger.Warn("Identity provider rejected verification code", zap.Error(err))
		span.RecordError(err)
		return SignInResult{}, err
	}

	return result, nil
}

// Lookup resolves an id token to the verified phone number. Transport errors
// and 5xx answers are retried; provider rejections are not.
func (c *Client) Lookup(ctx context.Context, idToken string) (string, error) {
	traceCtx, span := c.tracer.Start(ctx, "Lookup")
	defer span.End()
	logger := logutil.WithContext(traceCtx, c.logger)

	var resp struct {
		Users []struct {
			PhoneNumber string `json:"phoneNumber"`
		} `json:"users"`
	}

	operation := func() error {
		err := c.call(traceCtx, "lookup", map[string]string{"idToken": idToken}, &resp)
		var perr *ProviderError
		if errors.As(err, &perr) && perr.Status < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), traceCtx)
	if err := backoff.Retry(operation, policy); err != nil {
		logger.Warn("Identity token lookup failed", zap.Error(err))
		span.RecordError(err)
		return "", err
	}

	if len(resp.Users) == 0 || resp.Users[0].PhoneNumber == "" {
		err := newProviderError(http.StatusBadRequest, "INVALID_ID_TOKEN")
		span.RecordError(err)
		return "", err
	}

	return resp.Users[0].PhoneNumber, nil
}
