package revenuecat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	domainErrors "github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/errors"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/provider"
)

const (
	providerName    = "revenuecat"
	receiptsPath    = "/receipts"
	defaultPlatform = "stripe"
	maxErrorBody    = 4 << 10
)

// Client posts receipts to the RevenueCat REST API. It holds no mutable state and is
// shared by every in-flight webhook.
type Client struct {
	baseURL  string
	apiKey   string
	platform string
	client   *http.Client
	validate *validator.Validate
	logger   *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithPlatform sets the X-Platform header value.
func WithPlatform(platform string) Option {
	return func(c *Client) {
		if platform != "" {
			c.platform = platform
		}
	}
}

// NewClient creates a client bound to one base URL and one bearer credential.
// timeout bounds each request.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		platform: defaultPlatform,
		client:   &http.Client{Timeout: timeout},
		validate: validator.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitReceipt posts a receipt attributing fetchToken to appUserID.
// POST {base}/receipts
func (c *Client) SubmitReceipt(ctx context.Context, appUserID, fetchToken string, attributes map[string]string) (*entity.ReceiptAck, error) {
	req := entity.ReceiptRequest{
		AppUserID:  appUserID,
		FetchToken: fetchToken,
		Attributes: attributes,
	}
	if req.Attributes == nil {
		req.Attributes = map[string]string{}
	}

	if err := c.validate.Struct(req); err != nil {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalidRequest,
			Message:  "receipt is missing required fields",
			Details:  err.Error(),
			Err:      errors.Join(domainErrors.ErrInvalidReceipt, err),
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalidRequest,
			Message:  "failed to encode receipt",
			Err:      err,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+receiptsPath, bytes.NewReader(body))
	if err != nil {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalidRequest,
			Message:  "failed to create request",
			Err:      err,
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-Platform", c.platform)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		code := provider.CodeTransport
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			code = provider.CodeTimeout
		}
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     code,
			Message:  "receipt request failed",
			Details:  err.Error(),
			Err:      err,
		}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code := provider.CodeRejected
		if provider.IsRetryableStatus(resp.StatusCode) {
			code = provider.CodeUnavailable
		}
		return nil, &provider.ProviderError{
			Provider:   providerName,
			Code:       code,
			Message:    errorMessage(respBody, resp.StatusCode),
			StatusCode: resp.StatusCode,
			Details:    string(respBody),
		}
	}

	c.logger.Debug("Receipt accepted",
		zap.String("app_user_id", appUserID),
		zap.Int("status_code", resp.StatusCode))

	return &entity.ReceiptAck{StatusCode: resp.StatusCode}, nil
}

// errorResponse is the RevenueCat error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func errorMessage(body []byte, status int) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return errResp.Message
	}
	return fmt.Sprintf("unexpected response: %s", http.StatusText(status))
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
