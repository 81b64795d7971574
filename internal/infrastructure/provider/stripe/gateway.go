package stripe

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	domainErrors "github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/errors"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/provider"
)

const providerName = "stripe"

// Gateway talks to the Stripe API with its own client.API, so the secret key never
// goes through the package-level stripe.Key.
type Gateway struct {
	api    *client.API
	logger *zap.Logger
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	SecretKey string
	// APIURL points the client at stripe-mock or a test server when set.
	APIURL            string
	HTTPClient        *http.Client
	MaxNetworkRetries int64
}

// NewGateway creates a Gateway bound to one secret key.
func NewGateway(cfg GatewayConfig, logger *zap.Logger) *Gateway {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     logger.Sugar(),
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	return &Gateway{api: api, logger: logger}
}

// SearchCustomersByEmail runs the customer search query email:"<addr>" and walks every page.
func (g *Gateway) SearchCustomersByEmail(ctx context.Context, email string) ([]entity.Customer, error) {
	params := &stripe.CustomerSearchParams{}
	params.Query = EmailQuery(email)
	params.Context = ctx

	iter := g.api.Customers.Search(params)

	customers := make([]entity.Customer, 0)
	for iter.Next() {
		c := iter.Customer()
		customers = append(customers, entity.Customer{ID: c.ID, Email: c.Email})
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeError(err, "customer search failed")
	}

	g.logger.Debug("Customer search completed",
		zap.String("email", email),
		zap.Int("matches", len(customers)))

	return customers, nil
}

// DeleteCustomer deletes a customer by id.
func (g *Gateway) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	if _, err := g.api.Customers.Del(customerID, params); err != nil {
		return wrapStripeError(err, "customer delete failed")
	}
	return nil
}

// EmailQuery builds an exact-match search query, escaping quotes and backslashes.
func EmailQuery(email string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(email)
	return `email:"` + escaped + `"`
}

func wrapStripeError(err error, msg string) error {
	pe := &provider.ProviderError{
		Provider: providerName,
		Code:     provider.CodeTransport,
		Message:  msg,
		Details:  err.Error(),
		Err:      err,
	}
	if stripeErr, ok := err.(*stripe.Error); ok {
		pe.StatusCode = stripeErr.HTTPStatusCode
		pe.Code = string(stripeErr.Code)
		if pe.Code == "" {
			pe.Code = string(stripeErr.Type)
		}
		if stripeErr.Msg != "" {
			pe.Details = stripeErr.Msg
		}
	}
	return pe
}

// SignatureVerifier checks the Stripe-Signature header of webhook payloads.
type SignatureVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewSignatureVerifier returns nil when secret is empty, which disables verification.
func NewSignatureVerifier(secret string, tolerance time.Duration) *SignatureVerifier {
	if secret == "" {
		return nil
	}
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &SignatureVerifier{secret: secret, tolerance: tolerance}
}

// Verify validates payload against the signature header.
func (v *SignatureVerifier) Verify(payload []byte, signature string) error {
	if err := webhook.ValidatePayloadWithTolerance(payload, signature, v.secret, v.tolerance); err != nil {
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalidRequest,
			Message:  "invalid webhook signature",
			Details:  err.Error(),
			Err:      domainErrors.ErrInvalidSignature,
		}
	}
	return nil
}
