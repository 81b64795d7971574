package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	"github.com/MitchellMonaghan/stripe-no-website-example/web"
)

// CheckoutConfig is the static part of every checkout redirect page.
type CheckoutConfig struct {
	PublishableKey string
	SuccessURL     string
	CancelURL      string
	TestMode       bool
}

type CheckoutHandler struct {
	config CheckoutConfig
	logger *zap.Logger
}

func NewCheckoutHandler(config CheckoutConfig, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		config: config,
		logger: logger,
	}
}

// RedirectToCheckout handles GET /purchase/:userId/:productId?email= by rendering a page
// that sends the browser to Stripe Checkout.
func (h *CheckoutHandler) RedirectToCheckout(c echo.Context) error {
	data := entity.CheckoutContext{
		UserID:         c.Param("userId"),
		Email:          c.QueryParam("email"),
		PublishableKey: h.config.PublishableKey,
		SuccessURL:     h.config.SuccessURL,
		CancelURL:      h.config.CancelURL,
		ProductID:      c.Param("productId"),
		TestMode:       h.config.TestMode,
	}

	h.logger.Debug("Rendering checkout redirect",
		zap.String("user_id", data.UserID),
		zap.String("product_id", data.ProductID))

	return c.Render(http.StatusOK, web.TemplateRedirectToCheckout, data)
}
