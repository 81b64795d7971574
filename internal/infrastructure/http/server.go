package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	handlers "github.com/MitchellMonaghan/stripe-no-website-example/internal/adapter/handler/http"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/config"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/middleware/auth"
	pkgerrors "github.com/MitchellMonaghan/stripe-no-website-example/pkg/errors"
	"github.com/MitchellMonaghan/stripe-no-website-example/pkg/logger"
	"github.com/MitchellMonaghan/stripe-no-website-example/web"
)

// Handlers groups the route handlers the server mounts.
type Handlers struct {
	Webhook  *handlers.WebhookHandler
	Cancel   *handlers.CancelHandler
	Checkout *handlers.CheckoutHandler
	System   *handlers.SystemHandler
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
}

func NewServer(cfg *config.Config, log *zap.Logger, h Handlers) (*Server, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger = logger.NewEchoZapLogger(log)
	e.Renderer = renderer

	s := &Server{
		config: cfg,
		logger: log,
		echo:   e,
	}
	e.HTTPErrorHandler = s.handleError

	// Middleware
	e.Use(middleware.Recover())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.BodyLimit("2M"))
	if len(cfg.CORS.Origins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORS.Origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
		}))
	}

	s.setupRoutes(h)
	return s, nil
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server",
		zap.String("address", addr),
		zap.Bool("test_mode", s.config.Service.TestMode))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets the server be driven directly by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) setupRoutes(h Handlers) {
	s.echo.GET("/", h.System.Landing)
	s.echo.GET("/health", h.System.Health)

	s.echo.GET("/purchase/:userId/:productId", h.Checkout.RedirectToCheckout)
	s.echo.GET("/cancel/:email", h.Cancel.CancelAccount, s.cancelMiddleware()...)

	s.echo.POST("/webhooks/stripe", h.Webhook.HandleStripeWebhook)
}

// cancelMiddleware gates the destructive cancellation route when the admin settings ask for it.
func (s *Server) cancelMiddleware() []echo.MiddlewareFunc {
	var mws []echo.MiddlewareFunc

	if s.config.Admin.RateLimit > 0 {
		burst := s.config.Admin.Burst
		if burst <= 0 {
			burst = int(s.config.Admin.RateLimit) + 1
		}
		mws = append(mws, middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.config.Admin.RateLimit),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			}),
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				s.logger.Warn("Cancellation rate limit exceeded", zap.String("identifier", identifier))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			},
		}))
	}

	if s.config.Admin.JWTSecret != "" {
		mws = append(mws, auth.JWTMiddleware(auth.JWTConfig{
			Secret:       s.config.Admin.JWTSecret,
			Logger:       s.logger,
			RequiredRole: "admin",
		}))
	}

	return mws
}

// handleError renders unmatched routes as 404 and unhandled errors as 500. The cause of a
// 500 is shown only in test mode.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := pkgerrors.ToHTTPError(err)
	status := he.Code

	message := http.StatusText(status)
	detail := ""
	if status >= http.StatusInternalServerError {
		pkgerrors.LogError(s.logger, err, "Unhandled request error",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI))
		if s.config.Service.TestMode {
			detail = err.Error()
		}
	} else if m, ok := he.Message.(string); ok && m != "" {
		message = m
	}

	var respErr error
	switch {
	case c.Request().Method == http.MethodHead:
		respErr = c.NoContent(status)
	case wantsJSON(c.Request()):
		body := echo.Map{"error": message}
		if detail != "" {
			body["detail"] = detail
		}
		respErr = c.JSON(status, body)
	default:
		respErr = c.Render(status, web.TemplateError, echo.Map{
			"Status":     status,
			"StatusText": http.StatusText(status),
			"Message":    message,
			"Detail":     detail,
		})
	}
	if respErr != nil {
		s.logger.Error("Failed to write error response", zap.Error(respErr))
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
