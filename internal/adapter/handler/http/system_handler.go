package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/MitchellMonaghan/stripe-no-website-example/web"
)

type SystemHandler struct {
	serviceName string
	testMode    bool
}

func NewSystemHandler(serviceName string, testMode bool) *SystemHandler {
	return &SystemHandler{serviceName: serviceName, testMode: testMode}
}

func (h *SystemHandler) Landing(c echo.Context) error {
	return c.Render(http.StatusOK, web.TemplateLanding, echo.Map{"TestMode": h.testMode})
}

func (h *SystemHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "ok",
		"service":   h.serviceName,
		"test_mode": h.testMode,
	})
}
