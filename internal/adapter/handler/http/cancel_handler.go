package http

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/middleware/auth"
	pkgerrors "github.com/MitchellMonaghan/stripe-no-website-example/pkg/errors"
)

// AccountCanceller deletes the payment customers registered under an email.
type AccountCanceller interface {
	Cancel(ctx context.Context, email string) (*entity.CancellationResult, error)
}

type CancelHandler struct {
	canceller AccountCanceller
	logger    *zap.Logger
}

func NewCancelHandler(canceller AccountCanceller, logger *zap.Logger) *CancelHandler {
	return &CancelHandler{
		canceller: canceller,
		logger:    logger,
	}
}

// CancelAccount handles GET /cancel/:email. A full success, zero matches included,
// answers 200 with an empty JSON object.
func (h *CancelHandler) CancelAccount(c echo.Context) error {
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		h.logger.Warn("Invalid email path parameter",
			zap.String("email", c.Param("email")),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid email",
		})
	}

	// Audit who asked for the deletion
	log := h.logger.With(zap.String("email", email))
	if operator, err := auth.GetOperatorFromContext(c); err == nil {
		log = log.With(
			zap.String("operator", operator.Subject),
			zap.String("operator_email", operator.Email))
	} else {
		log = log.With(zap.String("operator", "anonymous"))
	}
	log.Info("Account cancellation requested", zap.String("remote_ip", c.RealIP()))

	result, err := h.canceller.Cancel(c.Request().Context(), email)
	if err != nil {
		pkgerrors.LogError(log, err, "Account cancellation failed")

		status := pkgerrors.ToHTTPStatus(pkgerrors.CodeOf(err))
		body := echo.Map{"error": errorMessage(err)}
		if result != nil {
			body["deleted_ids"] = result.DeletedIDs
			body["failed_ids"] = result.FailedIDs
		}
		return c.JSON(status, body)
	}

	log.Info("Account cancelled", zap.Int("deleted", len(result.DeletedIDs)))
	return c.JSON(http.StatusOK, echo.Map{})
}

func errorMessage(err error) string {
	var appErr *pkgerrors.AppError
	if pkgerrors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}
