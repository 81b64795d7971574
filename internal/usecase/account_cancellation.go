package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/entity"
	domainErrors "github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/errors"
	"github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/provider"
	pkgerrors "github.com/MitchellMonaghan/stripe-no-website-example/pkg/errors"
)

// AccountCancellation deletes every payment gateway customer registered under an email.
type AccountCancellation struct {
	gateway provider.CustomerGateway
	metrics provider.MetricsRecorder
	logger  *zap.Logger
}

func NewAccountCancellation(gateway provider.CustomerGateway, metrics provider.MetricsRecorder, logger *zap.Logger) *AccountCancellation {
	return &AccountCancellation{
		gateway: gateway,
		metrics: metrics,
		logger:  logger,
	}
}

// Cancel searches customers by email and attempts to delete each one, continuing past
// failures. The result is returned alongside a BAD_GATEWAY error when any delete failed.
func (u *AccountCancellation) Cancel(ctx context.Context, email string) (*entity.CancellationResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "email is required", domainErrors.ErrInvalidEmail)
	}

	customers, err := u.gateway.SearchCustomersByEmail(ctx, email)
	if err != nil {
		u.logger.Error("Customer search failed",
			zap.String("email", email),
			zap.Error(err))
		return nil, pkgerrors.NewAppError(pkgerrors.ErrBadGateway, "customer search failed",
			pkgerrors.Join(domainErrors.ErrCustomerSearchFailed, err))
	}

	result := &entity.CancellationResult{
		Email:      email,
		Matched:    len(customers),
		DeletedIDs: make([]string, 0, len(customers)),
		FailedIDs:  make([]string, 0),
	}

	var deleteErrs []error
	for _, customer := range customers {
		if err := u.gateway.DeleteCustomer(ctx, customer.ID); err != nil {
			u.logger.Error("Failed to delete customer",
				zap.String("email", email),
				zap.String("customer_id", customer.ID),
				zap.Error(err))
			u.count(ctx, provider.MetricCustomerDeleteFailed, map[string]string{
				provider.DimensionStatus: statusDimension(err),
			})
			result.FailedIDs = append(result.FailedIDs, customer.ID)
			deleteErrs = append(deleteErrs, err)
			continue
		}
		result.DeletedIDs = append(result.DeletedIDs, customer.ID)
	}

	u.logger.Info("Account cancellation finished",
		zap.String("email", email),
		zap.Int("matched", result.Matched),
		zap.Int("deleted", len(result.DeletedIDs)),
		zap.Int("failed", len(result.FailedIDs)))

	if !result.Complete() {
		cause := append([]error{domainErrors.ErrPartialCancellation}, deleteErrs...)
		return result, pkgerrors.NewAppError(pkgerrors.ErrBadGateway, "some customers could not be deleted",
			pkgerrors.Join(cause...))
	}
	return result, nil
}

func (u *AccountCancellation) count(ctx context.Context, metric string, dims map[string]string) {
	if err := u.metrics.RecordCount(ctx, metric, dims); err != nil {
		u.logger.Debug("Failed to record metric", zap.String("metric", metric), zap.Error(err))
	}
}
