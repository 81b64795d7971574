package errors

import "errors"

var (
	// ErrInvalidEmail indicates an email path parameter that could not be decoded
	ErrInvalidEmail = errors.New("invalid email")

	// ErrCustomerSearchFailed indicates the gateway customer search failed
	ErrCustomerSearchFailed = errors.New("customer search failed")

	// ErrPartialCancellation indicates some matched customers could not be deleted
	ErrPartialCancellation = errors.New("some customers could not be deleted")
)
