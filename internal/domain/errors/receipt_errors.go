package errors

import "errors"

var (
	// ErrMissingCheckoutObject indicates an event without data.object
	ErrMissingCheckoutObject = errors.New("no checkout object in event")

	// ErrInvalidReceipt indicates a receipt missing app_user_id or fetch_token
	ErrInvalidReceipt = errors.New("invalid receipt request")

	// ErrForwarderClosed indicates a dispatch after shutdown started
	ErrForwarderClosed = errors.New("receipt forwarder is shut down")

	// ErrInvalidSignature indicates a webhook whose Stripe-Signature did not verify
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)
