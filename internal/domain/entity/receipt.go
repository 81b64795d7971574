package entity

import "time"

// AttributeStripeCustomerID is the subscriber attribute that links a receipt to its Stripe customer.
const AttributeStripeCustomerID = "stripe_customer_id"

// ReceiptRequest is posted to the entitlement service to attribute a purchase to an app user.
type ReceiptRequest struct {
	AppUserID  string            `json:"app_user_id" validate:"required"`
	FetchToken string            `json:"fetch_token" validate:"required"`
	Attributes map[string]string `json:"attributes"`
}

// ReceiptAck acknowledges an accepted receipt.
type ReceiptAck struct {
	StatusCode int
}

// DeadLetter is a receipt that could not be delivered and needs manual reconciliation.
type DeadLetter struct {
	ID        string         `json:"id"`
	EventID   string         `json:"event_id,omitempty"`
	Request   ReceiptRequest `json:"request"`
	Attempts  int            `json:"attempts"`
	Retryable bool           `json:"retryable"`
	LastError string         `json:"last_error"`
	FailedAt  time.Time      `json:"failed_at"`
}
