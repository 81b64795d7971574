package entity

import (
	"encoding/json"

	domainErrors "github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/errors"
)

// EventTypeCheckoutSessionCompleted is the only event type that carries a purchase to relay.
const EventTypeCheckoutSessionCompleted = "checkout.session.completed"

// PurchaseEvent is the subset of a Stripe event envelope the relay reads.
type PurchaseEvent struct {
	ID   string            `json:"id,omitempty"`
	Type string            `json:"type,omitempty"`
	Data PurchaseEventData `json:"data"`
}

// PurchaseEventData holds the raw embedded object so its absence can be detected.
type PurchaseEventData struct {
	Object json.RawMessage `json:"object,omitempty"`
}

// CheckoutObject is the completed checkout session embedded in the event.
type CheckoutObject struct {
	ClientReferenceID string `json:"client_reference_id"`
	Subscription      string `json:"subscription"`
	Customer          string `json:"customer"`
}

// HasObject reports whether the event embeds an object at data.object.
func (e *PurchaseEvent) HasObject() bool {
	obj := e.Data.Object
	return len(obj) > 0 && string(obj) != "null"
}

// Validate rejects an event with no embedded object; it carries no attributable purchase.
func (e *PurchaseEvent) Validate() error {
	if !e.HasObject() {
		return domainErrors.ErrMissingCheckoutObject
	}
	return nil
}

// IsRelevant reports whether the event type describes a completed checkout. Untyped
// events are treated as checkouts.
func (e *PurchaseEvent) IsRelevant() bool {
	return e.Type == "" || e.Type == EventTypeCheckoutSessionCompleted
}

// ToReceipt maps a checkout object onto the entitlement receipt.
func (o CheckoutObject) ToReceipt() ReceiptRequest {
	return ReceiptRequest{
		AppUserID:  o.ClientReferenceID,
		FetchToken: o.Subscription,
		Attributes: map[string]string{
			AttributeStripeCustomerID: o.Customer,
		},
	}
}
