package entity

// CheckoutContext is rendered into the redirect-to-checkout page.
type CheckoutContext struct {
	UserID         string
	Email          string
	PublishableKey string
	SuccessURL     string
	CancelURL      string
	ProductID      string
	TestMode       bool
}
