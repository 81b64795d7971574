package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/MitchellMonaghan/stripe-no-website-example/internal/domain/errors"
)

func TestPurchaseEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"checkout object", `{"data":{"object":{"client_reference_id":"u1"}}}`, nil},
		{"no data", `{}`, domainErrors.ErrMissingCheckoutObject},
		{"empty data", `{"data":{}}`, domainErrors.ErrMissingCheckoutObject},
		{"null object", `{"data":{"object":null}}`, domainErrors.ErrMissingCheckoutObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event PurchaseEvent
			require.NoError(t, json.Unmarshal([]byte(tt.body), &event))

			err := event.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPurchaseEvent_IsRelevant(t *testing.T) {
	assert.True(t, (&PurchaseEvent{}).IsRelevant())
	assert.True(t, (&PurchaseEvent{Type: EventTypeCheckoutSessionCompleted}).IsRelevant())
	assert.False(t, (&PurchaseEvent{Type: "invoice.paid"}).IsRelevant())
}

func TestCheckoutObject_ToReceipt(t *testing.T) {
	receipt := CheckoutObject{ClientReferenceID: "u1", Subscription: "sub_1", Customer: "cus_1"}.ToReceipt()

	assert.Equal(t, ReceiptRequest{
		AppUserID:  "u1",
		FetchToken: "sub_1",
		Attributes: map[string]string{AttributeStripeCustomerID: "cus_1"},
	}, receipt)
}
