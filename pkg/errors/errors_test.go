package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	inner := NewAppError(ErrBadGateway, "search failed", fmt.Errorf("connection reset"))
	wrapped := Wrap(inner, "cancel account")

	assert.Equal(t, ErrBadGateway, CodeOf(wrapped))
	assert.True(t, Is(wrapped, inner))
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain")))
}

func TestToHTTPError(t *testing.T) {
	httpErr := ToHTTPError(NewAppError(ErrInvalidArgument, "bad email", nil))
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Equal(t, "bad email", httpErr.Message)

	httpErr = ToHTTPError(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)

	assert.Nil(t, ToHTTPError(nil))
}

func TestFromHTTPStatus(t *testing.T) {
	cases := map[int]string{
		http.StatusTooManyRequests:     ErrTooManyRequests,
		http.StatusBadGateway:          ErrBadGateway,
		http.StatusServiceUnavailable:  ErrUnavailable,
		http.StatusBadRequest:          ErrInvalidArgument,
		http.StatusUnauthorized:        ErrUnauthenticated,
		http.StatusInternalServerError: ErrBadGateway,
	}
	for status, code := range cases {
		assert.Equal(t, code, FromHTTPStatus(status), "status %d", status)
	}
}
