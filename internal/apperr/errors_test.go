package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: EInternal},
		{name: "coded", err: Conflict("sku taken"), want: EConflict},
		{name: "wrapped coded", err: fmt.Errorf("create product: %w", NotFound("product not found")), want: ENotFound},
		{name: "code from cause", err: &Error{Err: Forbidden("nope")}, want: EForbidden},
		{name: "empty", err: &Error{}, want: EInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "An internal error has occurred.", ErrorMessage(errors.New("pq: connection refused")))
	assert.Equal(t, "price must be greater than zero", ErrorMessage(Invalid("price must be greater than zero")))
	assert.Equal(t, "cannot accept from status \"rejected\"", ErrorMessage(InvalidTransition("accept", "rejected")))
}

func TestErrorString(t *testing.T) {
	err := &Error{Code: EInternal, Msg: "load quote", Err: errors.New("timeout")}
	assert.Equal(t, "load quote: timeout", err.Error())
	assert.Equal(t, "<conflict>", (&Error{Code: EConflict}).Error())
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("resolve: %w", &Error{Code: ENoPriceAvailable})
	assert.True(t, errors.Is(err, ErrNoPriceAvailable))
	assert.False(t, errors.Is(Conflict("x"), ErrNoPriceAvailable))
	assert.True(t, Is(err, ENoPriceAvailable))
}
