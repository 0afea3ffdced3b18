package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both absent orders and orders owned by another
	// client, so callers cannot probe for other users' orders.
	ErrNotFound = errors.New("order not found")

	ErrUnauthenticated = errors.New("no authenticated client")
)

// ValidationError rejects a create or update request with field detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
