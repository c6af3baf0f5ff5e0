package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrOrderNotFound       = errors.New("order_not_found")
	ErrStockNotFound       = errors.New("stock_not_found")
	ErrTraderNotFound      = errors.New("trader_not_found")
	ErrTraderAlreadyExists = errors.New("trader_already_exists")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrNotOrderOwner       = errors.New("not_order_owner")
	ErrNonPositiveQuantity = errors.New("non_positive_quantity")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StorageError wraps a failure of the underlying store. Callers must treat
// the operation that returned it as not applied.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
