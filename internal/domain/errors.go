package domain

import "errors"

var (
	// ErrPaymentNotApproved is terminal: the provider reports a status other
	// than approved for this payment. Callers must not retry.
	ErrPaymentNotApproved = errors.New("payment not approved")

	// ErrPaymentProviderUnavailable is transient: the provider could not be
	// reached before the deadline. No state has been mutated.
	ErrPaymentProviderUnavailable = errors.New("payment provider unavailable")

	// ErrOrderContentMissing means the staged order content for an approved
	// payment is gone (expired or never written) and no order exists either.
	ErrOrderContentMissing = errors.New("order content missing")

	// ErrSequenceContention is internal: the atomic admission step lost a
	// store-level race and should be retried. Never surfaced to callers.
	ErrSequenceContention = errors.New("order sequence contention")

	ErrProductNotFound = errors.New("product not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)
