package domain

import "time"

// PendingOrder is the order content staged before the customer is redirected
// to the hosted checkout. The correlation token is minted by us, so it is
// recoverable by whichever confirmation path reaches the admission service
// first, independent of the provider's payment identifier.
type PendingOrder struct {
	CorrelationToken string
	Content          OrderContent
	CreatedAt        time.Time
}
