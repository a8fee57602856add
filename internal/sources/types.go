package sources

import (
	"context"
	"errors"
)

var (
	// ErrLookupFailure covers transport errors, timeouts, non-200 statuses and an open breaker.
	ErrLookupFailure = errors.New("price lookup failed")
	// ErrMalformedResponse means the payload lacked the expected slug/currency keys.
	ErrMalformedResponse = errors.New("malformed price response")
)

// PriceLookup prices one crypto asset (by price-index slug) in one currency.
type PriceLookup interface {
	LookupPrice(ctx context.Context, assetSlug, vsCurrency string) (float64, error)
}

// LookupFunc adapts a plain function to PriceLookup.
type LookupFunc func(ctx context.Context, assetSlug, vsCurrency string) (float64, error)

func (f LookupFunc) LookupPrice(ctx context.Context, assetSlug, vsCurrency string) (float64, error) {
	return f(ctx, assetSlug, vsCurrency)
}
