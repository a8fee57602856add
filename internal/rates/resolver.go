package rates

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Armin-kho/currency-rate-bot/internal/items"
	"github.com/Armin-kho/currency-rate-bot/internal/metrics"
	"github.com/Armin-kho/currency-rate-bot/internal/sources"
)

type Strategy string

const (
	StrategyIdentity     Strategy = "identity"
	StrategyCryptoFiat   Strategy = "crypto_fiat"
	StrategyFiatCrypto   Strategy = "fiat_crypto"
	StrategyCryptoCrypto Strategy = "crypto_crypto"
	StrategyFiatFiat     Strategy = "fiat_fiat"
)

const (
	// Crypto pairs are triangulated through this fiat.
	pivotFiat = "usd"
	// Fiat pairs are triangulated through this asset.
	pivotSlug = "tether"
)

var (
	ErrLookupFailure     = sources.ErrLookupFailure
	ErrMalformedResponse = sources.ErrMalformedResponse
	// ErrDegenerateQuote is returned when a quote or derived rate is not a finite positive number.
	ErrDegenerateQuote = errors.New("degenerate quote")
	// ErrUnknownCurrency is only produced in strict mode.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// Outcome describes one resolution. Err is diagnostic only: callers of Resolve
// see nothing but presence or absence.
type Outcome struct {
	ID       string
	From     string
	To       string
	Strategy Strategy
	Rate     float64
	OK       bool
	Err      error
	Lookups  int
	Elapsed  time.Duration
}

type Option func(*Resolver)

// WithStrict makes codes outside the catalog fail with ErrUnknownCurrency
// instead of being treated as fiat.
func WithStrict(strict bool) Option {
	return func(r *Resolver) { r.strict = strict }
}

// Resolver derives "1 from = rate to" from a price oracle.
type Resolver struct {
	lookup sources.PriceLookup
	strict bool
}

func New(lookup sources.PriceLookup, opts ...Option) *Resolver {
	r := &Resolver{lookup: lookup}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns a strictly positive rate, or false when none could be determined.
func (r *Resolver) Resolve(ctx context.Context, from, to string) (float64, bool) {
	o := r.Explain(ctx, from, to)
	return o.Rate, o.OK
}

// Explain resolves like Resolve and reports which strategy ran and why it failed.
func (r *Resolver) Explain(ctx context.Context, from, to string) Outcome {
	o := Outcome{
		ID:   uuid.NewString(),
		From: items.Normalize(from),
		To:   items.Normalize(to),
	}
	start := time.Now()

	var calls atomic.Int32
	counted := sources.LookupFunc(func(ctx context.Context, slug, vs string) (float64, error) {
		calls.Add(1)
		return r.lookup.LookupPrice(ctx, slug, vs)
	})

	rate, err := r.resolve(ctx, counted, &o)
	o.Lookups = int(calls.Load())
	o.Elapsed = time.Since(start)
	if err == nil {
		o.Rate, o.OK = rate, true
	} else {
		o.Err = err
	}

	metrics.ResolutionsTotal.WithLabelValues(string(o.Strategy), outcomeLabel(o.Err)).Inc()
	ev := log.Info()
	if !o.OK {
		ev = log.Warn().Err(o.Err)
	}
	ev.Str("request_id", o.ID).
		Str("from", o.From).
		Str("to", o.To).
		Str("strategy", string(o.Strategy)).
		Int("lookups", o.Lookups).
		Dur("elapsed", o.Elapsed).
		Float64("rate", o.Rate).
		Msg("rate resolved")
	return o
}

func (r *Resolver) resolve(ctx context.Context, lookup sources.PriceLookup, o *Outcome) (float64, error) {
	from, to := o.From, o.To
	if from == to {
		o.Strategy = StrategyIdentity
		return 1, nil
	}
	if r.strict {
		for _, code := range []string{from, to} {
			if !items.IsKnown(code) {
				return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
			}
		}
	}

	fromCrypto := items.Classify(from) == items.KindCrypto
	toCrypto := items.Classify(to) == items.KindCrypto

	var (
		rate float64
		err  error
	)
	switch {
	case fromCrypto && !toCrypto:
		o.Strategy = StrategyCryptoFiat
		rate, err = price(ctx, lookup, slugOf(from), strings.ToLower(to))
	case !fromCrypto && toCrypto:
		o.Strategy = StrategyFiatCrypto
		rate, err = inverse(ctx, lookup, slugOf(to), strings.ToLower(from))
	case fromCrypto && toCrypto:
		o.Strategy = StrategyCryptoCrypto
		rate, err = triangulate(ctx,
			func(ctx context.Context) (float64, error) {
				return price(ctx, lookup, slugOf(from), pivotFiat)
			},
			func(ctx context.Context) (float64, error) {
				return price(ctx, lookup, slugOf(to), pivotFiat)
			},
		)
	default:
		o.Strategy = StrategyFiatFiat
		rate, err = triangulate(ctx,
			func(ctx context.Context) (float64, error) {
				return inverse(ctx, lookup, pivotSlug, strings.ToLower(from))
			},
			func(ctx context.Context) (float64, error) {
				return inverse(ctx, lookup, pivotSlug, strings.ToLower(to))
			},
		)
	}
	if err != nil {
		return 0, err
	}
	return checked(rate, from+"/"+to)
}

type leg func(ctx context.Context) (float64, error)

// triangulate runs both legs concurrently and returns num/den.
// The first failing leg cancels the other.
func triangulate(ctx context.Context, num, den leg) (float64, error) {
	var a, b float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = num(gctx)
		return err
	})
	g.Go(func() (err error) {
		b, err = den(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return a / b, nil
}

// price is a guarded lookup: the quote must be finite and positive.
func price(ctx context.Context, lookup sources.PriceLookup, slug, vs string) (float64, error) {
	p, err := lookup.LookupPrice(ctx, slug, vs)
	if err != nil {
		if errors.Is(err, ErrLookupFailure) || errors.Is(err, ErrMalformedResponse) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrLookupFailure, err)
	}
	return checked(p, slug+"/"+vs)
}

// inverse turns "price of slug in fiat" into "units of slug per 1 fiat".
func inverse(ctx context.Context, lookup sources.PriceLookup, slug, fiat string) (float64, error) {
	p, err := price(ctx, lookup, slug, fiat)
	if err != nil {
		return 0, err
	}
	return 1 / p, nil
}

func checked(v float64, what string) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%w: %s = %v", ErrDegenerateQuote, what, v)
	}
	return v, nil
}

// slugOf is only called for codes already classified as crypto.
func slugOf(code string) string {
	s, _ := items.Slug(code)
	return s
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrUnknownCurrency):
		return metrics.OutcomeUnknown
	case errors.Is(err, ErrDegenerateQuote):
		return metrics.OutcomeDegenerate
	case errors.Is(err, ErrMalformedResponse):
		return metrics.OutcomeMalformed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailure
	}
}
