package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eapache/go-resiliency/breaker"
	"github.com/rs/zerolog/log"

	"github.com/Armin-kho/currency-rate-bot/internal/metrics"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

type CoinGeckoOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Breaker opens after BreakerErrors consecutive failures (any success resets the count)
	// and stays open for BreakerTimeout.
	BreakerErrors    int
	BreakerSuccesses int
	BreakerTimeout   time.Duration
}

// CoinGecko implements PriceLookup against the /simple/price endpoint.
// It is safe for concurrent use.
type CoinGecko struct {
	baseURL string
	apiKey  string
	client  *http.Client

	// brk trips on the first error it sees; streak decides when to report one.
	brk       *breaker.Breaker
	threshold int
	mu        sync.Mutex
	streak    int
}

func NewCoinGecko(opts CoinGeckoOptions) *CoinGecko {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultCoinGeckoURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.BreakerErrors <= 0 {
		opts.BreakerErrors = 5
	}
	if opts.BreakerSuccesses <= 0 {
		opts.BreakerSuccesses = 1
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	return &CoinGecko{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		client:  &http.Client{Timeout: opts.Timeout},

		brk:       breaker.New(1, opts.BreakerSuccesses, opts.BreakerTimeout),
		threshold: opts.BreakerErrors,
	}
}

// Close releases idle connections held by the underlying client.
func (c *CoinGecko) Close() {
	c.client.CloseIdleConnections()
}

// LookupPrice returns the price of assetSlug denominated in vsCurrency.
// GET /simple/price?ids=bitcoin&vs_currencies=usd&precision=8
func (c *CoinGecko) LookupPrice(ctx context.Context, assetSlug, vsCurrency string) (float64, error) {
	slug := strings.ToLower(strings.TrimSpace(assetSlug))
	vs := strings.ToLower(strings.TrimSpace(vsCurrency))

	start := time.Now()
	price, err := c.lookup(ctx, slug, vs)
	metrics.LookupDuration.Observe(time.Since(start).Seconds())
	metrics.LookupsTotal.WithLabelValues(lookupOutcome(err)).Inc()

	if err != nil {
		log.Debug().Err(err).Str("slug", slug).Str("vs", vs).Msg("price lookup failed")
		return 0, err
	}
	return price, nil
}

func (c *CoinGecko) lookup(ctx context.Context, slug, vs string) (float64, error) {
	u := c.baseURL + "/simple/price?" + url.Values{
		"ids":           {slug},
		"vs_currencies": {vs},
		"precision":     {"8"},
	}.Encode()

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLookupFailure, err)
	}

	var body []byte
	var fetchErr error
	trial := c.brk.GetState() == breaker.HalfOpen
	err := c.brk.Run(func() error {
		body, fetchErr = c.httpGet(ctx, u)
		return c.report(ctx, fetchErr, trial)
	})
	if errors.Is(err, breaker.ErrBreakerOpen) {
		return 0, fmt.Errorf("%w: %w", ErrLookupFailure, err)
	}
	if fetchErr != nil {
		return 0, fmt.Errorf("%w: %w", ErrLookupFailure, fetchErr)
	}

	return decodePrice(body, slug, vs)
}

// report returns the error the breaker should record for one call.
// Only a run of c.threshold oracle failures, or a failed half-open trial, is reported.
// A call abandoned by its caller is neutral while closed and a failed trial while half-open.
func (c *CoinGecko) report(ctx context.Context, fetchErr error, trial bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case fetchErr == nil:
		c.streak = 0
		return nil
	case ctx.Err() != nil:
		if trial {
			return fetchErr
		}
		return nil
	case trial:
		c.streak = 0
		return fetchErr
	}

	c.streak++
	if c.streak < c.threshold {
		return nil
	}
	c.streak = 0
	return fetchErr
}

func (c *CoinGecko) httpGet(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CurrencyRateBot/1.0 (+https://github.com/Armin-kho/currency-rate-bot)")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// decodePrice extracts body[slug][vs] from {"<slug>": {"<vs>": <number>}}.
func decodePrice(body []byte, slug, vs string) (float64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]map[string]any
	if err := dec.Decode(&raw); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	quotes, ok := raw[slug]
	if !ok {
		return 0, fmt.Errorf("%w: no %q in response", ErrMalformedResponse, slug)
	}
	v, ok := toFloat(quotes[vs])
	if !ok {
		return 0, fmt.Errorf("%w: no %s/%s quote", ErrMalformedResponse, slug, vs)
	}
	return v, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err == nil {
			return f, true
		}
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func lookupOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case errors.Is(err, ErrMalformedResponse):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeFailure
	}
}
