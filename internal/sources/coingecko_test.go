package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eapache/go-resiliency/breaker"
)

func newTestServer(t *testing.T, h http.HandlerFunc) (*CoinGecko, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, Timeout: 2 * time.Second, BreakerErrors: 100})
	t.Cleanup(c.Close)
	return c, srv
}

func TestLookupPrice_OK(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ids") != "bitcoin" || q.Get("vs_currencies") != "usd" || q.Get("precision") != "8" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000.12}}`))
	})

	got, err := c.LookupPrice(context.Background(), "Bitcoin", "USD")
	if err != nil {
		t.Fatalf("LookupPrice: %v", err)
	}
	if got != 65000.12 {
		t.Fatalf("got %v, want 65000.12", got)
	}
}

func TestLookupPrice_APIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-cg-demo-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"tether":{"rub":92.5}}`))
	}))
	defer srv.Close()

	c := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, APIKey: "secret"})
	defer c.Close()
	got, err := c.LookupPrice(context.Background(), "tether", "rub")
	if err != nil || got != 92.5 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestLookupPrice_Non200IsLookupFailure(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
	})

	_, err := c.LookupPrice(context.Background(), "bitcoin", "usd")
	if !errors.Is(err, ErrLookupFailure) {
		t.Fatalf("expected ErrLookupFailure, got %v", err)
	}
}

func TestLookupPrice_MissingKeysAreMalformed(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"bitcoin":{}}`,
		`{"bitcoin":{"usd":null}}`,
		`{"ethereum":{"usd":1}}`,
		`not json`,
	}
	for _, body := range bodies {
		body := body
		c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := c.LookupPrice(context.Background(), "bitcoin", "usd")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("body %q: expected ErrMalformedResponse, got %v", body, err)
		}
	}
}

func TestLookupPrice_ZeroIsReturnedAsValue(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tether":{"byn":0}}`))
	})
	got, err := c.LookupPrice(context.Background(), "tether", "byn")
	if err != nil || got != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestLookupPrice_BreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, BreakerErrors: 2, BreakerTimeout: time.Minute})
	defer c.Close()

	for i := 0; i < 4; i++ {
		_, err := c.LookupPrice(context.Background(), "bitcoin", "usd")
		if !errors.Is(err, ErrLookupFailure) {
			t.Fatalf("call %d: expected ErrLookupFailure, got %v", i, err)
		}
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected breaker to stop outbound calls after 2 failures, server saw %d", n)
	}
}

func TestLookupPrice_BreakerIgnoresInterleavedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1)%2 == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}))
	defer srv.Close()

	c := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, BreakerErrors: 3, BreakerTimeout: time.Minute})
	defer c.Close()

	for i := 0; i < 8; i++ {
		_, err := c.LookupPrice(context.Background(), "bitcoin", "usd")
		if errors.Is(err, breaker.ErrBreakerOpen) {
			t.Fatalf("call %d: breaker opened without consecutive failures", i)
		}
		if i%2 == 1 && err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if n := hits.Load(); n != 8 {
		t.Fatalf("every call should reach the oracle, server saw %d", n)
	}
}

func TestLookupPrice_CanceledTrialKeepsBreakerOpen(t *testing.T) {
	var hits atomic.Int32
	failing := atomic.Bool{}
	failing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, BreakerErrors: 1, BreakerTimeout: 50 * time.Millisecond})
	defer c.Close()

	if _, err := c.LookupPrice(context.Background(), "bitcoin", "usd"); !errors.Is(err, ErrLookupFailure) {
		t.Fatalf("expected a lookup failure, got %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	// Half-open: the trial call is abandoned by its caller before the oracle answers.
	failing.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := c.LookupPrice(ctx, "bitcoin", "usd"); !errors.Is(err, ErrLookupFailure) {
		t.Fatalf("expected a lookup failure, got %v", err)
	}

	before := hits.Load()
	_, err := c.LookupPrice(context.Background(), "bitcoin", "usd")
	if !errors.Is(err, breaker.ErrBreakerOpen) {
		t.Fatalf("an abandoned trial must not close the breaker, got %v", err)
	}
	if hits.Load() != before {
		t.Fatalf("open breaker should not reach the oracle")
	}
}

func TestLookupPrice_CanceledContext(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.LookupPrice(ctx, "bitcoin", "usd")
	if !errors.Is(err, ErrLookupFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped cancellation, got %v", err)
	}
}
