package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Armin-kho/currency-rate-bot/internal/rates"
	"github.com/Armin-kho/currency-rate-bot/internal/sources"
)

func newServer() *Server {
	oracle := sources.LookupFunc(func(_ context.Context, slug, vs string) (float64, error) {
		if slug == "bitcoin" && vs == "usd" {
			return 65000.12, nil
		}
		return 0, sources.ErrLookupFailure
	})
	return New(rates.New(oracle), 0)
}

func do(t *testing.T, s *Server, target string) (int, string) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("request %s: %v", target, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestHealthz(t *testing.T) {
	code, body := do(t, newServer(), "/healthz")
	if code != http.StatusOK || body != "ok" {
		t.Fatalf("healthz = %d %q", code, body)
	}
}

func TestRateOK(t *testing.T) {
	code, body := do(t, newServer(), "/rate?from=btc&to=usd")
	if code != http.StatusOK {
		t.Fatalf("status %d: %s", code, body)
	}
	var r RateResponse
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.From != "BTC" || r.To != "USD" || r.Rate != 65000.12 || r.Strategy != "crypto_fiat" {
		t.Fatalf("unexpected response %+v", r)
	}
	if r.Inverse != 1/65000.12 {
		t.Fatalf("inverse = %v", r.Inverse)
	}
}

func TestRateUnavailable(t *testing.T) {
	code, body := do(t, newServer(), "/rate?from=USD&to=RUB")
	if code != http.StatusNotFound || !strings.Contains(body, "rate unavailable") {
		t.Fatalf("got %d %s", code, body)
	}
}

func TestRateMissingParams(t *testing.T) {
	code, _ := do(t, newServer(), "/rate?from=USD")
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d", code)
	}
}

func TestMetrics(t *testing.T) {
	s := newServer()
	do(t, s, "/rate?from=btc&to=usd")
	code, body := do(t, s, "/metrics")
	if code != http.StatusOK || !strings.Contains(body, "rate_resolutions_total") {
		t.Fatalf("metrics = %d, body lacks rate_resolutions_total", code)
	}
}

func TestCurrencies(t *testing.T) {
	code, body := do(t, newServer(), "/currencies")
	if code != http.StatusOK {
		t.Fatalf("status %d: %s", code, body)
	}
	var r CurrenciesResponse
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(r.Fiat) != 10 || len(r.Crypto) != 12 {
		t.Fatalf("fiat=%d crypto=%d", len(r.Fiat), len(r.Crypto))
	}
	if r.Fiat[0].Code != "USD" || r.Crypto[0].Code != "BTC" {
		t.Fatalf("unexpected order %+v %+v", r.Fiat[0], r.Crypto[0])
	}
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := newServer()
	served := make(chan error, 1)
	go func() { served <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after Shutdown")
	}
}
