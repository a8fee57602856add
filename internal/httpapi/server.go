package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Armin-kho/currency-rate-bot/internal/items"
	"github.com/Armin-kho/currency-rate-bot/internal/rates"
)

// RateSource resolves a pair and explains the result.
type RateSource interface {
	Explain(ctx context.Context, from, to string) rates.Outcome
}

type RateResponse struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Rate     float64 `json:"rate,omitempty"`
	Inverse  float64 `json:"inverse,omitempty"`
	Strategy string  `json:"strategy,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type CurrencyJSON struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type CurrenciesResponse struct {
	Fiat   []CurrencyJSON `json:"fiat"`
	Crypto []CurrencyJSON `json:"crypto"`
}

// Server exposes health, metrics and one-shot rate resolution over HTTP.
type Server struct {
	app     *fiber.App
	rates   RateSource
	timeout time.Duration
}

func New(rs RateSource, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &Server{
		app:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		rates:   rs,
		timeout: timeout,
	}
	s.buildRoutes()
	return s
}

func (s *Server) buildRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	s.app.Get("/rate", s.rate)
	s.app.Get("/currencies", s.currencies)
}

// App exposes the underlying fiber app (used by tests).
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve blocks until the server stops. The caller owns ln and binds it before starting.
func (s *Server) Serve(ln net.Listener) error {
	log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	return s.app.Listener(ln)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// GET /rate?from=BTC&to=USD
func (s *Server) rate(c *fiber.Ctx) error {
	from := items.Normalize(c.Query("from"))
	to := items.Normalize(c.Query("to"))
	if from == "" || to == "" {
		return c.Status(http.StatusBadRequest).JSON(RateResponse{From: from, To: to, Error: "from and to are required"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()
	out := s.rates.Explain(ctx, from, to)
	if !out.OK {
		return c.Status(http.StatusNotFound).JSON(RateResponse{From: from, To: to, Error: "rate unavailable"})
	}
	return c.JSON(RateResponse{
		From:     from,
		To:       to,
		Rate:     out.Rate,
		Inverse:  1 / out.Rate,
		Strategy: string(out.Strategy),
	})
}

// GET /currencies
func (s *Server) currencies(c *fiber.Ctx) error {
	return c.JSON(CurrenciesResponse{
		Fiat:   toJSON(items.Fiat()),
		Crypto: toJSON(items.Crypto()),
	})
}

func toJSON(list []items.Item) []CurrencyJSON {
	out := make([]CurrencyJSON, 0, len(list))
	for _, it := range list {
		out = append(out, CurrencyJSON{Code: it.Code, Name: it.Name})
	}
	return out
}
