package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/Armin-kho/currency-rate-bot/internal/bot"
	"github.com/Armin-kho/currency-rate-bot/internal/config"
	"github.com/Armin-kho/currency-rate-bot/internal/db"
	"github.com/Armin-kho/currency-rate-bot/internal/httpapi"
	"github.com/Armin-kho/currency-rate-bot/internal/metrics"
	"github.com/Armin-kho/currency-rate-bot/internal/render"
	"github.com/Armin-kho/currency-rate-bot/internal/scheduler"
	"github.com/Armin-kho/currency-rate-bot/internal/session"
	"github.com/Armin-kho/currency-rate-bot/internal/utils"
)

func runBot(parent context.Context) error {
	if err := cfg.RequireBotToken(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	oracle := newOracle()
	defer oracle.Close()
	resolver := newResolver(oracle)

	store, closeStore, err := openSessions()
	if err != nil {
		return err
	}
	defer closeStore()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	api.Debug = cfg.Debug
	log.Info().Str("username", api.Self.UserName).Msg("bot authorized")

	if cfg.HTTPAddr != "" {
		_, stopHTTP, err := serveHTTP(cfg.HTTPAddr, resolver)
		if err != nil {
			return err
		}
		defer stopHTTP()
	}

	app := bot.New(api, resolver, store, bot.Options{
		Clock: render.Clock{
			Location: utils.LoadLocation(cfg.Display.Timezone),
			Calendar: cfg.Display.Calendar,
		},
		RequestTimeout: cfg.RequestTimeout,
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		api.StopReceivingUpdates()
	}()

	if err := app.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveHTTP binds addr before returning, so stop always has a listener to close.
func serveHTTP(addr string, resolver httpapi.RateSource) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := httpapi.New(resolver, cfg.RequestTimeout)
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := srv.Serve(ln); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()
	return ln.Addr().String(), func() {
		if err := srv.Shutdown(); err != nil {
			log.Error().Err(err).Msg("http server shutdown")
		}
		_ = ln.Close()
		<-served
	}, nil
}

// openSessions returns the configured session store and its cleanup.
func openSessions() (session.Store, func(), error) {
	if cfg.Session.Backend != config.BackendSQLite {
		store := session.NewMemory(cfg.Session.MaxEntries, cfg.Session.TTL)
		metrics.ObserveSessions(store.Len)
		return store, func() {}, nil
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, nil, err
	}
	store := session.NewSQLite(database, cfg.Session.TTL)
	metrics.ObserveSessions(store.Len)
	janitor := scheduler.New(store, cfg.Session.PruneInterval)
	janitor.Start()
	log.Info().Str("path", cfg.DBPath()).Msg("sqlite session store opened")

	return store, func() {
		janitor.Stop()
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("close db")
		}
	}, nil
}
