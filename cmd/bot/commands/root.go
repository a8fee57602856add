package commands

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Armin-kho/currency-rate-bot/internal/config"
	"github.com/Armin-kho/currency-rate-bot/internal/rates"
	"github.com/Armin-kho/currency-rate-bot/internal/sources"
)

var (
	cfgPath string
	debug   bool
	cfg     config.Config
)

func Execute() error {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bot",
		Short:         "Telegram bot that quotes fiat and crypto exchange rates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.Debug || debug)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultConfigPath(), "path to config.yaml")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	root.AddCommand(rateCmd(), backupCmd())
	return root
}

func setupLogging(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(level)
}

func newOracle() *sources.CoinGecko {
	return sources.NewCoinGecko(sources.CoinGeckoOptions{
		BaseURL:        cfg.CoinGecko.BaseURL,
		APIKey:         cfg.CoinGecko.APIKey,
		Timeout:        cfg.CoinGecko.Timeout,
		BreakerErrors:  cfg.CoinGecko.BreakerErrors,
		BreakerTimeout: cfg.CoinGecko.BreakerTimeout,
	})
}

func newResolver(oracle sources.PriceLookup) *rates.Resolver {
	return rates.New(oracle, rates.WithStrict(cfg.StrictCodes))
}
