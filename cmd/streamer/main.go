// Command streamer subscribes to realtime Solana log notifications and
// republishes a lightweight raw transaction envelope per signature for
// the decoder to resolve and decode.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"solana-tx-decoder/internal/feed"
)

func main() {
	setupLogger()
	color.Cyan("solana-tx-decoder streamer starting")

	cfg, err := feed.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load streamer config")
	}

	log.Info().
		Str("ws_endpoint", cfg.WSEndpoint).
		Str("kafka_broker", cfg.KafkaBroker).
		Str("kafka_topic", cfg.KafkaTopic).
		Int("required_accounts", len(cfg.RequiredAccounts)).
		Bool("include_failed", cfg.IncludeFailed).
		Msg("streamer config loaded")

	metrics := feed.NewMetrics()
	streamer := feed.NewStreamer(cfg, metrics)
	defer streamer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := streamer.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("streamer exited with error")
	}

	log.Info().
		Uint64("tx_seen", metrics.TxSeen()).
		Uint64("send_ok", metrics.SendOK()).
		Uint64("send_err", metrics.SendErr()).
		Msg("streamer shutting down")
}

func setupLogger() {
	log.Logger = zerolog.New(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"},
	).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
