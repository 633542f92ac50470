// Command backfill pages historical Raydium AMM v4 transactions for one
// address via getSignaturesForAddress, resolves each full transaction,
// and republishes the same envelope shape the realtime streamer emits,
// resuming from a local checkpoint on every subsequent run.
package main

import (
	"context"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"solana-tx-decoder/internal/backfillstore"
	"solana-tx-decoder/internal/rpcfetch"
)

func main() {
	setupLogger()
	color.Cyan("solana-tx-decoder backfill starting")

	cfg, err := backfillstore.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load backfill config")
	}

	log.Info().
		Str("address", cfg.Address).
		Int("limit", cfg.Limit).
		Str("rpc_url", cfg.RPCURL).
		Str("kafka_topic", cfg.KafkaTopic).
		Msg("backfill config loaded")

	store, err := backfillstore.NewStore(cfg.CheckpointDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open checkpoint store")
	}
	defer store.Close()

	rpc := rpcfetch.New([]string{cfg.RPCURL})
	pager := backfillstore.NewPager(cfg.RPCURL, rpc, store, cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaDlqTopic, cfg.Chain)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := pager.Run(ctx, cfg.Address, cfg.Limit); err != nil {
		log.Fatal().Err(err).Msg("backfill run failed")
	}

	log.Info().Msg("backfill run complete")
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
