// Command decoder consumes raw transaction envelopes, re-fetches full
// transaction bodies over JSON-RPC, extracts balance deltas, and
// detects Raydium AMM v4 swaps.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"solana-tx-decoder/internal/decoderapp"
	"solana-tx-decoder/internal/httpapi"
	"solana-tx-decoder/internal/rpcfetch"
)

func main() {
	setupLogger()
	color.Cyan("solana-tx-decoder starting")

	cfg, err := decoderapp.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log.Info().
		Str("rpc_primary", cfg.RPCPrimaryURL).
		Int("rpc_fallback_count", len(cfg.RPCFallbackURLs)).
		Int("rpc_concurrency", cfg.RPCConcurrency).
		Int("rpc_min_delay_ms", cfg.RPCMinDelayMs).
		Str("kafka_broker", cfg.KafkaBroker).
		Str("in_topic", cfg.KafkaInTopic).
		Str("out_swaps_topic", cfg.KafkaOutSwapsTopic).
		Str("dlq_topic", cfg.KafkaDlqTopic).
		Str("consumer_group", cfg.KafkaGroup).
		Msg("decoder config loaded")

	rpc := rpcfetch.New(
		cfg.AllRPCURLs(),
		rpcfetch.WithConcurrency(cfg.RPCConcurrency),
		rpcfetch.WithMinDelay(time.Duration(cfg.RPCMinDelayMs)*time.Millisecond),
		rpcfetch.WithMaxTxVersion(cfg.RPCMaxTxVersion),
	)

	sinks := decoderapp.NewSinks(cfg.KafkaBroker, cfg)
	defer sinks.Close()

	metrics := decoderapp.NewMetrics()
	consumer := decoderapp.NewConsumer(cfg, rpc, sinks, metrics)
	defer consumer.Close()

	httpServer := httpapi.NewServer("0.0.0.0", cfg.HealthPort, metrics, time.Duration(cfg.HealthAfterSeconds)*time.Second)
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("http api server stopped")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("decoder consumer loop starting")
	if err := consumer.Run(ctx); err != nil {
		log.Error().Err(err).Msg("consumer loop exited with error")
		_ = httpServer.Shutdown()
		os.Exit(1)
	}

	_ = httpServer.Shutdown()
	log.Info().Str("summary", metrics.Summary()).Msg("decoder shutting down")
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
