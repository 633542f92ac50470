// Package decoderapp wires the pure internal/schema, internal/swap, and
// internal/rpcfetch packages into the at-least-once Kafka consumer
// loop: configuration, error kinds, metrics, sinks, and the loop
// itself.
package decoderapp

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the decoder's environment-sourced settings. Unlike the
// teacher's file-backed config.Manager, the decoder has no on-disk
// config file to hot-reload: every setting comes from the environment,
// so viper is used purely as a typed env-var reader with defaults.
type Config struct {
	RPCPrimaryURL   string   `mapstructure:"rpc_primary_url"`
	RPCFallbackURLs []string `mapstructure:"rpc_fallback_urls"`
	RPCConcurrency  int      `mapstructure:"rpc_concurrency"`
	RPCMinDelayMs   int      `mapstructure:"rpc_min_delay_ms"`
	RPCMaxTxVersion int      `mapstructure:"rpc_max_tx_version"`

	KafkaBroker             string `mapstructure:"kafka_broker"`
	KafkaInTopic            string `mapstructure:"kafka_in_topic"`
	KafkaOutSolDeltasTopic  string `mapstructure:"kafka_out_sol_deltas_topic"`
	KafkaOutTokenDeltasTopic string `mapstructure:"kafka_out_token_deltas_topic"`
	KafkaOutSwapsTopic      string `mapstructure:"kafka_out_swaps_topic"`
	KafkaDlqTopic           string `mapstructure:"kafka_dlq_topic"`
	KafkaGroup              string `mapstructure:"kafka_group"`

	IncludeFailed         bool   `mapstructure:"include_failed"`
	RaydiumAMMv4ProgramID string `mapstructure:"raydium_amm_v4_program_id"`

	SwapsExplain      bool `mapstructure:"swaps_explain"`
	SwapsExplainLimit int  `mapstructure:"swaps_explain_limit"`

	HealthPort          int `mapstructure:"health_port"`
	HealthAfterSeconds  int `mapstructure:"health_after_seconds"`
}

// Load reads decoder configuration from the environment, applying the
// defaults named in the external-interfaces contract.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc_primary_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc_fallback_urls", "")
	v.SetDefault("rpc_concurrency", 4)
	v.SetDefault("rpc_min_delay_ms", 250)
	v.SetDefault("rpc_max_tx_version", 1)

	v.SetDefault("kafka_broker", "localhost:19092")
	v.SetDefault("kafka_in_topic", "sol_raw_txs")
	v.SetDefault("kafka_out_sol_deltas_topic", "sol_balance_deltas")
	v.SetDefault("kafka_out_token_deltas_topic", "sol_token_balance_deltas")
	v.SetDefault("kafka_out_swaps_topic", "sol_dex_swaps")
	v.SetDefault("kafka_dlq_topic", "")
	v.SetDefault("kafka_group", "decoder_v1")

	v.SetDefault("include_failed", false)
	v.SetDefault("raydium_amm_v4_program_id", "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

	v.SetDefault("swaps_explain", false)
	v.SetDefault("swaps_explain_limit", 0)

	v.SetDefault("health_port", 8089)
	v.SetDefault("health_after_seconds", 30)

	bindEnv(v,
		"rpc_primary_url", "RPC_PRIMARY_URL",
		"rpc_fallback_urls", "RPC_FALLBACK_URLS",
		"rpc_concurrency", "RPC_CONCURRENCY",
		"rpc_min_delay_ms", "RPC_MIN_DELAY_MS",
		"rpc_max_tx_version", "RPC_MAX_TX_VERSION",
		"kafka_broker", "KAFKA_BROKER",
		"kafka_in_topic", "KAFKA_IN_TOPIC",
		"kafka_out_sol_deltas_topic", "KAFKA_OUT_SOL_DELTAS_TOPIC",
		"kafka_out_token_deltas_topic", "KAFKA_OUT_TOKEN_DELTAS_TOPIC",
		"kafka_out_swaps_topic", "KAFKA_OUT_SWAPS_TOPIC",
		"kafka_dlq_topic", "KAFKA_DLQ_TOPIC",
		"kafka_group", "KAFKA_GROUP",
		"include_failed", "INCLUDE_FAILED",
		"raydium_amm_v4_program_id", "RAYDIUM_AMM_V4_PROGRAM_ID",
		"swaps_explain", "SWAPS_EXPLAIN",
		"swaps_explain_limit", "SWAPS_EXPLAIN_LIMIT",
		"health_port", "HEALTH_PORT",
		"health_after_seconds", "HEALTH_AFTER_SECONDS",
	)

	var cfg Config
	cfg.RPCPrimaryURL = v.GetString("rpc_primary_url")
	cfg.RPCFallbackURLs = splitNonEmpty(v.GetString("rpc_fallback_urls"))
	cfg.RPCConcurrency = v.GetInt("rpc_concurrency")
	cfg.RPCMinDelayMs = v.GetInt("rpc_min_delay_ms")
	cfg.RPCMaxTxVersion = v.GetInt("rpc_max_tx_version")

	cfg.KafkaBroker = v.GetString("kafka_broker")
	cfg.KafkaInTopic = v.GetString("kafka_in_topic")
	cfg.KafkaOutSolDeltasTopic = v.GetString("kafka_out_sol_deltas_topic")
	cfg.KafkaOutTokenDeltasTopic = v.GetString("kafka_out_token_deltas_topic")
	cfg.KafkaOutSwapsTopic = v.GetString("kafka_out_swaps_topic")
	cfg.KafkaDlqTopic = v.GetString("kafka_dlq_topic")
	cfg.KafkaGroup = v.GetString("kafka_group")

	cfg.IncludeFailed = v.GetBool("include_failed")
	cfg.RaydiumAMMv4ProgramID = v.GetString("raydium_amm_v4_program_id")

	cfg.SwapsExplain = v.GetBool("swaps_explain")
	cfg.SwapsExplainLimit = v.GetInt("swaps_explain_limit")

	cfg.HealthPort = v.GetInt("health_port")
	cfg.HealthAfterSeconds = v.GetInt("health_after_seconds")

	return cfg, nil
}

func bindEnv(v *viper.Viper, pairs ...string) {
	for i := 0; i+1 < len(pairs); i += 2 {
		_ = v.BindEnv(pairs[i], pairs[i+1])
	}
}

func splitNonEmpty(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AllRPCURLs returns the primary URL followed by the fallbacks, the
// order rpcfetch.New expects for round-robin failover.
func (c Config) AllRPCURLs() []string {
	urls := make([]string, 0, 1+len(c.RPCFallbackURLs))
	urls = append(urls, c.RPCPrimaryURL)
	urls = append(urls, c.RPCFallbackURLs...)
	return urls
}
