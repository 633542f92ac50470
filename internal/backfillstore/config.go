package backfillstore

import (
	"github.com/spf13/viper"
)

// Config is the backfill pager's env-driven configuration.
type Config struct {
	RPCURL           string `mapstructure:"rpc_url"`
	Address          string `mapstructure:"address"`
	Limit            int    `mapstructure:"limit"`
	KafkaBroker      string `mapstructure:"kafka_broker"`
	KafkaTopic       string `mapstructure:"kafka_topic"`
	KafkaDlqTopic    string `mapstructure:"kafka_dlq_topic"`
	Chain            string `mapstructure:"chain"`
	CheckpointDBPath string `mapstructure:"checkpoint_db_path"`
}

// LoadConfig reads the backfill pager's configuration from the
// environment, matching the original tool's env var names where one
// still applies (KAFKA_BROKER, KAFKA_TOPIC, KAFKA_DLQ_TOPIC, CHAIN).
func LoadConfig() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("address", "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	v.SetDefault("limit", 2000)
	v.SetDefault("kafka_broker", "127.0.0.1:19092")
	v.SetDefault("kafka_topic", "sol_raw_txs")
	v.SetDefault("kafka_dlq_topic", "sol_raw_txs_dlq")
	v.SetDefault("chain", "solana-mainnet")
	v.SetDefault("checkpoint_db_path", "data/backfill_checkpoints.db")

	bindEnv(v,
		"rpc_url", "RPC_URL",
		"address", "BACKFILL_ADDRESS",
		"limit", "BACKFILL_LIMIT",
		"kafka_broker", "KAFKA_BROKER",
		"kafka_topic", "KAFKA_TOPIC",
		"kafka_dlq_topic", "KAFKA_DLQ_TOPIC",
		"chain", "CHAIN",
		"checkpoint_db_path", "CHECKPOINT_DB_PATH",
	)

	return Config{
		RPCURL:           v.GetString("rpc_url"),
		Address:          v.GetString("address"),
		Limit:            v.GetInt("limit"),
		KafkaBroker:      v.GetString("kafka_broker"),
		KafkaTopic:       v.GetString("kafka_topic"),
		KafkaDlqTopic:    v.GetString("kafka_dlq_topic"),
		Chain:            v.GetString("chain"),
		CheckpointDBPath: v.GetString("checkpoint_db_path"),
	}, nil
}

func bindEnv(v *viper.Viper, pairs ...string) {
	for i := 0; i+1 < len(pairs); i += 2 {
		_ = v.BindEnv(pairs[i], pairs[i+1])
	}
}
