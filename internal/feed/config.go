package feed

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the streamer's env-driven configuration, mirroring the
// decoder's flat viper/AutomaticEnv style rather than the bot's
// file-backed config.Manager, since the streamer has no hot-reloadable
// settings.
type Config struct {
	WSEndpoint string `mapstructure:"ws_endpoint"`

	KafkaBroker string `mapstructure:"kafka_broker"`
	KafkaTopic  string `mapstructure:"kafka_topic"`

	RequiredAccounts []string `mapstructure:"required_accounts"`
	IncludeFailed    bool     `mapstructure:"include_failed"`
	Commitment       string   `mapstructure:"commitment"`

	ReconnectDelay time.Duration `mapstructure:"-"`
	PingInterval   time.Duration `mapstructure:"-"`
}

// Load reads the streamer's configuration from the environment.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ws_endpoint", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("kafka_broker", "localhost:19092")
	v.SetDefault("kafka_topic", "sol_raw_txs")
	v.SetDefault("required_accounts", "")
	v.SetDefault("include_failed", false)
	v.SetDefault("commitment", "processed")

	bindEnv(v,
		"ws_endpoint", "WS_ENDPOINT",
		"kafka_broker", "KAFKA_BROKER",
		"kafka_topic", "KAFKA_TOPIC",
		"required_accounts", "REQUIRED_ACCOUNTS",
		"include_failed", "INCLUDE_FAILED",
		"commitment", "COMMITMENT",
	)

	cfg := Config{
		WSEndpoint:       v.GetString("ws_endpoint"),
		KafkaBroker:      v.GetString("kafka_broker"),
		KafkaTopic:       v.GetString("kafka_topic"),
		RequiredAccounts: splitNonEmpty(v.GetString("required_accounts")),
		IncludeFailed:    v.GetBool("include_failed"),
		Commitment:       v.GetString("commitment"),
		ReconnectDelay:   1 * time.Second,
		PingInterval:     30 * time.Second,
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper, pairs ...string) {
	for i := 0; i+1 < len(pairs); i += 2 {
		_ = v.BindEnv(pairs[i], pairs[i+1])
	}
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
