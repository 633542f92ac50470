package decoderapp

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCPrimaryURL != "https://api.mainnet-beta.solana.com" {
		t.Errorf("RPCPrimaryURL = %q", cfg.RPCPrimaryURL)
	}
	if cfg.RPCConcurrency != 4 {
		t.Errorf("RPCConcurrency = %d, want 4", cfg.RPCConcurrency)
	}
	if cfg.RPCMinDelayMs != 250 {
		t.Errorf("RPCMinDelayMs = %d, want 250", cfg.RPCMinDelayMs)
	}
	if cfg.KafkaGroup != "decoder_v1" {
		t.Errorf("KafkaGroup = %q", cfg.KafkaGroup)
	}
	if cfg.IncludeFailed {
		t.Error("IncludeFailed = true, want false")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("RPC_PRIMARY_URL", "https://custom.example.com")
	t.Setenv("RPC_FALLBACK_URLS", "https://a.example.com, https://b.example.com")
	t.Setenv("INCLUDE_FAILED", "true")
	t.Setenv("KAFKA_GROUP", "decoder_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCPrimaryURL != "https://custom.example.com" {
		t.Errorf("RPCPrimaryURL = %q", cfg.RPCPrimaryURL)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.RPCFallbackURLs) != len(want) {
		t.Fatalf("RPCFallbackURLs = %v", cfg.RPCFallbackURLs)
	}
	for i := range want {
		if cfg.RPCFallbackURLs[i] != want[i] {
			t.Errorf("RPCFallbackURLs[%d] = %q, want %q", i, cfg.RPCFallbackURLs[i], want[i])
		}
	}
	if !cfg.IncludeFailed {
		t.Error("IncludeFailed = false, want true")
	}
	if cfg.KafkaGroup != "decoder_test" {
		t.Errorf("KafkaGroup = %q", cfg.KafkaGroup)
	}
}

func TestAllRPCURLsOrdersPrimaryFirst(t *testing.T) {
	cfg := Config{RPCPrimaryURL: "primary", RPCFallbackURLs: []string{"fb1", "fb2"}}
	urls := cfg.AllRPCURLs()
	want := []string{"primary", "fb1", "fb2"}
	if len(urls) != len(want) {
		t.Fatalf("AllRPCURLs() = %v", urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}
