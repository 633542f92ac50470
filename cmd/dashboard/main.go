// Command dashboard is a terminal viewer that polls a running decoder
// process's /metrics endpoint and renders its counters live.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"solana-tx-decoder/internal/dashboard"
)

func main() {
	url := os.Getenv("DASHBOARD_METRICS_URL")
	if url == "" {
		url = "http://127.0.0.1:8089/metrics"
	}

	p := tea.NewProgram(dashboard.NewModel(url), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", err)
		os.Exit(1)
	}
}
