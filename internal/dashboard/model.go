package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const pollInterval = 2 * time.Second

// Model is a bubbletea program that polls one decoder's /metrics
// endpoint on an interval and renders the parsed counters.
type Model struct {
	metricsURL string
	client     *http.Client

	snapshot   Snapshot
	lastPollOK bool
	lastErr    error
	polls      int

	width, height int
	quitting      bool
}

// NewModel builds a Model polling metricsURL (e.g. http://host:port/metrics).
func NewModel(metricsURL string) Model {
	return Model{
		metricsURL: metricsURL,
		client:     &http.Client{Timeout: 3 * time.Second},
	}
}

type tickMsg time.Time

type fetchResultMsg struct {
	snapshot Snapshot
	err      error
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("decoder dashboard"), m.fetchCmd(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchCmd() tea.Cmd {
	url := m.metricsURL
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fetchResultMsg{err: err}
		}
		resp, err := client.Do(req)
		if err != nil {
			return fetchResultMsg{err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fetchResultMsg{err: fmt.Errorf("metrics endpoint returned %s", resp.Status)}
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fetchResultMsg{err: err}
		}
		return fetchResultMsg{snapshot: ParseSummary(string(body))}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tickCmd())
	case fetchResultMsg:
		m.polls++
		if msg.err != nil {
			m.lastPollOK = false
			m.lastErr = msg.err
		} else {
			m.lastPollOK = true
			m.lastErr = nil
			m.snapshot = msg.snapshot
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleHeader.Render(fmt.Sprintf("solana-tx-decoder — %s", m.metricsURL)))
	b.WriteString("\n\n")

	if m.lastErr != nil {
		b.WriteString(StyleErrorBox.Render(fmt.Sprintf("poll failed: %v", m.lastErr)))
		b.WriteString("\n\n")
	}

	b.WriteString(StyleTableHeader.Render(fmt.Sprintf("%-18s %-18s %-14s %-14s", "txs_processed", "swaps_detected", "v0_alt_seen", "publish_errors")))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%-18d %-18d %-14d ", m.snapshot.TxsProcessed, m.snapshot.SwapsDetected, m.snapshot.V0AltSeen))
	if m.snapshot.PublishErrors > 0 {
		b.WriteString(StyleWarn.Render(fmt.Sprintf("%d", m.snapshot.PublishErrors)))
	} else {
		b.WriteString(StyleGood.Render("0"))
	}
	b.WriteString("\n\n")

	b.WriteString(renderCounterTable("swaps_emitted (venue, confidence)", m.snapshot.SwapsEmitted))
	b.WriteString(renderCounterTable("parse_fail (venue, reason)", m.snapshot.ParseFails))
	b.WriteString(renderCounterTable("gate_fail (venue)", m.snapshot.GateFails))
	b.WriteString(renderCounterTable("dlq_sent (reason)", m.snapshot.DlqSent))

	b.WriteString(StyleFooter.Render(fmt.Sprintf("poll #%d  ", m.polls)))
	b.WriteString(renderHotKey("q", "quit"))

	return StylePage.Render(b.String())
}

func renderCounterTable(title string, counters []Counter) string {
	if len(counters) == 0 {
		return ""
	}

	sorted := make([]Counter, len(counters))
	copy(sorted, counters)
	sort.Slice(sorted, func(i, j int) bool {
		return labelKey(sorted[i]) < labelKey(sorted[j])
	})

	var b strings.Builder
	b.WriteString(StyleTableHeader.Render(title))
	b.WriteString("\n")
	for _, c := range sorted {
		b.WriteString(fmt.Sprintf("  %-40s = %d\n", labelKey(c), c.Value))
	}
	b.WriteString("\n")
	return b.String()
}

func labelKey(c Counter) string {
	if len(c.Labels) == 0 {
		return c.Name
	}
	keys := make([]string, 0, len(c.Labels))
	for k := range c.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, c.Labels[k]))
	}
	return strings.Join(parts, ",")
}
