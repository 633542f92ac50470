package dashboard

import "github.com/charmbracelet/lipgloss"

// Palette reused from the original trading TUI's crossterm theme, kept
// as-is since it's just color constants, not behavior.
var (
	ColorBg     = lipgloss.Color("#0f1c2e")
	ColorBorder = lipgloss.Color("#2e7de9")
	ColorText   = lipgloss.Color("#a9b1d6")
	ColorActive = lipgloss.Color("#7aa2f7")

	ColorSuccess = lipgloss.Color("#73daca")
	ColorWarning = lipgloss.Color("#ff9e64")
	ColorError   = lipgloss.Color("#f7768e")
	ColorInfo    = lipgloss.Color("#7dcfff")

	StylePage = lipgloss.NewStyle().
			Background(ColorBg).
			Foreground(ColorText)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorActive)

	StyleKey = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)

	StyleTableHeader = lipgloss.NewStyle().Foreground(ColorActive).Bold(true)
	StyleFooter      = lipgloss.NewStyle().Foreground(ColorText)
	StyleErrorBox    = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(ColorError).
				Foreground(ColorError).
				Padding(0, 1)

	StyleWarn = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleGood = lipgloss.NewStyle().Foreground(ColorSuccess)
)

func renderHotKey(k, d string) string {
	return StyleKey.Render("["+k+"]") + " " + d
}
