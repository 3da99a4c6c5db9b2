package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/oddseye/oddseye/internal/analysis"
	"github.com/oddseye/oddseye/internal/scan"
)

const barWidth = 24

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginTop(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	redCardStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")).
			Background(lipgloss.Color("255")).
			Padding(0, 1)

	blackCardStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("255")).
			Padding(0, 1)

	winStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	tieStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	loseStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

var suitSymbols = map[byte]string{
	'h': "♥", 'd': "♦", 'c': "♣", 's': "♠",
	'H': "♥", 'D': "♦", 'C': "♣", 'S': "♠",
}

// Display renders successive scan states on a terminal, repainting in place.
// It implements scan.Renderer.
type Display struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDisplay writes to stdout.
func NewDisplay() *Display {
	return &Display{out: os.Stdout}
}

// NewDisplayTo writes to w. Used by tests.
func NewDisplayTo(w io.Writer) *Display {
	return &Display{out: w}
}

// Start switches to the alternate screen and hides the cursor.
func (d *Display) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, "\x1b[?1049h\x1b[?25l")
}

// Stop restores the main screen and the cursor.
func (d *Display) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, "\x1b[?25h\x1b[?1049l")
}

// Render repaints the screen with the given state.
func (d *Display) Render(s scan.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Clear and home, then redraw the whole frame. The input listener holds
	// the terminal in raw mode, which disables output post-processing, so
	// every line feed needs an explicit carriage return.
	fmt.Fprint(d.out, "\x1b[2J\x1b[H")
	fmt.Fprint(d.out, strings.ReplaceAll(d.frame(s), "\n", "\r\n"))
}

func (d *Display) frame(s scan.State) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Oddseye"))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf(
		"Window: %s   Scan: %d   Opponents: %d (↑/↓ to adjust, q to quit)",
		s.Window.Title, s.Iteration, s.Opponents)))
	b.WriteString("\n")

	if !s.Result.Success {
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(errorStyle.Render(s.Result.ErrorMessage)))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(sectionStyle.Render("Your Cards"))
	b.WriteString("\n")
	b.WriteString(renderCards(s.Result.HoleCards))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Community Cards"))
	b.WriteString("\n")
	if len(s.Result.CommunityCards) == 0 {
		b.WriteString(statusStyle.Render("(none dealt)"))
	} else {
		b.WriteString(renderCards(s.Result.CommunityCards))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Outcome"))
	b.WriteString("\n")
	// Rates arrive from the API as fractions in [0,1].
	b.WriteString(fmt.Sprintf("%s  %s  %s",
		winStyle.Render(fmt.Sprintf("Win %.1f%%", s.Result.WinRate*100)),
		tieStyle.Render(fmt.Sprintf("Tie %.1f%%", s.Result.TieRate*100)),
		loseStyle.Render(fmt.Sprintf("Lose %.1f%%", s.Result.LoseRate*100))))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Your Hand Probabilities"))
	b.WriteString("\n")
	b.WriteString(renderProbabilities(s.Result.OurHandProbabilities))

	b.WriteString(sectionStyle.Render("Opponent Hand Probabilities"))
	b.WriteString("\n")
	b.WriteString(renderProbabilities(s.Result.OpponentHandProbabilities))

	return b.String()
}

// renderCards draws cards like "Ah" or "10s" as colored rank+suit chips.
func renderCards(cards []string) string {
	if len(cards) == 0 {
		return statusStyle.Render("(unknown)")
	}
	chips := make([]string, 0, len(cards))
	for _, c := range cards {
		chips = append(chips, renderCard(c))
	}
	return strings.Join(chips, " ")
}

func renderCard(card string) string {
	if len(card) < 2 {
		return blackCardStyle.Render(card)
	}
	suit := card[len(card)-1]
	rank := card[:len(card)-1]
	sym, ok := suitSymbols[suit]
	if !ok {
		return blackCardStyle.Render(card)
	}
	style := blackCardStyle
	if suit == 'h' || suit == 'd' || suit == 'H' || suit == 'D' {
		style = redCardStyle
	}
	return style.Render(rank + sym)
}

// renderProbabilities lists every hand category best to worst with a
// proportional bar. Categories the API omitted render at 0.0 so the table
// keeps its shape between ticks.
func renderProbabilities(probs map[string]float64) string {
	var b strings.Builder
	for _, category := range analysis.HandCategories {
		p := probs[category]
		b.WriteString(fmt.Sprintf("%-16s %s %5.1f%%\n", category, renderBar(p), p*100))
	}
	return b.String()
}

// renderBar draws a fraction in [0,1] as a fixed-width gauge.
func renderBar(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * barWidth)
	return barFillStyle.Render(strings.Repeat("▓", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}
