package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/oddseye/oddseye/internal/analysis"
	"github.com/oddseye/oddseye/internal/scan"
	"github.com/oddseye/oddseye/internal/window"
)

func successState() scan.State {
	return scan.State{
		Iteration: 7,
		Opponents: 4,
		Window:    window.Info{ID: "0x1", Title: "Poker Table", Width: 800, Height: 600},
		Result: analysis.Result{
			Success:        true,
			HoleCards:      []string{"Ah", "Ks"},
			CommunityCards: []string{"10d", "7c", "2s"},
			WinRate:        0.615,
			TieRate:        0.021,
			LoseRate:       0.364,
			OurHandProbabilities: map[string]float64{
				"One Pair":  0.442,
				"High Card": 0.30,
			},
			OpponentHandProbabilities: map[string]float64{
				"High Card": 0.505,
			},
		},
	}
}

func TestDisplayRendersSuccessState(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplayTo(&buf)
	d.Render(successState())

	out := buf.String()
	for _, want := range []string{
		"Poker Table", "Opponents: 4",
		"A♥", "K♠", "10♦", "7♣", "2♠",
		"One Pair", "High Card",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered frame missing %q", want)
		}
	}
}

// Rates and probabilities arrive as fractions in [0,1] and must be shown as
// percentages.
func TestDisplayScalesFractionalRates(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplayTo(&buf)
	d.Render(successState())

	out := buf.String()
	for _, want := range []string{"Win 61.5%", "Tie 2.1%", "Lose 36.4%", "44.2%", "30.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered frame missing %q", want)
		}
	}
	if strings.Contains(out, "Win 0.6%") {
		t.Error("win rate rendered as a raw fraction instead of a percentage")
	}
}

// The input listener keeps the terminal raw, so every line feed must carry a
// carriage return or the frame stair-steps.
func TestDisplayEmitsCarriageReturns(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplayTo(&buf)
	d.Render(successState())

	out := buf.Bytes()
	for i, c := range out {
		if c == '\n' && (i == 0 || out[i-1] != '\r') {
			t.Fatalf("bare line feed at offset %d", i)
		}
	}
	if !bytes.Contains(out, []byte("\r\n")) {
		t.Error("rendered frame contains no line endings at all")
	}
}

func TestDisplayRendersErrorState(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplayTo(&buf)
	d.Render(scan.State{
		Window: window.Info{Title: "Poker Table"},
		Result: analysis.Errorf("Failed to capture window: gone"),
	})

	out := buf.String()
	if !strings.Contains(out, "Failed to capture window: gone") {
		t.Error("rendered frame missing the error message")
	}
	if strings.Contains(out, "Your Cards") {
		t.Error("error frame should not render card sections")
	}
}

func TestRenderCard(t *testing.T) {
	tests := []struct {
		card string
		want string
	}{
		{"Ah", "A♥"},
		{"10s", "10♠"},
		{"Qd", "Q♦"},
		{"2c", "2♣"},
		{"??", "??"}, // unknown suit passes through
	}
	for _, tt := range tests {
		t.Run(tt.card, func(t *testing.T) {
			if got := renderCard(tt.card); !strings.Contains(got, tt.want) {
				t.Errorf("renderCard(%q) = %q, want it to contain %q", tt.card, got, tt.want)
			}
		})
	}
}

func TestProbabilitiesKeepCategoryOrder(t *testing.T) {
	out := renderProbabilities(map[string]float64{
		"High Card": 0.10,
		"Flush":     0.05,
		"One Pair":  0.20,
	})
	flush := strings.Index(out, "Flush")
	pair := strings.Index(out, "One Pair")
	high := strings.Index(out, "High Card")
	if flush == -1 || pair == -1 || high == -1 {
		t.Fatalf("missing categories in %q", out)
	}
	if !(flush < pair && pair < high) {
		t.Errorf("categories out of order: Flush@%d OnePair@%d HighCard@%d", flush, pair, high)
	}
}

// Absent categories render at 0.0 so the table keeps the same nine rows on
// every tick.
func TestProbabilitiesRenderAllCategories(t *testing.T) {
	out := renderProbabilities(map[string]float64{"Flush": 0.05})

	for _, category := range analysis.HandCategories {
		if !strings.Contains(out, category) {
			t.Errorf("missing category %q", category)
		}
	}
	if got := strings.Count(out, "\n"); got != len(analysis.HandCategories) {
		t.Errorf("rendered %d rows, want %d", got, len(analysis.HandCategories))
	}
	if !strings.Contains(out, "5.0%") {
		t.Error("Flush fraction 0.05 not rendered as 5.0%")
	}
	if !strings.Contains(out, "0.0%") {
		t.Error("absent categories must render at 0.0%")
	}
}

func TestRenderBarIsProportional(t *testing.T) {
	full := renderBar(1)
	empty := renderBar(0)
	if strings.Contains(full, "░") {
		t.Error("full bar contains empty cells")
	}
	if strings.Contains(empty, "▓") {
		t.Error("empty bar contains filled cells")
	}
	if got := strings.Count(renderBar(0.5), "▓"); got != barWidth/2 {
		t.Errorf("half bar has %d filled cells, want %d", got, barWidth/2)
	}
}
