package analysis

import "fmt"

// HandCategories lists the named hand categories best to worst, matching the
// API's probability maps and the display order.
var HandCategories = []string{
	"Straight Flush",
	"Four of a Kind",
	"Full House",
	"Flush",
	"Straight",
	"Three of a Kind",
	"Two Pair",
	"One Pair",
	"High Card",
}

// Result is one analysis outcome, successful or not. Failures carry a
// displayable message and zeroed rates so every tick stays renderable.
type Result struct {
	Success                   bool
	HoleCards                 []string
	CommunityCards            []string
	Opponents                 int
	WinRate                   float64
	TieRate                   float64
	LoseRate                  float64
	OurHandProbabilities      map[string]float64
	OpponentHandProbabilities map[string]float64
	ErrorMessage              string
}

// Errorf builds the failure-shaped Result used for capture failures, service
// errors and the pre-first-scan waiting state.
func Errorf(format string, args ...any) Result {
	return Result{
		Success:                   false,
		HoleCards:                 []string{},
		CommunityCards:            []string{},
		OurHandProbabilities:      map[string]float64{},
		OpponentHandProbabilities: map[string]float64{},
		ErrorMessage:              fmt.Sprintf(format, args...),
	}
}
