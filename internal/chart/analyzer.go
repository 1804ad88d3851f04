// Package chart reads (serial, color) rows out of recognized results-table
// text and reports simple streak patterns plus a forecast for the next serial.
package chart

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"slices"
	"strings"

	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/predict"
)

// NoPattern is the report text when no rows were recognized.
const NoPattern = "No strong pattern found."

// window is how many trailing observations the streak heuristics look at.
const window = 5

// rowRe matches a serial of five or more digits followed, after any non-digits,
// by a color. Lines are upper-cased before matching.
var rowRe = regexp.MustCompile(`(\d{5,})\D*(RED|GREEN|VIOLET)`)

var alternating = []model.Color{model.Red, model.Green, model.Red, model.Green, model.Red}

// Observation is one recognized row.
type Observation struct {
	Serial string      `json:"serial"`
	Color  model.Color `json:"color"`
	Line   int         `json:"line"`
}

// Predictor forecasts the outcome of a serial.
type Predictor interface {
	Predict(ctx context.Context, serial string) (predict.Prediction, error)
}

// Report is the result of analyzing one block of text.
type Report struct {
	Observations []Observation       `json:"observations"`
	Notes        []string            `json:"notes"`
	Next         *predict.Prediction `json:"next,omitempty"`
}

// String renders the notes one per line, or NoPattern when there are none.
func (r *Report) String() string {
	if len(r.Notes) == 0 {
		return NoPattern
	}
	return strings.Join(r.Notes, "\n")
}

// Analyzer turns recognized text into a Report.
type Analyzer struct {
	predictor Predictor
}

// NewAnalyzer returns an analyzer forecasting with p.
func NewAnalyzer(p Predictor) *Analyzer {
	return &Analyzer{predictor: p}
}

// Parse extracts observations in line order. A line contributes at most one.
func Parse(text string) []Observation {
	var obs []Observation
	for i, line := range splitLines(text) {
		m := rowRe.FindStringSubmatch(strings.ToUpper(line))
		if m == nil {
			continue
		}
		obs = append(obs, Observation{Serial: m[1], Color: model.Color(m[2]), Line: i + 1})
	}
	return obs
}

// Analyze parses text, applies the streak heuristics to the last five
// observations, and forecasts the serial after the last one.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Report, error) {
	r := &Report{Observations: Parse(text), Notes: []string{}}
	if len(r.Observations) == 0 {
		return r, nil
	}

	colors := lastColors(r.Observations, window)
	if violetAfterOther(colors) {
		r.Notes = append(r.Notes, "VIOLET follows RED or GREEN often.")
	}
	if slices.Equal(colors, alternating) {
		r.Notes = append(r.Notes, "RED-GREEN alternate pattern seen.")
	}

	next, err := successor(r.Observations[len(r.Observations)-1].Serial)
	if err != nil {
		return nil, err
	}
	p, err := a.predictor.Predict(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", next, err)
	}
	r.Next = &p
	r.Notes = append(r.Notes, fmt.Sprintf("Prediction: %s, %s (Next Serial: %s)", p.Color, p.Size, next))
	return r, nil
}

// splitLines splits on \n, \r\n and lone \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func lastColors(obs []Observation, n int) []model.Color {
	if len(obs) > n {
		obs = obs[len(obs)-n:]
	}
	colors := make([]model.Color, len(obs))
	for i, o := range obs {
		colors[i] = o.Color
	}
	return colors
}

// violetAfterOther reports whether the first VIOLET in colors comes right
// after a non-VIOLET color.
func violetAfterOther(colors []model.Color) bool {
	for i, c := range colors {
		if c == model.Violet {
			return i > 0 && colors[i-1] != model.Violet
		}
	}
	return false
}

// successor returns the decimal successor of a digit string. Leading zeros
// are not preserved.
func successor(serial string) (string, error) {
	n, ok := new(big.Int).SetString(serial, 10)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a number", predict.ErrInvalidSerial, serial)
	}
	return n.Add(n, big.NewInt(1)).String(), nil
}
