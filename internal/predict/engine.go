// Package predict turns a serial into a predicted outcome.
//
// A stored override always wins. Without one, the outcome follows a fixed
// digit rule:
//
//	color = GREEN  if digitSum % 3 == 0
//	        VIOLET if lastDigit is 0 or 5
//	        RED    otherwise
//	size  = SMALL  if lastDigit <= 4, else BIG
package predict

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/store"
)

// ErrInvalidSerial reports a serial the digit rule cannot be applied to.
var ErrInvalidSerial = errors.New("invalid serial")

// Source says where a prediction came from.
type Source string

const (
	SourceRule     Source = "rule"
	SourceOverride Source = "override"
)

// Prediction is the answer for one serial.
type Prediction struct {
	Serial string `json:"serial"`
	model.Outcome
	Source Source `json:"source"`
}

// Overrides is the read side of the override store.
type Overrides interface {
	GetOverride(ctx context.Context, serial string) (*model.Override, error)
}

// Engine predicts outcomes, consulting overrides first.
type Engine struct {
	overrides Overrides
}

// NewEngine returns an engine backed by the given override store. A nil store
// means the rule alone decides.
func NewEngine(overrides Overrides) *Engine {
	return &Engine{overrides: overrides}
}

// Predict returns the outcome for serial. The serial is used verbatim as the
// override key; non-digit characters only matter to the rule.
func (e *Engine) Predict(ctx context.Context, serial string) (Prediction, error) {
	if _, ok := digitSum(serial); !ok {
		return Prediction{}, fmt.Errorf("%w: %q has no digits", ErrInvalidSerial, serial)
	}

	if e.overrides != nil {
		o, err := e.overrides.GetOverride(ctx, serial)
		switch {
		case err == nil:
			return Prediction{Serial: serial, Outcome: o.Outcome, Source: SourceOverride}, nil
		case !errors.Is(err, store.ErrNotFound):
			return Prediction{}, fmt.Errorf("lookup override %s: %w", serial, err)
		}
	}

	out, err := Rule(serial)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Serial: serial, Outcome: out, Source: SourceRule}, nil
}

// Rule applies the digit rule to serial, ignoring overrides.
func Rule(serial string) (model.Outcome, error) {
	sum, ok := digitSum(serial)
	if !ok {
		return model.Outcome{}, fmt.Errorf("%w: %q has no digits", ErrInvalidSerial, serial)
	}
	last, ok := lastDigit(serial)
	if !ok {
		return model.Outcome{}, fmt.Errorf("%w: %q does not end in a digit", ErrInvalidSerial, serial)
	}

	var out model.Outcome
	// mod-3 is checked first, so a serial like 12345 is GREEN, not VIOLET.
	switch {
	case sum%3 == 0:
		out.Color = model.Green
	case last == 0 || last == 5:
		out.Color = model.Violet
	default:
		out.Color = model.Red
	}
	if last <= 4 {
		out.Size = model.Small
	} else {
		out.Size = model.Big
	}
	return out, nil
}

// digitSum sums the ASCII digits of s. ok is false when s has none.
func digitSum(s string) (sum int, ok bool) {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			sum += int(c - '0')
			ok = true
		}
	}
	return sum, ok
}

func lastDigit(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	c := s[len(s)-1]
	if c < '0' || c > '9' {
		return 0, false
	}
	return int(c - '0'), true
}
