package predict

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/store"
)

type fakeOverrides struct {
	m     map[string]model.Outcome
	err   error
	calls int
}

func (f *fakeOverrides) GetOverride(_ context.Context, serial string) (*model.Override, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out, ok := f.m[serial]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &model.Override{Serial: serial, Outcome: out}, nil
}

func TestRule(t *testing.T) {
	tests := []struct {
		serial string
		want   model.Outcome
	}{
		// digit sum 20, last digit 5
		{"10775", model.Outcome{Color: model.Violet, Size: model.Big}},
		// digit sum 15: mod-3 wins over the trailing 5
		{"12345", model.Outcome{Color: model.Green, Size: model.Big}},
		// digit sum 3
		{"10002", model.Outcome{Color: model.Green, Size: model.Small}},
		// digit sum 1, last digit 0
		{"10000", model.Outcome{Color: model.Violet, Size: model.Small}},
		// digit sum 6, last digit 5: GREEN rather than VIOLET
		{"10005", model.Outcome{Color: model.Green, Size: model.Big}},
		// digit sum 8, last digit 7
		{"10007", model.Outcome{Color: model.Red, Size: model.Big}},
		// digit sum 5, last digit 4: boundary of SMALL
		{"10004", model.Outcome{Color: model.Red, Size: model.Small}},
		{"0", model.Outcome{Color: model.Green, Size: model.Small}},
		// non-digits are ignored for the sum: 1+0+7+7+5 = 20
		{"10-775", model.Outcome{Color: model.Violet, Size: model.Big}},
	}
	for _, tt := range tests {
		t.Run(tt.serial, func(t *testing.T) {
			got, err := Rule(tt.serial)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleInvalidSerial(t *testing.T) {
	for _, serial := range []string{"", "abc", "12345x", "  "} {
		_, err := Rule(serial)
		assert.ErrorIs(t, err, ErrInvalidSerial, "serial %q", serial)
	}
}

func TestRuleModThreeAlwaysGreen(t *testing.T) {
	for n := 0; n < 2000; n++ {
		serial := "1" + pad(n)
		out, err := Rule(serial)
		require.NoError(t, err)
		sum, _ := digitSum(serial)
		if sum%3 == 0 {
			assert.Equal(t, model.Green, out.Color, serial)
		}
	}
}

func pad(n int) string {
	s := []byte("0000")
	for i := 3; i >= 0; i-- {
		s[i] = byte('0' + n%10)
		n /= 10
	}
	return string(s)
}

func TestPredictUsesOverrideFirst(t *testing.T) {
	ov := &fakeOverrides{m: map[string]model.Outcome{
		"10775": {Color: model.Green, Size: model.Big},
	}}
	e := NewEngine(ov)
	ctx := context.Background()

	p, err := e.Predict(ctx, "10775")
	require.NoError(t, err)
	assert.Equal(t, SourceOverride, p.Source)
	assert.Equal(t, model.Outcome{Color: model.Green, Size: model.Big}, p.Outcome)

	p, err = e.Predict(ctx, "10776")
	require.NoError(t, err)
	assert.Equal(t, SourceRule, p.Source)
	want, _ := Rule("10776")
	assert.Equal(t, want, p.Outcome)
}

func TestPredictOverrideKeyIsVerbatim(t *testing.T) {
	ov := &fakeOverrides{m: map[string]model.Outcome{
		"10775": {Color: model.Red, Size: model.Small},
	}}
	e := NewEngine(ov)

	// Same digits, different key: the rule decides.
	p, err := e.Predict(context.Background(), "10-775")
	require.NoError(t, err)
	assert.Equal(t, SourceRule, p.Source)
	assert.Equal(t, model.Violet, p.Color)
}

func TestPredictIsIdempotent(t *testing.T) {
	e := NewEngine(&fakeOverrides{})
	ctx := context.Background()

	a, err := e.Predict(ctx, "98765")
	require.NoError(t, err)
	b, err := e.Predict(ctx, "98765")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPredictStoreFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	e := NewEngine(&fakeOverrides{err: boom})

	_, err := e.Predict(context.Background(), "10775")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidSerial)
}

func TestPredictRejectsSerialWithoutDigits(t *testing.T) {
	ov := &fakeOverrides{}
	e := NewEngine(ov)

	_, err := e.Predict(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrInvalidSerial)
	assert.Zero(t, ov.calls, "no store lookup for an unusable serial")
}

func TestPredictNilStore(t *testing.T) {
	p, err := NewEngine(nil).Predict(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, SourceRule, p.Source)
	assert.Equal(t, model.Green, p.Color)
}
