package strategy

import (
	"errors"
	"math"
	"testing"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
)

func TestCross(t *testing.T) {
	tests := []struct {
		name                 string
		prevS, prevE, lS, lE float64
		want                 model.Direction
	}{
		{"golden cross", 9, 10, 11, 10, model.DirectionCE},
		{"death cross", 11, 10, 9, 10, model.DirectionPE},
		{"still above", 11, 10, 12, 10, model.DirectionNeutral},
		{"tie on previous", 10, 10, 11, 10, model.DirectionNeutral},
		{"tie on last", 9, 10, 10, 10, model.DirectionNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cross(tt.prevS, tt.prevE, tt.lS, tt.lE)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCross_NaN(t *testing.T) {
	if _, err := Cross(math.NaN(), 10, 11, 10); !errors.Is(err, ErrUndefinedValue) {
		t.Fatalf("err = %v, want ErrUndefinedValue", err)
	}
}

func crossSeries(n int, sma, ema func(i int) float64) *indicator.Series {
	rows := make([]row, n)
	for i := range rows {
		rows[i] = row{100 + float64(i), 100, 50, 100, 100}
	}
	s := seriesOf(rows...)
	for i := 0; i < n; i++ {
		s.SMA[i] = sma(i)
		s.EMA[i] = ema(i)
	}
	return s
}

func TestCrossover_InsufficientData(t *testing.T) {
	s := crossSeries(5, func(int) float64 { return 1 }, func(int) float64 { return 2 })
	_, err := NewCrossover().Evaluate("TEST", s, -1)
	var ide *InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("err = %v, want InsufficientDataError", err)
	}
	if ide.Need != 14 || ide.Have != 5 {
		t.Errorf("need/have = %d/%d, want 14/5", ide.Need, ide.Have)
	}
	if !errors.Is(err, ErrInsufficientData) {
		t.Error("InsufficientDataError must unwrap to ErrInsufficientData")
	}
}

func TestCrossover_CEOnLastBar(t *testing.T) {
	// SMA below EMA until the final bar, then above.
	s := crossSeries(20,
		func(i int) float64 {
			if i == 19 {
				return 11
			}
			return 9
		},
		func(int) float64 { return 10 },
	)
	sig, err := NewCrossover().Evaluate("TEST", s, -1)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Direction != model.DirectionCE || !sig.IsEntry() {
		t.Errorf("got %s/%s, want ENTRY/CE", sig.Action, sig.Direction)
	}
	assertClose(t, "entry", sig.Entry, 119, 1e-9)
}

func TestCrossover_NeutralWithoutCross(t *testing.T) {
	s := crossSeries(14, func(int) float64 { return 12 }, func(int) float64 { return 10 })
	sig, err := NewCrossover().Evaluate("TEST", s, -1)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Direction != model.DirectionNeutral {
		t.Errorf("got %s, want NEUTRAL", sig.Direction)
	}
}
