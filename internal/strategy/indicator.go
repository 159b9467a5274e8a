package strategy

import (
	"errors"

	"github.com/markcheno/go-talib"
)

var ErrInvalidWindow = errors.New("moving average window must be at least 1")

// SMAValue is one point of a moving average. Value is meaningless unless Ready.
type SMAValue struct {
	Value float64
	Ready bool
}

// SimpleMovingAverage returns the rolling arithmetic mean of closes. Index i is
// ready only once window closes (i >= window-1) have been observed.
func SimpleMovingAverage(closes []float64, window int) ([]SMAValue, error) {
	if window < 1 {
		return nil, ErrInvalidWindow
	}

	out := make([]SMAValue, len(closes))
	if len(closes) < window {
		return out, nil
	}

	values := talib.Sma(closes, window)
	for i := window - 1; i < len(closes); i++ {
		out[i] = SMAValue{Value: values[i], Ready: true}
	}
	return out, nil
}
