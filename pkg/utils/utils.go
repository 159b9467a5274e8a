package utils

import (
	"context"
	"fmt"
	"runtime"
	"sma-crossover/pkg/logger"
	"strings"

	"github.com/shopspring/decimal"
)

func ToPointer[T any](value T) *T {
	return &value
}

func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		pc, _, _, ok := runtime.Caller(1)
		funcName := "unknown"
		if ok {
			fn := runtime.FuncForPC(pc)
			if fn != nil {
				parts := strings.Split(fn.Name(), "/")
				funcName = parts[len(parts)-1]
			}
		}

		log.Warn("Context cancelled",
			logger.StringField("caller", funcName),
		)
		return false
	default:
		return true
	}
}

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

// FormatMoney renders a signed dollar amount with thousands separators, e.g. "+$1,234.50".
func FormatMoney(value float64) string {
	d := decimal.NewFromFloat(value).Round(2)
	sign := "+"
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + "$" + groupThousands(d.StringFixed(2))
}

// FormatPrice renders an unsigned price with two decimals.
func FormatPrice(value float64) string {
	return "$" + groupThousands(decimal.NewFromFloat(value).StringFixed(2))
}

func FormatPercentage(value float64) string {
	return fmt.Sprintf("%+.1f%%", value)
}

func groupThousands(fixed string) string {
	intPart, frac, _ := strings.Cut(fixed, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
