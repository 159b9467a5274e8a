package common

import "fmt"

const (
	KEY_BARS = "bars:%s:%s:%s"
)

const (
	CACHE_LAYER_MEMORY = "memory"
	CACHE_LAYER_FILE   = "file"
)

// BarsKey identifies the cached series of one symbol and timeframe from one provider.
func BarsKey(provider, symbol, timeframe string) string {
	return fmt.Sprintf(KEY_BARS, provider, symbol, timeframe)
}
