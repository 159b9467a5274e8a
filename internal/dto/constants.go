package dto

const (
	Timeframe1Min  string = "1Min"
	Timeframe5Min  string = "5Min"
	Timeframe15Min string = "15Min"
	Timeframe30Min string = "30Min"
	Timeframe1Hour string = "1Hour"
	Timeframe1Day  string = "1Day"

	DateLayout     string = "2006-01-02"
	DateTimeLayout string = "2006-01-02 15:04"

	ProviderAlpaca string = "alpaca"
	ProviderYahoo  string = "yahoo"

	FormatJSON    string = "json"
	FormatCSV     string = "csv"
	FormatConsole string = "console"
)

// YahooInterval maps a timeframe to the interval string the chart API expects.
func YahooInterval(timeframe string) string {
	switch timeframe {
	case Timeframe1Min:
		return "1m"
	case Timeframe5Min:
		return "5m"
	case Timeframe15Min:
		return "15m"
	case Timeframe30Min:
		return "30m"
	case Timeframe1Hour:
		return "60m"
	default:
		return "1d"
	}
}
