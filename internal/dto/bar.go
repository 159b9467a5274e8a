package dto

import "time"

// PriceBar is one sampling interval of one instrument. Bars are treated as immutable once fetched.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

type GetBarsParam struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// BarSet is everything one backtest needs from the data provider.
type BarSet struct {
	SignalDaily    []PriceBar
	SignalIntraday []PriceBar
	TradeIntraday  []PriceBar
}

// Alpaca market data v2 bars response
type AlpacaBarsResponse struct {
	Bars          []AlpacaBar `json:"bars"`
	Symbol        string      `json:"symbol"`
	NextPageToken *string     `json:"next_page_token"`
}

type AlpacaBar struct {
	Timestamp  time.Time `json:"t"`
	Open       float64   `json:"o"`
	High       float64   `json:"h"`
	Low        float64   `json:"l"`
	Close      float64   `json:"c"`
	Volume     float64   `json:"v"`
	TradeCount int64     `json:"n"`
	VWAP       float64   `json:"vw"`
}

// Yahoo Finance chart API response
type YahooFinanceResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				ExchangeTimezone   string  `json:"exchangeTimezoneName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// MarketDataParam selects the three series of one backtest. Refresh bypasses every cache.
type MarketDataParam struct {
	SignalSymbol      string
	TradeSymbol       string
	IntradayTimeframe string
	Start             time.Time
	End               time.Time
	Refresh           bool
}

// SeriesInfo describes one loaded series.
type SeriesInfo struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Bars      int       `json:"bars"`
	First     time.Time `json:"first"`
	Last      time.Time `json:"last"`
}
