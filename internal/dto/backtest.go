package dto

import "time"

// BacktestRequest overrides the configured backtest. Nil or empty fields keep the configured value.
type BacktestRequest struct {
	SignalSymbol    string   `json:"signal_symbol"`
	TradeSymbol     string   `json:"trade_symbol"`
	StartDate       string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate         string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Capital         *float64 `json:"capital" validate:"omitempty,gt=0"`
	SMAWindow       *int     `json:"sma_window" validate:"omitempty,gte=1"`
	FixedStopPct    *float64 `json:"fixed_stop_pct" validate:"omitempty,gte=0,lt=1"`
	TrailingStopPct *float64 `json:"trailing_stop_pct" validate:"omitempty,gte=0,lt=1"`
	Slippage        *float64 `json:"slippage" validate:"omitempty,gte=0,lt=1"`
	Commission      *float64 `json:"commission" validate:"omitempty,gte=0"`
	Timing          string   `json:"timing" validate:"omitempty,oneof=intraday end_of_day hybrid"`
	Cooldown        string   `json:"cooldown" validate:"omitempty,oneof=all_exits stop_exits none"`
	SignalMemory    *bool    `json:"signal_memory"`
}

// StrategyParams echoes the parameters a run actually used.
type StrategyParams struct {
	Capital         float64 `json:"capital"`
	SMAWindow       int     `json:"sma_window"`
	FixedStopPct    float64 `json:"fixed_stop_pct"`
	TrailingStopPct float64 `json:"trailing_stop_pct"`
	Slippage        float64 `json:"slippage"`
	Commission      float64 `json:"commission"`
	Timing          string  `json:"timing"`
	Cooldown        string  `json:"cooldown"`
	SignalMemory    bool    `json:"signal_memory"`
}

// TradeLog is one round trip of a run. Exit fields are nil while the trade is open.
type TradeLog struct {
	Number        int        `json:"number"`
	Symbol        string     `json:"symbol"`
	EntryTime     time.Time  `json:"entry_time"`
	EntryPrice    float64    `json:"entry_price"`
	EntryReason   string     `json:"entry_reason"`
	Shares        float64    `json:"shares"`
	ExitTime      *time.Time `json:"exit_time"`
	ExitPrice     *float64   `json:"exit_price"`
	ExitReason    *string    `json:"exit_reason"`
	ProfitLoss    *float64   `json:"profit_loss"`
	ProfitLossPct *float64   `json:"profit_loss_pct"`
	HoldingPeriod int        `json:"holding_period"`
}

type YearResult struct {
	Year         int     `json:"year"`
	BeginBalance float64 `json:"begin_balance"`
	EndBalance   float64 `json:"end_balance"`
	ProfitLoss   float64 `json:"profit_loss"`
	ReturnPct    float64 `json:"return_pct"`
	Trades       int     `json:"trades"`
	WinRate      float64 `json:"win_rate"`
	Stops        int     `json:"stops"`
}

// SummaryResult holds the aggregate statistics of one run. Percent fields are 0-100.
type SummaryResult struct {
	TotalTrades         int            `json:"total_trades"`
	WinningTrades       int            `json:"winning_trades"`
	LosingTrades        int            `json:"losing_trades"`
	WinRate             float64        `json:"win_rate"`
	AvgWinPct           float64        `json:"avg_win_pct"`
	AvgLossPct          float64        `json:"avg_loss_pct"`
	ExitReasons         map[string]int `json:"exit_reasons"`
	StartCapital        float64        `json:"start_capital"`
	FinalCapital        float64        `json:"final_capital"`
	TotalProfitLoss     float64        `json:"total_profit_loss"`
	TotalReturnPct      float64        `json:"total_return_pct"`
	BuyAndHoldReturnPct *float64       `json:"buy_and_hold_return_pct"`
	ExcessReturnPct     *float64       `json:"excess_return_pct"`
	TotalProfit         float64        `json:"total_profit"`
	TotalLoss           float64        `json:"total_loss"`
	ProfitFactor        float64        `json:"profit_factor"` // Total Profit / Total Loss
	MaxDrawdown         float64        `json:"max_drawdown"`
	AvgHoldingPeriod    float64        `json:"avg_holding_period"`
	SlippageCost        float64        `json:"slippage_cost"`
	CommissionCost      float64        `json:"commission_cost"`
	Years               []YearResult   `json:"years"`
}

// BacktestResult merangkum hasil dari sebuah sesi backtest.
type BacktestResult struct {
	RunID        string         `json:"run_id"`
	SignalSymbol string         `json:"signal_symbol"`
	TradeSymbol  string         `json:"trade_symbol"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date"`
	Observations int            `json:"observations"`
	Params       StrategyParams `json:"params"`
	Summary      SummaryResult  `json:"summary"`
	Trades       []TradeLog     `json:"trades"`
}

type GridSearchRequest struct {
	SMAWindows       []int     `json:"sma_windows" validate:"omitempty,dive,gte=1"`
	FixedStopPcts    []float64 `json:"fixed_stop_pcts" validate:"omitempty,dive,gte=0,lt=1"`
	TrailingStopPcts []float64 `json:"trailing_stop_pcts" validate:"omitempty,dive,gte=0,lt=1"`
	Timings          []string  `json:"timings" validate:"omitempty,dive,oneof=intraday end_of_day hybrid"`
	TopN             int       `json:"top_n" validate:"gte=0"`
}

type GridEntry struct {
	Rank            int            `json:"rank"`
	Params          StrategyParams `json:"params"`
	TotalTrades     int            `json:"total_trades"`
	WinRate         float64        `json:"win_rate"`
	TotalReturnPct  float64        `json:"total_return_pct"`
	ExcessReturnPct *float64       `json:"excess_return_pct"`
	MaxDrawdown     float64        `json:"max_drawdown"`
	ProfitFactor    float64        `json:"profit_factor"`
}

type GridSearchResult struct {
	RunID     string      `json:"run_id"`
	Evaluated int         `json:"evaluated"`
	Skipped   int         `json:"skipped"`
	Results   []GridEntry `json:"results"`
}

// ReferenceTrade is one row of the reference platform's exported trade list.
type ReferenceTrade struct {
	EntryTime time.Time `json:"entry_time"`
	ExitTime  time.Time `json:"exit_time"`
	PnL       float64   `json:"pnl"`
	IsWin     bool      `json:"is_win"`
}

const (
	MatchFull    = "full"
	MatchEntry   = "entry"
	MatchNone    = "none"
	MatchMissing = "missing"
)

type CompareRow struct {
	Number        int        `json:"number"`
	EntryDate     *time.Time `json:"entry_date"`
	RefEntryDate  *time.Time `json:"ref_entry_date"`
	ProfitLoss    *float64   `json:"profit_loss"`
	RefProfitLoss *float64   `json:"ref_profit_loss"`
	Match         string     `json:"match"`
}

type CompareResult struct {
	RunID           string       `json:"run_id"`
	Trades          int          `json:"trades"`
	ReferenceTrades int          `json:"reference_trades"`
	Wins            int          `json:"wins"`
	ReferenceWins   int          `json:"reference_wins"`
	TotalPnL        float64      `json:"total_pnl"`
	ReferencePnL    float64      `json:"reference_pnl"`
	Compared        int          `json:"compared"`
	FullMatches     int          `json:"full_matches"`
	EntryMatches    int          `json:"entry_matches"`
	Rows            []CompareRow `json:"rows"`
}

type CompareRequest struct {
	Backtest      BacktestRequest `json:"backtest"`
	ReferencePath string          `json:"reference_path"`
}

// PairSweepRequest runs the same backtest over several signal/trade symbol pairs.
// Pairs are written SIGNAL:TRADE, e.g. "SPY:UPRO"; empty uses the configured list.
type PairSweepRequest struct {
	Backtest BacktestRequest `json:"backtest"`
	Pairs    []string        `json:"pairs" validate:"omitempty,dive,required"`
}

type PairResult struct {
	Rank                int      `json:"rank"`
	SignalSymbol        string   `json:"signal_symbol"`
	TradeSymbol         string   `json:"trade_symbol"`
	RunID               string   `json:"run_id"`
	Observations        int      `json:"observations"`
	TotalTrades         int      `json:"total_trades"`
	WinRate             float64  `json:"win_rate"`
	TotalReturnPct      float64  `json:"total_return_pct"`
	BuyAndHoldReturnPct *float64 `json:"buy_and_hold_return_pct"`
	ExcessReturnPct     *float64 `json:"excess_return_pct"`
	MaxDrawdown         float64  `json:"max_drawdown"`
	ProfitFactor        float64  `json:"profit_factor"`
}

// PairFailure is a pair whose data could not be loaded.
type PairFailure struct {
	SignalSymbol string `json:"signal_symbol"`
	TradeSymbol  string `json:"trade_symbol"`
	Error        string `json:"error"`
}

type PairSweepResult struct {
	RunID    string        `json:"run_id"`
	Results  []PairResult  `json:"results"`
	Failures []PairFailure `json:"failures"`
}
