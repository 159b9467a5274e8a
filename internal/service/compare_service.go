package service

import (
	"context"
	"fmt"
	"math"
	"sma-crossover/config"
	"sma-crossover/internal/dto"
	"sma-crossover/internal/repository"
	"sma-crossover/pkg/logger"
	"sma-crossover/pkg/utils"
	"time"
)

// CompareService checks a backtest against the trade list of the reference platform.
type CompareService interface {
	Compare(ctx context.Context, req dto.CompareRequest) (*dto.CompareResult, error)
}

type compareService struct {
	cfg                *config.Config
	log                *logger.Logger
	backtestService    BacktestService
	referenceTradeRepo repository.ReferenceTradeRepository
}

func NewCompareService(cfg *config.Config, log *logger.Logger, backtestService BacktestService, referenceTradeRepo repository.ReferenceTradeRepository) CompareService {
	return &compareService{
		cfg:                cfg,
		log:                log,
		backtestService:    backtestService,
		referenceTradeRepo: referenceTradeRepo,
	}
}

func (s *compareService) Compare(ctx context.Context, req dto.CompareRequest) (*dto.CompareResult, error) {
	path := firstNonEmpty(req.ReferencePath, s.cfg.Backtest.ReferenceTrades)
	if path == "" {
		return nil, fmt.Errorf("%w: no reference trade file configured", ErrInvalidRequest)
	}
	loc, err := time.LoadLocation(s.cfg.Backtest.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	refs, err := s.referenceTradeRepo.Load(path)
	if err != nil {
		return nil, err
	}
	result, err := s.backtestService.RunBacktest(ctx, req.Backtest)
	if err != nil {
		return nil, err
	}

	out := compareTrades(result.Trades, refs, loc)
	out.RunID = result.RunID

	s.log.InfoContext(ctx, "Reference comparison completed",
		logger.StringField("run_id", result.RunID),
		logger.StringField("reference", path),
		logger.IntField("trades", out.Trades),
		logger.IntField("reference_trades", out.ReferenceTrades),
		logger.IntField("full_matches", out.FullMatches),
		logger.IntField("entry_matches", out.EntryMatches))

	return out, nil
}

// compareTrades pairs both lists by index. A full match needs the same entry
// date, exit dates at most one day apart and the same P&L sign; an entry match
// only needs the entry date. Our dates are taken in loc, reference dates as written.
func compareTrades(trades []dto.TradeLog, refs []dto.ReferenceTrade, loc *time.Location) *dto.CompareResult {
	out := &dto.CompareResult{
		Trades:          len(trades),
		ReferenceTrades: len(refs),
		Compared:        min(len(trades), len(refs)),
	}
	for _, t := range trades {
		if t.ProfitLoss == nil {
			continue
		}
		out.TotalPnL += *t.ProfitLoss
		if *t.ProfitLoss > 0 {
			out.Wins++
		}
	}
	for _, r := range refs {
		out.ReferencePnL += r.PnL
		if r.IsWin {
			out.ReferenceWins++
		}
	}
	out.TotalPnL = utils.RoundMoney(out.TotalPnL)
	out.ReferencePnL = utils.RoundMoney(out.ReferencePnL)

	rows := max(len(trades), len(refs))
	out.Rows = make([]dto.CompareRow, 0, rows)
	for i := 0; i < rows; i++ {
		row := dto.CompareRow{Number: i + 1, Match: dto.MatchMissing}
		var ours *dto.TradeLog
		var ref *dto.ReferenceTrade
		if i < len(trades) {
			ours = &trades[i]
			row.EntryDate = utils.ToPointer(utils.DateOf(ours.EntryTime, loc))
			row.ProfitLoss = ours.ProfitLoss
		}
		if i < len(refs) {
			ref = &refs[i]
			row.RefEntryDate = utils.ToPointer(utils.DateOf(ref.EntryTime, nil))
			row.RefProfitLoss = utils.ToPointer(ref.PnL)
		}
		if ours != nil && ref != nil {
			row.Match = matchTrade(*ours, *ref, loc)
			switch row.Match {
			case dto.MatchFull:
				out.FullMatches++
			case dto.MatchEntry:
				out.EntryMatches++
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func matchTrade(ours dto.TradeLog, ref dto.ReferenceTrade, loc *time.Location) string {
	if !utils.DateOf(ours.EntryTime, loc).Equal(utils.DateOf(ref.EntryTime, nil)) {
		return dto.MatchNone
	}
	if ours.ExitTime == nil || ours.ProfitLoss == nil {
		return dto.MatchEntry
	}
	exitGap := utils.DateOf(*ours.ExitTime, loc).Sub(utils.DateOf(ref.ExitTime, nil)).Hours() / 24
	sameSign := (*ours.ProfitLoss > 0) == (ref.PnL > 0)
	if math.Abs(exitGap) <= 1 && sameSign {
		return dto.MatchFull
	}
	return dto.MatchEntry
}
