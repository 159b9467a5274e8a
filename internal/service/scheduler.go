package service

import (
	"context"
	"fmt"
	"sma-crossover/config"
	"sma-crossover/pkg/logger"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService refreshes the bar caches on a cron schedule while the API is serving.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop() context.Context
	RefreshNow(ctx context.Context) error
	NextRun() time.Time
}

type schedulerService struct {
	cfg        *config.Config
	log        *logger.Logger
	cronParser cron.Parser
	cron       *cron.Cron
	marketData MarketDataService
	entryID    cron.EntryID

	// one refresh at a time; a tick that finds one running is skipped
	running sync.Mutex
}

func NewSchedulerService(cfg *config.Config, log *logger.Logger, marketData MarketDataService) SchedulerService {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &schedulerService{
		cfg:        cfg,
		log:        log,
		cronParser: parser,
		cron:       cron.New(cron.WithParser(parser)),
		marketData: marketData,
	}
}

// Start registers the refresh job and starts the cron runner. An empty cron spec disables it.
func (s *schedulerService) Start(ctx context.Context) error {
	spec := s.cfg.Scheduler.RefreshCron
	if spec == "" {
		s.log.InfoContext(ctx, "Bar cache refresh schedule disabled")
		return nil
	}
	if _, err := s.cronParser.Parse(spec); err != nil {
		return fmt.Errorf("failed to parse cron expression %q: %w", spec, err)
	}

	id, err := s.cron.AddFunc(spec, func() {
		if err := s.RefreshNow(context.Background()); err != nil {
			s.log.Error("Scheduled bar cache refresh failed", logger.ErrorField(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	s.entryID = id
	s.cron.Start()

	s.log.InfoContext(ctx, "Bar cache refresh scheduled",
		logger.StringField("cron", spec),
		logger.StringField("next_run", s.NextRun().Format(time.RFC3339)))
	return nil
}

// Stop halts the runner; the returned context is done once running jobs finish.
func (s *schedulerService) Stop() context.Context {
	return s.cron.Stop()
}

func (s *schedulerService) NextRun() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// RefreshNow refetches every configured series, bounded by the refresh timeout.
func (s *schedulerService) RefreshNow(ctx context.Context) error {
	if !s.running.TryLock() {
		s.log.WarnContext(ctx, "Bar cache refresh already running, skipping")
		return nil
	}
	defer s.running.Unlock()

	if timeout := s.cfg.Scheduler.RefreshTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	param, err := s.marketData.DefaultParam()
	if err != nil {
		return err
	}
	param.Refresh = true

	started := time.Now()
	series, err := s.marketData.Fetch(ctx, param)
	if err != nil {
		return fmt.Errorf("refresh bar cache: %w", err)
	}
	for _, info := range series {
		s.log.InfoContext(ctx, "Series refreshed",
			logger.StringField("symbol", info.Symbol),
			logger.StringField("timeframe", info.Timeframe),
			logger.IntField("bars", info.Bars),
			logger.StringField("last", info.Last.Format(time.RFC3339)))
	}
	s.log.InfoContext(ctx, "Bar cache refresh completed", logger.StringField("elapsed", time.Since(started).String()))
	return nil
}
