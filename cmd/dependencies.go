package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sma-crossover/config"
	"sma-crossover/internal/report"
	"sma-crossover/internal/repository"
	"sma-crossover/internal/service"
	"sma-crossover/pkg/cache"
	"sma-crossover/pkg/logger"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type AppDependency struct {
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	repo      *repository.Repository
	service   *service.Service
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	inmemoryCache := cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval)
	repo := repository.NewRepository(cfg, log, inmemoryCache)

	e := echo.New()
	e.HideBanner = true
	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		echo:      e,
		cache:     inmemoryCache,
		repo:      repo,
		service:   service.NewService(cfg, log, repo),
	}, nil
}

// reportWriter picks the output format; times are shown in the session timezone.
func (d *AppDependency) reportWriter(format string) (report.Writer, error) {
	loc, err := time.LoadLocation(d.cfg.Backtest.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return report.New(format, loc)
}

// writeOutput sends a report to path, or to stdout when path is empty.
func writeOutput(path string, write func(w io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	d.cache.Flush()
	// stderr sync fails on some terminals; nothing to recover
	_ = d.log.Sync()
	return nil
}
