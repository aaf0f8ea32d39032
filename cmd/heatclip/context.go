package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"heatclip/internal/clipstore"
	"heatclip/internal/config"
	"heatclip/internal/logging"
	"heatclip/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// session holds the resources one command invocation works with.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *clipstore.Store
	lock    *flock.Flock
	runID   string
	logPath string
}

// openSession opens the clip store. Batch sessions also take the run lock and
// log to a fresh run log; other sessions log nowhere.
func (c *commandContext) openSession(cmd *cobra.Command, batch bool) (context.Context, *session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	s := &session{cfg: cfg, logger: logging.NewNop(), runID: uuid.NewString()}
	if batch {
		s.lock = flock.New(cfg.LockPath())
		ok, err := s.lock.TryLock()
		if err != nil {
			return nil, nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, nil, errors.New("another heatclip run is already using " + cfg.DatabasePath())
		}
		logger, logPath, err := logging.NewFromConfig(cfg)
		if err != nil {
			_ = s.lock.Unlock()
			return nil, nil, fmt.Errorf("init logging: %w", err)
		}
		s.logger = logger
		s.logPath = logPath
	}

	store, err := clipstore.Open(cfg.DatabasePath())
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("open clip store: %w", err)
	}
	s.store = store

	ctx := services.WithRequestID(cmd.Context(), s.runID)
	if batch {
		logging.WithContext(ctx, s.logger).Info("heatclip run started",
			logging.String("command", cmd.Name()),
			logging.String("database", cfg.DatabasePath()),
			logging.String("run_log", s.logPath),
		)
	}
	return ctx, s, nil
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close clip store", logging.Error(err))
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}
}

// resolveSeries maps names to configured series; no names selects every series.
func resolveSeries(cfg *config.Config, names []string) ([]config.Series, error) {
	if len(names) == 0 {
		if len(cfg.Series) == 0 {
			return nil, errors.New("no series configured; add a [[series]] section to the config")
		}
		return cfg.Series, nil
	}
	selected := make([]config.Series, 0, len(names))
	for _, name := range names {
		series, ok := cfg.FindSeries(name)
		if !ok {
			return nil, fmt.Errorf("series %q is not configured", name)
		}
		selected = append(selected, series)
	}
	return selected, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
