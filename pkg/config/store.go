package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Snapshot is one immutable view of all journey configuration. Consumers
// hold a snapshot for the duration of a request; refreshes swap the whole
// snapshot, never mutate one.
type Snapshot struct {
	Diff     DiffConfig
	Errors   ErrorConfig
	LoadedAt time.Time
}

// Lookup implements ErrorLookup.
func (s *Snapshot) Lookup(code string) (ErrorDetails, bool) {
	return s.Errors.Lookup(code)
}

// Store owns the current snapshot and refreshes it out of band on a cron
// schedule.
type Store struct {
	source  Source
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
	cron    *cron.Cron
}

func NewStore(source Source, logger *slog.Logger) *Store {
	return &Store{
		source: source,
		logger: logger.With("module", "config"),
	}
}

// Load fetches, validates and installs a fresh snapshot.
func (s *Store) Load(ctx context.Context) error {
	diffDoc, err := s.source.Fetch(ctx, DiffDocument)
	if err != nil {
		return err
	}

	diff, err := ParseDiffConfig(diffDoc)
	if err != nil {
		return err
	}

	errorDoc, err := s.source.Fetch(ctx, ErrorDocument)
	if err != nil {
		return err
	}

	errorCfg, err := ParseErrorConfig(errorDoc)
	if err != nil {
		return err
	}

	s.current.Store(&Snapshot{
		Diff:     diff,
		Errors:   errorCfg,
		LoadedAt: time.Now(),
	})

	return nil
}

// Current returns the installed snapshot. Load must have succeeded once.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// StartRefresh schedules periodic reloads. A failed reload keeps the
// previous snapshot installed.
func (s *Store) StartRefresh(ctx context.Context, schedule string) error {
	s.cron = cron.New()

	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Load(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Config refresh failed, keeping previous snapshot", "error", err)

			return
		}

		s.logger.DebugContext(ctx, "Config snapshot refreshed")
	})
	if err != nil {
		return fmt.Errorf("invalid config refresh schedule %q: %w", schedule, err)
	}

	s.cron.Start()

	return nil
}

// Stop halts the refresh schedule, waiting for an in-flight reload.
func (s *Store) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
