// Package escalation runs the time-based priority bump and escalation flag
// passes in the background.
package escalation

import (
	"context"
	"time"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/logging"

	"go.uber.org/zap"
)

// Rule names passed to hooks.
const (
	RulePriorityBump = "priority_bump"
	RuleEscalation   = "escalation_flag"
)

// Store is the part of the complaint store the scheduler mutates.
type Store interface {
	BumpPriority(ctx context.Context, createdBefore time.Time) ([]uint, error)
	FlagEscalations(ctx context.Context, createdBefore time.Time) ([]uint, error)
}

// Hook is told which complaints a pass changed. It is only called when the
// pass touched at least one row and must not block for long.
type Hook interface {
	OnEscalation(ctx context.Context, rule string, complaintIDs []uint)
}

// Settings are the intervals and age thresholds of both rules.
type Settings struct {
	PriorityBumpInterval time.Duration
	PriorityBumpAfter    time.Duration
	EscalationInterval   time.Duration
	EscalationAfter      time.Duration
	// PassTimeout bounds a single store call.
	PassTimeout time.Duration
}

// SettingsFrom copies the scheduler settings out of cfg.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		PriorityBumpInterval: cfg.PriorityBumpInterval,
		PriorityBumpAfter:    cfg.PriorityBumpAfter,
		EscalationInterval:   cfg.EscalationInterval,
		EscalationAfter:      cfg.EscalationAfter,
		PassTimeout:          config.DefaultStoreTimeout,
	}
}

// Result reports what a pass changed.
type Result struct {
	Bumped  []uint `json:"bumped"`
	Flagged []uint `json:"flagged"`
}

// Scheduler owns the two periodic rules.
type Scheduler struct {
	store    Store
	settings Settings
	hooks    []Hook
	logger   *zap.Logger
	Now      func() time.Time
}

// NewScheduler creates a scheduler. Zero settings fall back to the defaults.
func NewScheduler(store Store, settings Settings, logger *zap.Logger, hooks ...Hook) *Scheduler {
	if settings.PriorityBumpInterval <= 0 {
		settings.PriorityBumpInterval = config.DefaultPriorityBumpInterval
	}
	if settings.PriorityBumpAfter <= 0 {
		settings.PriorityBumpAfter = config.DefaultPriorityBumpAfter
	}
	if settings.EscalationInterval <= 0 {
		settings.EscalationInterval = config.DefaultEscalationInterval
	}
	if settings.EscalationAfter <= 0 {
		settings.EscalationAfter = config.DefaultEscalationAfter
	}
	if settings.PassTimeout <= 0 {
		settings.PassTimeout = config.DefaultStoreTimeout
	}
	return &Scheduler{
		store:    store,
		settings: settings,
		hooks:    hooks,
		logger:   logging.OrNop(logger),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run ticks both rules until ctx is cancelled. A failed pass is logged and
// retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	bump := time.NewTicker(s.settings.PriorityBumpInterval)
	defer bump.Stop()
	escalate := time.NewTicker(s.settings.EscalationInterval)
	defer escalate.Stop()

	s.logger.Info("escalation scheduler started",
		zap.Duration("priority_bump_interval", s.settings.PriorityBumpInterval),
		zap.Duration("escalation_interval", s.settings.EscalationInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("escalation scheduler stopped")
			return
		case <-bump.C:
			_, _ = s.BumpPriority(ctx)
		case <-escalate.C:
			_, _ = s.FlagEscalations(ctx)
		}
	}
}

// RunOnce runs both rules immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	var err error
	if res.Bumped, err = s.BumpPriority(ctx); err != nil {
		return res, err
	}
	res.Flagged, err = s.FlagEscalations(ctx)
	return res, err
}

// BumpPriority promotes stale open complaints to high priority.
func (s *Scheduler) BumpPriority(ctx context.Context) ([]uint, error) {
	return s.pass(ctx, RulePriorityBump, s.settings.PriorityBumpAfter, s.store.BumpPriority)
}

// FlagEscalations flags complaints unresolved past the escalation threshold.
func (s *Scheduler) FlagEscalations(ctx context.Context) ([]uint, error) {
	return s.pass(ctx, RuleEscalation, s.settings.EscalationAfter, s.store.FlagEscalations)
}

func (s *Scheduler) pass(ctx context.Context, rule string, age time.Duration, apply func(context.Context, time.Time) ([]uint, error)) ([]uint, error) {
	passCtx, cancel := context.WithTimeout(ctx, s.settings.PassTimeout)
	defer cancel()

	cutoff := s.Now().Add(-age)
	ids, err := apply(passCtx, cutoff)
	if err != nil {
		s.logger.Error("escalation pass failed", zap.String("rule", rule), zap.Error(err))
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}

	s.logger.Info("escalation pass applied", zap.String("rule", rule), zap.Int("count", len(ids)))
	for _, h := range s.hooks {
		s.notify(ctx, h, rule, ids)
	}
	return ids, nil
}

func (s *Scheduler) notify(ctx context.Context, h Hook, rule string, ids []uint) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("escalation hook panicked", zap.String("rule", rule), zap.Any("panic", r))
		}
	}()
	h.OnEscalation(ctx, rule, ids)
}
