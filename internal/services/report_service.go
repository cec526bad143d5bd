// Package services orchestrates storage, analytics and events.
package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/analytics"
	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

// Snapshot is an immutable view of the ledger for one round of reports.
type Snapshot struct {
	Transactions []core.Transaction
	Cycle        core.CycleConfig
	Limit        core.Money
	LoadedAt     time.Time
	generation   uint64
	version      int64
}

// key scopes a memo key to the snapshot it was derived from, so results
// computed from a stale snapshot are never served after a write.
func (snap Snapshot) key(format string, args ...any) string {
	return fmt.Sprintf("%d:", snap.generation) + fmt.Sprintf(format, args...)
}

// ReportService serves memoized analytics over a snapshot of the ledger.
// Writers in this process call Invalidate after every change. When the
// lister is also a ledger.ChangeTracker, changes made by other processes
// are detected on the next read.
type ReportService struct {
	lister       ledger.TransactionLister
	settings     ledger.SettingsStore
	changes      ledger.ChangeTracker
	defaultCycle core.CycleConfig
	memo         *cache.Memo[any]
	logger       *log.Logger
}

type ReportConfig struct {
	DefaultCycle core.CycleConfig
	CacheSize    int
	CacheTTL     time.Duration
}

func NewReportService(lister ledger.TransactionLister, settings ledger.SettingsStore, cfg ReportConfig, logger *log.Logger) *ReportService {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	changes, _ := lister.(ledger.ChangeTracker)
	return &ReportService{
		lister:       lister,
		settings:     settings,
		changes:      changes,
		defaultCycle: cfg.DefaultCycle,
		memo:         cache.NewMemo[any](cfg.CacheSize, cfg.CacheTTL),
		logger:       logger.WithComponent(log.ComponentReport),
	}
}

// Cache exposes the memo so a cache.Manager can evict expired entries.
func (s *ReportService) Cache() *cache.Memo[any] { return s.memo }

// Invalidate drops every memoized result.
func (s *ReportService) Invalidate() {
	s.memo.Invalidate()
}

func memoize[T any](s *ReportService, key string, compute func() (T, error)) (T, error) {
	v, err := s.memo.Do(key, func() (any, error) {
		v, err := compute()
		return v, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Snapshot loads transactions and settings concurrently. The transaction
// slice is a private copy and must not be modified by callers.
func (s *ReportService) Snapshot(ctx context.Context) (Snapshot, error) {
	version, err := s.changeVersion(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := s.loadSnapshot(ctx, version)
	if err != nil || snap.version >= version {
		return snap, err
	}
	s.logger.DebugContext(ctx, "Ledger changed elsewhere, dropping cached reports",
		"cached_version", snap.version, "version", version)
	s.Invalidate()
	return s.loadSnapshot(ctx, version)
}

func (s *ReportService) changeVersion(ctx context.Context) (int64, error) {
	if s.changes == nil {
		return 0, nil
	}
	v, err := s.changes.ChangeVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read ledger version: %w", err)
	}
	return v, nil
}

// loadSnapshot tags the snapshot with a version read before loading, so a
// write racing the load only causes one extra reload.
func (s *ReportService) loadSnapshot(ctx context.Context, version int64) (Snapshot, error) {
	return memoize(s, "snapshot", func() (Snapshot, error) {
		gen := s.memo.Generation()
		var (
			txs        []core.Transaction
			closingDay int
			limit      core.Money
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			list, err := s.lister.ListTransactions(gctx)
			if err != nil {
				return fmt.Errorf("list transactions: %w", err)
			}
			txs = append(make([]core.Transaction, 0, len(list)), list...)
			return nil
		})
		g.Go(func() error {
			day, err := s.settings.ClosingDay(gctx)
			if err != nil {
				return fmt.Errorf("load closing day: %w", err)
			}
			closingDay = day
			return nil
		})
		g.Go(func() error {
			l, err := s.settings.SpendingLimit(gctx)
			if err != nil {
				return fmt.Errorf("load spending limit: %w", err)
			}
			limit = l
			return nil
		})
		if err := g.Wait(); err != nil {
			return Snapshot{}, err
		}

		cycle := s.defaultCycle
		if closingDay != 0 {
			if cfg, err := core.CycleConfigFromDay(closingDay); err == nil {
				cycle = cfg
			} else {
				s.logger.WarnContext(ctx, "Ignoring stored closing day", log.FieldClosingDay, closingDay, log.FieldError, err)
			}
		}

		s.logger.DebugContext(ctx, "Loaded ledger snapshot", log.FieldCount, len(txs), log.FieldClosingDay, cycle.Day())
		return Snapshot{Transactions: txs, Cycle: cycle, Limit: limit, LoadedAt: time.Now(), generation: gen, version: version}, nil
	})
}

// Transactions lists one cycle's transactions, newest first.
func (s *ReportService) Transactions(ctx context.Context, key core.CycleKey, filter core.TypeFilter) ([]core.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return memoize(s, snap.key("txs:%s:%s", key, filter), func() ([]core.Transaction, error) {
		return analytics.RecentTransactions(analytics.FilterByCycle(snap.Transactions, key, snap.Cycle, filter), 0), nil
	})
}

// Recent returns the n newest transactions regardless of cycle.
func (s *ReportService) Recent(ctx context.Context, n int) ([]core.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return memoize(s, snap.key("recent:%d", n), func() ([]core.Transaction, error) {
		return analytics.RecentTransactions(snap.Transactions, n), nil
	})
}

// Cycles lists every cycle holding data, most recent first.
func (s *ReportService) Cycles(ctx context.Context) ([]core.CycleKey, core.CycleConfig, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, core.CycleConfig{}, err
	}
	keys, err := memoize(s, snap.key("cycles"), func() ([]core.CycleKey, error) {
		return analytics.EnumerateCycles(snap.Transactions, snap.Cycle), nil
	})
	return keys, snap.Cycle, err
}

// PeriodReport is a single cycle's dashboard.
type PeriodReport struct {
	Cycle      core.CycleKey              `json:"cycle"`
	Start      core.Date                  `json:"start"`
	End        core.Date                  `json:"end"`
	Summary    analytics.PeriodSummary    `json:"summary"`
	Categories []analytics.CategoryAmount `json:"categories"`
	Limit      analytics.LimitStatus      `json:"limit"`
}

// Summary summarizes one cycle. The spending limit always compares against
// the cycle's full expense total, whatever the type filter.
func (s *ReportService) Summary(ctx context.Context, key core.CycleKey, filter core.TypeFilter) (PeriodReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return PeriodReport{}, err
	}
	return memoize(s, snap.key("summary:%s:%s", key, filter), func() (PeriodReport, error) {
		all := analytics.SummarizePeriod(analytics.FilterByCycle(snap.Transactions, key, snap.Cycle, core.FilterAll))
		summary := all
		if filter != core.FilterAll {
			summary = analytics.SummarizePeriod(analytics.FilterByCycle(snap.Transactions, key, snap.Cycle, filter))
		}
		start, end := analytics.CycleBounds(key, snap.Cycle)
		return PeriodReport{
			Cycle:      key,
			Start:      start,
			End:        end,
			Summary:    summary,
			Categories: summary.Categories(),
			Limit:      analytics.EvaluateLimit(snap.Limit, all.Expense),
		}, nil
	})
}

// Monthly returns the 12 cycle-month buckets of year.
func (s *ReportService) Monthly(ctx context.Context, year int) (analytics.MonthlyBuckets, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return analytics.MonthlyBuckets{}, err
	}
	return memoize(s, snap.key("monthly:%d", year), func() (analytics.MonthlyBuckets, error) {
		return analytics.AggregateMonthly(snap.Transactions, year, snap.Cycle), nil
	})
}

// Balance returns the running balance of year.
func (s *ReportService) Balance(ctx context.Context, year int) ([12]core.Money, error) {
	buckets, err := s.Monthly(ctx, year)
	if err != nil {
		return [12]core.Money{}, err
	}
	return analytics.ProjectRunningBalance(buckets), nil
}

// Comparison is Period A against Period B with each period's daily balance.
type Comparison struct {
	analytics.Comparison
	KeyA   core.CycleKey `json:"key_a"`
	KeyB   core.CycleKey `json:"key_b"`
	StartA core.Date     `json:"start_a"`
	StartB core.Date     `json:"start_b"`
	DailyA []core.Money  `json:"daily_a"`
	DailyB []core.Money  `json:"daily_b"`
}

func (s *ReportService) Compare(ctx context.Context, a, b core.CycleKey) (Comparison, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Comparison{}, err
	}
	return memoize(s, snap.key("compare:%s:%s", a, b), func() (Comparison, error) {
		sa := analytics.SummarizePeriod(analytics.FilterByCycle(snap.Transactions, a, snap.Cycle, core.FilterAll))
		sb := analytics.SummarizePeriod(analytics.FilterByCycle(snap.Transactions, b, snap.Cycle, core.FilterAll))
		startA, _ := analytics.CycleBounds(a, snap.Cycle)
		startB, _ := analytics.CycleBounds(b, snap.Cycle)
		return Comparison{
			Comparison: analytics.ComparePeriods(sa, sb),
			KeyA:       a,
			KeyB:       b,
			StartA:     startA,
			StartB:     startB,
			DailyA:     analytics.ProjectDailyBalance(snap.Transactions, a, snap.Cycle),
			DailyB:     analytics.ProjectDailyBalance(snap.Transactions, b, snap.Cycle),
		}, nil
	})
}

// Settings returns the effective cycle configuration and spending limit.
func (s *ReportService) Settings(ctx context.Context) (core.CycleConfig, core.Money, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.CycleConfig{}, core.Money{}, err
	}
	return snap.Cycle, snap.Limit, nil
}
