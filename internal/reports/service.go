package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/paperledger/paperledger/internal/shared"
)

// Service is the report engine: find-or-compute generation, versioned
// refresh, and cached reads.
type Service struct {
	repo      Repository
	cache     *Cache
	logger    *slog.Logger
	tolerance decimal.Decimal
	group     singleflight.Group
	now       func() time.Time
}

func NewService(logger *slog.Logger, repo Repository, cache *Cache, tolerance decimal.Decimal) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		logger:    logger,
		tolerance: tolerance,
		now:       time.Now,
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Generate returns the report for a type and period, computing it when no
// COMPLETED snapshot exists. Concurrent calls for the same type and period
// collapse to a single computation.
func (s *Service) Generate(ctx context.Context, t ReportType, start, end time.Time) (Report, error) {
	if !ValidType(t) {
		return Report{}, fmt.Errorf("reports: %w: unknown report type %q", shared.ErrInvalidValue, t)
	}
	if end.Before(start) {
		return Report{}, fmt.Errorf("reports: %w: period end precedes start", shared.ErrInvalidValue)
	}
	result, err, _ := s.group.Do(Key(t, start, end), func() (any, error) {
		rep, err := s.repo.FindByKey(ctx, t, start, end)
		if errors.Is(err, shared.ErrNotFound) {
			rep, err = s.repo.Insert(ctx, Report{ID: uuid.New(), Type: t, PeriodStart: start, PeriodEnd: end})
		}
		if err != nil {
			return Report{}, err
		}
		if rep.Status == StatusCompleted || rep.Status == StatusArchived {
			return rep, nil
		}
		return s.compute(ctx, rep)
	})
	if err != nil {
		return Report{}, err
	}
	return result.(Report), nil
}

// Refresh recomputes a report snapshot. On success the version increases by
// exactly one; on failure the previous snapshot stays readable.
func (s *Service) Refresh(ctx context.Context, id uuid.UUID) (Report, error) {
	rep, err := s.repo.Get(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if rep.Status == StatusArchived {
		return Report{}, fmt.Errorf("reports: %w: report is archived", shared.ErrInvalidTransition)
	}
	result, err, _ := s.group.Do(Key(rep.Type, rep.PeriodStart, rep.PeriodEnd), func() (any, error) {
		return s.compute(ctx, rep)
	})
	if err != nil {
		return Report{}, err
	}
	return result.(Report), nil
}

// Read returns the report with its cached snapshot and counts the view.
// The view-count write is best-effort; a failure never blocks the read.
func (s *Service) Read(ctx context.Context, id uuid.UUID) (Report, error) {
	rep, err := s.repo.Get(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if data, ok := s.cache.Get(ctx, rep.CacheKey()); ok {
		rep.CachedData = data
	} else if len(rep.CachedData) > 0 {
		s.cache.Set(ctx, rep.CacheKey(), rep.CachedData)
	}
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		s.logger.Warn("increment report view count", slog.String("report_id", id.String()), slog.Any("error", err))
	} else {
		rep.ViewCount++
	}
	return rep, nil
}

// RefreshCompleted recomputes every COMPLETED report, used by the scheduled
// refresh job. Failures are logged per report and do not stop the sweep.
func (s *Service) RefreshCompleted(ctx context.Context) (int, error) {
	list, err := s.repo.ListByStatus(ctx, StatusCompleted)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for _, rep := range list {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := s.Refresh(ctx, rep.ID); err != nil {
			s.logger.Warn("scheduled report refresh", slog.String("report_id", rep.ID.String()), slog.Any("error", err))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// Archive retires a COMPLETED report. Archived snapshots stay readable but
// are never refreshed.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) (Report, error) {
	return s.repo.Archive(ctx, id)
}

// compute builds the snapshot and swaps it in. A period with no posted
// entries marks the report FAILED with a reason and keeps any prior snapshot.
func (s *Service) compute(ctx context.Context, rep Report) (Report, error) {
	if err := s.repo.MarkGenerating(ctx, rep.ID); err != nil {
		return Report{}, err
	}
	data, err := s.build(ctx, rep)
	if err != nil {
		failed, markErr := s.repo.MarkFailed(ctx, rep.ID, err.Error())
		if markErr != nil {
			return Report{}, markErr
		}
		s.logger.Warn("report generation failed",
			slog.String("report_id", rep.ID.String()),
			slog.String("type", string(rep.Type)),
			slog.String("reason", err.Error()))
		return failed, nil
	}
	swapped, err := s.repo.SwapCachedData(ctx, rep.ID, data, s.now())
	if err != nil {
		return Report{}, err
	}
	s.cache.Set(ctx, swapped.CacheKey(), swapped.CachedData)
	return swapped, nil
}

func (s *Service) build(ctx context.Context, rep Report) (json.RawMessage, error) {
	postings, err := s.repo.Postings(ctx, rep.PeriodStart, rep.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if len(postings) == 0 {
		return nil, errors.New("no posted entries in period")
	}
	switch rep.Type {
	case TypeGeneralLedger, TypeSubLedger:
		openings, err := s.repo.OpeningBalances(ctx, rep.PeriodStart)
		if err != nil {
			return nil, err
		}
		return json.Marshal(BuildGeneralLedger(postings, openings))
	}
	balances, err := s.repo.AccountBalances(ctx, rep.PeriodStart, rep.PeriodEnd)
	if err != nil {
		return nil, err
	}
	switch rep.Type {
	case TypeBalanceSheet:
		return json.Marshal(BuildBalanceSheet(balances, s.tolerance))
	case TypeIncomeStatement:
		return json.Marshal(BuildIncomeStatement(balances))
	case TypeTrialBalance:
		return json.Marshal(BuildTrialBalance(balances))
	}
	return nil, fmt.Errorf("unsupported report type %q", rep.Type)
}
