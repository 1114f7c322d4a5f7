package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"creator-kb-api/internal/config"
	"creator-kb-api/internal/domain/entity"
)

type fakeUsageRepo struct {
	used int64
	err  error

	gotStart time.Time
	gotEnd   time.Time
}

func (r *fakeUsageRepo) Create(_ context.Context, _ *entity.UsageEvent) error { return nil }

func (r *fakeUsageRepo) GetTokenUsage(_ context.Context, _ string, start, end time.Time) (int64, error) {
	r.gotStart = start
	r.gotEnd = end
	return r.used, r.err
}

func TestCheckDailyTokensDisabled(t *testing.T) {
	checker := NewTokenQuotaChecker(&fakeUsageRepo{used: 999999}, config.QuotaConfig{Enabled: false, MaxTokensPerDay: 100})

	used, max, err := checker.CheckDailyTokens(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != 0 || max != 0 {
		t.Fatalf("expected zero usage when disabled, got used=%d max=%d", used, max)
	}
}

func TestCheckDailyTokensWithinQuota(t *testing.T) {
	repo := &fakeUsageRepo{used: 500}
	checker := NewTokenQuotaChecker(repo, config.QuotaConfig{Enabled: true, MaxTokensPerDay: 1000})
	checker.now = func() time.Time { return time.Date(2025, 6, 15, 13, 30, 0, 0, time.UTC) }

	used, max, err := checker.CheckDailyTokens(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != 500 || max != 1000 {
		t.Fatalf("got used=%d max=%d", used, max)
	}

	wantStart := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !repo.gotStart.Equal(wantStart) {
		t.Fatalf("window start = %v, want %v", repo.gotStart, wantStart)
	}
	if !repo.gotEnd.Equal(wantStart.Add(24 * time.Hour)) {
		t.Fatalf("window end = %v", repo.gotEnd)
	}
}

func TestCheckDailyTokensExceeded(t *testing.T) {
	checker := NewTokenQuotaChecker(&fakeUsageRepo{used: 1200}, config.QuotaConfig{Enabled: true, MaxTokensPerDay: 1000})

	used, max, err := checker.CheckDailyTokens(context.Background(), "t1")
	if err == nil {
		t.Fatal("expected quota exceeded error")
	}
	if !IsQuotaExceeded(err) {
		t.Fatalf("expected TokenQuotaExceededError, got %T", err)
	}
	if used != 1200 || max != 1000 {
		t.Fatalf("got used=%d max=%d", used, max)
	}
}

func TestCheckDailyTokensRepoError(t *testing.T) {
	repoErr := errors.New("db down")
	checker := NewTokenQuotaChecker(&fakeUsageRepo{err: repoErr}, config.QuotaConfig{Enabled: true, MaxTokensPerDay: 1000})

	_, _, err := checker.CheckDailyTokens(context.Background(), "t1")
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected repo error, got %v", err)
	}
}
