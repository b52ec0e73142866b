package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hyunwoo-kim/docchat/internal/config"
	"github.com/hyunwoo-kim/docchat/internal/domain"
)

// QuotaStatus reports spend against the configured cost limits.
type QuotaStatus struct {
	DailySpendUSD    float64 `json:"daily_spend_usd"`
	DailyLimitUSD    float64 `json:"daily_limit_usd"`
	MonthlySpendUSD  float64 `json:"monthly_spend_usd"`
	MonthlyLimitUSD  float64 `json:"monthly_limit_usd"`
	DailyExhausted   bool    `json:"daily_exhausted"`
	MonthlyExhausted bool    `json:"monthly_exhausted"`
}

// UsageService exposes usage summaries and quota checks.
type UsageService struct {
	usageRepo domain.UsageRepository
	cfg       config.UsageConfig
}

// NewUsageService creates a new usage service
func NewUsageService(usageRepo domain.UsageRepository, cfg config.UsageConfig) *UsageService {
	return &UsageService{
		usageRepo: usageRepo,
		cfg:       cfg,
	}
}

// Summary aggregates a user's usage over the trailing number of days.
func (s *UsageService) Summary(ctx context.Context, userID uuid.UUID, days int) (*domain.UsageSummary, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	return s.usageRepo.Summarize(ctx, &userID, start, end)
}

// History returns the user's most recent usage records.
func (s *UsageService) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.UsageRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.usageRepo.ListByUser(ctx, userID, limit, offset)
}

// Quota reports the user's spend against the daily and monthly limits.
func (s *UsageService) Quota(ctx context.Context, userID uuid.UUID) (*QuotaStatus, error) {
	now := time.Now().UTC()

	dayStart := now.Truncate(24 * time.Hour)
	daily, err := s.usageRepo.Summarize(ctx, &userID, dayStart, now)
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthly, err := s.usageRepo.Summarize(ctx, &userID, monthStart, now)
	if err != nil {
		return nil, err
	}

	return &QuotaStatus{
		DailySpendUSD:    daily.TotalCostUSD,
		DailyLimitUSD:    s.cfg.DailyLimit,
		MonthlySpendUSD:  monthly.TotalCostUSD,
		MonthlyLimitUSD:  s.cfg.MonthlyLimit,
		DailyExhausted:   s.cfg.DailyLimit > 0 && daily.TotalCostUSD >= s.cfg.DailyLimit,
		MonthlyExhausted: s.cfg.MonthlyLimit > 0 && monthly.TotalCostUSD >= s.cfg.MonthlyLimit,
	}, nil
}
