package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-club-subscription/internal/domain/ports/repository"
)

// Stats is the aggregate snapshot served to the admin API and /admin command.
type Stats struct {
	TotalUsers      int            `json:"total_users"`
	ActiveByProduct map[string]int `json:"active_subs_by_product"`
	RevenueWeekRUB  int64          `json:"revenue_week_rub"`
	RevenueMonthRUB int64          `json:"revenue_month_rub"`
}

type StatsUseCase struct {
	users    repository.UserRepository
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
}

func NewStatsUseCase(users repository.UserRepository, subs repository.SubscriptionRepository, payments repository.PaymentRepository) *StatsUseCase {
	return &StatsUseCase{users: users, subs: subs, payments: payments}
}

func (uc *StatsUseCase) Totals(ctx context.Context) (*Stats, error) {
	users, err := uc.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: count users: %w", err)
	}
	active, err := uc.subs.CountActiveByProduct(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: active subs: %w", err)
	}
	now := time.Now()
	week, err := uc.payments.SumSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("stats: week revenue: %w", err)
	}
	month, err := uc.payments.SumSince(ctx, now.AddDate(0, -1, 0))
	if err != nil {
		return nil, fmt.Errorf("stats: month revenue: %w", err)
	}
	return &Stats{
		TotalUsers:      users,
		ActiveByProduct: active,
		RevenueWeekRUB:  week,
		RevenueMonthRUB: month,
	}, nil
}
