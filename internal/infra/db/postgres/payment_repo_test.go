//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
)

func TestPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewPaymentRepo(testPool)
	ctx := context.Background()

	newPayment := func(invoiceID string) *model.Payment {
		now := time.Now().UTC().Truncate(time.Second)
		return &model.Payment{
			ID:         uuid.NewString(),
			InvoiceID:  invoiceID,
			TelegramID: 100,
			ProductID:  model.ProductChannel2,
			AmountRUB:  1990,
			Status:     model.PaymentStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	t.Run("save and find by invoice id", func(t *testing.T) {
		cleanup(t)

		p := newPayment("1001")
		if err := repo.Save(ctx, p); err != nil {
			t.Fatalf("save: %v", err)
		}
		found, err := repo.FindByInvoiceID(ctx, "1001")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if found.Status != model.PaymentStatusPending || found.PaidAt != nil || found.AmountRUB != 1990 {
			t.Errorf("unexpected payment: %+v", found)
		}

		if _, err := repo.FindByInvoiceID(ctx, "9999"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("mark succeeded wins exactly once", func(t *testing.T) {
		cleanup(t)

		if err := repo.Save(ctx, newPayment("1001")); err != nil {
			t.Fatalf("save: %v", err)
		}

		changed, err := repo.MarkSucceeded(ctx, "1001")
		if err != nil || !changed {
			t.Fatalf("first flip: changed=%v err=%v, want true and nil", changed, err)
		}
		changed, err = repo.MarkSucceeded(ctx, "1001")
		if err != nil || changed {
			t.Fatalf("second flip: changed=%v err=%v, want false and nil", changed, err)
		}

		found, err := repo.FindByInvoiceID(ctx, "1001")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if found.Status != model.PaymentStatusSuccess || found.PaidAt == nil {
			t.Errorf("payment not settled: %+v", found)
		}
	})

	t.Run("duplicate invoice id is refused", func(t *testing.T) {
		cleanup(t)

		if err := repo.Save(ctx, newPayment("1001")); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := repo.Save(ctx, newPayment("1001")); !errors.Is(err, domain.ErrAlreadyProcessed) {
			t.Errorf("expected ErrAlreadyProcessed, got %v", err)
		}
	})

	t.Run("sum since counts settled payments only", func(t *testing.T) {
		cleanup(t)

		for _, inv := range []string{"1", "2", "3"} {
			if err := repo.Save(ctx, newPayment(inv)); err != nil {
				t.Fatalf("save %s: %v", inv, err)
			}
		}
		for _, inv := range []string{"1", "2"} {
			if _, err := repo.MarkSucceeded(ctx, inv); err != nil {
				t.Fatalf("settle %s: %v", inv, err)
			}
		}

		sum, err := repo.SumSince(ctx, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("sum: %v", err)
		}
		if sum != 2*1990 {
			t.Errorf("sum = %d, want %d", sum, 2*1990)
		}

		sum, err = repo.SumSince(ctx, time.Now().Add(time.Hour))
		if err != nil || sum != 0 {
			t.Errorf("future window sum = %d, %v; want 0", sum, err)
		}
	})
}
