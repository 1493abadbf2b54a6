package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
	"telegram-club-subscription/internal/domain/ports/adapter"
	"telegram-club-subscription/internal/domain/ports/repository"
	"telegram-club-subscription/internal/infra/metrics"
)

// Periods holds the subscription durations of the deployment.
type Periods struct {
	Trial        time.Duration
	Paid         time.Duration
	ReminderLead time.Duration
}

// SubscriptionUseCase is the authoritative transition logic for membership
// state. It holds no state of its own: every transition re-reads the ledger,
// so it is safe to re-enter across process restarts.
//
// Channel access and message delivery are best-effort collaborators: their
// failures are logged and swallowed, never rolled back into the ledger. The
// sweeps converge actual channel membership with the ledger over time.
type SubscriptionUseCase struct {
	users     repository.UserRepository
	subs      repository.SubscriptionRepository
	reminders repository.ReminderRepository
	products  *model.ProductSet
	periods   Periods
	access    adapter.ChannelAccess
	messenger adapter.Messenger
	log       *zerolog.Logger
}

func NewSubscriptionUseCase(
	users repository.UserRepository,
	subs repository.SubscriptionRepository,
	reminders repository.ReminderRepository,
	products *model.ProductSet,
	periods Periods,
	access adapter.ChannelAccess,
	messenger adapter.Messenger,
	logger *zerolog.Logger,
) *SubscriptionUseCase {
	ucLog := logger.With().Str("component", "SubscriptionUC").Logger()
	return &SubscriptionUseCase{
		users:     users,
		subs:      subs,
		reminders: reminders,
		products:  products,
		periods:   periods,
		access:    access,
		messenger: messenger,
		log:       &ucLog,
	}
}

// GrantTrial gives the one-time free period on the given product. The gate is
// the user-level gift flag: it is consumed once, across all products.
func (uc *SubscriptionUseCase) GrantTrial(ctx context.Context, tgID int64, productID string) (*model.Subscription, error) {
	product, err := uc.products.Get(productID)
	if err != nil {
		return nil, err
	}
	user, err := uc.users.FindByTelegramID(ctx, tgID)
	if err != nil {
		return nil, fmt.Errorf("grant trial: %w", err)
	}
	if user.GiftReceived {
		return nil, domain.ErrGiftAlreadyReceived
	}

	sub, err := uc.writeTrial(ctx, tgID, product)
	if err != nil {
		return nil, err
	}
	if err := uc.users.MarkGiftReceived(ctx, tgID); err != nil {
		return nil, fmt.Errorf("grant trial: mark gift: %w", err)
	}

	uc.grantAccess(ctx, product, tgID)
	uc.send(ctx, tgID, giftWelcomeMessage(sub.StartAt, sub.EndAt), adapter.KeyboardMainMenu, "")
	return sub, nil
}

// GrantPaid starts a fresh paid period from now, overwriting whatever period
// the pair had before. Invoked only from a verified payment.
//
// Bonus rule: the first-ever purchase of the secondary product also grants a
// trial on the primary product, announced in one combined message.
func (uc *SubscriptionUseCase) GrantPaid(ctx context.Context, tgID int64, productID string) (*model.Subscription, error) {
	product, err := uc.products.Get(productID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &model.Subscription{
		TelegramID: tgID,
		ProductID:  product.ID,
		Active:     true,
		Method:     model.MethodPaid,
		StartAt:    now,
		EndAt:      now.Add(uc.periods.Paid),
	}
	if err := uc.subs.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("grant paid: %w", err)
	}
	metrics.IncSubscriptionGranted(string(model.MethodPaid), product.ID)
	uc.grantAccess(ctx, product, tgID)

	if !uc.products.IsPrimary(product.ID) {
		primary := uc.products.Primary()
		everHad, err := uc.subs.EverHad(ctx, tgID, primary.ID)
		if err != nil {
			uc.log.Error().Err(err).Int64("tg_id", tgID).Msg("bonus eligibility check failed")
		} else if !everHad {
			bonus, err := uc.writeTrial(ctx, tgID, primary)
			if err != nil {
				uc.log.Error().Err(err).Int64("tg_id", tgID).Msg("bonus trial grant failed")
			} else {
				uc.grantAccess(ctx, primary, tgID)
				uc.send(ctx, tgID, paymentSuccessWithBonusMessage(product, sub, primary, bonus), adapter.KeyboardBack, "")
				return sub, nil
			}
		}
	}

	uc.send(ctx, tgID, paymentSuccessMessage(product, sub), adapter.KeyboardBack, "")
	return sub, nil
}

// writeTrial persists the trial subscription row and its reminder.
// The caller decides whether the gift flag is consumed.
func (uc *SubscriptionUseCase) writeTrial(ctx context.Context, tgID int64, product *model.Product) (*model.Subscription, error) {
	now := time.Now()
	sub := &model.Subscription{
		TelegramID: tgID,
		ProductID:  product.ID,
		Active:     true,
		Method:     model.MethodTrial,
		StartAt:    now,
		EndAt:      now.Add(uc.periods.Trial),
	}
	if err := uc.subs.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("write trial: %w", err)
	}
	if err := uc.reminders.Upsert(ctx, tgID, product.ID, sub.EndAt.Add(-uc.periods.ReminderLead)); err != nil {
		return nil, fmt.Errorf("write trial reminder: %w", err)
	}
	metrics.IncSubscriptionGranted(string(model.MethodTrial), product.ID)
	return sub, nil
}

// ExpireSweep deactivates every overdue active trial, revokes channel access
// and sends one expiration notice. A failure on one record never blocks the
// rest of the due set. Returns how many subscriptions were deactivated.
func (uc *SubscriptionUseCase) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	expired, err := uc.subs.FindExpiredTrials(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire sweep: %w", err)
	}
	n := 0
	for _, sub := range expired {
		if err := uc.subs.Deactivate(ctx, sub.TelegramID, sub.ProductID); err != nil {
			uc.log.Error().Err(err).Int64("tg_id", sub.TelegramID).Str("product", sub.ProductID).Msg("deactivate failed")
			continue
		}
		n++
		metrics.IncSubscriptionsExpired(sub.ProductID, 1)
		if product, err := uc.products.Get(sub.ProductID); err == nil {
			uc.revokeAccess(ctx, product, sub.TelegramID)
		}
		uc.send(ctx, sub.TelegramID, expiredMessage(), adapter.KeyboardExpired, sub.ProductID)
	}
	return n, nil
}

// RemindSweep delivers every due reminder whose subscription is still active
// and consumes the reminder either way, so a vanished subscription does not
// leave it queued forever. Returns how many reminders were delivered.
func (uc *SubscriptionUseCase) RemindSweep(ctx context.Context, now time.Time) (int, error) {
	due, err := uc.reminders.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("remind sweep: %w", err)
	}
	sent := 0
	for _, rem := range due {
		sub, err := uc.subs.FindActive(ctx, rem.TelegramID, rem.ProductID)
		switch {
		case err == nil:
			uc.send(ctx, rem.TelegramID, reminderMessage(sub.EndAt, sub.DaysLeft(now)), adapter.KeyboardRenew, rem.ProductID)
			sent++
		case errors.Is(err, domain.ErrNotFound):
			// subscription already expired or cancelled; consume silently
		default:
			uc.log.Error().Err(err).Int64("tg_id", rem.TelegramID).Str("product", rem.ProductID).Msg("reminder lookup failed")
			continue
		}
		if err := uc.reminders.MarkSent(ctx, rem.TelegramID, rem.ProductID); err != nil {
			uc.log.Error().Err(err).Int64("tg_id", rem.TelegramID).Str("product", rem.ProductID).Msg("mark reminder sent failed")
		}
	}
	if sent > 0 {
		metrics.IncRemindersSent(sent)
	}
	return sent, nil
}

// ImportUsers bulk-grants the trial to a list of Telegram ids (admin flow).
// Users are created on the fly; anyone who already consumed the gift is
// skipped. Returns total processed and how many received the gift.
func (uc *SubscriptionUseCase) ImportUsers(ctx context.Context, tgIDs []int64) (total, gifted int) {
	primary := uc.products.Primary()
	for _, tgID := range tgIDs {
		total++
		user, err := uc.users.FindByTelegramID(ctx, tgID)
		if errors.Is(err, domain.ErrNotFound) {
			if user, err = model.NewUser(tgID, "", "", ""); err == nil {
				err = uc.users.Save(ctx, user)
			}
		}
		if err != nil {
			uc.log.Error().Err(err).Int64("tg_id", tgID).Msg("import: user lookup failed")
			continue
		}
		if user.GiftReceived {
			continue
		}
		if _, err := uc.GrantTrial(ctx, tgID, primary.ID); err != nil {
			uc.log.Error().Err(err).Int64("tg_id", tgID).Msg("import: trial grant failed")
			continue
		}
		gifted++
	}
	return total, gifted
}

// ListSubscriptions returns all subscription rows of a user, newest first.
func (uc *SubscriptionUseCase) ListSubscriptions(ctx context.Context, tgID int64) ([]*model.Subscription, error) {
	return uc.subs.ListByUser(ctx, tgID)
}

func (uc *SubscriptionUseCase) grantAccess(ctx context.Context, product *model.Product, tgID int64) {
	if err := uc.access.Grant(ctx, product.ChannelID, tgID); err != nil {
		uc.log.Error().Err(err).Int64("tg_id", tgID).Str("product", product.ID).Msg("channel grant failed")
	}
}

func (uc *SubscriptionUseCase) revokeAccess(ctx context.Context, product *model.Product, tgID int64) {
	if err := uc.access.Revoke(ctx, product.ChannelID, tgID); err != nil {
		uc.log.Error().Err(err).Int64("tg_id", tgID).Str("product", product.ID).Msg("channel revoke failed")
	}
}

func (uc *SubscriptionUseCase) send(ctx context.Context, tgID int64, text string, kb adapter.Keyboard, kbProduct string) {
	if err := uc.messenger.Send(ctx, tgID, text, kb, kbProduct); err != nil {
		uc.log.Error().Err(err).Int64("tg_id", tgID).Msg("message send failed")
	}
}
