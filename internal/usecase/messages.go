package usecase

import (
	"fmt"
	"time"

	"telegram-club-subscription/internal/domain/model"
)

// User-facing texts produced by subscription transitions. Menu texts live in
// the Telegram adapter; only state-machine notifications are composed here.

const dateLayout = "02.01.2006"

func giftWelcomeMessage(start, end time.Time) string {
	return fmt.Sprintf(
		"🎁 Вам открыт бесплатный доступ к закрытому каналу!\n\n"+
			"Доступ действует с %s по %s.\n"+
			"За 3 дня до окончания мы напомним вам о продлении.",
		start.Format(dateLayout), end.Format(dateLayout),
	)
}

func paymentSuccessMessage(product *model.Product, sub *model.Subscription) string {
	return fmt.Sprintf(
		"✅ Оплата прошла успешно!\n\n"+
			"Подписка «%s» активна с %s по %s.",
		product.Title, sub.StartAt.Format(dateLayout), sub.EndAt.Format(dateLayout),
	)
}

func paymentSuccessWithBonusMessage(product *model.Product, sub *model.Subscription, bonusProduct *model.Product, bonus *model.Subscription) string {
	return fmt.Sprintf(
		"✅ Оплата прошла успешно!\n\n"+
			"Подписка «%s» активна с %s по %s.\n\n"+
			"🎁 Бонус: вам открыт бесплатный доступ к каналу «%s» до %s.",
		product.Title, sub.StartAt.Format(dateLayout), sub.EndAt.Format(dateLayout),
		bonusProduct.Title, bonus.EndAt.Format(dateLayout),
	)
}

func reminderMessage(end time.Time, daysLeft int) string {
	return fmt.Sprintf(
		"⏳ Ваша подписка заканчивается %s (осталось дней: %d).\n"+
			"Продлите доступ, чтобы остаться в канале.",
		end.Format(dateLayout), daysLeft,
	)
}

func expiredMessage() string {
	return "Срок вашей подписки истёк, доступ к каналу закрыт.\n" +
		"Вы можете оформить подписку заново в любой момент."
}
