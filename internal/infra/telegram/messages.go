package telegram

import (
	"fmt"
	"strings"
	"time"

	"telegram-club-subscription/internal/domain/model"
)

const dateLayout = "02.01.2006"

func startMessage() string {
	return "Добро пожаловать! 👋\n\n" +
		"Здесь вы можете оформить подписку на наши закрытые каналы.\n" +
		"Выберите интересующий раздел в меню ниже."
}

func productInfoMessage(p *model.Product) string {
	return fmt.Sprintf("«%s»\n\n%s\n\nСтоимость: %d ₽ / месяц", p.Title, p.Description, p.PriceRUB)
}

func paymentPromptMessage(p *model.Product) string {
	return fmt.Sprintf("%s\nСумма: %d ₽", p.Description, p.PriceRUB)
}

func subscriptionsMessage(subs []*model.Subscription, products *model.ProductSet, now time.Time) string {
	if len(subs) == 0 {
		return "У вас пока нет подписок."
	}
	var b strings.Builder
	b.WriteString("Ваши подписки:\n")
	for _, s := range subs {
		title := s.ProductID
		if p, err := products.Get(s.ProductID); err == nil {
			title = p.Title
		}
		status := "неактивна"
		if s.Active && !s.Expired(now) {
			status = fmt.Sprintf("активна до %s", s.EndAt.Format(dateLayout))
		}
		fmt.Fprintf(&b, "\n• %s — %s", title, status)
	}
	return b.String()
}

func legalInfoMessage() string {
	return "Правовая информация\n\n" +
		"Оплачивая подписку, вы соглашаетесь с условиями договора оферты.\n" +
		"По всем вопросам обращайтесь в поддержку."
}

func adminHelpMessage() string {
	return "Админ-панель\n\n" +
		"Доступные команды:\n" +
		"/import_users — импорт пользователей из мастер-класса\n" +
		"Формат: /import_users 123456789 987654321"
}

func importReportMessage(total, gifted int) string {
	return fmt.Sprintf("Импорт завершён.\nВсего пользователей: %d\nПолучили подарок: %d", total, gifted)
}
