package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-club-subscription/internal/config"
	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
	"telegram-club-subscription/internal/domain/ports/adapter"
	"telegram-club-subscription/internal/domain/ports/repository"
	"telegram-club-subscription/internal/infra/redis"
	"telegram-club-subscription/internal/usecase"
)

// Bot implements the conversational menu over tgbotapi with concurrent
// polling workers. It also implements the Messenger and ChannelAccess
// collaborator ports consumed by the state machine.
type Bot struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	users       repository.UserRepository
	subUC       *usecase.SubscriptionUseCase
	paymentUC   usecase.PaymentUseCase
	products    *model.ProductSet
	limiter     *redis.RateLimiter
	adminIDsMap map[int64]struct{}
	log         *zerolog.Logger

	// updateWorkers is how many goroutines process updates concurrently.
	updateWorkers int
	cancelPolling context.CancelFunc
}

var (
	_ adapter.Messenger     = (*Bot)(nil)
	_ adapter.ChannelAccess = (*Bot)(nil)
)

func NewBot(cfg *config.BotConfig, users repository.UserRepository, products *model.ProductSet, limiter *redis.RateLimiter, logger *zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if users == nil {
		return nil, errors.New("user repository is nil")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	adminMap := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	botLog := logger.With().Str("component", "TelegramBot").Logger()
	return &Bot{
		bot:           api,
		cfg:           cfg,
		users:         users,
		products:      products,
		limiter:       limiter,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
		log:           &botLog,
	}, nil
}

// Bind attaches the use cases. The bot and the state machine reference each
// other (the machine sends messages through the bot), so wiring happens in
// two steps at startup.
func (b *Bot) Bind(subUC *usecase.SubscriptionUseCase, paymentUC usecase.PaymentUseCase) {
	b.subUC = subUC
	b.paymentUC = paymentUC
}

// StartPolling polls Telegram for updates until ctx is canceled, dispatching
// to the worker pool.
func (b *Bot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < b.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := b.handleUpdate(ctx, update); err != nil {
						b.log.Error().Err(err).Int("worker", workerID).Msg("error handling update")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	b.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (b *Bot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

// ---- Collaborator ports ----

// Send implements adapter.Messenger.
func (b *Bot) Send(ctx context.Context, tgID int64, text string, kb adapter.Keyboard, kbProduct string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	switch kb {
	case adapter.KeyboardMainMenu:
		msg.ReplyMarkup = mainMenuKeyboard(b.products.All())
	case adapter.KeyboardBack:
		msg.ReplyMarkup = backKeyboard()
	case adapter.KeyboardRenew, adapter.KeyboardExpired:
		msg.ReplyMarkup = renewKeyboard(kbProduct)
	}
	_, err := b.bot.Send(msg)
	return err
}

// Grant implements adapter.ChannelAccess: lifting the ban re-admits the user
// through the channel invite link.
func (b *Bot) Grant(ctx context.Context, channelID int64, tgID int64) error {
	cfg := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: channelID, UserID: tgID},
		OnlyIfBanned:     false,
	}
	_, err := b.bot.Request(cfg)
	return err
}

// Revoke implements adapter.ChannelAccess.
func (b *Bot) Revoke(ctx context.Context, channelID int64, tgID int64) error {
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: channelID, UserID: tgID},
	}
	_, err := b.bot.Request(cfg)
	return err
}

// ---- Update handling ----

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		return b.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	from := msg.From
	user, err := model.NewUser(from.ID, from.UserName, from.FirstName, from.LastName)
	if err != nil {
		return err
	}
	if err := b.users.Save(ctx, user); err != nil {
		b.log.Error().Err(err).Int64("tg_id", from.ID).Msg("user upsert failed")
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start":
		return b.handleStart(ctx, from.ID)
	case text == "/admin":
		return b.handleAdmin(ctx, from.ID)
	case strings.HasPrefix(text, "/import_users"):
		return b.handleImportUsers(ctx, from.ID, text)
	default:
		return b.Send(ctx, from.ID, startMessage(), adapter.KeyboardMainMenu, "")
	}
}

// handleStart gives the one-time gift to first-time users; everyone else
// lands on the main menu. The gift grant sends its own welcome message.
func (b *Bot) handleStart(ctx context.Context, tgID int64) error {
	_, err := b.subUC.GrantTrial(ctx, tgID, b.products.Primary().ID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrGiftAlreadyReceived):
		return b.Send(ctx, tgID, startMessage(), adapter.KeyboardMainMenu, "")
	default:
		b.log.Error().Err(err).Int64("tg_id", tgID).Msg("trial grant on /start failed")
		return b.Send(ctx, tgID, startMessage(), adapter.KeyboardMainMenu, "")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	defer func() {
		// Always answer to clear the client-side spinner.
		_, _ = b.bot.Request(tgbotapi.NewCallback(cb.ID, ""))
	}()
	if cb.Message == nil || cb.From == nil {
		return nil
	}
	tgID := cb.From.ID
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID

	data := cb.Data
	switch {
	case data == cbMainMenu:
		return b.edit(chatID, msgID, startMessage(), mainMenuKeyboard(b.products.All()))

	case data == cbSubs:
		subs, err := b.subUC.ListSubscriptions(ctx, tgID)
		if err != nil {
			b.log.Error().Err(err).Int64("tg_id", tgID).Msg("list subscriptions failed")
			return b.edit(chatID, msgID, "Не удалось загрузить подписки, попробуйте позже.", backKeyboard())
		}
		return b.edit(chatID, msgID, subscriptionsMessage(subs, b.products, time.Now()), backKeyboard())

	case data == cbLegalInfo:
		return b.edit(chatID, msgID, legalInfoMessage(), legalKeyboard(b.cfg.SupportLink, b.cfg.OfferLink))

	case strings.HasPrefix(data, cbInfoPref):
		product, err := b.products.Get(strings.TrimPrefix(data, cbInfoPref))
		if err != nil {
			return err
		}
		return b.edit(chatID, msgID, productInfoMessage(product), productKeyboard(product))

	case strings.HasPrefix(data, cbPayPref):
		return b.handlePay(ctx, tgID, chatID, msgID, strings.TrimPrefix(data, cbPayPref))

	default:
		return nil
	}
}

func (b *Bot) handlePay(ctx context.Context, tgID, chatID int64, msgID int, productID string) error {
	product, err := b.products.Get(productID)
	if err != nil {
		return err
	}

	if b.limiter != nil {
		ok, err := b.limiter.Allow(ctx, redis.UserActionKey(tgID, "pay"), 5, time.Minute)
		if err != nil {
			b.log.Error().Err(err).Int64("tg_id", tgID).Msg("rate limiter unavailable")
		} else if !ok {
			return b.edit(chatID, msgID, "Слишком много запросов на оплату, подождите минуту.", backKeyboard())
		}
	}

	payURL, invoiceID, err := b.paymentUC.Initiate(ctx, tgID, product.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", tgID).Str("product", product.ID).Msg("payment initiate failed")
		return b.edit(chatID, msgID, "Не удалось создать ссылку на оплату, попробуйте позже.", backKeyboard())
	}
	b.log.Info().Int64("tg_id", tgID).Str("product", product.ID).Str("invoice_id", invoiceID).Msg("payment link issued")

	return b.edit(chatID, msgID, paymentPromptMessage(product), paymentLinkKeyboard(payURL))
}

func (b *Bot) handleAdmin(ctx context.Context, tgID int64) error {
	if !b.isAdmin(tgID) {
		return b.Send(ctx, tgID, "У вас нет доступа к админ-панели.", adapter.KeyboardNone, "")
	}
	return b.Send(ctx, tgID, adminHelpMessage(), adapter.KeyboardNone, "")
}

func (b *Bot) handleImportUsers(ctx context.Context, tgID int64, text string) error {
	if !b.isAdmin(tgID) {
		return b.Send(ctx, tgID, "У вас нет доступа к этой команде.", adapter.KeyboardNone, "")
	}
	parts := strings.Fields(text)[1:]
	if len(parts) == 0 {
		return b.Send(ctx, tgID, "Укажите telegram_id пользователей через пробел.", adapter.KeyboardNone, "")
	}
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return b.Send(ctx, tgID, "Ошибка: все ID должны быть числами.", adapter.KeyboardNone, "")
		}
		ids = append(ids, id)
	}

	total, gifted := b.subUC.ImportUsers(ctx, ids)
	return b.Send(ctx, tgID, importReportMessage(total, gifted), adapter.KeyboardNone, "")
}

func (b *Bot) edit(chatID int64, msgID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, kb)
	_, err := b.bot.Send(edit)
	return err
}

func (b *Bot) isAdmin(tgID int64) bool {
	_, ok := b.adminIDsMap[tgID]
	return ok
}
