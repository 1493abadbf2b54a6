package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-club-subscription/internal/config"
	"telegram-club-subscription/internal/domain/model"
	pg "telegram-club-subscription/internal/infra/db/postgres"
	"telegram-club-subscription/internal/infra/logging"
	"telegram-club-subscription/internal/infra/metrics"
	red "telegram-club-subscription/internal/infra/redis"
	"telegram-club-subscription/internal/infra/sched"
	tele "telegram-club-subscription/internal/infra/telegram"
	"telegram-club-subscription/internal/infra/web"
	"telegram-club-subscription/internal/usecase"
)

const day = 24 * time.Hour

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	// ---- Products ----
	products, err := buildProducts(cfg)
	if err != nil {
		log.Fatalf("products: %v", err)
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// ---- Redis (optional; only the pay-flow rate limiter depends on it) ----
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	}

	// ---- Repositories: one ledger instance, passed everywhere by reference ----
	userRepo := pg.NewUserRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	remRepo := pg.NewReminderRepo(pool)

	// ---- Telegram bot (also the Messenger/ChannelAccess collaborator) ----
	bot, err := tele.NewBot(&cfg.Bot, userRepo, products, limiter, logger)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	// ---- Use cases ----
	periods := usecase.Periods{
		Trial:        time.Duration(cfg.Periods.TrialDays) * day,
		Paid:         time.Duration(cfg.Periods.PaidDays) * day,
		ReminderLead: time.Duration(cfg.Periods.ReminderLead) * day,
	}
	subUC := usecase.NewSubscriptionUseCase(userRepo, subRepo, remRepo, products, periods, bot, bot, logger)
	paymentUC := usecase.NewPaymentUseCase(payRepo, products, subUC, cfg.Payment.BaseURL, cfg.Payment.TestMode, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, subRepo, payRepo)
	bot.Bind(subUC, paymentUC)

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- HTTP server (gateway webhook, redirects, health, metrics, admin) ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL.Std())
	srv := web.NewServer(paymentUC, subUC, statsUC, auth, cfg.Admin.Password, cfg.Bot.Username, logger)
	go func() {
		if err := srv.Start(cfg.Payment.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	// ---- Bot polling ----
	go func() {
		if err := bot.StartPolling(ctx); err != nil {
			log.Printf("telegram polling stopped: %v", err)
		}
	}()

	// ---- Sweepers ----
	reminderWorker := sched.NewReminderWorker(cfg.Scheduler.ReminderInterval.Std(), subUC, logger)
	expiryWorker := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval.Std(), subUC, logger)
	go func() { _ = reminderWorker.Run(ctx) }()
	go func() { _ = expiryWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Println("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildProducts(cfg *config.Config) (*model.ProductSet, error) {
	list := make([]*model.Product, 0, len(cfg.Products))
	for _, p := range cfg.Products {
		list = append(list, &model.Product{
			ID:          p.ID,
			Title:       p.Title,
			ChannelID:   p.ChannelID,
			PriceRUB:    p.PriceRUB,
			Description: p.Description,
			Merchant: model.MerchantAccount{
				Login:     p.MerchantLogin,
				Password1: p.Password1,
				Password2: p.Password2,
			},
		})
	}
	return model.NewProductSet(list, cfg.Payment.PrimaryProduct)
}
