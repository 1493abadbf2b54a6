package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

// Duration parses yaml values like "30m" or "6h". Plain integers are taken
// as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type BotConfig struct {
	Token       string  `yaml:"token"`
	Username    string  `yaml:"username"`
	Workers     int     `yaml:"workers"` // polling workers
	AdminIDs    []int64 `yaml:"admin_ids"`
	SupportLink string  `yaml:"support_link"`
	OfferLink   string  `yaml:"offer_link"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ProductConfig struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title"`
	ChannelID     int64  `yaml:"channel_id"`
	PriceRUB      int64  `yaml:"price_rub"`
	Description   string `yaml:"description"`
	MerchantLogin string `yaml:"merchant_login"`
	Password1     string `yaml:"password_1"`
	Password2     string `yaml:"password_2"`
}

type PaymentConfig struct {
	BaseURL        string `yaml:"base_url"` // gateway hosted payment page
	TestMode       bool   `yaml:"test_mode"`
	HTTPPort       int    `yaml:"http_port"` // webhook listener
	PrimaryProduct string `yaml:"primary_product"`
}

type PeriodsConfig struct {
	TrialDays    int `yaml:"trial_days"`
	PaidDays     int `yaml:"paid_days"`
	ReminderLead int `yaml:"reminder_lead_days"`
}

type SchedulerConfig struct {
	ReminderInterval Duration `yaml:"reminder_interval"`
	ExpiryInterval   Duration `yaml:"expiry_interval"`
}

type AdminConfig struct {
	Password   string   `yaml:"password"`
	JWTSecret  string   `yaml:"jwt_secret"`
	SessionTTL Duration `yaml:"session_ttl"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Products  []ProductConfig `yaml:"products"`
	Payment   PaymentConfig   `yaml:"payment"`
	Periods   PeriodsConfig   `yaml:"periods"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Admin     AdminConfig     `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if len(cfg.Products) == 0 {
		return nil, errors.New("at least one product is required")
	}
	for _, p := range cfg.Products {
		if p.ID == "" || p.MerchantLogin == "" || p.Password1 == "" || p.Password2 == "" {
			return nil, fmt.Errorf("product %q: id and merchant credentials are required", p.ID)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Payment.BaseURL == "" {
		cfg.Payment.BaseURL = "https://auth.robokassa.ru/Merchant/Index.aspx"
	}
	if cfg.Payment.HTTPPort == 0 {
		cfg.Payment.HTTPPort = 8080
	}
	if cfg.Payment.PrimaryProduct == "" && len(cfg.Products) > 0 {
		cfg.Payment.PrimaryProduct = cfg.Products[0].ID
	}
	if cfg.Periods.TrialDays <= 0 {
		cfg.Periods.TrialDays = 14
	}
	if cfg.Periods.PaidDays <= 0 {
		cfg.Periods.PaidDays = 30
	}
	if cfg.Periods.ReminderLead <= 0 {
		cfg.Periods.ReminderLead = 3
	}
	if cfg.Scheduler.ReminderInterval <= 0 {
		cfg.Scheduler.ReminderInterval = Duration(time.Hour)
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = Duration(6 * time.Hour)
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = Duration(30 * time.Minute)
	}
}
