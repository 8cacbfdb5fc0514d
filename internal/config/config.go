package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App            App             `mapstructure:",squash"`
	Server         Server          `mapstructure:",squash"`
	Database       Database        `mapstructure:",squash"`
	Queue          Queue           `mapstructure:",squash"`
	Sync           Sync            `mapstructure:",squash"`
	InsightsEngine InsightsEngine  `mapstructure:",squash"`
	Shopify        Platform        `mapstructure:",squash"`
	Stripe         Platform        `mapstructure:",squash"`
	GA             Platform        `mapstructure:",squash"`
	MetaAds        MetaAds         `mapstructure:",squash"`
	SecretKey      string          `mapstructure:"secret_key"`
	WebhookSecrets map[string]string `mapstructure:"-"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

// Queue configura a fila durável e o pool de workers
type Queue struct {
	WorkerCount         int `mapstructure:"queue_worker_count"`
	PollIntervalSeconds int `mapstructure:"queue_poll_interval_seconds"`
	MaxAttempts         int `mapstructure:"queue_max_attempts"`
	BackoffBaseSeconds  int `mapstructure:"queue_backoff_base_seconds"`
	BackoffMaxSeconds   int `mapstructure:"queue_backoff_max_seconds"`
}

// Sync configura a sincronização de dados das plataformas
type Sync struct {
	RequestTimeoutSeconds int `mapstructure:"sync_request_timeout_seconds"`
	DefaultLookbackDays   int `mapstructure:"sync_default_lookback_days"`
}

// InsightsEngine configura o motor periódico de insights/anomalias
type InsightsEngine struct {
	CronSchedule        string  `mapstructure:"insights_cron"`
	Enabled             bool    `mapstructure:"insights_enabled"`
	AnalysisWindowDays  int     `mapstructure:"insights_analysis_window_days"`
	RecencyWindowHours  int     `mapstructure:"insights_recency_window_hours"`
	RetentionDays       int     `mapstructure:"insights_retention_days"`
	HighImpactThreshold float64 `mapstructure:"insights_high_impact_threshold"`
}

// Platform agrupa a configuração de acesso a uma plataforma externa
type Platform struct {
	BaseURL       string `mapstructure:"-"`
	WebhookSecret string `mapstructure:"-"`
}

type MetaAds struct {
	BaseURL       string `mapstructure:"meta_ads_base_url"`
	Version       string `mapstructure:"meta_ads_version"`
	URL           string `mapstructure:"-"`
	WebhookSecret string `mapstructure:"-"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/pulse")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("SECRET_KEY", "your_secret_key")

	// Defaults da fila de jobs
	viper.SetDefault("QUEUE_WORKER_COUNT", 4)
	viper.SetDefault("QUEUE_POLL_INTERVAL_SECONDS", 2)
	viper.SetDefault("QUEUE_MAX_ATTEMPTS", 5)
	viper.SetDefault("QUEUE_BACKOFF_BASE_SECONDS", 30)
	viper.SetDefault("QUEUE_BACKOFF_MAX_SECONDS", 1800)

	// Defaults de sincronização
	viper.SetDefault("SYNC_REQUEST_TIMEOUT_SECONDS", 45)
	viper.SetDefault("SYNC_DEFAULT_LOOKBACK_DAYS", 30)

	// Defaults do motor de insights
	viper.SetDefault("INSIGHTS_CRON", "0 5 * * *") // Todos os dias às 5h da manhã
	viper.SetDefault("INSIGHTS_ENABLED", false)
	viper.SetDefault("INSIGHTS_ANALYSIS_WINDOW_DAYS", 30)
	viper.SetDefault("INSIGHTS_RECENCY_WINDOW_HOURS", 12)
	viper.SetDefault("INSIGHTS_RETENTION_DAYS", 90)
	viper.SetDefault("INSIGHTS_HIGH_IMPACT_THRESHOLD", 8.0)

	// URLs base das plataformas
	viper.SetDefault("SHOPIFY_BASE_URL", "https://admin.shopify.com/api/2024-01")
	viper.SetDefault("STRIPE_BASE_URL", "https://api.stripe.com/v1")
	viper.SetDefault("GA_BASE_URL", "https://analyticsdata.googleapis.com/v1beta")
	viper.SetDefault("META_ADS_BASE_URL", "https://graph.facebook.com")
	viper.SetDefault("META_ADS_VERSION", "v22.0")

	// Secrets compartilhados de webhook, um por plataforma
	viper.SetDefault("SHOPIFY_WEBHOOK_SECRET", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("GA_WEBHOOK_SECRET", "")
	viper.SetDefault("META_ADS_WEBHOOK_SECRET", "")

	viper.SetDefault("LOG_LEVEL", "debug")
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Shopify.BaseURL = viper.GetString("SHOPIFY_BASE_URL")
	config.Stripe.BaseURL = viper.GetString("STRIPE_BASE_URL")
	config.GA.BaseURL = viper.GetString("GA_BASE_URL")
	config.MetaAds.URL = fmt.Sprintf("%s/%s", config.MetaAds.BaseURL, config.MetaAds.Version)

	config.Shopify.WebhookSecret = viper.GetString("SHOPIFY_WEBHOOK_SECRET")
	config.Stripe.WebhookSecret = viper.GetString("STRIPE_WEBHOOK_SECRET")
	config.GA.WebhookSecret = viper.GetString("GA_WEBHOOK_SECRET")
	config.MetaAds.WebhookSecret = viper.GetString("META_ADS_WEBHOOK_SECRET")

	config.WebhookSecrets = map[string]string{
		"shopify":          config.Shopify.WebhookSecret,
		"stripe":           config.Stripe.WebhookSecret,
		"google_analytics": config.GA.WebhookSecret,
		"meta_ads":         config.MetaAds.WebhookSecret,
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	// Tentar várias localizações possíveis para o arquivo .env
	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
		filepath.Join(cwd, "../.env"),
		filepath.Join(cwd, "../../.env"),
	}

	for _, location := range locations {
		err := godotenv.Load(location)
		if err == nil {
			logrus.Info("Arquivo .env carregado com sucesso de:", location)
			return
		}
	}

	logrus.Warn("Não foi possível carregar o arquivo .env de nenhuma localização conhecida")
}
