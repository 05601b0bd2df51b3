// Package config содержит логику чтения конфигурации системы тендеров.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации системы тендеров.
//
// Пустой DatabaseURI переключает сервис на репозиторий в памяти,
// пустые реквизиты Twilio — на мок-шлюз уведомлений,
// пустой GeminiAPIKey — на мок-движок извлечения.
type Config struct {
	RunAddress       string `env:"RUN_ADDRESS"`
	DatabaseURI      string `env:"DATABASE_URI"`
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromPhone  string `env:"TWILIO_PHONE_NUMBER"`
	AdminPhone       string `env:"ADMIN_PHONE"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	DefaultCurrency  string `env:"DEFAULT_CURRENCY"`
	AppEnv           string `env:"APP_ENV"`
}

// IsProduction сообщает, запущен ли сервис в боевом режиме.
// В боевом режиме включается проверка подписи входящих вебхуков.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAdminPhone := cfg.AdminPhone
	envCurrency := cfg.DefaultCurrency
	envAppEnv := cfg.AppEnv

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (empty = in-memory demo mode)")
	flag.StringVar(&cfg.AdminPhone, "admin", "", "admin WhatsApp address")
	flag.StringVar(&cfg.DefaultCurrency, "currency", "OMR", "default bid currency")
	flag.StringVar(&cfg.AppEnv, "env", "development", "application environment")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAdminPhone != "" {
		cfg.AdminPhone = envAdminPhone
	}
	if envCurrency != "" {
		cfg.DefaultCurrency = envCurrency
	}
	if envAppEnv != "" {
		cfg.AppEnv = envAppEnv
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "OMR"
	}

	return cfg, nil
}
