// Package config содержит логику чтения конфигурации сервиса печати книг.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса печати книг.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	UploadDir   string `env:"UPLOAD_DIR"`
	AuthSecret  string `env:"AUTH_SECRET"`

	Currency           string `env:"CHECKOUT_CURRENCY"`
	StripeSecretKey    string `env:"STRIPE_SECRET_KEY"`
	StripeAPIBase      string `env:"STRIPE_API_BASE"`
	CheckoutSuccessURL string `env:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string `env:"CHECKOUT_CANCEL_URL"`

	PayPalClientID     string `env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string `env:"PAYPAL_CLIENT_SECRET"`
	PayPalAPIBase      string `env:"PAYPAL_API_BASE"`
	PayPalReturnURL    string `env:"PAYPAL_RETURN_URL"`
	PayPalCancelURL    string `env:"PAYPAL_CANCEL_URL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения переменных окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envUploadDir := cfg.UploadDir

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.UploadDir, "u", "uploads", "directory for uploaded cover and manuscript files")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envUploadDir != "" {
		cfg.UploadDir = envUploadDir
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "printbook-secret"
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.StripeAPIBase == "" {
		cfg.StripeAPIBase = "https://api.stripe.com"
	}
	if cfg.CheckoutSuccessURL == "" {
		cfg.CheckoutSuccessURL = "http://localhost:5173/success"
	}
	if cfg.CheckoutCancelURL == "" {
		cfg.CheckoutCancelURL = "http://localhost:5173/cancel"
	}
	if cfg.PayPalAPIBase == "" {
		cfg.PayPalAPIBase = "https://api.sandbox.paypal.com"
	}
	if cfg.PayPalReturnURL == "" {
		cfg.PayPalReturnURL = "http://localhost:3000/payment/success"
	}
	if cfg.PayPalCancelURL == "" {
		cfg.PayPalCancelURL = "http://localhost:3000/payment/cancel"
	}

	return cfg, nil
}
