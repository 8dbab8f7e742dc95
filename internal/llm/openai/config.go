package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/ticket-wallet/internal/common"
)

// Config for the OpenAI client.
type Config struct {
	APIKey      string
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g., "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // per HTTP attempt
	MaxRetries  int           // retries after the first attempt on 429/5xx
	BackoffBase time.Duration // first retry delay, doubled each attempt
}

// ConfigFrom maps the application LLM settings onto a client config.
func ConfigFrom(c common.LLMConfig) Config {
	return Config{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
		MaxRetries:  c.MaxRetries,
	}
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	jitter func(time.Duration) time.Duration
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		jitter: randomJitter,
	}
}
