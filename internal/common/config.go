package common

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joseph-ayodele/ticket-wallet/constants"
)

// Config holds all application configuration
type Config struct {
	Wallet   WalletConfig
	Pipeline PipelineConfig
	Render   RenderConfig
	LLM      LLMConfig
	Signing  SigningConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// WalletConfig holds the pass identity shared by every issued pass
type WalletConfig struct {
	Organization string
	PassTypeID   string
	TeamID       string
	Timezone     string
}

// PipelineConfig tunes the deterministic extraction stages
type PipelineConfig struct {
	KeywordsFile        string
	ClassifierThreshold int
	QRWorkers           int
	EnrichTextBudget    int
}

// RenderConfig holds PDF rendering and OCR configuration
type RenderConfig struct {
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	MaxPages      int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
	MinInterval time.Duration
}

// Enabled reports whether enrichment can run at all.
func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

// SigningConfig holds pass archive signing configuration
type SigningConfig struct {
	OpenSSL             string
	CertificatePath     string
	CertificatePassword string
	WWDRCertPath        string
	AssetsDir           string
	OutputDir           string
}

// DatabaseConfig holds ledger database configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr          string
	GRPCAddr          string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	MaxUploadBytes    int64
	InboxDir          string
	Workers           int
	QueueSize         int
	ProcessTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Wallet: WalletConfig{
			Organization: getEnv("WALLET_ORGANIZATION", "Wallet App"),
			PassTypeID:   getEnv("WALLET_PASS_TYPE_ID", "pass.com.walletapp.generic"),
			TeamID:       getEnv("WALLET_TEAM_ID", "DEMO123456"),
			Timezone:     getEnv("WALLET_TIMEZONE", constants.DefaultTimezoneOffset),
		},
		Pipeline: PipelineConfig{
			KeywordsFile:        getEnv("CLASSIFIER_KEYWORDS", ""),
			ClassifierThreshold: getEnvAsInt("CLASSIFIER_THRESHOLD", 2),
			QRWorkers:           getEnvAsInt("QR_WORKERS", 4),
			EnrichTextBudget:    getEnvAsInt("ENRICH_TEXT_BUDGET", 8000),
		},
		Render: RenderConfig{
			Pdftotext:     getEnv("PDFTOTEXT", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "heb+eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("RENDER_DPI", 300),
			MaxPages:      getEnvAsInt("RENDER_MAX_PAGES", 10),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			MaxRetries:  getEnvAsInt("OPENAI_MAX_RETRIES", 3),
			MinInterval: getEnvAsDuration("ENRICH_MIN_INTERVAL", time.Second),
		},
		Signing: SigningConfig{
			OpenSSL:             getEnv("OPENSSL", "openssl"),
			CertificatePath:     getEnv("PKPASS_CERTIFICATE_PATH", ""),
			CertificatePassword: getEnv("PKPASS_CERTIFICATE_PASSWORD", ""),
			WWDRCertPath:        getEnv("APPLE_WWDR_CERT_PATH", ""),
			AssetsDir:           getEnv("PKPASS_ASSETS_DIR", ""),
			OutputDir:           getEnv("OUTBOX_DIR", "./tmp/passes"),
		},
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "./tmp/passes.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:          getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:          getEnv("GRPC_ADDR", ":8081"),
			RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 5),
			RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", 300*time.Second),
			MaxUploadBytes:    int64(getEnvAsInt("MAX_UPLOAD_BYTES", constants.MaxUploadBytes)),
			InboxDir:          getEnv("INBOX_DIR", ""),
			Workers:           getEnvAsInt("QUEUE_WORKERS", 4),
			QueueSize:         getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout:    getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

var reOffset = regexp.MustCompile(`^[+-]\d{2}:\d{2}$`)

// ValidOffset reports whether s is a ±HH:MM literal.
func ValidOffset(s string) bool {
	return reOffset.MatchString(s)
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Wallet.PassTypeID == "" {
		return NewAppError("CONFIG_ERROR", "WALLET_PASS_TYPE_ID is required", ErrInvalidInput)
	}
	if c.Wallet.TeamID == "" {
		return NewAppError("CONFIG_ERROR", "WALLET_TEAM_ID is required", ErrInvalidInput)
	}
	if c.Wallet.Organization == "" {
		return NewAppError("CONFIG_ERROR", "WALLET_ORGANIZATION is required", ErrInvalidInput)
	}
	if !ValidOffset(c.Wallet.Timezone) {
		return NewAppError("CONFIG_ERROR", "WALLET_TIMEZONE must look like +03:00", ErrInvalidInput)
	}
	if c.Pipeline.ClassifierThreshold < 1 {
		return NewAppError("CONFIG_ERROR", "CLASSIFIER_THRESHOLD must be at least 1", ErrInvalidInput)
	}
	if c.Render.DPI < 72 {
		return NewAppError("CONFIG_ERROR", "RENDER_DPI must be at least 72", ErrInvalidInput)
	}
	if c.Server.RateLimitRequests < 1 || c.Server.RateLimitWindow <= 0 {
		return NewAppError("CONFIG_ERROR", "rate limit must allow at least one request per window", ErrInvalidInput)
	}
	return nil
}
