package app

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/joseph-ayodele/ticket-wallet/internal/common"
)

// LoadConfig reads the environment and then overlays the optional config file
// (yaml, json or toml, by extension). Keys mirror the Config sections, e.g.
// wallet.pass_type_id or server.rate_limit_window.
func LoadConfig(path string) (*common.Config, error) {
	cfg := common.LoadConfig()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("read config %s", path), err)
	}
	overlay(v, cfg)
	return cfg, nil
}

func overlay(v *viper.Viper, cfg *common.Config) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}

	str("wallet.organization", &cfg.Wallet.Organization)
	str("wallet.pass_type_id", &cfg.Wallet.PassTypeID)
	str("wallet.team_id", &cfg.Wallet.TeamID)
	str("wallet.timezone", &cfg.Wallet.Timezone)

	str("pipeline.keywords_file", &cfg.Pipeline.KeywordsFile)
	num("pipeline.classifier_threshold", &cfg.Pipeline.ClassifierThreshold)
	num("pipeline.qr_workers", &cfg.Pipeline.QRWorkers)
	num("pipeline.enrich_text_budget", &cfg.Pipeline.EnrichTextBudget)

	str("render.pdftotext", &cfg.Render.Pdftotext)
	str("render.pdftoppm", &cfg.Render.Pdftoppm)
	str("render.tesseract", &cfg.Render.Tesseract)
	str("render.tesseract_lang", &cfg.Render.TesseractLang)
	str("render.tessdata_dir", &cfg.Render.TessdataDir)
	num("render.dpi", &cfg.Render.DPI)
	num("render.max_pages", &cfg.Render.MaxPages)

	str("llm.model", &cfg.LLM.Model)
	str("llm.base_url", &cfg.LLM.BaseURL)
	dur("llm.timeout", &cfg.LLM.Timeout)
	num("llm.max_retries", &cfg.LLM.MaxRetries)
	dur("llm.min_interval", &cfg.LLM.MinInterval)
	if v.IsSet("llm.temperature") {
		cfg.LLM.Temperature = float32(v.GetFloat64("llm.temperature"))
	}

	str("signing.openssl", &cfg.Signing.OpenSSL)
	str("signing.certificate_path", &cfg.Signing.CertificatePath)
	str("signing.wwdr_cert_path", &cfg.Signing.WWDRCertPath)
	str("signing.assets_dir", &cfg.Signing.AssetsDir)
	str("signing.output_dir", &cfg.Signing.OutputDir)

	str("database.dsn", &cfg.Database.DSN)
	dur("database.statement_timeout", &cfg.Database.StatementTimeout)

	str("server.http_addr", &cfg.Server.HTTPAddr)
	str("server.grpc_addr", &cfg.Server.GRPCAddr)
	str("server.inbox_dir", &cfg.Server.InboxDir)
	num("server.rate_limit_requests", &cfg.Server.RateLimitRequests)
	dur("server.rate_limit_window", &cfg.Server.RateLimitWindow)
	num("server.workers", &cfg.Server.Workers)
	num("server.queue_size", &cfg.Server.QueueSize)
	dur("server.process_timeout", &cfg.Server.ProcessTimeout)
	if v.IsSet("server.max_upload_bytes") {
		cfg.Server.MaxUploadBytes = v.GetInt64("server.max_upload_bytes")
	}
}
