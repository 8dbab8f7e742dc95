package app

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/ticket-wallet/internal/classify"
	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/core"
	"github.com/joseph-ayodele/ticket-wallet/internal/enrich"
	"github.com/joseph-ayodele/ticket-wallet/internal/export"
	"github.com/joseph-ayodele/ticket-wallet/internal/llm/openai"
	"github.com/joseph-ayodele/ticket-wallet/internal/pacer"
	"github.com/joseph-ayodele/ticket-wallet/internal/passkit"
	"github.com/joseph-ayodele/ticket-wallet/internal/pipeline"
	"github.com/joseph-ayodele/ticket-wallet/internal/pkpass"
	"github.com/joseph-ayodele/ticket-wallet/internal/qr"
	"github.com/joseph-ayodele/ticket-wallet/internal/render"
	"github.com/joseph-ayodele/ticket-wallet/internal/repository"
	"github.com/joseph-ayodele/ticket-wallet/internal/utils"
)

// App is the wired component graph shared by the CLI and the daemon.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	DB        *repository.DB
	Passes    repository.PassRepository
	Packager  *pkpass.Packager
	Processor *core.Processor
	Export    *export.Service
}

// Build opens the ledger and wires render, QR, classification, enrichment and
// archive writing. Enrichment is wired only when an API key is configured.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vocab, err := classify.LoadVocabulary(cfg.Pipeline.KeywordsFile)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "load classifier vocabulary", err)
	}
	classifier := classify.New(vocab, logger).WithThreshold(cfg.Pipeline.ClassifierThreshold)

	builder := passkit.NewBuilder(passkit.Identity{
		Organization: cfg.Wallet.Organization,
		PassTypeID:   cfg.Wallet.PassTypeID,
		TeamID:       cfg.Wallet.TeamID,
	})

	plOpts := []pipeline.Option{pipeline.WithTextBudget(cfg.Pipeline.EnrichTextBudget)}
	if cfg.LLM.Enabled() {
		client := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
		enricher := enrich.NewEnricher(client, logger,
			enrich.WithPacer(pacer.New(cfg.LLM.MinInterval)),
			enrich.WithTimeout(cfg.LLM.Timeout),
		)
		plOpts = append(plOpts, pipeline.WithEnricher(enricher))
		logger.Info("app.enrichment.enabled", "model", cfg.LLM.Model)
	}
	pl := pipeline.New(classifier, builder, logger, plOpts...)

	runner := utils.NewExecRunner(logger)
	renderer := render.NewExtractor(render.ConfigFrom(cfg.Render), logger, render.WithRunner(runner))
	decoder := qr.NewDecoder(logger, qr.WithWorkers(cfg.Pipeline.QRWorkers), qr.WithReader(qr.NewZXingReader()))
	packager := pkpass.NewPackager(pkpass.ConfigFrom(cfg.Signing), logger, pkpass.WithRunner(runner))

	db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, err
	}
	passes := repository.NewPassRepository(db, logger)

	proc := core.NewProcessor(renderer, decoder, pl, logger,
		core.WithArchiver(packager, cfg.Signing.OutputDir),
		core.WithLedger(passes),
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Passes:    passes,
		Packager:  packager,
		Processor: proc,
		Export:    export.NewService(passes, logger),
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close(a.Logger)
	}
}
