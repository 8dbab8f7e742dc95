package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/ticket-wallet/internal/app"
	"github.com/joseph-ayodele/ticket-wallet/internal/common"
)

type globalFlags struct {
	configFile string
	logLevel   string
	logFormat  string
}

var global globalFlags

var rootCmd = &cobra.Command{
	Use:   "ticketwallet",
	Short: "Turn ticket PDFs into wallet passes",
	Long: `Converts ticket and voucher PDFs into Apple Wallet passes.

Text is read from the PDF text layer (or OCR when there is none), QR codes are
decoded from the rendered pages, and each ticket becomes a .pkpass archive
recorded in the pass ledger.

Examples:
  ticketwallet convert ticket.pdf --json
  ticketwallet batch ./inbox --type eventTicket
  ticketwallet export --from 2026-01-01 --out passes.xlsx`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&global.configFile, "config", "", "config file (yaml, json or toml); overlays environment variables")
	pf.StringVar(&global.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&global.logFormat, "log-format", "text", "log format (text or json)")
}

// setup loads configuration and the logger. Logs go to stderr so stdout stays
// usable for --json output.
func setup() (*common.Config, *slog.Logger, error) {
	logger, err := app.NewLogger(os.Stderr, global.logLevel, global.logFormat)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	cfg, err := app.LoadConfig(global.configFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if _, perr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); perr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
