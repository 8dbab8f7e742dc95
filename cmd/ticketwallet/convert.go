package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/app"
	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/core"
)

type passFlags struct {
	organization string
	passTypeID   string
	teamID       string
	category     string
	timezone     string
	llm          bool
	out          string
}

func (f *passFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.organization, "organization", "", "organization name shown on the pass")
	fs.StringVar(&f.passTypeID, "pass-type-id", "", "pass type identifier, e.g. pass.com.example.ticket")
	fs.StringVar(&f.teamID, "team-id", "", "Apple developer team identifier")
	fs.StringVar(&f.category, "type", "", "force the pass style ("+strings.Join(constants.AsStringSlice(), ", ")+")")
	fs.StringVar(&f.timezone, "timezone", "", "offset applied to local event times, e.g. +03:00")
	fs.BoolVar(&f.llm, "llm", false, "refine extracted fields with the language model (needs OPENAI_API_KEY)")
	fs.StringVar(&f.out, "out", "", "directory for .pkpass archives (default: OUTBOX_DIR)")
}

// apply overlays the flags on cfg and returns per-file options.
func (f *passFlags) apply(cfg *common.Config) (core.ProcessOptions, error) {
	v := common.NewValidator()
	if f.organization != "" {
		v.Field("organization", f.organization, common.MaxLength(128))
		cfg.Wallet.Organization = f.organization
	}
	if f.passTypeID != "" {
		v.Field("pass-type-id", f.passTypeID, common.PassTypeIdentifier)
		cfg.Wallet.PassTypeID = f.passTypeID
	}
	if f.teamID != "" {
		v.Field("team-id", f.teamID, common.TeamIdentifier)
		cfg.Wallet.TeamID = f.teamID
	}
	if f.timezone != "" {
		v.Field("timezone", f.timezone, common.TimezoneOffset)
		cfg.Wallet.Timezone = f.timezone
	}
	v.Field("type", f.category, common.Category)
	if err := v.Error(); err != nil {
		return core.ProcessOptions{}, err
	}

	opts := core.ProcessOptions{Timezone: cfg.Wallet.Timezone, Enrich: f.llm, OutDir: f.out}
	if f.category != "" {
		opts.Category, _ = constants.Canonicalize(f.category)
	}
	return opts, nil
}

func newConvertCmd() *cobra.Command {
	var (
		flags  passFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "convert <pdf>",
		Short: "Convert one PDF into wallet passes",
		Long: `Converts one PDF into one wallet pass per ticket found in it.

Exits 0 when at least one pass was produced and non-zero otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			opts, err := flags.apply(cfg)
			if err != nil {
				return err
			}
			if opts.Enrich && !cfg.LLM.Enabled() {
				logger.Warn("convert.llm_disabled", "reason", "OPENAI_API_KEY is not set")
			}

			a, err := app.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.Processor.ProcessFile(cmd.Context(), args[0], opts)
			passes := out.Result.Passes
			if len(passes) == 0 {
				if err == nil {
					err = common.ErrNothingToExtract
				}
				return fmt.Errorf("no passes produced from %s: %w", args[0], err)
			}
			if err != nil {
				logger.Warn("convert.partial", "error", err)
			}

			if dir := flags.out; dir != "" {
				if err := writePassJSON(dir, args[0], passes); err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if len(passes) == 1 {
					return enc.Encode(passes[0])
				}
				return enc.Encode(passes)
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s: %d pass(es) via %s, enrichment %s\n",
				filepath.Base(args[0]), len(passes), out.Method, out.Result.Enrichment.String())
			for i, p := range passes {
				archive := "-"
				if i < len(out.Archives) {
					archive = out.Archives[i]
				}
				_, _ = fmt.Fprintf(w, "  %s  %-12s  %s  %s\n", p.SerialNumber, p.Category(), p.Description, archive)
			}
			for _, warn := range out.Warnings {
				_, _ = fmt.Fprintf(w, "  warning: %s\n", warn)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the pass JSON to stdout")
	return cmd
}

// writePassJSON stores the pass documents next to the archives as <stem>.json.
func writePassJSON(dir, source string, passes any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	b, err := json.MarshalIndent(passes, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, stem+".json"), b, 0o644); err != nil {
		return errors.Join(common.ErrInternal, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newConvertCmd())
}
