package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrToolMissing reports that an external binary is not installed.
var ErrToolMissing = errors.New("external tool not found")

// Runner lets us stub external commands (poppler, tesseract, openssl) in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *slog.Logger
}

// NewExecRunner runs commands with os/exec, logging each invocation with
// secrets masked.
func NewExecRunner(logger *slog.Logger) Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return execRunner{logger: logger}
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if errors.Is(err, exec.ErrNotFound) {
		r.logger.Error("exec.missing", "cmd", name, "error", err)
		return nil, nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	if err != nil {
		r.logger.Error("exec.failed",
			"cmd", name,
			"args", RedactArgs(args),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", Truncate(errb.String(), 8<<10),
		)
	} else {
		r.logger.Debug("exec.ok",
			"cmd", name,
			"args", RedactArgs(args),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

// RedactArgs joins args for logging, masking openssl style "pass:" secrets.
func RedactArgs(args []string) string {
	masked := make([]string, len(args))
	for i, a := range args {
		if strings.HasPrefix(a, "pass:") {
			a = "pass:***"
		}
		masked[i] = a
	}
	return strings.Join(masked, " ")
}
