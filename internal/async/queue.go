package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/ticket-wallet/internal/core"
)

// Job is one PDF waiting for conversion.
type Job struct {
	Path        string
	Options     core.ProcessOptions
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
