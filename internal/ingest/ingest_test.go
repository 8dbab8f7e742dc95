package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/async"
	"github.com/joseph-ayodele/ticket-wallet/internal/core"
	"github.com/joseph-ayodele/ticket-wallet/internal/ingest"
)

type memQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	fail string
}

func (q *memQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != "" && filepath.Base(job.Path) == q.fail {
		return errors.New("queue full")
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Shutdown(context.Context) {}

func (q *memQueue) paths() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, j := range q.jobs {
		out = append(out, filepath.Base(j.Path))
	}
	return out
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
}

func tree(t *testing.T) string {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "a.PDF"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".hidden.pdf"))
	touch(t, filepath.Join(root, ".cache", "c.pdf"))
	touch(t, filepath.Join(root, "sub", "d.pdf"))
	return root
}

func TestScanDirectory(t *testing.T) {
	root := tree(t)

	paths, stats, err := ingest.ScanDirectory(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.PDF"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "d.pdf"),
	}, paths)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(4), stats.Scanned)

	paths, _, err = ingest.ScanDirectory(root, false)
	require.NoError(t, err)
	assert.Len(t, paths, 5)
}

func TestScanDirectory_Errors(t *testing.T) {
	_, _, err := ingest.ScanDirectory("  ", true)
	assert.Error(t, err)

	_, _, err = ingest.ScanDirectory(filepath.Join(t.TempDir(), "missing"), true)
	assert.Error(t, err)
}

func TestService_IngestDirectory(t *testing.T) {
	root := tree(t)
	q := &memQueue{fail: "b.pdf"}
	svc := ingest.NewService(q, nil)
	opts := core.ProcessOptions{Category: constants.EventTicket, Timezone: "+02:00"}

	results, stats, err := svc.IngestDirectory(context.Background(), root, true, opts)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, uint32(2), stats.Queued)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Equal(t, "queue full", results[1].Err)
	assert.NotEmpty(t, results[0].TraceID)

	assert.Equal(t, []string{"a.PDF", "d.pdf"}, q.paths())
	for _, j := range q.jobs {
		assert.True(t, filepath.IsAbs(j.Path))
		assert.Equal(t, opts, j.Options)
	}
}

func TestStartWatcher_InitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
		SkipHidden:  true,
	})
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return filepath.Base(p)
		case <-time.After(2 * time.Second):
			return ""
		}
	}
	assert.Equal(t, "existing.pdf", next())

	touch(t, filepath.Join(root, "ignored.txt"))
	touch(t, filepath.Join(root, "new.pdf"))
	assert.Equal(t, "new.pdf", next())

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := ingest.StartWatcher(context.Background(), ingest.WatchConfig{})
	assert.Error(t, err)
}
