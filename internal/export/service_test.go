package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ticket-wallet/internal/entity"
)

type stubPasses struct {
	rows     []*entity.IssuedPass
	err      error
	from, to *time.Time
}

func (s *stubPasses) Record(context.Context, *entity.IssuedPass) (*entity.IssuedPass, error) {
	return nil, errors.New("not used")
}

func (s *stubPasses) GetBySerial(context.Context, string) (*entity.IssuedPass, error) {
	return nil, errors.New("not used")
}

func (s *stubPasses) List(_ context.Context, from, to *time.Time) ([]*entity.IssuedPass, error) {
	s.from, s.to = from, to
	return s.rows, s.err
}

func TestExportPassesXLSX_Rows(t *testing.T) {
	repo := &stubPasses{rows: []*entity.IssuedPass{{
		Serial:         "S1",
		BarcodeMessage: "QR-1",
		Category:       "eventTicket",
		Title:          "Hamlet",
		EventTime:      entity.StringPtr("2024-12-25T19:30:00+02:00"),
		SourcePath:     "/in/t.pdf",
		ArchivePath:    entity.StringPtr("/out/S1.pkpass"),
		Status:         "ISSUED",
		Enrichment:     "SKIPPED",
		CreatedAt:      time.Date(2024, 12, 1, 9, 30, 0, 0, time.UTC),
	}}}
	data, err := NewService(repo, nil).ExportPassesXLSX(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, repo.from)
	assert.Nil(t, repo.to)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheet}, f.GetSheetList())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Serial", rows[0][1])
	assert.Equal(t, []string{
		"2024-12-01 09:30:00", "S1", "eventTicket", "Hamlet", "2024-12-25T19:30:00+02:00",
		"QR-1", "ISSUED", "SKIPPED", "/in/t.pdf", "/out/S1.pkpass",
	}, rows[1])
}

func TestExportPassesXLSX_DateWindow(t *testing.T) {
	repo := &stubPasses{}
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC) }

	from := time.Date(2024, 12, 1, 15, 0, 0, 0, time.UTC)
	_, err := svc.ExportPassesXLSX(context.Background(), &from, nil)
	require.NoError(t, err)
	require.NotNil(t, repo.from)
	require.NotNil(t, repo.to)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), *repo.from)
	assert.Equal(t, time.Date(2025, 1, 10, 23, 59, 59, 999999999, time.UTC), *repo.to)
}

func TestExportPassesXLSX_RepositoryError(t *testing.T) {
	_, err := NewService(&stubPasses{err: errors.New("db down")}, nil).ExportPassesXLSX(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "db down")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "שלו…", truncate("שלום עולם", 4))
}
