package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/entity"
	"github.com/joseph-ayodele/ticket-wallet/internal/repository"
)

func openTestDB(t *testing.T) *repository.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ledger", "passes.db")
	db, err := repository.Open(context.Background(), repository.Config{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	return db
}

func issued(serial string, at time.Time) *entity.IssuedPass {
	return &entity.IssuedPass{
		Serial:         serial,
		BarcodeMessage: "QR-" + serial,
		Category:       string(constants.EventTicket),
		Title:          "Hamlet",
		EventTime:      entity.StringPtr("2024-12-25T19:30:00+02:00"),
		SourcePath:     "/in/ticket.pdf",
		SourceHash:     "abc",
		Status:         string(constants.PassStatusUnsigned),
		Enrichment:     constants.EnrichmentSkipped,
		PassJSON:       []byte(`{"serialNumber":"` + serial + `"}`),
		CreatedAt:      at,
	}
}

func TestDialectOf(t *testing.T) {
	assert.Equal(t, repository.DialectPostgres, repository.DialectOf("postgres://u:p@localhost/db"))
	assert.Equal(t, repository.DialectPostgres, repository.DialectOf("postgresql://localhost/db"))
	assert.Equal(t, repository.DialectSQLite, repository.DialectOf("./tmp/passes.db"))
}

func TestPassRepository_RecordAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewPassRepository(db, nil)
	ctx := context.Background()
	at := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)

	stored, err := repo.Record(ctx, issued("S1", at))
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, at, stored.CreatedAt)
	assert.Equal(t, "2024-12-25T19:30:00+02:00", entity.Deref(stored.EventTime))
	assert.Nil(t, stored.ArchivePath)

	got, err := repo.GetBySerial(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.JSONEq(t, `{"serialNumber":"S1"}`, string(got.PassJSON))
}

func TestPassRepository_RecordSameSerialUpdates(t *testing.T) {
	repo := repository.NewPassRepository(openTestDB(t), nil)
	ctx := context.Background()
	at := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)

	first, err := repo.Record(ctx, issued("S1", at))
	require.NoError(t, err)

	again := issued("S1", at.Add(time.Hour))
	again.Status = string(constants.PassStatusIssued)
	again.ArchivePath = entity.StringPtr("/out/S1.pkpass")
	second, err := repo.Record(ctx, again)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, at, second.CreatedAt)
	assert.Equal(t, string(constants.PassStatusIssued), second.Status)
	assert.Equal(t, "/out/S1.pkpass", entity.Deref(second.ArchivePath))

	all, err := repo.List(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPassRepository_GetMissing(t *testing.T) {
	repo := repository.NewPassRepository(openTestDB(t), nil)
	_, err := repo.GetBySerial(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPassRepository_RecordRequiresSerial(t *testing.T) {
	repo := repository.NewPassRepository(openTestDB(t), nil)
	_, err := repo.Record(context.Background(), &entity.IssuedPass{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestPassRepository_ListRange(t *testing.T) {
	repo := repository.NewPassRepository(openTestDB(t), nil)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 12, d, 12, 0, 0, 0, time.UTC) }

	for i, s := range []string{"A", "B", "C"} {
		_, err := repo.Record(ctx, issued(s, day(i+1)))
		require.NoError(t, err)
	}

	from := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 2, 23, 59, 59, 0, time.UTC)
	got, err := repo.List(ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Serial)

	got, err = repo.List(ctx, &from, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Serial)
	assert.Equal(t, "C", got[1].Serial)
}
