package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/entity"
)

type PassRepository interface {
	// Record inserts the pass or, when its serial is already known, refreshes the row.
	Record(ctx context.Context, p *entity.IssuedPass) (*entity.IssuedPass, error)
	GetBySerial(ctx context.Context, serial string) (*entity.IssuedPass, error)
	// List returns passes created in [from, to], oldest first. Nil bounds are open.
	List(ctx context.Context, from, to *time.Time) ([]*entity.IssuedPass, error)
}

type passRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewPassRepository(db *DB, logger *slog.Logger) PassRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &passRepository{db: db, logger: logger}
}

const passColumns = `id, serial, barcode_message, category, title, event_time, source_path,
	source_hash, archive_path, status, enrichment, pass_json, created_at`

func (r *passRepository) Record(ctx context.Context, p *entity.IssuedPass) (*entity.IssuedPass, error) {
	if p == nil || p.Serial == "" {
		return nil, common.NewAppError("INVALID_INPUT", "pass serial is required", common.ErrInvalidInput)
	}
	row := *p
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	row.CreatedAt = row.CreatedAt.UTC().Truncate(time.Second)

	q := r.db.rebind(`INSERT INTO issued_pass (` + passColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (serial) DO UPDATE SET
			barcode_message = excluded.barcode_message,
			category        = excluded.category,
			title           = excluded.title,
			event_time      = excluded.event_time,
			source_path     = excluded.source_path,
			source_hash     = excluded.source_hash,
			archive_path    = excluded.archive_path,
			status          = excluded.status,
			enrichment      = excluded.enrichment,
			pass_json       = excluded.pass_json`)

	_, err := r.db.SQL.ExecContext(ctx, q,
		row.ID.String(), row.Serial, row.BarcodeMessage, row.Category, row.Title,
		nullString(row.EventTime), row.SourcePath, row.SourceHash, nullString(row.ArchivePath),
		row.Status, row.Enrichment, string(row.PassJSON), row.CreatedAt,
	)
	if err != nil {
		r.logger.Error("ledger.record.failed", "serial", row.Serial, "error", err)
		return nil, fmt.Errorf("%w: record pass: %v", common.ErrDatabase, err)
	}

	// a conflicting insert keeps the original id and created_at
	stored, err := r.GetBySerial(ctx, row.Serial)
	if err != nil {
		return nil, err
	}
	r.logger.Info("ledger.record", "serial", stored.Serial, "id", stored.ID, "status", stored.Status)
	return stored, nil
}

func (r *passRepository) GetBySerial(ctx context.Context, serial string) (*entity.IssuedPass, error) {
	q := r.db.rebind(`SELECT ` + passColumns + ` FROM issued_pass WHERE serial = ?`)
	p, err := scanPass(r.db.SQL.QueryRowContext(ctx, q, serial))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("PASS_NOT_FOUND", fmt.Sprintf("no pass with serial %s", serial), common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("ledger.get.failed", "serial", serial, "error", err)
		return nil, fmt.Errorf("%w: get pass: %v", common.ErrDatabase, err)
	}
	return p, nil
}

func (r *passRepository) List(ctx context.Context, from, to *time.Time) ([]*entity.IssuedPass, error) {
	q := `SELECT ` + passColumns + ` FROM issued_pass WHERE 1=1`
	var args []any
	if from != nil {
		q += ` AND created_at >= ?`
		args = append(args, from.UTC())
	}
	if to != nil {
		q += ` AND created_at <= ?`
		args = append(args, to.UTC())
	}
	q += ` ORDER BY created_at, serial`

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		r.logger.Error("ledger.list.failed", "error", err)
		return nil, fmt.Errorf("%w: list passes: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.IssuedPass
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan pass: %v", common.ErrDatabase, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list passes: %v", common.ErrDatabase, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPass(s scanner) (*entity.IssuedPass, error) {
	var (
		p           entity.IssuedPass
		id          string
		eventTime   sql.NullString
		archivePath sql.NullString
		passJSON    string
	)
	err := s.Scan(&id, &p.Serial, &p.BarcodeMessage, &p.Category, &p.Title, &eventTime,
		&p.SourcePath, &p.SourceHash, &archivePath, &p.Status, &p.Enrichment, &passJSON, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bad id %q: %w", id, err)
	}
	if eventTime.Valid {
		p.EventTime = &eventTime.String
	}
	if archivePath.Valid {
		p.ArchivePath = &archivePath.String
	}
	p.PassJSON = []byte(passJSON)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
