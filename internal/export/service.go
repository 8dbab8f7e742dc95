package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ticket-wallet/internal/entity"
	"github.com/joseph-ayodele/ticket-wallet/internal/repository"
	"github.com/joseph-ayodele/ticket-wallet/internal/utils"
)

const sheet = "Passes"

// Service produces XLSX workbooks of the pass ledger.
type Service struct {
	passes repository.PassRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(passes repository.PassRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{passes: passes, logger: logger, now: time.Now}
}

// ExportPassesXLSX returns an XLSX workbook (as bytes) of passes issued in the
// date window. Dates are whole UTC days, both ends inclusive.
// If only from is provided -> from..today.
// If only to is provided   -> beginning..to.
// If neither is provided   -> every pass.
func (s *Service) ExportPassesXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := utils.EndOfDay(*to)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := utils.EndOfDay(s.now())
		toDate = &t
	}

	rows, err := s.passes.List(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_failed", "error", err)
		}
	}()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Issued At",
		"Serial",
		"Pass Style",
		"Title",
		"Event Time",
		"Barcode",
		"Status",
		"Enrichment",
		"Source File",
		"Archive",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, p := range rows {
		writeRow(f, i+2, p)
	}

	_ = f.SetColWidth(sheet, "A", "A", 20) // issued
	_ = f.SetColWidth(sheet, "B", "B", 36) // serial
	_ = f.SetColWidth(sheet, "C", "C", 16) // style
	_ = f.SetColWidth(sheet, "D", "D", 32) // title
	_ = f.SetColWidth(sheet, "E", "E", 26) // event time
	_ = f.SetColWidth(sheet, "F", "F", 32) // barcode
	_ = f.SetColWidth(sheet, "G", "H", 12)
	_ = f.SetColWidth(sheet, "I", "J", 60) // paths

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, p *entity.IssuedPass) {
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	write(1, p.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	write(2, p.Serial)
	write(3, p.Category)
	write(4, truncate(p.Title, 140))
	write(5, entity.Deref(p.EventTime))
	write(6, truncate(p.BarcodeMessage, 140))
	write(7, p.Status)
	write(8, p.Enrichment)
	write(9, p.SourcePath)
	write(10, entity.Deref(p.ArchivePath))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
