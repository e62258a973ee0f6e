package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	lodging "lodging-ledger/internal/lodging/domain"
	"lodging-ledger/internal/observability/metrics"
)

const (
	formatXLSX = "xlsx"
	formatPDF  = "pdf"

	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, key, format string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveStatementExport(format, result, time.Since(start))
	}()

	view, err := h.ledger.Month(r.Context(), key)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, h.logger, err)
		return
	}
	var (
		data        []byte
		contentType string
	)
	switch format {
	case formatPDF:
		data, err = BuildMonthStatementPDF(view)
		contentType = contentTypePDF
	default:
		data, err = BuildMonthStatementXLSX(view)
		contentType = contentTypeXLSX
	}
	if err != nil {
		result = metrics.ResultError
		h.logger.Error("month statement export failed", "month", key, "format", format, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "export_failed", Message: "Could not build the statement."})
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="lodging-%s.%s"`, view.Month, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func statusLabel(view lodging.MonthView) string {
	if view.Closed {
		return "closed"
	}
	return "open"
}

func money(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}

func coordinate(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}

func loggedAt(entry lodging.DayEntry) string {
	if entry.Timestamp == nil {
		return ""
	}
	return entry.Timestamp.Format(time.RFC3339)
}

func dayDate(month lodging.MonthKey, day int) string {
	return fmt.Sprintf("%s-%02d", month, day)
}

type statementLine struct {
	label string
	value string
}

func statementLines(view lodging.MonthView) []statementLine {
	discrepancy := "no"
	if view.HasDiscrepancy {
		discrepancy = "yes (" + money(view.Discrepancy) + ")"
	}
	return []statementLine{
		{"Month", view.Month.String()},
		{"Days", strconv.Itoa(view.DayCount)},
		{"Daily rate", view.DailyRate.StringFixed(2)},
		{"Estimated cost", view.EstimatedCost.StringFixed(2)},
		{"Computed amount", money(view.ComputedAmount)},
		{"Paid amount", money(view.PaidAmount)},
		{"Discrepancy", discrepancy},
		{"Status", statusLabel(view)},
	}
}

// BuildMonthStatementPDF renders a one-page statement for a month.
func BuildMonthStatementPDF(view lodging.MonthView) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Lodging Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, line := range statementLines(view) {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %s", line.label, line.value))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Logged at", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Latitude", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Longitude", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, day := range view.Days {
		entry := view.Entries[day]
		pdf.CellFormat(30, 6, dayDate(view.Month, day), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, loggedAt(entry), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, coordinate(entry.Latitude), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, coordinate(entry.Longitude), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildMonthStatementXLSX renders a workbook with a summary and a days sheet.
func BuildMonthStatementXLSX(view lodging.MonthView) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	summarySheet := "summary"
	daysSheet := "days"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(daysSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Lodging Statement")
	for i, line := range statementLines(view) {
		row := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), line.label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), line.value)
	}

	_ = f.SetCellValue(daysSheet, "A1", "Date")
	_ = f.SetCellValue(daysSheet, "B1", "Logged at")
	_ = f.SetCellValue(daysSheet, "C1", "Latitude")
	_ = f.SetCellValue(daysSheet, "D1", "Longitude")
	for i, day := range view.Days {
		row := i + 2
		entry := view.Entries[day]
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("A%d", row), dayDate(view.Month, day))
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("B%d", row), loggedAt(entry))
		if entry.Latitude != nil {
			_ = f.SetCellValue(daysSheet, fmt.Sprintf("C%d", row), *entry.Latitude)
		}
		if entry.Longitude != nil {
			_ = f.SetCellValue(daysSheet, fmt.Sprintf("D%d", row), *entry.Longitude)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
