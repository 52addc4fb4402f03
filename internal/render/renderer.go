package render

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"fleet-report-builder/internal/model"
)

const (
	sheetName   = "Report"
	maxColWidth = 60
)

// Renderer writes tables as spreadsheets or documents.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render parses a JSON payload and writes it in the requested format.
func (r *Renderer) Render(title string, data []byte, format model.Format) ([]byte, error) {
	table, err := ParseTable(title, data)
	if err != nil {
		return nil, err
	}
	if format == model.FormatXLSX {
		return r.XLSX(table)
	}
	return r.PDF(table)
}

func (r *Renderer) XLSX(table Table) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	file.SetSheetName("Sheet1", sheetName)

	var firstErr error
	set := func(col, row int, value string) {
		if firstErr != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err == nil {
			err = file.SetCellValue(sheetName, cell, value)
		}
		if err != nil {
			firstErr = fmt.Errorf("write cell %d,%d: %w", col, row, err)
		}
	}

	set(1, 1, table.Title)
	headerRow := 3
	for i, col := range table.Columns {
		set(i+1, headerRow, col)
	}
	for i, row := range table.Rows {
		for j, value := range row {
			set(j+1, headerRow+1+i, value)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	for i := range table.Columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetColWidth(sheetName, name, name, float64(columnWidth(table, i))); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) PDF(table Table) ([]byte, error) {
	orientation := "P"
	if len(table.Columns) > 4 {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(table.Title), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	if len(table.Columns) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, "No data", "", 1, "L", false, 0, "")
	} else {
		pageWidth, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		width := (pageWidth - left - right) / float64(len(table.Columns))

		drawRow(pdf, tr, table.Columns, width, true)
		for _, row := range table.Rows {
			drawRow(pdf, tr, row, width, false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, width float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 9)
	for _, col := range cols {
		pdf.CellFormat(width, 7, truncate(tr(col), width), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

// truncate keeps roughly what fits in a cell of the given width at 9pt.
func truncate(value string, width float64) string {
	limit := int(width / 1.8)
	if limit < 4 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func columnWidth(table Table, col int) int {
	width := len(table.Columns[col]) + 2
	for _, row := range table.Rows {
		if l := len(row[col]) + 2; l > width {
			width = l
		}
	}
	if width > maxColWidth {
		return maxColWidth
	}
	return width
}
