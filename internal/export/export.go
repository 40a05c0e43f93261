// Package export renders extraction results into review artifacts: an XLSX
// workbook or a CSV, one row per line item.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/caraseli02/invoice-extractor/internal/invoice"
)

const sheetName = "Line Items"

var headers = []string{"Name", "Quantity", "Unit Price", "Total Price", "Barcode"}

// Service produces export artifacts from cleaned invoice data.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteXLSX returns an XLSX workbook (as bytes) with one row per product and
// a summary block for the invoice-level fields.
func (s *Service) WriteXLSX(data invoice.Data) ([]byte, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, err
	}
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheetName, cell, v)
	}

	row := 2
	for _, p := range data.Products {
		write(1, row, p.Name)
		write(2, row, p.Quantity)
		write(3, row, p.UnitPrice)
		write(4, row, p.TotalPrice)
		if p.Barcode != "" {
			write(5, row, p.Barcode)
		}
		row++
	}

	// summary block, one blank row below the items
	row++
	summary := [][2]any{
		{"Supplier", data.Supplier},
		{"Invoice Number", data.InvoiceNumber},
		{"Invoice Date", data.InvoiceDate},
	}
	for _, kv := range summary {
		write(1, row, kv[0])
		write(2, row, kv[1])
		row++
	}
	write(1, row, "Total Amount")
	if data.TotalAmount > 0 {
		write(2, row, data.TotalAmount)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "products", len(data.Products), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// WriteCSV streams the line items as CSV with a header row.
func (s *Service) WriteCSV(w io.Writer, data invoice.Data) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, p := range data.Products {
		rec := []string{
			p.Name,
			fmt.Sprintf("%d", p.Quantity),
			fmt.Sprintf("%g", p.UnitPrice),
			fmt.Sprintf("%g", p.TotalPrice),
			p.Barcode,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	s.logger.Info("export.csv.ok", "products", len(data.Products))
	return nil
}
