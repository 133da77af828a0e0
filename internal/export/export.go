// Package export writes the weekly summary workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"quarra/internal/report"
)

// FileName is the name offered to the browser for the download.
const FileName = "weekly_summary.xlsx"

// ContentType is the media type of xlsx workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	dateHeader = "Data"
	weekHeader = "Week"
	dateFormat = "yyyy-mm-dd"
)

// WriteWorkbook writes one sheet per series with the weeks of the selected
// month. Every sheet has the header Data, the series fields in order, Week.
// A series without weeks still gets its header row.
func WriteWorkbook(w io.Writer, rep *report.Report) error {
	if rep == nil {
		return fmt.Errorf("nil report")
	}

	f := excelize.NewFile()
	defer f.Close()

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr(dateFormat)})
	if err != nil {
		return fmt.Errorf("create date style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	for i, view := range rep.Series {
		name := sheetName(view)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, view, dateStyle, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, view report.SeriesView, dateStyle, headerStyle int) error {
	fields := columns(view)

	header := make([]any, 0, len(fields)+2)
	header = append(header, dateHeader)
	for _, name := range fields {
		header = append(header, name)
	}
	header = append(header, weekHeader)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header of %q: %w", sheet, err)
	}

	for i, b := range view.Monthly {
		row := make([]any, 0, len(header))
		row = append(row, b.End.Time)
		for _, name := range fields {
			v, _ := b.Value(name).Float64()
			row = append(row, v)
		}
		row = append(row, b.Label)

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+2, sheet, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, dateStyle); err != nil {
			return fmt.Errorf("style row %d of %q: %w", i+2, sheet, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return fmt.Errorf("size columns of %q: %w", sheet, err)
	}
	weekCol, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(sheet, weekCol, weekCol, 18)
}

// columns lists the series fields, taking them from the buckets when the
// source did not report a header.
func columns(view report.SeriesView) []string {
	if len(view.Fields) > 0 {
		return view.Fields
	}
	seen := map[string]bool{}
	var out []string
	for _, b := range view.Weekly {
		for _, fs := range b.Fields {
			if !seen[fs.Name] {
				seen[fs.Name] = true
				out = append(out, fs.Name)
			}
		}
	}
	return out
}

func sheetName(view report.SeriesView) string {
	if view.Config.ExportSheet != "" {
		return view.Config.ExportSheet
	}
	return "Weekly " + string(view.Kind)
}

func ptr[T any](v T) *T { return &v }
