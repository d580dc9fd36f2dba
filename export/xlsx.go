// Package export renders extraction results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/rpdextract/extract"
)

// Row is one processed document in a report.
type Row struct {
	FileName     string
	Result       *extract.Result
	Completeness float64
	Warnings     []string
}

type sheetDef struct {
	name    string
	headers []string
	widths  []float64
	rows    func(rows []Row) [][]any
}

var sheets = []sheetDef{
	{
		name:    "Summary",
		headers: []string{"File", "Subject", "Degree", "Profession", "Total Hours", "Confidence", "Completeness", "Warnings"},
		widths:  []float64{28, 36, 12, 36, 12, 12, 14, 60},
		rows: func(rows []Row) [][]any {
			out := make([][]any, 0, len(rows))
			for _, r := range rows {
				res := r.Result
				confidence := any("")
				if res.ExtractionConfidence != nil {
					confidence = *res.ExtractionConfidence
				}
				out = append(out, []any{
					r.FileName, res.SubjectTitle, string(res.AcademicDegree), res.Profession,
					res.TotalHours, confidence, r.Completeness, strings.Join(r.Warnings, "; "),
				})
			}
			return out
		},
	},
	{
		name:    "Lectures",
		headers: []string{"File", "Order", "Title", "Hours", "Description"},
		widths:  []float64{28, 8, 48, 8, 60},
		rows: func(rows []Row) [][]any {
			var out [][]any
			for _, r := range rows {
				for _, t := range r.Result.LectureThemes {
					out = append(out, []any{r.FileName, t.Order, t.Title, t.Hours, deref(t.Description)})
				}
			}
			return out
		},
	},
	{
		name:    "Labs",
		headers: []string{"File", "Title", "Description", "Theme", "Estimated Hours"},
		widths:  []float64{28, 40, 60, 30, 16},
		rows: func(rows []Row) [][]any {
			var out [][]any
			for _, r := range rows {
				for _, l := range r.Result.LabExamples {
					out = append(out, []any{r.FileName, l.Title, l.Description, deref(l.ThemeRelation), deref(l.EstimatedHours)})
				}
			}
			return out
		},
	},
	{
		name:    "Literature",
		headers: []string{"File", "Authors", "Title", "Year", "Publisher", "Pages", "ISBN", "In Library"},
		widths:  []float64{28, 30, 48, 8, 24, 10, 18, 12},
		rows: func(rows []Row) [][]any {
			var out [][]any
			for _, r := range rows {
				for _, ref := range r.Result.LiteratureReferences {
					out = append(out, []any{
						r.FileName, ref.Authors, ref.Title, deref(ref.Year), deref(ref.Publisher),
						deref(ref.Pages), deref(ref.ISBN), ref.KPFUAvailable,
					})
				}
			}
			return out
		},
	},
}

// WriteXLSX writes a workbook with Summary, Lectures, Labs and Literature
// sheets to w. Rows without a result are skipped.
func WriteXLSX(w io.Writer, rows []Row) error {
	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Result != nil {
			kept = append(kept, r)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}

	for i, def := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), def.name); err != nil {
				return fmt.Errorf("xlsx sheet %s: %w", def.name, err)
			}
		} else if _, err := f.NewSheet(def.name); err != nil {
			return fmt.Errorf("xlsx sheet %s: %w", def.name, err)
		}
		if err := writeSheet(f, def, kept, header); err != nil {
			return fmt.Errorf("xlsx sheet %s: %w", def.name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, def sheetDef, rows []Row, headerStyle int) error {
	headers := make([]any, len(def.headers))
	for i, h := range def.headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(def.name, "A1", &headers); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(def.headers), 1)
	if err := f.SetCellStyle(def.name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, values := range def.rows(rows) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(def.name, cell, &values); err != nil {
			return err
		}
	}

	for i, width := range def.widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(def.name, col, col, width)
	}
	return nil
}

// deref returns the pointed-to value, or an empty cell for nil.
func deref[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}
