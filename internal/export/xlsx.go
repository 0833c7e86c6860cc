// Package export renders a Statement into downloadable files. CSV lives
// on the Statement itself; this package covers the spreadsheet format.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"dre/internal/core"
)

const sheetName = "P&L"

// WriteXLSX renders the statement as a single-sheet workbook: one header
// row with the period columns, then one row per line item in layout
// order. Header and total rows are bold; data cells carry a 2-decimal
// number format so the workbook shows exactly what the CSV export shows.
func WriteXLSX(w io.Writer, st core.Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	numFmt := "#,##0.00"
	numberStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	header := make([]interface{}, 0, len(st.Periods)+1)
	header = append(header, "Description")
	for _, p := range st.Periods {
		header = append(header, p)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheetName, "A1", endHeader, boldStyle); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}

	for i, row := range st.Rows {
		rowNum := i + 2
		cells := make([]interface{}, 0, len(st.Periods)+1)
		cells = append(cells, row.Description)
		for _, p := range st.Periods {
			if row.IsHeader {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, row.Value(p).Float())
		}

		startCell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(sheetName, startCell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", row.LineNumber, err)
		}

		if len(st.Periods) > 0 && !row.IsHeader {
			firstData, _ := excelize.CoordinatesToCellName(2, rowNum)
			lastData, _ := excelize.CoordinatesToCellName(len(st.Periods)+1, rowNum)
			if err := f.SetCellStyle(sheetName, firstData, lastData, numberStyle); err != nil {
				return fmt.Errorf("style row %d: %w", row.LineNumber, err)
			}
		}
		if row.IsHeader || row.IsTotal {
			endCell, _ := excelize.CoordinatesToCellName(1, rowNum)
			if err := f.SetCellStyle(sheetName, startCell, endCell, boldStyle); err != nil {
				return fmt.Errorf("style row %d: %w", row.LineNumber, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 36); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
