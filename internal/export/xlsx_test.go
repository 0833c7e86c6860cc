package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"dre/internal/core"
)

func TestWriteXLSX(t *testing.T) {
	st := core.Statement{
		Periods: []string{"2024-01", "2024-02"},
		Rows: []core.LineItem{
			{LineNumber: 1, Description: "REVENUE", IsHeader: true},
			{LineNumber: 2, Description: "Product sales", Values: map[string]core.Money{
				"2024-01": {Cents: 123456},
			}},
			{LineNumber: 3, Description: "Total revenue", IsTotal: true, Values: map[string]core.Money{
				"2024-01": {Cents: 123456},
				"2024-02": {Cents: -5000},
			}},
		},
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, st); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	checks := []struct {
		cell string
		want string
	}{
		{"A1", "Description"},
		{"B1", "2024-01"},
		{"C1", "2024-02"},
		{"A2", "REVENUE"},
		{"B2", ""},
		{"A3", "Product sales"},
		{"B3", "1,234.56"},
		{"A4", "Total revenue"},
		{"C4", "-50.00"},
	}
	for _, c := range checks {
		got, err := f.GetCellValue(sheetName, c.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", c.cell, err)
		}
		if got != c.want {
			t.Errorf("cell %s = %q, want %q", c.cell, got, c.want)
		}
	}
}

func TestWriteXLSXEmptyStatement(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, core.Statement{}); err != nil {
		t.Fatalf("WriteXLSX(empty) error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty statement produced no workbook bytes")
	}
}
