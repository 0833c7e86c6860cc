package core

import "strings"

// Row returns the line item with the given line number, or ErrLineNotFound.
func (s Statement) Row(lineNumber int) (LineItem, error) {
	for _, row := range s.Rows {
		if row.LineNumber == lineNumber {
			return row, nil
		}
	}
	return LineItem{}, ErrLineNotFound
}

// FilterByText returns the rows whose description contains the query,
// case-insensitive, in their original display order. An empty query
// returns every row unchanged.
func (s Statement) FilterByText(query string) []LineItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Rows
	}
	query = strings.ToLower(query)
	var out []LineItem
	for _, row := range s.Rows {
		if strings.Contains(strings.ToLower(row.Description), query) {
			out = append(out, row)
		}
	}
	return out
}

// Patch returns a new statement in which exactly one (line, period) cell is
// replaced. Untouched rows are shared with the original; the patched row
// gets a fresh values map. The period list is left as-is: an override
// never invents a new column.
func (s Statement) Patch(lineNumber int, period string, value Money) (Statement, error) {
	idx := -1
	for i, row := range s.Rows {
		if row.LineNumber == lineNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Statement{}, ErrLineNotFound
	}

	rows := make([]LineItem, len(s.Rows))
	copy(rows, s.Rows)
	rows[idx] = rows[idx].WithValue(period, value)

	return Statement{Periods: s.Periods, Rows: rows}, nil
}

// ToCSV renders the statement in the normative export format: a header row
// "Description,<p1>,<p2>,..." followed by one row per line item with every
// period value at exactly two fraction digits (zero for absent periods).
// Descriptions are double-quoted with internal quotes doubled. Lines end
// with LF. Re-exporting an unchanged statement yields identical bytes.
func (s Statement) ToCSV() string {
	var b strings.Builder
	b.WriteString("Description")
	for _, p := range s.Periods {
		b.WriteByte(',')
		b.WriteString(p)
	}
	b.WriteByte('\n')

	for _, row := range s.Rows {
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(row.Description, `"`, `""`))
		b.WriteByte('"')
		for _, p := range s.Periods {
			b.WriteByte(',')
			b.WriteString(row.Value(p).Decimal())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
