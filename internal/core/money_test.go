package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseSignedDecimal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"plain integer", "1234", 123400, false},
		{"dot separator", "1234.50", 123450, false},
		{"comma separator", "1234,50", 123450, false},
		{"single fraction digit", "12.3", 1230, false},
		{"third digit rounds up", "12.346", 1235, false},
		{"third digit rounds down", "12.344", 1234, false},
		{"exactly half rounds up", "12.345", 1235, false},
		{"negative", "-12,34", -1234, false},
		{"explicit plus", "+12.34", 1234, false},
		{"zero", "0", 0, false},
		{"zero with fraction", "0.00", 0, false},
		{"leading dot", ".50", 50, false},
		{"trailing dot", "5.", 500, false},
		{"surrounding whitespace", "  7.25  ", 725, false},
		{"empty", "", 0, true},
		{"whitespace only", "   ", 0, true},
		{"bare sign", "-", 0, true},
		{"bare dot", ".", 0, true},
		{"letters", "abc", 0, true},
		{"mixed", "12a.50", 0, true},
		{"two separators", "1.2.3", 0, true},
		{"grouping separator", "1.234,50", 0, true},
		{"internal space", "1 234", 0, true},
		{"overflow", "99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSignedDecimal(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ParseSignedDecimal(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSignedDecimal(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSignedDecimal(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyDecimal(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{50, "0.50"},
		{123450, "1234.50"},
		{-1234, "-12.34"},
		{-5, "-0.05"},
		{100, "1.00"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).Decimal(); got != tt.want {
			t.Errorf("Money{%d}.Decimal() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := Money{Cents: -123456}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "-1234.56" {
		t.Errorf("Marshal() = %s, want -1234.56", data)
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != m {
		t.Errorf("round trip = %+v, want %+v", back, m)
	}

	// Quoted strings are accepted too.
	var fromString Money
	if err := json.Unmarshal([]byte(`"12,50"`), &fromString); err != nil {
		t.Fatalf("Unmarshal(quoted) error = %v", err)
	}
	if fromString.Cents != 1250 {
		t.Errorf("Unmarshal(quoted) = %d cents, want 1250", fromString.Cents)
	}
}

func TestMoneyFloat(t *testing.T) {
	if got := (Money{Cents: 123450}).Float(); got != 1234.5 {
		t.Errorf("Float() = %v, want 1234.5", got)
	}
	if !(Money{}).IsZero() {
		t.Error("zero Money is not IsZero")
	}
	if (Money{Cents: 1}).IsZero() {
		t.Error("one cent reported as zero")
	}
}
