package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestObligationValidate(t *testing.T) {
	valid := Obligation{
		ID:         "ob-1",
		UnitID:     "unit-1",
		TenantName: "Max Mustermann",
		TenantIBAN: "DE02100100109307118603",
		Expected:   decimal.NewFromFloat(950.00),
		DueDay:     3,
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid obligation, got error: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Obligation)
	}{
		{"empty id", func(o *Obligation) { o.ID = "" }},
		{"missing unit", func(o *Obligation) { o.UnitID = "" }},
		{"empty tenant name", func(o *Obligation) { o.TenantName = "  " }},
		{"negative expected", func(o *Obligation) { o.Expected = decimal.NewFromInt(-1) }},
		{"negative deposit", func(o *Obligation) { o.Deposit = decimal.NewFromInt(-100) }},
		{"due day zero", func(o *Obligation) { o.DueDay = 0 }},
		{"due day too large", func(o *Obligation) { o.DueDay = 29 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := valid
			tt.modify(&ob)
			if err := ob.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestUnitValidate(t *testing.T) {
	unit := Unit{ID: "u1", PropertyID: "p1", Label: "Whg 3", Rooms: 2}
	if err := unit.Validate(); err != nil {
		t.Fatalf("expected valid unit, got error: %v", err)
	}

	unit.Rooms = 0
	if err := unit.Validate(); err == nil {
		t.Error("expected error for zero rooms")
	}
}

func TestTransactionIsIncoming(t *testing.T) {
	incoming := Transaction{Amount: decimal.NewFromFloat(-950)}
	if !incoming.IsIncoming() {
		t.Error("negative amount should be incoming")
	}

	outgoing := Transaction{Amount: decimal.NewFromFloat(12.50)}
	if outgoing.IsIncoming() {
		t.Error("positive amount should not be incoming")
	}

	if got := incoming.AbsoluteAmount(); !got.Equal(decimal.NewFromFloat(950)) {
		t.Errorf("expected magnitude 950, got %s", got)
	}
}

func TestTransactionInMonth(t *testing.T) {
	tx := Transaction{Date: time.Date(2025, time.August, 3, 0, 0, 0, 0, time.UTC)}

	if !tx.InMonth(2025, time.August) {
		t.Error("transaction should be in August 2025")
	}
	if tx.InMonth(2025, time.July) {
		t.Error("transaction should not be in July 2025")
	}
	if tx.InMonth(2024, time.August) {
		t.Error("transaction should not be in August 2024")
	}
}

func TestParseEuroAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"1.234,56", "1234.56", false},
		{"950,00", "950", false},
		{"950", "950", false},
		{"-720,50", "-720.5", false},
		{"1234.56", "1234.56", false},
		{"950,00 €", "950", false},
		{"EUR 950,00", "950", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEuroAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.input, err)
			}
			expected, _ := decimal.NewFromString(tt.expected)
			if !got.Equal(expected) {
				t.Errorf("ParseEuroAmount(%q) = %s, want %s", tt.input, got, expected)
			}
		})
	}
}

func TestParseDateWithFormats(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"01.08.2025", time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), false},
		{"2025-08-01", time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), false},
		{"01.08.25", time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), false},
		{"not a date", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDateWithFormats(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDateWithFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripIBAN(t *testing.T) {
	if got := StripIBAN("DE02 1001 0010 9307 1186 03"); got != "DE02100100109307118603" {
		t.Errorf("unexpected stripped IBAN: %s", got)
	}
	if got := StripIBAN("DE02100100109307118603"); got != "DE02100100109307118603" {
		t.Errorf("already-stripped IBAN changed: %s", got)
	}
}

func TestDefaultReference(t *testing.T) {
	if got := DefaultReference("Miete", "Haus Müllerstr. 10"); got != "Miete Haus Müllerstr. 10" {
		t.Errorf("unexpected reference: %s", got)
	}
	if got := DefaultReference("", ""); got != "Miete" {
		t.Errorf("expected bare rent label fallback, got %s", got)
	}
	if got := DefaultReference("Rent", ""); got != "Rent" {
		t.Errorf("expected configured label, got %s", got)
	}
}
