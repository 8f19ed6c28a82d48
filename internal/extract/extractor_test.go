package extract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const sampleContract = `Mietvertrag

Vermieter: Hausverwaltung Schmidt GmbH
Mieter: Max Mustermann

Musterstraße 12
12345 Musterstadt

Zimmernummer: Zimmer 5

Kaltmiete monatlich: 950,00 €
Kaution: 1.900,00 €

Mietbeginn: 01.08.2025

IBAN: DE89 3704 0044 0532 0130 00`

func validMapping(t *testing.T) *FieldMapping {
	t.Helper()
	mapping := DefaultFieldMapping()
	if err := mapping.Validate(); err != nil {
		t.Fatalf("Validate() on default mapping: %v", err)
	}
	return mapping
}

func TestExtractFullContract(t *testing.T) {
	fields := NewExtractor().Extract(sampleContract, validMapping(t))

	if fields.TenantName != "Max Mustermann" {
		t.Errorf("TenantName = %q, want %q", fields.TenantName, "Max Mustermann")
	}
	if !fields.Expected.Equal(decimal.NewFromInt(950)) {
		t.Errorf("Expected = %s, want 950", fields.Expected)
	}
	if !fields.Deposit.Equal(decimal.NewFromInt(1900)) {
		t.Errorf("Deposit = %s, want 1900", fields.Deposit)
	}
	wantStart := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	if fields.StartDate == nil || !fields.StartDate.Equal(wantStart) {
		t.Errorf("StartDate = %v, want %v", fields.StartDate, wantStart)
	}
	if fields.RoomNumber != "5" {
		t.Errorf("RoomNumber = %q, want %q", fields.RoomNumber, "5")
	}
	if fields.Address != "Musterstraße 12, 12345 Musterstadt" {
		t.Errorf("Address = %q", fields.Address)
	}
	if fields.IBAN != "DE89370400440532013000" {
		t.Errorf("IBAN = %q", fields.IBAN)
	}
}

func TestExtractDefaultsOnAnchorlessText(t *testing.T) {
	fields := NewExtractor().Extract("lorem ipsum dolor\nsit amet", validMapping(t))

	if fields.TenantName != "" {
		t.Errorf("TenantName = %q, want empty", fields.TenantName)
	}
	if !fields.Expected.IsZero() || !fields.Deposit.IsZero() {
		t.Errorf("amounts = %s/%s, want zero", fields.Expected, fields.Deposit)
	}
	if fields.StartDate != nil {
		t.Errorf("StartDate = %v, want nil", fields.StartDate)
	}
	if fields.UnitLabel != "" || fields.RoomNumber != "" || fields.Address != "" || fields.IBAN != "" {
		t.Errorf("text fields not empty: %+v", fields)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	extractor := NewExtractor()
	mapping := validMapping(t)

	first := extractor.Extract(sampleContract, mapping)
	second := extractor.Extract(sampleContract, mapping)

	if first.TenantName != second.TenantName ||
		!first.Expected.Equal(second.Expected) ||
		!first.Deposit.Equal(second.Deposit) ||
		first.UnitLabel != second.UnitLabel ||
		first.RoomNumber != second.RoomNumber ||
		first.Address != second.Address ||
		first.IBAN != second.IBAN {
		t.Errorf("repeated extraction differs:\n%+v\n%+v", first, second)
	}
}

func TestExtractTenantNamePreference(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "name prefix wins over anchor",
			text: "Mieter: Falsch Erster\nName: Erika Musterfrau",
			want: "Erika Musterfrau",
		},
		{
			name: "anchor remainder",
			text: "Mieterin: Erika Musterfrau",
			want: "Erika Musterfrau",
		},
		{
			name: "anchor with name on next line",
			text: "Name Mieter\nErika Musterfrau",
			want: "Erika Musterfrau",
		},
		{
			name: "landlord line skipped",
			text: "Vermieter: Hausverwaltung Nord\nMieter: Max Mustermann",
			want: "Max Mustermann",
		},
		{
			name: "capitalized fallback",
			text: "Vertrag 2025\nErika Musterfrau\nMiete 800,00",
			want: "Erika Musterfrau",
		},
		{
			name: "no candidate",
			text: "miete 800\nirgendwas anderes",
			want: "",
		},
	}

	extractor := NewExtractor()
	mapping := validMapping(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Extract(tt.text, mapping).TenantName
			if got != tt.want {
				t.Errorf("TenantName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveRoomNumber(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Zimmer 5", "5"},
		{"room 5", "5"},
		{"Whg. 12", "12"},
		{"Wohnung Nr. 3", "3"},
		{"5", "5"},
		{"Erdgeschoss links", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := deriveRoomNumber(tt.label); got != tt.want {
			t.Errorf("deriveRoomNumber(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestExtractAddressWithoutPostalLine(t *testing.T) {
	fields := NewExtractor().Extract("Musterweg 7a\nMieter: Max Mustermann", validMapping(t))
	if fields.Address != "Musterweg 7a" {
		t.Errorf("Address = %q, want %q", fields.Address, "Musterweg 7a")
	}
}

func TestExtractNilMapping(t *testing.T) {
	fields := NewExtractor().Extract(sampleContract, nil)
	if fields.TenantName != "" || !fields.Expected.IsZero() {
		t.Errorf("nil mapping should yield defaults, got %+v", fields)
	}
}
