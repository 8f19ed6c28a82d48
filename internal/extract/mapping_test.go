package extract

import (
	"strings"
	"testing"

	apperrors "rent-reconciliation-service/pkg/errors"
)

func TestDefaultFieldMappingValidates(t *testing.T) {
	mapping := DefaultFieldMapping()
	if err := mapping.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	if mapping.TenantName.locate([]string{"Mieter: Max"}) == NotFound {
		t.Error("tenant anchor did not match after validation")
	}
	if mapping.Rent.locate([]string{"Mieter: Max"}) != NotFound {
		t.Error("rent anchor matched the tenant label")
	}
}

func TestDefaultFieldMappingCompiledOnConstruction(t *testing.T) {
	// Callers get the default mapping ready to use; without compiled
	// anchors every rule would silently find nothing.
	mapping := DefaultFieldMapping()

	if mapping.Rent.locate([]string{"Kaltmiete monatlich: 950,00 EUR"}) == NotFound {
		t.Error("rent anchor not compiled on a freshly constructed default mapping")
	}
	if mapping.StartDate.locate([]string{"Mietbeginn: 01.08.2025"}) == NotFound {
		t.Error("start date anchor not compiled on a freshly constructed default mapping")
	}
	if mapping.IBAN.locate([]string{"IBAN: DE89370400440532013000"}) == NotFound {
		t.Error("IBAN anchor not compiled on a freshly constructed default mapping")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	mapping := DefaultFieldMapping()
	mapping.Rent.Mode = "guessHarder"

	err := mapping.Validate()
	if err == nil {
		t.Fatal("Validate() accepted an unknown mode")
	}
	appErr, ok := apperrors.AsError(err)
	if !ok || appErr.Code != apperrors.CodeInvalidMapping {
		t.Errorf("error code = %v, want CodeInvalidMapping", err)
	}
}

func TestValidateRejectsBadPattern(t *testing.T) {
	mapping := DefaultFieldMapping()
	mapping.Deposit.Anchors = append(mapping.Deposit.Anchors, `Kaution(`)

	if err := mapping.Validate(); err == nil {
		t.Fatal("Validate() accepted an invalid regular expression")
	}
}

func TestValidateRejectsNegativeSpan(t *testing.T) {
	mapping := DefaultFieldMapping()
	mapping.StartDate.Span = -1

	if err := mapping.Validate(); err == nil {
		t.Fatal("Validate() accepted a negative span")
	}
}

func TestLoadFieldMapping(t *testing.T) {
	data := []byte(`{
		"tenantName": {"mode": "nameGuess", "anchors": ["Tenant"]},
		"rent": {"mode": "numberNear", "anchors": ["Rent"], "span": 4},
		"deposit": {"mode": "numberNear", "anchors": ["Deposit"]},
		"startDate": {"mode": "dateNear", "anchors": ["Lease start"]},
		"roomLabel": {"mode": "textNear", "anchors": ["Room"]},
		"iban": {"mode": "textNear", "anchors": ["IBAN"]},
		"address": {"mode": "addressSmart"}
	}`)

	mapping, err := LoadFieldMapping(data)
	if err != nil {
		t.Fatalf("LoadFieldMapping() = %v", err)
	}
	if mapping.Rent.Span != 4 {
		t.Errorf("Rent.Span = %d, want 4", mapping.Rent.Span)
	}
	if mapping.Rent.locate([]string{"other", "Rent 500"}) != 1 {
		t.Error("loaded rent anchor did not match")
	}
}

func TestLoadFieldMappingInvalidJSON(t *testing.T) {
	_, err := LoadFieldMapping([]byte(`{`))
	if err == nil {
		t.Fatal("LoadFieldMapping() accepted malformed JSON")
	}
	if !strings.Contains(err.Error(), "mapping") && !strings.Contains(err.Error(), "field_mapping") {
		t.Errorf("unexpected error message: %v", err)
	}
}
