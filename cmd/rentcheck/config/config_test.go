package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"rent-reconciliation-service/internal/extract"
	"rent-reconciliation-service/internal/repository"
)

func TestCreateParserConfig(t *testing.T) {
	config, err := CreateParserConfig(";", "Buchungstag", "Betrag", "", "", "")
	if err != nil {
		t.Fatalf("failed to create parser config: %v", err)
	}
	if config.Delimiter != ';' {
		t.Errorf("expected delimiter ';', got '%c'", config.Delimiter)
	}
	if config.Mapping.Date != "Buchungstag" {
		t.Errorf("expected date column 'Buchungstag', got '%s'", config.Mapping.Date)
	}
	if config.Mapping.Name != "" {
		t.Errorf("expected empty name column, got '%s'", config.Mapping.Name)
	}
}

func TestCreateParserConfigDefaults(t *testing.T) {
	config, err := CreateParserConfig("", "", "", "", "", "")
	if err != nil {
		t.Fatalf("failed to create parser config: %v", err)
	}
	if config.Delimiter != ',' {
		t.Errorf("expected default delimiter ',', got '%c'", config.Delimiter)
	}
}

func TestCreateParserConfigBadDelimiter(t *testing.T) {
	if _, err := CreateParserConfig(";;", "", "", "", "", ""); err == nil {
		t.Error("expected error for multi-character delimiter")
	}
}

func TestCreateMatcherConfig(t *testing.T) {
	settings := repository.DefaultSettings()

	config, err := CreateMatcherConfig(settings, -1, -1)
	if err != nil {
		t.Fatalf("failed to create matcher config: %v", err)
	}
	if !config.Tolerance.Equal(settings.AmountTolerance) {
		t.Errorf("expected stored tolerance %s, got %s", settings.AmountTolerance, config.Tolerance)
	}
	if config.GraceDays != settings.GraceDays {
		t.Errorf("expected stored grace days %d, got %d", settings.GraceDays, config.GraceDays)
	}

	config, err = CreateMatcherConfig(settings, 5.5, 0)
	if err != nil {
		t.Fatalf("failed to create matcher config with overrides: %v", err)
	}
	if !config.Tolerance.Equal(decimal.NewFromFloat(5.5)) {
		t.Errorf("expected overridden tolerance 5.5, got %s", config.Tolerance)
	}
	if config.GraceDays != 0 {
		t.Errorf("expected overridden grace days 0, got %d", config.GraceDays)
	}
}

func TestCreateReportConfig(t *testing.T) {
	config, err := CreateReportConfig("json", true)
	if err != nil {
		t.Fatalf("failed to create report config: %v", err)
	}
	if string(config.Format) != "json" {
		t.Errorf("expected json format, got %s", config.Format)
	}
	if !config.OpenOnly {
		t.Error("expected OpenOnly to be set")
	}

	if _, err := CreateReportConfig("xml", false); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFieldMappingDefault(t *testing.T) {
	mapping, err := LoadFieldMapping("")
	if err != nil {
		t.Fatalf("failed to load default mapping: %v", err)
	}
	if mapping == nil {
		t.Fatal("expected default mapping, got nil")
	}

	// The default mapping must work out of the box: an import run without
	// --mapping has no other place where the anchors get compiled.
	contract := "Mietvertrag\n" +
		"Kaltmiete monatlich: 950,00 EUR\n" +
		"Mietbeginn: 01.08.2025\n"
	fields := extract.NewExtractor().Extract(contract, mapping)
	if !fields.Expected.Equal(decimal.NewFromInt(950)) {
		t.Errorf("expected rent 950 from default mapping, got %s", fields.Expected)
	}
	if fields.StartDate == nil {
		t.Error("expected start date from default mapping, got none")
	}
}

func TestLoadFieldMappingFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")
	data := `{"tenantName": {"mode": "nameGuess", "anchors": ["Mieterin"]}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write mapping file: %v", err)
	}

	mapping, err := LoadFieldMapping(path)
	if err != nil {
		t.Fatalf("failed to load mapping file: %v", err)
	}
	if mapping == nil {
		t.Fatal("expected mapping, got nil")
	}
}

func TestLoadFieldMappingErrors(t *testing.T) {
	if _, err := LoadFieldMapping("/non/existent/mapping.json"); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write mapping file: %v", err)
	}
	if _, err := LoadFieldMapping(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
