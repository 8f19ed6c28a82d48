// Package config builds the per-command configurations from CLI input.
package config

import (
	"fmt"
	"os"

	"rent-reconciliation-service/internal/extract"
	"rent-reconciliation-service/internal/matcher"
	"rent-reconciliation-service/internal/parsers"
	"rent-reconciliation-service/internal/reporter"
	"rent-reconciliation-service/internal/repository"

	"github.com/shopspring/decimal"
)

// CreateParserConfig creates a transaction parser configuration. Empty
// column names leave the built-in header aliases in charge.
func CreateParserConfig(delimiter string, dateCol, amountCol, nameCol, ibanCol, refCol string) (*parsers.Config, error) {
	config := parsers.DefaultConfig()

	if delimiter != "" {
		runes := []rune(delimiter)
		if len(runes) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
		}
		config.Delimiter = runes[0]
	}

	config.Mapping.Date = dateCol
	config.Mapping.Amount = amountCol
	config.Mapping.Name = nameCol
	config.Mapping.IBAN = ibanCol
	config.Mapping.Reference = refCol

	return config, nil
}

// CreateMatcherConfig derives the matching configuration from the stored
// settings, with CLI overrides applied when set. A negative tolerance or
// grace value means "no override".
func CreateMatcherConfig(settings repository.Settings, tolerance float64, graceDays int) (matcher.Config, error) {
	config := matcher.ConfigFromSettings(settings)

	if tolerance >= 0 {
		config.Tolerance = decimal.NewFromFloat(tolerance)
	}
	if graceDays >= 0 {
		config.GraceDays = graceDays
	}

	if err := config.Validate(); err != nil {
		return matcher.Config{}, fmt.Errorf("invalid matcher config: %w", err)
	}
	return config, nil
}

// CreateReportConfig creates a report configuration for the output format.
func CreateReportConfig(format string, openOnly bool) (*reporter.Config, error) {
	config := reporter.DefaultConfig()
	config.Format = reporter.OutputFormat(format)
	config.OpenOnly = openOnly

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFieldMapping loads the extraction field mapping from a JSON file, or
// returns the default mapping when path is empty. The mapping is validated
// before any document is processed.
func LoadFieldMapping(path string) (*extract.FieldMapping, error) {
	if path == "" {
		return extract.DefaultFieldMapping(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field mapping %s: %w", path, err)
	}
	mapping, err := extract.LoadFieldMapping(data)
	if err != nil {
		return nil, fmt.Errorf("invalid field mapping %s: %w", path, err)
	}
	return mapping, nil
}
