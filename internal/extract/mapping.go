// Package extract implements document field extraction for rent contracts:
// anchor location over line-split text, proximity scans for numbers, dates
// and text, and the field mapping configuration that drives them.
//
// The field mapping is the one fail-fast piece of the import path: it is
// validated (all anchor patterns compiled, all modes recognized) before any
// file is processed. Extraction itself is total and degrades silently to
// default values when anchors or proximity values are missing.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"

	apperrors "rent-reconciliation-service/pkg/errors"
)

// ExtractionMode identifies how a field value is derived from its anchor.
// The set is closed; Validate rejects anything else.
type ExtractionMode string

const (
	// ModeNameGuess locates a tenant name using anchor lines and a
	// capitalized-name fallback scan.
	ModeNameGuess ExtractionMode = "nameGuess"
	// ModeNumberNear parses the first Euro-style number near the anchor.
	ModeNumberNear ExtractionMode = "numberNear"
	// ModeDateNear parses the first German-format date near the anchor.
	ModeDateNear ExtractionMode = "dateNear"
	// ModeTextNear takes the first non-empty line after the anchor,
	// falling back to the anchor line itself.
	ModeTextNear ExtractionMode = "textNear"
	// ModeAddressSmart scans for a street-keyword line with a house
	// number, appending a following postal-code line.
	ModeAddressSmart ExtractionMode = "addressSmart"
)

// IsValid checks whether the mode is one of the recognized extraction modes.
func (m ExtractionMode) IsValid() bool {
	switch m {
	case ModeNameGuess, ModeNumberNear, ModeDateNear, ModeTextNear, ModeAddressSmart:
		return true
	default:
		return false
	}
}

// FieldRule configures the extraction of one field: its mode, the anchor
// patterns tried in priority order, and the proximity span of the scan
// window.
type FieldRule struct {
	Mode    ExtractionMode `json:"mode"`
	Anchors []string       `json:"anchors"`
	Span    int            `json:"span,omitempty"`

	compiled []*regexp.Regexp
}

// locate returns the line index of the rule's first matching anchor, or
// NotFound. An uncompiled rule (mapping never validated) finds nothing.
func (r *FieldRule) locate(lines []string) int {
	if len(r.compiled) == 0 {
		return NotFound
	}
	return Locate(lines, r.compiled)
}

// anchorAt returns the compiled anchor that matches the given line, so the
// caller can strip the anchor text from it.
func (r *FieldRule) anchorAt(line string) *regexp.Regexp {
	for _, anchor := range r.compiled {
		if anchor.MatchString(line) {
			return anchor
		}
	}
	return nil
}

// FieldMapping is the complete per-field extraction configuration for one
// contract document layout.
type FieldMapping struct {
	TenantName FieldRule `json:"tenantName"`
	Rent       FieldRule `json:"rent"`
	Deposit    FieldRule `json:"deposit"`
	StartDate  FieldRule `json:"startDate"`
	RoomLabel  FieldRule `json:"roomLabel"`
	IBAN       FieldRule `json:"iban"`
	Address    FieldRule `json:"address"`
}

// DefaultFieldMapping returns the mapping for standard German rent
// contracts, with all anchor patterns compiled and ready for extraction.
func DefaultFieldMapping() *FieldMapping {
	mapping := &FieldMapping{
		TenantName: FieldRule{
			Mode:    ModeNameGuess,
			Anchors: []string{`Mieter(?:in)?\b`, `Name Mieter`},
		},
		Rent: FieldRule{
			Mode:    ModeNumberNear,
			Anchors: []string{`(?:Kalt)?Miete(?: monatlich)?\b`, `Miete gesamt`},
			Span:    8,
		},
		Deposit: FieldRule{
			Mode:    ModeNumberNear,
			Anchors: []string{`Kaution`, `Sicherheitsleistung`},
			Span:    8,
		},
		StartDate: FieldRule{
			Mode:    ModeDateNear,
			Anchors: []string{`Mietbeginn`, `Beginn des Mietverhältnisses`},
			Span:    8,
		},
		RoomLabel: FieldRule{
			Mode:    ModeTextNear,
			Anchors: []string{`Zimmernummer`, `Zimmer\b`, `Wohnung\b`, `Whg\b`},
			Span:    2,
		},
		IBAN: FieldRule{
			Mode:    ModeTextNear,
			Anchors: []string{`IBAN`},
			Span:    2,
		},
		Address: FieldRule{
			Mode: ModeAddressSmart,
		},
	}
	// The built-in anchors are package constants; failing to compile them
	// is a programming error, not an input error.
	if err := mapping.Validate(); err != nil {
		panic(err)
	}
	return mapping
}

// LoadFieldMapping parses a mapping from JSON and validates it. Fields
// absent from the JSON keep their default rules, so a mapping file only
// needs to override what differs from the standard contract layout.
func LoadFieldMapping(data []byte) (*FieldMapping, error) {
	mapping := *DefaultFieldMapping()
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, apperrors.ConfigurationError(
			apperrors.CodeInvalidMapping,
			"field_mapping",
			string(data),
			err,
		).WithSuggestion("the mapping file must be valid JSON")
	}

	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// Validate compiles all anchor patterns and checks the extraction modes.
// Any malformed pattern or unrecognized mode fails the whole mapping, so
// the import batch is aborted before the first file is touched.
func (m *FieldMapping) Validate() error {
	rules := map[string]*FieldRule{
		"tenantName": &m.TenantName,
		"rent":       &m.Rent,
		"deposit":    &m.Deposit,
		"startDate":  &m.StartDate,
		"roomLabel":  &m.RoomLabel,
		"iban":       &m.IBAN,
		"address":    &m.Address,
	}

	for field, rule := range rules {
		if !rule.Mode.IsValid() {
			return apperrors.ConfigurationError(
				apperrors.CodeInvalidMapping,
				field,
				string(rule.Mode),
				fmt.Errorf("unrecognized extraction mode"),
			)
		}

		rule.compiled = rule.compiled[:0]
		for _, pattern := range rule.Anchors {
			compiled, err := regexp.Compile(`(?i)` + pattern)
			if err != nil {
				return apperrors.ConfigurationError(
					apperrors.CodeInvalidMapping,
					field,
					pattern,
					err,
				)
			}
			rule.compiled = append(rule.compiled, compiled)
		}

		if rule.Span < 0 {
			return apperrors.ConfigurationError(
				apperrors.CodeInvalidMapping,
				field,
				rule.Span,
				fmt.Errorf("span cannot be negative"),
			)
		}
	}

	return nil
}
