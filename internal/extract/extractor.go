package extract

import (
	"regexp"
	"strings"
	"unicode"

	"rent-reconciliation-service/internal/models"
	"rent-reconciliation-service/internal/normalize"
	"rent-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	numberSpan = 8
	dateSpan   = 8
	textSpan   = 2
)

var (
	namePrefixPattern  = regexp.MustCompile(`(?i)^name:\s*(.+)$`)
	anchorTrimPattern  = regexp.MustCompile(`^[\s:\-–]+|[\s:\-–]+$`)
	roomKeywordPattern = regexp.MustCompile(`(?i)(?:zimmer|zi\.?|wohnung|whg\.?|raum|room)\s*(?:nr\.?\s*)?(\d{1,3})\b`)
	bareRoomPattern    = regexp.MustCompile(`\b(\d{1,3})\b`)
	houseNumberPattern = regexp.MustCompile(`\d+\s*[a-zA-Z]?\b`)
	postalCodePattern  = regexp.MustCompile(`\b\d{5}\b`)
	ibanPattern        = regexp.MustCompile(`[A-Z]{2}\d{2}[A-Z0-9 ]{10,32}`)
	currencyPattern    = regexp.MustCompile(`[€$§]|\bEUR\b`)
	digitPattern       = regexp.MustCompile(`\d`)
)

// streetKeywords mark a line as a street address when combined with a
// number-like token. Both spellings of "straße" are listed because OCR
// output frequently mangles the sharp s.
var streetKeywords = []string{
	"straße", "strasse", "str.", "weg", "platz", "allee", "gasse", "ring", "damm", "ufer",
}

// landlordMarker excludes landlord lines from the tenant-name search.
const landlordMarker = "vermieter"

// Extractor derives a structured field set from raw contract text using a
// validated field mapping. Extraction is total: it never fails, and every
// unresolvable field degrades silently to its zero value.
type Extractor struct {
	logger logger.Logger
}

// NewExtractor creates an extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		logger: logger.GetGlobalLogger().WithComponent("field_extractor"),
	}
}

// Extract produces the field set for one document. The mapping must have
// been validated; an unvalidated mapping simply finds no anchors and yields
// defaults. Identical input text yields identical output on every call.
func (e *Extractor) Extract(text string, mapping *FieldMapping) models.ExtractedFields {
	fields := models.ExtractedFields{
		Expected: decimal.Zero,
		Deposit:  decimal.Zero,
	}
	if mapping == nil {
		return fields
	}

	lines := splitLines(text)
	if len(lines) == 0 {
		return fields
	}

	fields.TenantName = e.extractTenantName(lines, &mapping.TenantName)

	if idx := mapping.Rent.locate(lines); idx != NotFound {
		if n, ok := NumberNear(lines, idx, spanOrDefault(mapping.Rent.Span, numberSpan)); ok {
			fields.Expected = n
		}
	}

	if idx := mapping.Deposit.locate(lines); idx != NotFound {
		if n, ok := NumberNear(lines, idx, spanOrDefault(mapping.Deposit.Span, numberSpan)); ok {
			fields.Deposit = n
		}
	}

	if idx := mapping.StartDate.locate(lines); idx != NotFound {
		if d, ok := DateNear(lines, idx, spanOrDefault(mapping.StartDate.Span, dateSpan)); ok {
			fields.StartDate = &d
		}
	}

	fields.UnitLabel = e.extractAnchoredText(lines, &mapping.RoomLabel)
	fields.RoomNumber = deriveRoomNumber(fields.UnitLabel)
	fields.IBAN = models.StripIBAN(e.extractIBAN(lines, &mapping.IBAN))
	fields.Address = extractAddress(lines)

	e.logger.WithFields(logger.Fields{
		"tenant":   fields.TenantName != "",
		"rent":     !fields.Expected.IsZero(),
		"deposit":  !fields.Deposit.IsZero(),
		"start":    fields.StartDate != nil,
		"unit":     fields.UnitLabel != "",
		"address":  fields.Address != "",
		"iban":     fields.IBAN != "",
	}).Debug("Extracted contract fields")

	return fields
}

// extractTenantName prefers an explicit "Name:" line, then a tenant-anchor
// line whose remainder (or following line) does not mention the landlord
// role, then the first line that looks like a bare personal name.
func (e *Extractor) extractTenantName(lines []string, rule *FieldRule) string {
	for _, line := range lines {
		if m := namePrefixPattern.FindStringSubmatch(line); m != nil {
			if name := trimAnchorRemainder(m[1]); name != "" && !mentionsLandlord(name) {
				return name
			}
		}
	}

	if len(rule.compiled) > 0 {
		for i, line := range lines {
			anchor := rule.anchorAt(line)
			if anchor == nil || mentionsLandlord(line) {
				continue
			}

			// A plausible name has at least first and last name; a
			// leftover label word like "Name" falls through to the
			// following line.
			remainder := trimAnchorRemainder(anchor.ReplaceAllString(line, ""))
			if len(strings.Fields(remainder)) >= 2 && !mentionsLandlord(remainder) {
				return remainder
			}
			if next, ok := TextAfter(lines, i, 1); ok && !mentionsLandlord(next) {
				return next
			}
		}
	}

	// Last resort: scan for a line shaped like a bare personal name.
	for _, line := range lines {
		if looksLikePersonalName(line) {
			return line
		}
	}

	return ""
}

// extractAnchoredText returns the text near the rule's anchor: the anchor
// line itself with the anchor text stripped when a remainder exists, else
// the first non-empty line after it.
func (e *Extractor) extractAnchoredText(lines []string, rule *FieldRule) string {
	idx := rule.locate(lines)
	if idx == NotFound {
		return ""
	}

	if anchor := rule.anchorAt(lines[idx]); anchor != nil {
		if remainder := trimAnchorRemainder(anchor.ReplaceAllString(lines[idx], "")); remainder != "" {
			return remainder
		}
	}

	if text, ok := TextAfter(lines, idx, spanOrDefault(rule.Span, textSpan)); ok {
		return text
	}
	return ""
}

// extractIBAN prefers an IBAN-shaped token on the anchor line or the lines
// after it, falling back to the anchor-line remainder.
func (e *Extractor) extractIBAN(lines []string, rule *FieldRule) string {
	idx := rule.locate(lines)
	if idx == NotFound {
		return ""
	}

	end := idx + spanOrDefault(rule.Span, textSpan)
	for i := idx; i <= end && i < len(lines); i++ {
		if m := ibanPattern.FindString(lines[i]); m != "" {
			return strings.TrimSpace(m)
		}
	}

	if anchor := rule.anchorAt(lines[idx]); anchor != nil {
		return trimAnchorRemainder(anchor.ReplaceAllString(lines[idx], ""))
	}
	return ""
}

// deriveRoomNumber pulls a 1-3 digit room number out of the unit label
// text: a room/unit keyword followed by a number wins, a bare number is
// the fallback.
func deriveRoomNumber(label string) string {
	if label == "" {
		return ""
	}
	if m := roomKeywordPattern.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	if m := bareRoomPattern.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	return ""
}

// extractAddress finds the first line holding both a street-type keyword
// and a number-like token. When the following line carries a 5-digit postal
// code it is appended, comma separated.
func extractAddress(lines []string) string {
	for i, line := range lines {
		lower := strings.ToLower(line)

		hasKeyword := false
		for _, kw := range streetKeywords {
			if strings.Contains(lower, kw) {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword || !houseNumberPattern.MatchString(line) {
			continue
		}

		address := strings.TrimSpace(line)
		if i+1 < len(lines) && postalCodePattern.MatchString(lines[i+1]) {
			address += ", " + strings.TrimSpace(lines[i+1])
		}
		return address
	}
	return ""
}

// looksLikePersonalName reports whether a line plausibly holds a bare
// personal name: no digits, currency or section markers, and at least two
// words whose first two each start with an uppercase letter followed by
// letters only.
func looksLikePersonalName(line string) bool {
	if digitPattern.MatchString(line) || currencyPattern.MatchString(line) {
		return false
	}
	if mentionsLandlord(line) {
		return false
	}

	words := strings.Fields(line)
	if len(words) < 2 {
		return false
	}
	return isNameToken(words[0]) && isNameToken(words[1])
}

func isNameToken(word string) bool {
	runes := []rune(strings.Trim(word, ",."))
	if len(runes) < 2 {
		return false
	}
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}

func mentionsLandlord(text string) bool {
	return strings.Contains(normalize.Normalize(text), landlordMarker)
}

func trimAnchorRemainder(s string) string {
	for {
		trimmed := anchorTrimPattern.ReplaceAllString(s, "")
		if trimmed == s {
			return strings.TrimSpace(trimmed)
		}
		s = trimmed
	}
}

func spanOrDefault(span, fallback int) int {
	if span > 0 {
		return span
	}
	return fallback
}

// splitLines splits raw document text into trimmed, non-empty lines.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
