package extract

import (
	"regexp"
	"strings"
	"time"

	"rent-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// NotFound is the sentinel line index returned when no anchor matches.
const NotFound = -1

var (
	euroNumberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	germanDatePattern = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{2,4})`)
)

// Locate scans the lines for the given anchor patterns. Anchors are tried in
// declared priority order, not by earliest line match: for each anchor the
// lines are scanned from the top, and the first anchor that matches any line
// wins, even if a later anchor would have matched an earlier line. Returns
// NotFound when no anchor matches any line.
func Locate(lines []string, anchors []*regexp.Regexp) int {
	for _, anchor := range anchors {
		if anchor == nil {
			continue
		}
		for i, line := range lines {
			if anchor.MatchString(line) {
				return i
			}
		}
	}
	return NotFound
}

// NumberNear scans lines[idx..idx+span] inclusive and parses the first line
// containing a Euro-style number ('.' thousands separator, ',' decimal
// separator). Returns the first successfully parsed value, or false when the
// window holds no parsable number.
func NumberNear(lines []string, idx, span int) (decimal.Decimal, bool) {
	if idx < 0 {
		return decimal.Zero, false
	}
	end := idx + span
	for i := idx; i <= end && i < len(lines); i++ {
		if n, ok := parseEuroNumber(lines[i]); ok {
			return n, true
		}
	}
	return decimal.Zero, false
}

// DateNear scans the same window as NumberNear and parses the first
// dd.mm.yyyy or dd.mm.yy shaped date. Two-digit years are normalized to
// 20xx.
func DateNear(lines []string, idx, span int) (time.Time, bool) {
	if idx < 0 {
		return time.Time{}, false
	}
	end := idx + span
	for i := idx; i <= end && i < len(lines); i++ {
		if d, ok := parseGermanDate(lines[i]); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// TextAfter returns the first non-empty line strictly after idx within the
// span window, or false when none exists.
func TextAfter(lines []string, idx, span int) (string, bool) {
	if idx < 0 {
		return "", false
	}
	end := idx + span
	for i := idx + 1; i <= end && i < len(lines); i++ {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

// parseEuroNumber extracts the first Euro-formatted number from a line:
// dots are thousands separators, the comma is the decimal separator.
func parseEuroNumber(line string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(line, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	match := euroNumberPattern.FindString(s)
	if match == "" {
		return decimal.Zero, false
	}
	n, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, false
	}
	return n, true
}

// parseGermanDate extracts the first dd.mm.yyyy or dd.mm.yy date from a
// line. Swapped or impossible components fail the parse rather than
// producing a shifted date.
func parseGermanDate(line string) (time.Time, bool) {
	m := germanDatePattern.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}

	day, month, year := m[1], m[2], m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	if len(day) == 1 {
		day = "0" + day
	}
	if len(month) == 1 {
		month = "0" + month
	}

	d, err := models.ParseDateWithFormats(day + "." + month + "." + year)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
