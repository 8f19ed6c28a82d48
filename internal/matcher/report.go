package matcher

import (
	"time"

	"rent-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Report aggregates one reconciliation run. It is a derived view: rerun
// the matcher and you get a fresh one.
type Report struct {
	Year    int                   `json:"year"`
	Month   time.Month            `json:"month"`
	Results []*models.MatchResult `json:"results"`

	OKCount      int `json:"okCount"`
	MissingCount int `json:"missingCount"`
	PartialCount int `json:"partialCount"`
	OverCount    int `json:"overCount"`

	TotalExpected decimal.Decimal `json:"totalExpected"`
	TotalReceived decimal.Decimal `json:"totalReceived"`
}

// BuildReport computes the status buckets and amount totals for a run.
func BuildReport(year int, month time.Month, results []*models.MatchResult) *Report {
	report := &Report{
		Year:          year,
		Month:         month,
		Results:       results,
		TotalExpected: decimal.Zero,
		TotalReceived: decimal.Zero,
	}

	for _, r := range results {
		report.TotalExpected = report.TotalExpected.Add(r.Obligation.Expected)
		if r.Matched() {
			report.TotalReceived = report.TotalReceived.Add(r.Transaction.AbsoluteAmount())
		}

		switch r.Status {
		case models.StatusOK:
			report.OKCount++
		case models.StatusMissing:
			report.MissingCount++
		case models.StatusPartial:
			report.PartialCount++
		case models.StatusOver:
			report.OverCount++
		}
	}
	return report
}

// Open returns the results without a qualifying payment, the month's open
// rents.
func (r *Report) Open() []*models.MatchResult {
	var open []*models.MatchResult
	for _, result := range r.Results {
		if result.Status == models.StatusMissing {
			open = append(open, result)
		}
	}
	return open
}

// Outstanding is the gap between expected and received amounts, never
// negative.
func (r *Report) Outstanding() decimal.Decimal {
	gap := r.TotalExpected.Sub(r.TotalReceived)
	if gap.IsNegative() {
		return decimal.Zero
	}
	return gap
}
