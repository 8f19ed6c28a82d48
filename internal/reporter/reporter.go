// Package reporter renders reconciliation reports for humans (console),
// machines (JSON) and spreadsheets (CSV export of the per-tenant rows and
// the month's open rents).
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"rent-reconciliation-service/internal/matcher"
	"rent-reconciliation-service/internal/models"
)

// OutputFormat selects how a report is rendered.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Config holds report rendering options.
type Config struct {
	Format       OutputFormat `json:"format"`
	CSVDelimiter rune         `json:"csv_delimiter"`
	// OpenOnly restricts the output to obligations without a payment.
	OpenOnly bool `json:"open_only"`
}

// DefaultConfig returns a console report configuration.
func DefaultConfig() *Config {
	return &Config{
		Format:       FormatConsole,
		CSVDelimiter: ',',
	}
}

// Validate validates the report configuration.
func (c *Config) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// Generator renders reconciliation reports.
type Generator struct {
	config *Config
}

// NewGenerator creates a report generator.
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &Generator{config: config}, nil
}

// Generate renders the report to the writer. The entries provide the unit
// and property labels for each obligation in the report.
func (g *Generator) Generate(report *matcher.Report, entries []matcher.Entry, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	labels := labelIndex(entries)
	results := report.Results
	if g.config.OpenOnly {
		results = report.Open()
	}

	switch g.config.Format {
	case FormatConsole:
		return g.renderConsole(report, results, labels, w)
	case FormatJSON:
		return g.renderJSON(report, results, w)
	case FormatCSV:
		return g.renderCSV(results, labels, w)
	default:
		return fmt.Errorf("unsupported output format: %s", g.config.Format)
	}
}

type labelPair struct {
	unit     string
	property string
}

func labelIndex(entries []matcher.Entry) map[string]labelPair {
	labels := make(map[string]labelPair, len(entries))
	for _, e := range entries {
		labels[e.Obligation.ID] = labelPair{unit: e.UnitLabel, property: e.PropertyName}
	}
	return labels
}

func (g *Generator) renderConsole(report *matcher.Report, results []*models.MatchResult, labels map[string]labelPair, w io.Writer) error {
	fmt.Fprintf(w, "RENT RECONCILIATION %04d-%02d\n\n", report.Year, int(report.Month))

	fmt.Fprintf(w, "ok: %d  partial: %d  over: %d  missing: %d\n",
		report.OKCount, report.PartialCount, report.OverCount, report.MissingCount)
	fmt.Fprintf(w, "expected: %s €  received: %s €  outstanding: %s €\n\n",
		report.TotalExpected.StringFixed(2),
		report.TotalReceived.StringFixed(2),
		report.Outstanding().StringFixed(2))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROPERTY\tUNIT\tTENANT\tEXPECTED\tDUE\tSTATUS\tINFO")
	for _, r := range results {
		label := labels[r.Obligation.ID]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			orDash(label.property),
			orDash(label.unit),
			r.Obligation.TenantName,
			r.Obligation.Expected.StringFixed(2),
			r.DueDate.Format("02.01.2006"),
			r.Status,
			r.Info)
	}
	return tw.Flush()
}

func (g *Generator) renderJSON(report *matcher.Report, results []*models.MatchResult, w io.Writer) error {
	out := *report
	out.Results = results

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(&out)
}

func (g *Generator) renderCSV(results []*models.MatchResult, labels map[string]labelPair, w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = g.config.CSVDelimiter
	defer cw.Flush()

	header := []string{
		"property", "unit", "tenant", "iban", "expected",
		"status", "info", "tx_date", "tx_amount", "tx_name", "tx_reference",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range results {
		label := labels[r.Obligation.ID]
		row := []string{
			orDash(label.property),
			orDash(label.unit),
			r.Obligation.TenantName,
			r.Obligation.TenantIBAN,
			r.Obligation.Expected.StringFixed(2),
			string(r.Status),
			r.Info,
			"", "", "", "",
		}
		if r.Matched() {
			row[7] = r.Transaction.Date.Format("02.01.2006")
			row[8] = r.Transaction.Amount.StringFixed(2)
			row[9] = r.Transaction.Name
			row[10] = r.Transaction.Reference
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
