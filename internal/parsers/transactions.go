// Package parsers reads bank transaction CSV exports into transaction
// records. Column resolution is driven by a configurable mapping with
// built-in aliases for the common German bank export headers. Rows with an
// unparsable date or amount are dropped silently (logged, counted in the
// stats, never surfaced as an error) before they can reach reconciliation.
package parsers

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"rent-reconciliation-service/internal/models"
	apperrors "rent-reconciliation-service/pkg/errors"
	"rent-reconciliation-service/pkg/logger"
)

// ColumnMapping names the CSV columns carrying each transaction field.
// Empty entries fall back to the built-in header aliases.
type ColumnMapping struct {
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Name      string `json:"name"`
	IBAN      string `json:"iban"`
	Reference string `json:"reference"`
}

// headerAliases are recognized case-insensitively when the mapping does
// not pin a column. German bank export headers come first.
var headerAliases = map[string][]string{
	"date":      {"date", "datum", "buchungstag", "buchungsdatum", "valuta"},
	"amount":    {"amount", "betrag", "umsatz", "summe"},
	"name":      {"name", "auftraggeber", "zahlungspflichtiger", "beguenstigter", "empfaenger", "payer"},
	"iban":      {"iban", "kontonummer", "konto"},
	"reference": {"reference", "verwendungszweck", "referenz", "zweck", "buchungstext"},
}

// ParseStats counts the outcome of one parse run.
type ParseStats struct {
	TotalRows   int `json:"totalRows"`
	Imported    int `json:"imported"`
	DroppedRows int `json:"droppedRows"`
}

// Config controls CSV dialect and column resolution.
type Config struct {
	Mapping   ColumnMapping
	Delimiter rune
}

// DefaultConfig returns a comma-delimited configuration resolving columns
// purely by alias.
func DefaultConfig() *Config {
	return &Config{Delimiter: ','}
}

// TransactionParser reads transaction CSV files.
type TransactionParser struct {
	config *Config
	logger logger.Logger
}

// NewTransactionParser creates a parser with the given configuration.
func NewTransactionParser(config *Config) *TransactionParser {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	return &TransactionParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("transaction_parser"),
	}
}

// ParseFile reads all transactions from the CSV file at path.
func (p *TransactionParser) ParseFile(ctx context.Context, path string) ([]models.Transaction, *ParseStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
	}
	defer file.Close()

	transactions, stats, err := p.Parse(ctx, file)
	if err != nil {
		if appErr, ok := apperrors.AsError(err); ok {
			return nil, stats, appErr.WithContext("file_path", path)
		}
		return nil, stats, err
	}

	p.logger.WithFields(logger.Fields{
		"file":     path,
		"imported": stats.Imported,
		"dropped":  stats.DroppedRows,
	}).Info("Transactions parsed")
	return transactions, stats, nil
}

// Parse reads all transactions from the reader. The first row must be a
// header row resolvable to at least a date and an amount column.
func (p *TransactionParser) Parse(ctx context.Context, r io.Reader) ([]models.Transaction, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = p.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &ParseStats{}, apperrors.ParseError(
			apperrors.CodeInvalidFormat, "", 1, "header", "", err)
	}

	columns, err := p.resolveColumns(header)
	if err != nil {
		return nil, &ParseStats{}, err
	}

	stats := &ParseStats{}
	var transactions []models.Transaction
	line := 1

	for {
		if ctx.Err() != nil {
			return transactions, stats, apperrors.InternalError(
				apperrors.CodeUnexpectedError, "parse_transactions", ctx.Err())
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			stats.TotalRows++
			stats.DroppedRows++
			p.logger.WithField("line", line).Debug("Unreadable row dropped")
			continue
		}
		if isEmptyRow(record) {
			continue
		}
		stats.TotalRows++

		tx, ok := p.buildTransaction(record, columns, line)
		if !ok {
			stats.DroppedRows++
			continue
		}
		transactions = append(transactions, tx)
		stats.Imported++
	}

	return transactions, stats, nil
}

// columnIndexes maps field names to header positions; -1 means absent.
type columnIndexes struct {
	date, amount, name, iban, reference int
}

func (p *TransactionParser) resolveColumns(header []string) (columnIndexes, error) {
	find := func(field, configured string) int {
		for i, h := range header {
			h = strings.TrimSpace(h)
			if configured != "" {
				if strings.EqualFold(h, configured) {
					return i
				}
				continue
			}
			for _, alias := range headerAliases[field] {
				if strings.EqualFold(h, alias) {
					return i
				}
			}
		}
		return -1
	}

	m := p.config.Mapping
	columns := columnIndexes{
		date:      find("date", m.Date),
		amount:    find("amount", m.Amount),
		name:      find("name", m.Name),
		iban:      find("iban", m.IBAN),
		reference: find("reference", m.Reference),
	}

	if columns.date < 0 || columns.amount < 0 {
		return columns, apperrors.ParseError(
			apperrors.CodeMissingColumn, "", 1, "header", strings.Join(header, ","),
			nil,
		).WithSuggestion("the CSV needs a date and an amount column; configure the column mapping if the headers are non-standard")
	}
	return columns, nil
}

// buildTransaction converts one CSV record. Rows with an unparsable date
// or amount are dropped rather than reported.
func (p *TransactionParser) buildTransaction(record []string, columns columnIndexes, line int) (models.Transaction, bool) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := models.ParseDateWithFormats(field(columns.date))
	if err != nil {
		p.logger.WithFields(logger.Fields{
			"line":  line,
			"value": field(columns.date),
		}).Debug("Row dropped: unparsable date")
		return models.Transaction{}, false
	}

	amount, err := models.ParseEuroAmount(field(columns.amount))
	if err != nil {
		p.logger.WithFields(logger.Fields{
			"line":  line,
			"value": field(columns.amount),
		}).Debug("Row dropped: unparsable amount")
		return models.Transaction{}, false
	}

	return models.Transaction{
		Date:      date,
		Amount:    amount,
		Name:      field(columns.name),
		IBAN:      models.StripIBAN(field(columns.iban)),
		Reference: field(columns.reference),
	}, true
}

func isEmptyRow(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
