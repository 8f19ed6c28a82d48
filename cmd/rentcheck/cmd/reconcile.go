package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"rent-reconciliation-service/cmd/rentcheck/config"
	"rent-reconciliation-service/internal/matcher"
	"rent-reconciliation-service/internal/parsers"
	"rent-reconciliation-service/internal/reporter"
	"rent-reconciliation-service/internal/repository"
	"rent-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	transactionsFile string
	monthFlag        string
	outputFormat     string
	outputFile       string
	openOnly         bool
	csvDelimiter     string
	amountTolerance  float64
	graceDays        int

	dateColumn      string
	amountColumn    string
	nameColumn      string
	ibanColumn      string
	referenceColumn string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile rent obligations with a bank statement export",
	Long: `Reconcile compares the stored rent obligations with a bank statement
CSV export for one month and reports, per tenant, whether the rent
arrived, is missing, or deviates from the expected amount.

Examples:
  # Reconcile August 2025 against a bank export
  rentcheck reconcile --transactions export.csv --month 2025-08

  # German bank export with semicolon delimiter, CSV output
  rentcheck reconcile --transactions umsaetze.csv --month 2025-08 \
    --delimiter ";" --output-format csv --output-file report.csv

  # Only the open rents
  rentcheck reconcile --transactions export.csv --month 2025-08 --open-only`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&transactionsFile, "transactions", "t", "", "path to bank statement CSV export (required)")
	reconcileCmd.Flags().StringVarP(&monthFlag, "month", "m", "", "month to reconcile (YYYY-MM, default: current month)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&openOnly, "open-only", false, "report only obligations without a payment")

	// Matching configuration flags
	reconcileCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", -1, "amount tolerance in Euro (default: stored setting)")
	reconcileCmd.Flags().IntVarP(&graceDays, "grace-days", "g", -1, "grace days after the due day (default: stored setting)")

	// CSV input flags
	reconcileCmd.Flags().StringVar(&csvDelimiter, "delimiter", "", "CSV field delimiter (default: ',')")
	reconcileCmd.Flags().StringVar(&dateColumn, "date-column", "", "CSV column holding the booking date")
	reconcileCmd.Flags().StringVar(&amountColumn, "amount-column", "", "CSV column holding the amount")
	reconcileCmd.Flags().StringVar(&nameColumn, "name-column", "", "CSV column holding the counterparty name")
	reconcileCmd.Flags().StringVar(&ibanColumn, "iban-column", "", "CSV column holding the counterparty IBAN")
	reconcileCmd.Flags().StringVar(&referenceColumn, "reference-column", "", "CSV column holding the payment reference")

	reconcileCmd.MarkFlagRequired("transactions")

	// Bind flags to viper
	viper.BindPFlag("transactions", reconcileCmd.Flags().Lookup("transactions"))
	viper.BindPFlag("month", reconcileCmd.Flags().Lookup("month"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("open-only", reconcileCmd.Flags().Lookup("open-only"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("grace-days", reconcileCmd.Flags().Lookup("grace-days"))
	viper.BindPFlag("delimiter", reconcileCmd.Flags().Lookup("delimiter"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	transactionsFile = viper.GetString("transactions")
	monthFlag = viper.GetString("month")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	openOnly = viper.GetBool("open-only")

	if transactionsFile == "" {
		return fmt.Errorf("transactions file is required")
	}
	if err := validateFileExists(transactionsFile, "transactions file"); err != nil {
		return err
	}

	if monthFlag != "" {
		if _, err := time.Parse("2006-01", monthFlag); err != nil {
			return fmt.Errorf("invalid month format. Use YYYY-MM: %w", err)
		}
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	now := time.Now()
	year, month := now.Year(), now.Month()
	if monthFlag != "" {
		parsed, _ := time.Parse("2006-01", monthFlag)
		year, month = parsed.Year(), parsed.Month()
	}

	op := logger.NewOperationLogger("reconcile", nil).
		WithField("month", fmt.Sprintf("%04d-%02d", year, int(month)))
	fail := func(err error) error {
		op.Error(err, "Reconciliation aborted")
		return handler.Exit(err)
	}

	store, err := openStore()
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	settings, err := store.GetSettings(ctx)
	if err != nil {
		return fail(err)
	}

	matcherConfig, err := config.CreateMatcherConfig(settings, amountTolerance, graceDays)
	if err != nil {
		return fail(err)
	}

	parserConfig, err := config.CreateParserConfig(csvDelimiter, dateColumn, amountColumn, nameColumn, ibanColumn, referenceColumn)
	if err != nil {
		return fail(err)
	}

	op.Step("load obligations")
	entries, err := loadEntries(ctx, store)
	if err != nil {
		return fail(err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No rent obligations stored. Import contracts first.")
		return nil
	}

	op.Step("parse transactions")
	parser := parsers.NewTransactionParser(parserConfig)
	transactions, stats, err := parser.ParseFile(ctx, transactionsFile)
	if err != nil {
		return fail(err)
	}
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Imported %d of %d transactions (%d rows dropped).\n",
			stats.Imported, stats.TotalRows, stats.DroppedRows)
	}

	op.Step("match payments")
	results := matcher.New(matcherConfig).MatchMonth(entries, transactions, year, month)
	report := matcher.BuildReport(year, month, results)

	reportConfig, err := config.CreateReportConfig(outputFormat, openOnly)
	if err != nil {
		return fail(err)
	}
	generator, err := reporter.NewGenerator(reportConfig)
	if err != nil {
		return fail(err)
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fail(fmt.Errorf("failed to create output file: %w", err))
		}
		defer output.Close()
	}

	if err := generator.Generate(report, entries, output); err != nil {
		return fail(err)
	}

	op.WithField("obligations", len(report.Results)).
		WithField("missing", report.MissingCount).
		Success("Reconciliation complete")
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciled %d obligations for %04d-%02d: %d ok, %d missing.\n",
			len(report.Results), year, int(month), report.OKCount, report.MissingCount)
	}
	return nil
}

// loadEntries assembles the matcher input from the stored obligations and
// the unit and property each one belongs to.
func loadEntries(ctx context.Context, store repository.Store) ([]matcher.Entry, error) {
	obligations, err := store.ListObligations(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]matcher.Entry, 0, len(obligations))
	for _, obligation := range obligations {
		entry := matcher.Entry{Obligation: obligation}
		if unit, err := store.GetUnit(ctx, obligation.UnitID); err == nil {
			entry.UnitLabel = unit.Label
			if property, err := store.GetProperty(ctx, unit.PropertyID); err == nil {
				entry.PropertyName = property.Name
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// openStore opens the SQLite store at the configured path.
func openStore() (repository.Store, error) {
	return repository.NewSQLiteStore(viper.GetString("db"))
}
