package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"rent-reconciliation-service/cmd/rentcheck/config"
	"rent-reconciliation-service/internal/extract"
	"rent-reconciliation-service/internal/ingest"
	"rent-reconciliation-service/internal/models"
	"rent-reconciliation-service/internal/resolve"
	"rent-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the import command
var (
	mappingFile  string
	unitLabel    string
	propertyName string
	extractOnly  bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import rental contracts and create obligation drafts",
	Long: `Import reads rental contract documents (PDF or plain text), extracts
the contract fields and stores each result as a draft. PDFs without a
usable text layer are run through OCR (requires pdftoppm and tesseract).

A file that yields no text still produces a draft with default values,
so nothing silently disappears.

Examples:
  # Import one contract
  rentcheck import mietvertrag.pdf

  # Import a batch, attaching all drafts to a known unit
  rentcheck import contracts/*.pdf --property "Musterstraße 12" --unit "Zimmer 5"

  # Custom anchor mapping for unusual contract layouts
  rentcheck import contract.pdf --mapping mapping.json

  # Only show the extracted fields, create no drafts
  rentcheck import contract.pdf --extract-only`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&mappingFile, "mapping", "", "path to a JSON field mapping file")
	importCmd.Flags().StringVar(&propertyName, "property", "", "attach drafts to this property (name or address)")
	importCmd.Flags().StringVar(&unitLabel, "unit", "", "attach drafts to this unit label (requires --property)")
	importCmd.Flags().BoolVar(&extractOnly, "extract-only", false, "print extracted fields without creating drafts")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	op := logger.NewOperationLogger("import", nil).WithField("files", len(args))
	fail := func(err error) error {
		op.Error(err, "Import aborted")
		return handler.Exit(err)
	}

	// A broken mapping must fail before any document is touched.
	mapping, err := config.LoadFieldMapping(mappingFile)
	if err != nil {
		return fail(err)
	}
	if unitLabel != "" && propertyName == "" {
		return fail(fmt.Errorf("--unit requires --property"))
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

	resolver := resolve.NewResolver(store)
	preMatched, err := preMatchUnit(ctx, resolver)
	if err != nil {
		return fail(err)
	}

	op.Step("ingest documents")
	pipeline := ingest.NewPipeline()
	extractor := extract.NewExtractor()
	documents := pipeline.ProcessBatch(ctx, args)

	op.Step("extract fields")

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "FILE\tMETHOD\tTENANT\tRENT\tUNIT\tDRAFT")

	for _, doc := range documents {
		fields := extractor.Extract(doc.Text, mapping)

		draftID := "-"
		if !extractOnly && settings.AutoDraftOnUpload {
			draft, err := resolver.BuildDraft(ctx, doc.FileName, doc.TextLength(), fields, preMatched)
			if err != nil {
				return fail(err)
			}
			draftID = draft.ID
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			doc.FileName,
			doc.Method,
			orDash(fields.TenantName),
			fields.Expected.StringFixed(2),
			orDash(resolve.DraftLabel(fields)),
			draftID)
	}

	op.Success("Import complete")
	return nil
}

// preMatchUnit resolves the --property/--unit flags into a unit the drafts
// are attached to. Returns nil when the flags are not set.
func preMatchUnit(ctx context.Context, resolver *resolve.Resolver) (*models.Unit, error) {
	if propertyName == "" {
		return nil, nil
	}

	property, err := resolver.ResolveProperty(ctx, propertyName)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, fmt.Errorf("property %q not found", propertyName)
	}
	if unitLabel == "" {
		return nil, nil
	}

	unit, err := resolver.PreMatchUnit(ctx, property.ID, unitLabel)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		// Fall back to resolution, which may auto-create the unit.
		unit, err = resolver.ResolveUnit(ctx, property.ID, unitLabel)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, fmt.Errorf("unit %q not found in property %q", unitLabel, propertyName)
		}
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Attaching drafts to unit %q in %q.\n", unit.Label, property.Name)
	}
	return unit, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
