package cmd

import (
	"fmt"
	"os"

	"rent-reconciliation-service/pkg/errors"
	"rent-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// Exit logs the error, prints any available context and suggestion to
// stderr, and returns the error for cobra to report. A nil error passes
// through unchanged.
func (h *CLIErrorHandler) Exit(err error) error {
	if err == nil {
		return nil
	}

	h.logger.WithError(err).Error("Command failed")

	appErr, ok := errors.AsError(err)
	if !ok {
		return err
	}

	if len(appErr.Context) > 0 {
		fmt.Fprintf(os.Stderr, "Context:\n")
		for key, value := range appErr.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}
	if appErr.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "Suggestion: %s\n", appErr.Suggestion)
	}
	if help := categoryHelp(appErr.Category); help != "" {
		fmt.Fprintf(os.Stderr, "%s\n", help)
	}
	if h.verbose && appErr.Cause != nil {
		fmt.Fprintf(os.Stderr, "Underlying error: %v\n", appErr.Cause)
	}

	return err
}

// categoryHelp returns category-specific help text
func categoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the CSV file format and structure
• Check for proper column headers (use --date-column etc. for unusual exports)
• Ensure the file uses UTF-8 encoding and the right --delimiter`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that all required fields have values
• Confirm drafts only after a property and unit could be resolved
• Ensure amounts are decimal numbers without currency symbols`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify the field mapping file syntax if using --mapping
• Try running with default settings first`

	case errors.CategoryStorage:
		return `Storage error help:
• Check that the database path is writable (--db flag)
• Make sure no other process holds the database open
• Verify available disk space`

	default:
		return ""
	}
}
