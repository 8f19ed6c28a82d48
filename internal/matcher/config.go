package matcher

import (
	"fmt"

	"rent-reconciliation-service/internal/repository"

	"github.com/shopspring/decimal"
)

// Config holds the reconciliation parameters. They are pure inputs: a
// changed tolerance or grace period simply changes the next run's output,
// nothing is persisted by the matcher itself.
type Config struct {
	// Tolerance is the amount window in euro around the expected rent
	// within which a payment still counts as matching.
	Tolerance decimal.Decimal
	// GraceDays extends the due day before a payment is considered late.
	GraceDays int
}

// DefaultConfig returns the standard matching parameters.
func DefaultConfig() Config {
	return Config{
		Tolerance: decimal.NewFromInt(2),
		GraceDays: 3,
	}
}

// ConfigFromSettings builds a matcher config from persisted settings.
func ConfigFromSettings(settings repository.Settings) Config {
	return Config{
		Tolerance: settings.AmountTolerance,
		GraceDays: settings.GraceDays,
	}
}

// Validate checks the parameters for usable values.
func (c Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance cannot be negative: %s", c.Tolerance)
	}
	if c.GraceDays < 0 {
		return fmt.Errorf("grace days cannot be negative: %d", c.GraceDays)
	}
	return nil
}
