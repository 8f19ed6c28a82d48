// Package repository persists properties, units, obligations, drafts and
// application settings. The primary implementation is SQLite; an in-memory
// implementation backs tests and one-shot reconciliation runs that need no
// durable state.
package repository

import (
	"context"

	"rent-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Settings are the persisted application-wide knobs. They live in storage
// so that CLI runs and future UI surfaces share one source of truth.
type Settings struct {
	AutoDraftOnUpload      bool            `json:"autoDraftOnUpload"`
	AutoCreatePropertyUnit bool            `json:"autoCreatePropertyUnit"`
	RentLabel              string          `json:"rentLabel"`
	GraceDays              int             `json:"graceDays"`
	AmountTolerance        decimal.Decimal `json:"amountTolerance"`
}

// DefaultSettings returns the settings used for a fresh database.
func DefaultSettings() Settings {
	return Settings{
		AutoDraftOnUpload:      true,
		AutoCreatePropertyUnit: true,
		RentLabel:              "Miete",
		GraceDays:              3,
		AmountTolerance:        decimal.NewFromInt(2),
	}
}

// Store is the persistence interface for the reconciliation domain.
type Store interface {
	// Properties.
	CreateProperty(ctx context.Context, property *models.Property) error
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	FindProperty(ctx context.Context, nameOrAddress string) (*models.Property, error)
	ListProperties(ctx context.Context) ([]*models.Property, error)

	// Units.
	CreateUnit(ctx context.Context, unit *models.Unit) error
	GetUnit(ctx context.Context, id string) (*models.Unit, error)
	FindUnit(ctx context.Context, propertyID, label string) (*models.Unit, error)
	ListUnits(ctx context.Context, propertyID string) ([]*models.Unit, error)

	// Obligations.
	CreateObligation(ctx context.Context, obligation *models.Obligation) error
	GetObligation(ctx context.Context, id string) (*models.Obligation, error)
	ListObligations(ctx context.Context) ([]*models.Obligation, error)
	DeleteObligation(ctx context.Context, id string) error

	// Drafts.
	CreateDraft(ctx context.Context, draft *models.Draft) error
	GetDraft(ctx context.Context, id string) (*models.Draft, error)
	ListDrafts(ctx context.Context) ([]*models.Draft, error)
	UpdateDraft(ctx context.Context, draft *models.Draft) error
	DeleteDraft(ctx context.Context, id string) error

	// Settings.
	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, settings Settings) error

	Close() error
}
