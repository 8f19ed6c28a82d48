package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"rent-reconciliation-service/internal/models"
	apperrors "rent-reconciliation-service/pkg/errors"
)

// MemoryStore is an in-memory Store implementation. It mirrors the SQLite
// store's semantics and backs the package tests and any caller that wants a
// throwaway store.
type MemoryStore struct {
	mu sync.RWMutex

	properties  []*models.Property
	units       []*models.Unit
	obligations []*models.Obligation
	drafts      []*models.Draft
	settings    Settings
	hasSettings bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// CreateProperty inserts a new property.
func (s *MemoryStore) CreateProperty(_ context.Context, property *models.Property) error {
	if err := property.Validate(); err != nil {
		return apperrors.ValidationError(apperrors.CodeInvalidData, "property", property.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *property
	s.properties = append(s.properties, &clone)
	return nil
}

// GetProperty loads one property by id.
func (s *MemoryStore) GetProperty(_ context.Context, id string) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.properties {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, notFound("load property", "property", id)
}

// FindProperty finds a property by case-insensitive name or address
// equality.
func (s *MemoryStore) FindProperty(_ context.Context, nameOrAddress string) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.properties {
		if strings.EqualFold(p.Name, nameOrAddress) ||
			(p.Address != "" && strings.EqualFold(p.Address, nameOrAddress)) {
			clone := *p
			return &clone, nil
		}
	}
	return nil, notFound("find property", "property", nameOrAddress)
}

// ListProperties returns all properties in creation order.
func (s *MemoryStore) ListProperties(_ context.Context) ([]*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Property, 0, len(s.properties))
	for _, p := range s.properties {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

// CreateUnit inserts a new unit. The referenced property must exist.
func (s *MemoryStore) CreateUnit(ctx context.Context, unit *models.Unit) error {
	if err := unit.Validate(); err != nil {
		return apperrors.ValidationError(apperrors.CodeInvalidData, "unit", unit.ID, err)
	}
	if _, err := s.GetProperty(ctx, unit.PropertyID); err != nil {
		return apperrors.StorageError(apperrors.CodeReferenceBroken, "create unit",
			fmt.Errorf("property %s does not exist", unit.PropertyID))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *unit
	s.units = append(s.units, &clone)
	return nil
}

// GetUnit loads one unit by id.
func (s *MemoryStore) GetUnit(_ context.Context, id string) (*models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.units {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, notFound("load unit", "unit", id)
}

// FindUnit finds a unit of the property by case-insensitive label equality.
func (s *MemoryStore) FindUnit(_ context.Context, propertyID, label string) (*models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.units {
		if u.PropertyID == propertyID && strings.EqualFold(u.Label, label) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, notFound("find unit", "unit", label)
}

// ListUnits returns the property's units in creation order. An empty
// propertyID lists all units.
func (s *MemoryStore) ListUnits(_ context.Context, propertyID string) ([]*models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Unit
	for _, u := range s.units {
		if propertyID == "" || u.PropertyID == propertyID {
			clone := *u
			out = append(out, &clone)
		}
	}
	return out, nil
}

// CreateObligation inserts a new obligation. The referenced unit must
// exist.
func (s *MemoryStore) CreateObligation(ctx context.Context, obligation *models.Obligation) error {
	if err := obligation.Validate(); err != nil {
		return apperrors.ValidationError(apperrors.CodeInvalidData, "obligation", obligation.ID, err)
	}
	if _, err := s.GetUnit(ctx, obligation.UnitID); err != nil {
		return apperrors.StorageError(apperrors.CodeReferenceBroken, "create obligation",
			fmt.Errorf("unit %s does not exist", obligation.UnitID))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *obligation
	s.obligations = append(s.obligations, &clone)
	return nil
}

// GetObligation loads one obligation by id.
func (s *MemoryStore) GetObligation(_ context.Context, id string) (*models.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.obligations {
		if o.ID == id {
			clone := *o
			return &clone, nil
		}
	}
	return nil, notFound("load obligation", "obligation", id)
}

// ListObligations returns all obligations in creation order.
func (s *MemoryStore) ListObligations(_ context.Context) ([]*models.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Obligation, 0, len(s.obligations))
	for _, o := range s.obligations {
		clone := *o
		out = append(out, &clone)
	}
	return out, nil
}

// DeleteObligation removes one obligation.
func (s *MemoryStore) DeleteObligation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.obligations {
		if o.ID == id {
			s.obligations = append(s.obligations[:i], s.obligations[i+1:]...)
			return nil
		}
	}
	return notFound("delete obligation", "obligation", id)
}

// CreateDraft inserts a new draft.
func (s *MemoryStore) CreateDraft(_ context.Context, draft *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *draft
	s.drafts = append(s.drafts, &clone)
	return nil
}

// GetDraft loads one draft by id.
func (s *MemoryStore) GetDraft(_ context.Context, id string) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.drafts {
		if d.ID == id {
			clone := *d
			return &clone, nil
		}
	}
	return nil, notFound("load draft", "draft", id)
}

// ListDrafts returns all drafts in creation order.
func (s *MemoryStore) ListDrafts(_ context.Context) ([]*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		clone := *d
		out = append(out, &clone)
	}
	return out, nil
}

// UpdateDraft rewrites a stored draft.
func (s *MemoryStore) UpdateDraft(_ context.Context, draft *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.drafts {
		if d.ID == draft.ID {
			clone := *draft
			s.drafts[i] = &clone
			return nil
		}
	}
	return notFound("update draft", "draft", draft.ID)
}

// DeleteDraft removes one draft.
func (s *MemoryStore) DeleteDraft(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.drafts {
		if d.ID == id {
			s.drafts = append(s.drafts[:i], s.drafts[i+1:]...)
			return nil
		}
	}
	return notFound("delete draft", "draft", id)
}

// GetSettings returns the stored settings or defaults when none were
// saved.
func (s *MemoryStore) GetSettings(_ context.Context) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSettings {
		return DefaultSettings(), nil
	}
	return s.settings, nil
}

// SaveSettings stores the settings.
func (s *MemoryStore) SaveSettings(_ context.Context, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.hasSettings = true
	return nil
}

func notFound(op, kind, id string) error {
	return apperrors.StorageError(apperrors.CodeRecordNotFound, op,
		fmt.Errorf("%s %s not found", kind, id))
}
