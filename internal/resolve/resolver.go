// Package resolve maps extracted contract fields onto property and unit
// records and manages the draft lifecycle: build from extraction output,
// confirm into an obligation, or reject.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"rent-reconciliation-service/internal/models"
	"rent-reconciliation-service/internal/normalize"
	"rent-reconciliation-service/internal/repository"
	apperrors "rent-reconciliation-service/pkg/errors"
	"rent-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
)

// defaultDueDay is assumed when a confirmed contract does not state one.
const defaultDueDay = 3

// isNotFound distinguishes a missing record from a real storage fault.
func isNotFound(err error) bool {
	appErr, ok := apperrors.AsError(err)
	return ok && appErr.Code == apperrors.CodeRecordNotFound
}

// Resolver resolves extracted fields against stored entities.
type Resolver struct {
	store  repository.Store
	logger logger.Logger
}

// NewResolver creates a resolver on the given store.
func NewResolver(store repository.Store) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.GetGlobalLogger().WithComponent("entity_resolver"),
	}
}

// ResolveProperty matches an existing property by case-insensitive equality
// on name or address. When none matches and auto-creation is enabled, a new
// property named after the address is created. Returns nil without error
// when the property cannot be resolved.
func (r *Resolver) ResolveProperty(ctx context.Context, address string) (*models.Property, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	property, err := r.store.FindProperty(ctx, address)
	if err == nil {
		return property, nil
	}
	// Only a missing record may fall through to auto-creation; a storage
	// fault here would otherwise mint duplicates.
	if !isNotFound(err) {
		return nil, err
	}

	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.AutoCreatePropertyUnit {
		return nil, nil
	}

	property = &models.Property{
		ID:      uuid.NewString(),
		Name:    address,
		Address: address,
	}
	if err := r.store.CreateProperty(ctx, property); err != nil {
		return nil, err
	}
	r.logger.WithField("property", property.Name).Info("Auto-created property")
	return property, nil
}

// ResolveUnit matches an existing unit of the property by case-insensitive
// label equality, auto-creating a one-room unit when enabled. Returns nil
// without error when the unit cannot be resolved.
func (r *Resolver) ResolveUnit(ctx context.Context, propertyID, label string) (*models.Unit, error) {
	label = strings.TrimSpace(label)
	if propertyID == "" || label == "" {
		return nil, nil
	}

	unit, err := r.store.FindUnit(ctx, propertyID, label)
	if err == nil {
		return unit, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.AutoCreatePropertyUnit {
		return nil, nil
	}

	unit = &models.Unit{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		Label:      label,
		Rooms:      1,
	}
	if err := r.store.CreateUnit(ctx, unit); err != nil {
		return nil, err
	}
	r.logger.WithField("unit", unit.Label).Info("Auto-created unit")
	return unit, nil
}

// PreMatchUnit finds an existing unit for a free-form label without
// creating anything: exact case-insensitive equality first, then
// normalized containment in either direction.
func (r *Resolver) PreMatchUnit(ctx context.Context, propertyID, label string) (*models.Unit, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, nil
	}

	units, err := r.store.ListUnits(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	for _, unit := range units {
		if strings.EqualFold(unit.Label, label) {
			return unit, nil
		}
	}

	needle := normalize.Normalize(label)
	if needle == "" {
		return nil, nil
	}
	for _, unit := range units {
		candidate := normalize.Normalize(unit.Label)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return unit, nil
		}
	}
	return nil, nil
}

// DraftLabel derives the unit label recorded on a draft: the extracted
// label when present, otherwise "room " plus the room number.
func DraftLabel(fields models.ExtractedFields) string {
	if label := strings.TrimSpace(fields.UnitLabel); label != "" {
		return label
	}
	if fields.RoomNumber != "" {
		return "room " + fields.RoomNumber
	}
	return ""
}

// BuildDraft produces and stores a draft for one extracted document.
// Entity resolution failures degrade to an unassigned draft instead of
// failing the build; only the final store write can return an error.
func (r *Resolver) BuildDraft(ctx context.Context, fileName string, textLength int, fields models.ExtractedFields, preMatched *models.Unit) (*models.Draft, error) {
	draft := &models.Draft{
		ID:         uuid.NewString(),
		FileName:   fileName,
		TextLength: textLength,
		Fields:     fields,
	}

	property, err := r.ResolveProperty(ctx, fields.Address)
	if err != nil {
		r.logger.WithError(err).Warn("Property resolution failed, draft stays unassigned")
	}
	if property != nil {
		draft.PropertyID = property.ID

		unit, unitErr := r.ResolveUnit(ctx, property.ID, DraftLabel(fields))
		if unitErr != nil {
			r.logger.WithError(unitErr).Warn("Unit resolution failed, draft stays unassigned")
		}
		if unit != nil {
			draft.UnitID = unit.ID
		}
	}

	if draft.UnitID == "" && preMatched != nil {
		draft.UnitID = preMatched.ID
		if draft.PropertyID == "" {
			draft.PropertyID = preMatched.PropertyID
		}
	}

	if err := r.store.CreateDraft(ctx, draft); err != nil {
		return nil, err
	}

	r.logger.WithFields(logger.Fields{
		"draft":    draft.ID,
		"file":     draft.FileName,
		"resolved": draft.Resolved(),
	}).Info("Draft created")
	return draft, nil
}

// ConfirmDraft promotes a draft into an obligation and removes it. The
// draft must be resolvable to a unit; dueDay falls back to the default
// when not positive.
func (r *Resolver) ConfirmDraft(ctx context.Context, draftID string, dueDay int) (*models.Obligation, error) {
	draft, err := r.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}

	// A draft built while auto-creation was off may resolve now.
	if !draft.Resolved() {
		property, resolveErr := r.ResolveProperty(ctx, draft.Fields.Address)
		if resolveErr != nil {
			return nil, resolveErr
		}
		if property != nil {
			draft.PropertyID = property.ID
			unit, unitErr := r.ResolveUnit(ctx, property.ID, DraftLabel(draft.Fields))
			if unitErr != nil {
				return nil, unitErr
			}
			if unit != nil {
				draft.UnitID = unit.ID
			}
		}
	}
	if !draft.Resolved() {
		return nil, apperrors.ValidationError(apperrors.CodeMissingField, "unit", draft.FileName,
			fmt.Errorf("draft could not be mapped to a unit; assign one before confirming"))
	}

	unit, err := r.store.GetUnit(ctx, draft.UnitID)
	if err != nil {
		return nil, err
	}
	property, err := r.store.GetProperty(ctx, unit.PropertyID)
	if err != nil {
		return nil, err
	}
	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if dueDay <= 0 {
		dueDay = defaultDueDay
	}

	obligation := &models.Obligation{
		ID:         uuid.NewString(),
		UnitID:     unit.ID,
		TenantName: draft.Fields.TenantName,
		TenantIBAN: draft.Fields.IBAN,
		Expected:   draft.Fields.Expected,
		Deposit:    draft.Fields.Deposit,
		DueDay:     dueDay,
		StartDate:  draft.Fields.StartDate,
		Reference:  models.DefaultReference(settings.RentLabel, property.Name),
		RoomNumber: draft.Fields.RoomNumber,
	}
	if err := r.store.CreateObligation(ctx, obligation); err != nil {
		return nil, err
	}
	if err := r.store.DeleteDraft(ctx, draft.ID); err != nil {
		return nil, err
	}

	r.logger.WithFields(logger.Fields{
		"obligation": obligation.ID,
		"tenant":     obligation.TenantName,
	}).Info("Draft confirmed")
	return obligation, nil
}

// RejectDraft discards a draft.
func (r *Resolver) RejectDraft(ctx context.Context, draftID string) error {
	if err := r.store.DeleteDraft(ctx, draftID); err != nil {
		return err
	}
	r.logger.WithField("draft", draftID).Info("Draft rejected")
	return nil
}
