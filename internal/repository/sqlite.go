package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rent-reconciliation-service/internal/models"
	apperrors "rent-reconciliation-service/pkg/errors"
	"rent-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements Store on a single SQLite database file. Amounts
// are stored as decimal strings to avoid float drift, extracted field sets
// as JSON blobs.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger logger.Logger
}

// NewSQLiteStore opens (creating if necessary) the database at the given
// path and brings the schema up to date.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageOpen, "create database directory", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageOpen, "open database", err)
	}

	// SQLite serializes writers anyway; one connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageOpen, "ping database", err)
	}

	store := &SQLiteStore{
		db:     db,
		path:   path,
		logger: logger.GetGlobalLogger().WithComponent("sqlite_store"),
	}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS units (
			id TEXT PRIMARY KEY,
			property_id TEXT NOT NULL,
			label TEXT NOT NULL,
			rooms INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (property_id) REFERENCES properties(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_units_property ON units(property_id)`,
		`CREATE TABLE IF NOT EXISTS obligations (
			id TEXT PRIMARY KEY,
			unit_id TEXT NOT NULL,
			tenant_name TEXT NOT NULL,
			tenant_iban TEXT,
			expected TEXT NOT NULL,
			due_day INTEGER NOT NULL,
			reference TEXT,
			start_date DATETIME,
			end_date DATETIME,
			deposit TEXT NOT NULL DEFAULT '0',
			room_number TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (unit_id) REFERENCES units(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_obligations_unit ON obligations(unit_id)`,
		`CREATE TABLE IF NOT EXISTS drafts (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			text_length INTEGER NOT NULL DEFAULT 0,
			fields TEXT NOT NULL,
			property_id TEXT,
			unit_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			auto_draft_on_upload INTEGER NOT NULL,
			auto_create_property_unit INTEGER NOT NULL,
			rent_label TEXT NOT NULL,
			grace_days INTEGER NOT NULL,
			amount_tolerance TEXT NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return apperrors.StorageError(apperrors.CodeStorageQuery, "migrate schema", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateProperty inserts a new property.
func (s *SQLiteStore) CreateProperty(ctx context.Context, property *models.Property) error {
	if err := property.Validate(); err != nil {
		return apperrors.ValidationError(apperrors.CodeInvalidData, "property", property.ID, err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (id, name, address) VALUES (?, ?, ?)`,
		property.ID, property.Name, property.Address)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "create property", err)
	}
	return nil
}

// GetProperty loads one property by id.
func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, address FROM properties WHERE id = ?`, id)
	return scanProperty(row)
}

// FindProperty finds a property whose name or address equals the given
// string, compared case-insensitively.
func (s *SQLiteStore) FindProperty(ctx context.Context, nameOrAddress string) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, address FROM properties
		 WHERE LOWER(name) = LOWER(?) OR (address != '' AND LOWER(address) = LOWER(?))
		 ORDER BY created_at LIMIT 1`,
		nameOrAddress, nameOrAddress)
	return scanProperty(row)
}

// ListProperties returns all properties in creation order.
func (s *SQLiteStore) ListProperties(ctx context.Context) ([]*models.Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address FROM properties ORDER BY created_at`)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "list properties", err)
	}
	defer rows.Close()

	var properties []*models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address); err != nil {
			return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "scan property", err)
		}
		properties = append(properties, &p)
	}
	return properties, rows.Err()
}

// CreateUnit inserts a new unit. The referenced property must exist.
func (s *SQLiteStore) CreateUnit(ctx context.Context, unit *models.Unit) error {
	if err := unit.Validate(); err != nil {
		return apperrors.ValidationError(apperrors.CodeInvalidData, "unit", unit.ID, err)
	}
	if _, err := s.GetProperty(ctx, unit.PropertyID); err != nil {
		return apperrors.StorageError(apperrors.CodeReferenceBroken, "create unit",
			fmt.Errorf("property %s does not exist", unit.PropertyID))
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO units (id, property_id, label, rooms) VALUES (?, ?, ?, ?)`,
		unit.ID, unit.PropertyID, unit.Label, unit.Rooms)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "create unit", err)
	}
	return nil
}

// GetUnit loads one unit by id.
func (s *SQLiteStore) GetUnit(ctx context.Context, id string) (*models.Unit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, property_id, label, rooms FROM units WHERE id = ?`, id)
	return scanUnit(row)
}

// FindUnit finds a unit of the property by case-insensitive label equality.
func (s *SQLiteStore) FindUnit(ctx context.Context, propertyID, label string) (*models.Unit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, property_id, label, rooms FROM units
		 WHERE property_id = ? AND LOWER(label) = LOWER(?)
		 ORDER BY created_at LIMIT 1`,
		propertyID, label)
	return scanUnit(row)
}

// ListUnits returns the property's units in creation order. An empty
// propertyID lists all units.
func (s *SQLiteStore) ListUnits(ctx context.Context, propertyID string) ([]*models.Unit, error) {
	query := `SELECT id, property_id, label, rooms FROM units ORDER BY created_at`
	args := []interface{}{}
	if propertyID != "" {
		query = `SELECT id, property_id, label, rooms FROM units WHERE property_id = ? ORDER BY created_at`
		args = append(args, propertyID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "list units", err)
	}
	defer rows.Close()

	var units []*models.Unit
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.ID, &u.PropertyID, &u.Label, &u.Rooms); err != nil {
			return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "scan unit", err)
		}
		units = append(units, &u)
	}
	return units, rows.Err()
}

// CreateObligation inserts a new obligation. The referenced unit must
// exist.
func (s *SQLiteStore) CreateObligation(ctx context.Context, obligation *models.Obligation) error {
	if err := obligation.Validate(); err != nil {
		return apperrors.ValidationError(apperrors.CodeInvalidData, "obligation", obligation.ID, err)
	}
	if _, err := s.GetUnit(ctx, obligation.UnitID); err != nil {
		return apperrors.StorageError(apperrors.CodeReferenceBroken, "create obligation",
			fmt.Errorf("unit %s does not exist", obligation.UnitID))
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO obligations
		 (id, unit_id, tenant_name, tenant_iban, expected, due_day, reference, start_date, end_date, deposit, room_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obligation.ID, obligation.UnitID, obligation.TenantName, obligation.TenantIBAN,
		obligation.Expected.String(), obligation.DueDay, obligation.Reference,
		nullableTime(obligation.StartDate), nullableTime(obligation.EndDate),
		obligation.Deposit.String(), obligation.RoomNumber)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "create obligation", err)
	}
	return nil
}

// GetObligation loads one obligation by id.
func (s *SQLiteStore) GetObligation(ctx context.Context, id string) (*models.Obligation, error) {
	row := s.db.QueryRowContext(ctx, obligationSelect+` WHERE id = ?`, id)
	return scanObligation(row)
}

// ListObligations returns all obligations in creation order.
func (s *SQLiteStore) ListObligations(ctx context.Context) ([]*models.Obligation, error) {
	rows, err := s.db.QueryContext(ctx, obligationSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "list obligations", err)
	}
	defer rows.Close()

	var obligations []*models.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

// DeleteObligation removes one obligation.
func (s *SQLiteStore) DeleteObligation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, id)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "delete obligation", err)
	}
	return requireAffected(result, "delete obligation", "obligation", id)
}

// CreateDraft inserts a new draft, serializing its field set as JSON.
func (s *SQLiteStore) CreateDraft(ctx context.Context, draft *models.Draft) error {
	fields, err := json.Marshal(draft.Fields)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "encode draft fields", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (id, file_name, text_length, fields, property_id, unit_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		draft.ID, draft.FileName, draft.TextLength, string(fields), draft.PropertyID, draft.UnitID)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "create draft", err)
	}
	return nil
}

// GetDraft loads one draft by id.
func (s *SQLiteStore) GetDraft(ctx context.Context, id string) (*models.Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, text_length, fields, property_id, unit_id FROM drafts WHERE id = ?`, id)
	return scanDraft(row)
}

// ListDrafts returns all drafts in creation order.
func (s *SQLiteStore) ListDrafts(ctx context.Context) ([]*models.Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, text_length, fields, property_id, unit_id FROM drafts ORDER BY created_at`)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "list drafts", err)
	}
	defer rows.Close()

	var drafts []*models.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// UpdateDraft rewrites a draft's fields and entity assignment.
func (s *SQLiteStore) UpdateDraft(ctx context.Context, draft *models.Draft) error {
	fields, err := json.Marshal(draft.Fields)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "encode draft fields", err)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET file_name = ?, text_length = ?, fields = ?, property_id = ?, unit_id = ?
		 WHERE id = ?`,
		draft.FileName, draft.TextLength, string(fields), draft.PropertyID, draft.UnitID, draft.ID)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "update draft", err)
	}
	return requireAffected(result, "update draft", "draft", draft.ID)
}

// DeleteDraft removes one draft.
func (s *SQLiteStore) DeleteDraft(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "delete draft", err)
	}
	return requireAffected(result, "delete draft", "draft", id)
}

// GetSettings returns the persisted settings, falling back to defaults for
// a fresh database.
func (s *SQLiteStore) GetSettings(ctx context.Context) (Settings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT auto_draft_on_upload, auto_create_property_unit, rent_label, grace_days, amount_tolerance
		 FROM settings WHERE id = 1`)

	var (
		settings  Settings
		autoDraft int
		autoEnt   int
		tolerance string
	)
	err := row.Scan(&autoDraft, &autoEnt, &settings.RentLabel, &settings.GraceDays, &tolerance)
	if err == sql.ErrNoRows {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, apperrors.StorageError(apperrors.CodeStorageQuery, "load settings", err)
	}

	settings.AutoDraftOnUpload = autoDraft != 0
	settings.AutoCreatePropertyUnit = autoEnt != 0
	settings.AmountTolerance, err = decimal.NewFromString(tolerance)
	if err != nil {
		return Settings{}, apperrors.StorageError(apperrors.CodeStorageQuery, "decode tolerance", err)
	}
	return settings, nil
}

// SaveSettings upserts the single settings row.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (id, auto_draft_on_upload, auto_create_property_unit, rent_label, grace_days, amount_tolerance)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			auto_draft_on_upload = excluded.auto_draft_on_upload,
			auto_create_property_unit = excluded.auto_create_property_unit,
			rent_label = excluded.rent_label,
			grace_days = excluded.grace_days,
			amount_tolerance = excluded.amount_tolerance`,
		boolToInt(settings.AutoDraftOnUpload), boolToInt(settings.AutoCreatePropertyUnit),
		settings.RentLabel, settings.GraceDays, settings.AmountTolerance.String())
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "save settings", err)
	}
	return nil
}

const obligationSelect = `SELECT id, unit_id, tenant_name, tenant_iban, expected, due_day, reference, start_date, end_date, deposit, room_number FROM obligations`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var p models.Property
	err := row.Scan(&p.ID, &p.Name, &p.Address)
	if err == sql.ErrNoRows {
		return nil, apperrors.StorageError(apperrors.CodeRecordNotFound, "load property", err)
	}
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "scan property", err)
	}
	return &p, nil
}

func scanUnit(row rowScanner) (*models.Unit, error) {
	var u models.Unit
	err := row.Scan(&u.ID, &u.PropertyID, &u.Label, &u.Rooms)
	if err == sql.ErrNoRows {
		return nil, apperrors.StorageError(apperrors.CodeRecordNotFound, "load unit", err)
	}
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "scan unit", err)
	}
	return &u, nil
}

func scanObligation(row rowScanner) (*models.Obligation, error) {
	var (
		o                  models.Obligation
		expected, deposit  string
		startDate, endDate sql.NullTime
		iban, ref, room    sql.NullString
	)
	err := row.Scan(&o.ID, &o.UnitID, &o.TenantName, &iban, &expected, &o.DueDay,
		&ref, &startDate, &endDate, &deposit, &room)
	if err == sql.ErrNoRows {
		return nil, apperrors.StorageError(apperrors.CodeRecordNotFound, "load obligation", err)
	}
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "scan obligation", err)
	}

	o.TenantIBAN = iban.String
	o.Reference = ref.String
	o.RoomNumber = room.String
	if o.Expected, err = decimal.NewFromString(expected); err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "decode expected amount", err)
	}
	if o.Deposit, err = decimal.NewFromString(deposit); err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "decode deposit", err)
	}
	if startDate.Valid {
		t := startDate.Time
		o.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		o.EndDate = &t
	}
	return &o, nil
}

func scanDraft(row rowScanner) (*models.Draft, error) {
	var (
		d                models.Draft
		fields           string
		propertyID, unit sql.NullString
	)
	err := row.Scan(&d.ID, &d.FileName, &d.TextLength, &fields, &propertyID, &unit)
	if err == sql.ErrNoRows {
		return nil, apperrors.StorageError(apperrors.CodeRecordNotFound, "load draft", err)
	}
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "scan draft", err)
	}

	d.PropertyID = propertyID.String
	d.UnitID = unit.String
	if err := json.Unmarshal([]byte(fields), &d.Fields); err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageQuery, "decode draft fields", err)
	}
	return &d, nil
}

func requireAffected(result sql.Result, op, kind, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageQuery, "check affected rows", err)
	}
	if affected == 0 {
		return apperrors.StorageError(apperrors.CodeRecordNotFound, op,
			fmt.Errorf("%s %s not found", kind, id))
	}
	return nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
