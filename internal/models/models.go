// Package models defines the core record types of the rent reconciliation
// system: properties, units, rent obligations, bank transactions, extraction
// drafts and per-month match results.
//
// Monetary values use decimal.Decimal throughout to avoid floating point
// drift when comparing expected rents against bank amounts.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus classifies the payment state of one obligation for one month.
type MatchStatus string

const (
	// StatusOK means a payment within the tolerance window was found.
	StatusOK MatchStatus = "ok"
	// StatusMissing means no qualifying payment was found in the month.
	StatusMissing MatchStatus = "missing"
	// StatusPartial means the found payment is below the expected amount.
	StatusPartial MatchStatus = "partial"
	// StatusOver means the found payment is above the expected amount.
	StatusOver MatchStatus = "over"
)

// String returns the string representation of MatchStatus.
func (s MatchStatus) String() string {
	return string(s)
}

// IsValid checks if the match status is one of the known values.
func (s MatchStatus) IsValid() bool {
	switch s {
	case StatusOK, StatusMissing, StatusPartial, StatusOver:
		return true
	default:
		return false
	}
}

// Property represents a rental property owning zero or more units.
type Property struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Validate performs basic validation on the Property.
func (p *Property) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("property id cannot be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("property name cannot be empty")
	}
	return nil
}

// Unit represents a rentable unit (flat or room) inside a property.
type Unit struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId"`
	Label      string `json:"label"`
	Rooms      int    `json:"rooms"`
}

// Validate performs basic validation on the Unit.
func (u *Unit) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("unit id cannot be empty")
	}
	if strings.TrimSpace(u.PropertyID) == "" {
		return fmt.Errorf("unit must reference a property")
	}
	if strings.TrimSpace(u.Label) == "" {
		return fmt.Errorf("unit label cannot be empty")
	}
	if u.Rooms < 1 {
		return fmt.Errorf("unit must have at least one room: %d", u.Rooms)
	}
	return nil
}

// Obligation is a confirmed rent contract: the expected recurring payment
// of one tenant for one unit.
type Obligation struct {
	ID         string          `json:"id"`
	UnitID     string          `json:"unitId"`
	TenantName string          `json:"tenantName"`
	TenantIBAN string          `json:"tenantIban"`
	Expected   decimal.Decimal `json:"expected"`
	DueDay     int             `json:"dueDay"`
	Reference  string          `json:"reference,omitempty"`
	StartDate  *time.Time      `json:"startDate,omitempty"`
	EndDate    *time.Time      `json:"endDate,omitempty"`
	Deposit    decimal.Decimal `json:"deposit"`
	RoomNumber string          `json:"roomNumber,omitempty"`
}

// Validate performs basic validation on the Obligation.
func (o *Obligation) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("obligation id cannot be empty")
	}
	if strings.TrimSpace(o.UnitID) == "" {
		return fmt.Errorf("obligation must reference a unit")
	}
	if strings.TrimSpace(o.TenantName) == "" {
		return fmt.Errorf("tenant name cannot be empty")
	}
	if o.Expected.IsNegative() {
		return fmt.Errorf("expected amount cannot be negative: %s", o.Expected.String())
	}
	if o.Deposit.IsNegative() {
		return fmt.Errorf("deposit cannot be negative: %s", o.Deposit.String())
	}
	if o.DueDay < 1 || o.DueDay > 28 {
		return fmt.Errorf("due day must be between 1 and 28: %d", o.DueDay)
	}
	return nil
}

// String returns a string representation of the Obligation.
func (o *Obligation) String() string {
	return fmt.Sprintf("Obligation{ID: %s, Tenant: %s, Expected: %s, DueDay: %d}",
		o.ID, o.TenantName, o.Expected.String(), o.DueDay)
}

// Transaction is one bank transaction row. By the bank-export convention of
// this system, incoming rent payments carry a negative sign. Transactions
// are immutable once ingested.
type Transaction struct {
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Name      string          `json:"name,omitempty"`
	IBAN      string          `json:"iban,omitempty"`
	Reference string          `json:"reference,omitempty"`
}

// AbsoluteAmount returns the magnitude of the transaction amount.
func (t *Transaction) AbsoluteAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// IsIncoming reports whether the transaction is an incoming payment under
// the bank-export sign convention (incoming amounts are negative).
func (t *Transaction) IsIncoming() bool {
	return t.Amount.IsNegative()
}

// InMonth reports whether the transaction is dated within the given month.
func (t *Transaction) InMonth(year int, month time.Month) bool {
	return t.Date.Year() == year && t.Date.Month() == month
}

// String returns a string representation of the Transaction.
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{Date: %s, Amount: %s, Name: %s}",
		t.Date.Format("2006-01-02"), t.Amount.String(), t.Name)
}

// ExtractedFields is the structured field set produced by contract document
// extraction. Absent fields keep their zero values; extraction never fails.
type ExtractedFields struct {
	TenantName string          `json:"tenantName"`
	Expected   decimal.Decimal `json:"expected"`
	Deposit    decimal.Decimal `json:"deposit"`
	StartDate  *time.Time      `json:"startDate,omitempty"`
	UnitLabel  string          `json:"unitLabel"`
	RoomNumber string          `json:"roomNumber"`
	Address    string          `json:"address"`
	IBAN       string          `json:"iban"`
}

// Draft is an unconfirmed contract candidate produced by document
// extraction. It is destroyed on confirm (promoted into an Obligation) or
// reject, and never mutated in place otherwise.
type Draft struct {
	ID         string          `json:"id"`
	FileName   string          `json:"fileName"`
	TextLength int             `json:"textLength"`
	Fields     ExtractedFields `json:"fields"`
	PropertyID string          `json:"propertyId,omitempty"`
	UnitID     string          `json:"unitId,omitempty"`
}

// Resolved reports whether the draft has been mapped to an existing unit.
func (d *Draft) Resolved() bool {
	return d.UnitID != ""
}

// MatchResult is the per-obligation outcome of one reconciliation run.
// It is a view recomputed on every run, never persisted as authoritative
// state: the status is a pure function of the obligation, the month's
// transactions and the configured tolerance and grace parameters.
type MatchResult struct {
	Obligation  *Obligation  `json:"obligation"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Status      MatchStatus  `json:"status"`
	Info        string       `json:"info"`
	DueDate     time.Time    `json:"dueDate"`
}

// Matched reports whether a transaction was found for the obligation.
func (r *MatchResult) Matched() bool {
	return r.Transaction != nil
}

// Utility functions shared by parsing and extraction.

// ParseEuroAmount parses a Euro-formatted number where '.' is the thousands
// separator and ',' the decimal separator ("1.234,56"). Plain decimal input
// ("1234.56") is accepted as well when no comma is present.
func ParseEuroAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "EUR", "")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format '%s': %w", s, err)
	}
	return d, nil
}

// ParseDateWithFormats attempts to parse a date from string using the
// formats seen in German bank exports and contract documents.
func ParseDateWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		"02.01.2006",
		"2006-01-02",
		"02.01.06",
		"02/01/2006",
		"01/02/2006",
		time.RFC3339,
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// StripIBAN removes all whitespace from an IBAN for comparison.
func StripIBAN(iban string) string {
	return strings.Join(strings.Fields(iban), "")
}

// DefaultReference derives the payment reference for an obligation that has
// none configured: "<rentLabel> <property name>", or the bare rent label
// when the property is unknown.
func DefaultReference(rentLabel, propertyName string) string {
	if rentLabel == "" {
		rentLabel = "Miete"
	}
	if propertyName == "" {
		return rentLabel
	}
	return rentLabel + " " + propertyName
}
