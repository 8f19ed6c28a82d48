// Package matcher implements the payment reconciliation engine: for a
// target month, each rent obligation is classified against the bank
// transactions by amount window and identity signals (IBAN, tenant name
// overlap, reference containment).
//
// The matcher is a pure function of its inputs. It keeps no state between
// runs, and transactions are never marked consumed: one transaction may
// satisfy several obligations, which is a deliberate simplification.
package matcher

import (
	"fmt"
	"strings"
	"time"

	"rent-reconciliation-service/internal/models"
	"rent-reconciliation-service/internal/normalize"
	"rent-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// nameOverlapThreshold is the minimum token overlap between tenant name
// and transaction name or reference for a name-based match.
const nameOverlapThreshold = 0.6

// lastDueDay caps the computed due date so short months never overflow.
const lastDueDay = 28

// Entry pairs an obligation with the unit and property context needed for
// reference matching. The matcher takes these as an immutable snapshot.
type Entry struct {
	Obligation   *models.Obligation
	UnitLabel    string
	PropertyName string
}

// Matcher classifies obligations against a month's transactions.
type Matcher struct {
	config Config
	logger logger.Logger
}

// New creates a matcher with the given parameters.
func New(config Config) *Matcher {
	return &Matcher{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("payment_matcher"),
	}
}

// MatchMonth reconciles every entry against the transactions dated in the
// target month. Results are returned in entry order, one per obligation.
func (m *Matcher) MatchMonth(entries []Entry, transactions []models.Transaction, year int, month time.Month) []*models.MatchResult {
	monthTxs := filterMonth(transactions, year, month)

	results := make([]*models.MatchResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, m.match(entry, monthTxs, year, month))
	}

	m.logger.WithFields(logger.Fields{
		"month":        fmt.Sprintf("%04d-%02d", year, int(month)),
		"obligations":  len(entries),
		"transactions": len(monthTxs),
	}).Info("Reconciliation run complete")
	return results
}

// match classifies one obligation. The first transaction in list order
// that passes the amount window and any identity signal wins; there is no
// scoring across candidates, so a later transaction closer to the expected
// amount never displaces an earlier qualifying one.
func (m *Matcher) match(entry Entry, monthTxs []models.Transaction, year int, month time.Month) *models.MatchResult {
	obligation := entry.Obligation
	result := &models.MatchResult{
		Obligation: obligation,
		Status:     models.StatusMissing,
		Info:       "no payment found",
		DueDate:    DueDate(year, month, obligation.DueDay, m.config.GraceDays),
	}

	lo := obligation.Expected.Sub(m.config.Tolerance)
	hi := obligation.Expected.Add(m.config.Tolerance)

	for i := range monthTxs {
		tx := &monthTxs[i]
		if !tx.IsIncoming() {
			continue
		}
		amount := tx.AbsoluteAmount()
		if amount.LessThan(lo) || amount.GreaterThan(hi) {
			continue
		}
		if !m.signalMatch(entry, tx) {
			continue
		}

		candidate := *tx
		result.Transaction = &candidate
		result.Status = Classify(obligation.Expected, amount, m.config.Tolerance)
		result.Info = describe(result.Status, &candidate, amount, obligation)
		break
	}

	return result
}

// signalMatch reports whether the transaction carries any identity signal
// tying it to the obligation: IBAN equality, tenant name token overlap, or
// the reference containing the unit label, property name or room number.
func (m *Matcher) signalMatch(entry Entry, tx *models.Transaction) bool {
	obligation := entry.Obligation

	if obligation.TenantIBAN != "" && tx.IBAN != "" &&
		models.StripIBAN(obligation.TenantIBAN) == models.StripIBAN(tx.IBAN) {
		return true
	}

	if normalize.TokenOverlap(obligation.TenantName, tx.Name) >= nameOverlapThreshold ||
		normalize.TokenOverlap(obligation.TenantName, tx.Reference) >= nameOverlapThreshold {
		return true
	}

	reference := normalize.Normalize(tx.Reference)
	if reference == "" {
		return false
	}
	for _, needle := range []string{entry.UnitLabel, entry.PropertyName, obligation.RoomNumber} {
		if n := normalize.Normalize(needle); n != "" && strings.Contains(reference, n) {
			return true
		}
	}
	return false
}

// Classify maps a candidate payment amount onto a match status: within
// tolerance of the expected rent is ok, below is a partial payment, above
// an overpayment.
func Classify(expected, amount, tolerance decimal.Decimal) models.MatchStatus {
	diff := amount.Sub(expected).Abs()
	switch {
	case diff.LessThanOrEqual(tolerance):
		return models.StatusOK
	case amount.LessThan(expected):
		return models.StatusPartial
	default:
		return models.StatusOver
	}
}

// DueDate computes the payment deadline in the target month: the due day
// plus the grace period, capped at day 28 so every month has the date.
func DueDate(year int, month time.Month, dueDay, graceDays int) time.Time {
	day := dueDay + graceDays
	if day > lastDueDay {
		day = lastDueDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func describe(status models.MatchStatus, tx *models.Transaction, amount decimal.Decimal, obligation *models.Obligation) string {
	switch status {
	case models.StatusOK:
		return fmt.Sprintf("paid on %s (%s €)", tx.Date.Format("02.01.2006"), amount.StringFixed(2))
	case models.StatusPartial:
		return fmt.Sprintf("partial payment %s € (expected %s €)", amount.StringFixed(2), obligation.Expected.StringFixed(2))
	case models.StatusOver:
		return fmt.Sprintf("overpayment %s € (expected %s €)", amount.StringFixed(2), obligation.Expected.StringFixed(2))
	default:
		return "no payment found"
	}
}

func filterMonth(transactions []models.Transaction, year int, month time.Month) []models.Transaction {
	var out []models.Transaction
	for _, tx := range transactions {
		if tx.InMonth(year, month) {
			out = append(out, tx)
		}
	}
	return out
}
