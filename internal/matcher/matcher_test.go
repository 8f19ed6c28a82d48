package matcher

import (
	"testing"
	"time"

	"rent-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testEntry() Entry {
	return Entry{
		Obligation: &models.Obligation{
			ID:         "obl-1",
			UnitID:     "unit-1",
			TenantName: "Max Mustermann",
			TenantIBAN: "DE89 3704 0044 0532 0130 00",
			Expected:   amount("950.00"),
			DueDay:     3,
			RoomNumber: "5",
		},
		UnitLabel:    "Zimmer 5",
		PropertyName: "Musterstraße 12",
	}
}

func tx(day int, amt, name, iban, reference string) models.Transaction {
	return models.Transaction{
		Date:      time.Date(2025, time.August, day, 0, 0, 0, 0, time.UTC),
		Amount:    amount(amt),
		Name:      name,
		IBAN:      iban,
		Reference: reference,
	}
}

func TestClassify(t *testing.T) {
	tolerance := amount("2")
	expected := amount("950.00")

	tests := []struct {
		amt  string
		want models.MatchStatus
	}{
		{"950", models.StatusOK},
		{"948.50", models.StatusOK},
		{"952", models.StatusOK},
		{"940", models.StatusPartial},
		{"960", models.StatusOver},
	}
	for _, tt := range tests {
		if got := Classify(expected, amount(tt.amt), tolerance); got != tt.want {
			t.Errorf("Classify(%s) = %s, want %s", tt.amt, got, tt.want)
		}
	}
}

func TestMatchStatusByAmount(t *testing.T) {
	tests := []struct {
		name       string
		txs        []models.Transaction
		wantStatus models.MatchStatus
		wantTx     bool
	}{
		{
			name:       "exact amount with IBAN",
			txs:        []models.Transaction{tx(3, "-950.00", "MUSTERMANN, MAX", "DE89370400440532013000", "")},
			wantStatus: models.StatusOK,
			wantTx:     true,
		},
		{
			name:       "amount at lower window edge",
			txs:        []models.Transaction{tx(3, "-948.00", "Max Mustermann", "", "")},
			wantStatus: models.StatusOK,
			wantTx:     true,
		},
		{
			name:       "amount outside window",
			txs:        []models.Transaction{tx(3, "-940.00", "Max Mustermann", "", "")},
			wantStatus: models.StatusMissing,
		},
		{
			name:       "right amount, no identity signal",
			txs:        []models.Transaction{tx(3, "-950.00", "Unrelated Gmbh", "", "office supplies")},
			wantStatus: models.StatusMissing,
		},
		{
			name:       "outgoing amount ignored",
			txs:        []models.Transaction{tx(3, "950.00", "Max Mustermann", "", "")},
			wantStatus: models.StatusMissing,
		},
		{
			name:       "wrong month filtered out",
			txs:        []models.Transaction{{Date: time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC), Amount: amount("-950.00"), Name: "Max Mustermann"}},
			wantStatus: models.StatusMissing,
		},
		{
			name:       "no transactions",
			txs:        nil,
			wantStatus: models.StatusMissing,
		},
	}

	m := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := m.MatchMonth([]Entry{testEntry()}, tt.txs, 2025, time.August)
			if len(results) != 1 {
				t.Fatalf("len(results) = %d", len(results))
			}
			r := results[0]
			if r.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s (info: %s)", r.Status, tt.wantStatus, r.Info)
			}
			if r.Matched() != tt.wantTx {
				t.Errorf("Matched() = %v, want %v", r.Matched(), tt.wantTx)
			}
		})
	}
}

func TestMatchFirstQualifyingWins(t *testing.T) {
	// The second transaction is numerically closer to the expected 950,
	// but the first qualifying one in list order must be chosen.
	txs := []models.Transaction{
		tx(2, "-948.00", "Max Mustermann", "", ""),
		tx(3, "-950.00", "Max Mustermann", "", ""),
	}

	m := New(DefaultConfig())
	results := m.MatchMonth([]Entry{testEntry()}, txs, 2025, time.August)

	r := results[0]
	if !r.Matched() {
		t.Fatal("no transaction matched")
	}
	if !r.Transaction.AbsoluteAmount().Equal(amount("948.00")) {
		t.Errorf("matched amount = %s, want first-listed 948.00", r.Transaction.AbsoluteAmount())
	}
}

func TestMatchIdentitySignals(t *testing.T) {
	tests := []struct {
		name string
		tx   models.Transaction
		want bool
	}{
		{
			name: "iban with different whitespace",
			tx:   tx(3, "-950.00", "", "DE89 3704 0044 0532 0130 00", ""),
			want: true,
		},
		{
			name: "tenant name overlap in tx name",
			tx:   tx(3, "-950.00", "Mustermann Max", "", ""),
			want: true,
		},
		{
			name: "tenant name overlap in reference",
			tx:   tx(3, "-950.00", "", "", "Miete Max Mustermann"),
			want: true,
		},
		{
			name: "unit label in reference",
			tx:   tx(3, "-950.00", "", "", "Miete Zimmer 5"),
			want: true,
		},
		{
			name: "property name in reference",
			tx:   tx(3, "-950.00", "", "", "Miete Musterstraße 12 August"),
			want: true,
		},
		{
			name: "no signal at all",
			tx:   tx(3, "-950.00", "Somebody Else", "", "Strom Abschlag"),
			want: false,
		},
	}

	m := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := m.MatchMonth([]Entry{testEntry()}, []models.Transaction{tt.tx}, 2025, time.August)
			if got := results[0].Matched(); got != tt.want {
				t.Errorf("Matched() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchTransactionsNotConsumed(t *testing.T) {
	// Two obligations with the same tenant: the single transaction may
	// satisfy both, transactions are not marked consumed.
	first := testEntry()
	second := testEntry()
	second.Obligation = &models.Obligation{
		ID:         "obl-2",
		UnitID:     "unit-2",
		TenantName: "Max Mustermann",
		Expected:   amount("950.00"),
		DueDay:     3,
	}

	txs := []models.Transaction{tx(3, "-950.00", "Max Mustermann", "", "")}

	m := New(DefaultConfig())
	results := m.MatchMonth([]Entry{first, second}, txs, 2025, time.August)

	if !results[0].Matched() || !results[1].Matched() {
		t.Errorf("both obligations should match the same transaction: %v / %v",
			results[0].Matched(), results[1].Matched())
	}
}

func TestDueDate(t *testing.T) {
	tests := []struct {
		dueDay, graceDays int
		wantDay           int
	}{
		{3, 3, 6},
		{1, 0, 1},
		{27, 3, 28},
		{28, 5, 28},
	}
	for _, tt := range tests {
		got := DueDate(2025, time.February, tt.dueDay, tt.graceDays)
		if got.Day() != tt.wantDay {
			t.Errorf("DueDate(dueDay=%d, grace=%d) day = %d, want %d",
				tt.dueDay, tt.graceDays, got.Day(), tt.wantDay)
		}
	}
}

func TestBuildReport(t *testing.T) {
	entry := testEntry()
	results := []*models.MatchResult{
		{Obligation: entry.Obligation, Status: models.StatusOK,
			Transaction: &models.Transaction{Amount: amount("-950.00")}},
		{Obligation: &models.Obligation{Expected: amount("800.00")}, Status: models.StatusMissing},
	}

	report := BuildReport(2025, time.August, results)

	if report.OKCount != 1 || report.MissingCount != 1 {
		t.Errorf("counts = ok:%d missing:%d", report.OKCount, report.MissingCount)
	}
	if !report.TotalExpected.Equal(amount("1750.00")) {
		t.Errorf("TotalExpected = %s", report.TotalExpected)
	}
	if !report.TotalReceived.Equal(amount("950.00")) {
		t.Errorf("TotalReceived = %s", report.TotalReceived)
	}
	if !report.Outstanding().Equal(amount("800.00")) {
		t.Errorf("Outstanding() = %s", report.Outstanding())
	}
	if open := report.Open(); len(open) != 1 || open[0].Status != models.StatusMissing {
		t.Errorf("Open() = %+v", open)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v for default config", err)
	}

	negative := DefaultConfig()
	negative.Tolerance = amount("-1")
	if err := negative.Validate(); err == nil {
		t.Error("Validate() accepted a negative tolerance")
	}

	badGrace := DefaultConfig()
	badGrace.GraceDays = -1
	if err := badGrace.Validate(); err == nil {
		t.Error("Validate() accepted negative grace days")
	}
}
