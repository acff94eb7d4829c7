package report_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tirasundara/transfer-reconciler/internal/domain"
	"github.com/tirasundara/transfer-reconciler/internal/report"
)

func sampleResult() *domain.ReconciliationResult {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	value := func(s string) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.RequireFromString(s))
	}

	out := domain.Transaction{ID: "t1", AccountID: "a", Value: value("-100"), ValueDate: &day, Date: day, Type: domain.TypeTransfer}
	in := domain.Transaction{ID: "t2", AccountID: "b", Value: value("100"), ValueDate: &day, Date: day, Type: domain.TypeTransfer}
	card := domain.Transaction{ID: "t3", AccountID: "a", Date: day, Type: domain.TypeCard, Description: "Pending"}

	result := domain.NewReconciliationResult("run-1")
	inKey, outKey := in.Key(), out.Key()
	result.Add(domain.Entry{Key: outKey, Transaction: out, Classification: domain.MatchedTransfer, Counterpart: &inKey, Tier: "identifier-date"})
	result.Add(domain.Entry{Key: inKey, Transaction: in, Classification: domain.MatchedTransfer, Counterpart: &outKey, Tier: "identifier-date"})
	result.Add(domain.Entry{Key: card.Key(), Transaction: card, Classification: domain.InsufficientData})
	result.AddPair(domain.Pair{Origin: outKey, Counterpart: inKey, Tier: "identifier-date"})

	return result
}

func TestJSONFormatter(t *testing.T) {
	formatter := report.NewJSONFormatter(false)

	data, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var doc struct {
		RunID   string `json:"run_id"`
		Summary struct {
			MatchedTransfers int    `json:"matched_transfers"`
			InsufficientData int    `json:"insufficient_data"`
			TotalTransferred string `json:"total_transferred"`
		} `json:"summary"`
		Entries []map[string]any `json:"entries"`
		Pairs   []map[string]any `json:"pairs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if doc.RunID != "run-1" {
		t.Errorf("Expected run id run-1, got %s", doc.RunID)
	}
	if doc.Summary.MatchedTransfers != 2 || doc.Summary.InsufficientData != 1 {
		t.Errorf("Unexpected summary %+v", doc.Summary)
	}
	if doc.Summary.TotalTransferred != "100" {
		t.Errorf("Expected 100 transferred, got %s", doc.Summary.TotalTransferred)
	}
	if len(doc.Entries) != 3 || len(doc.Pairs) != 1 {
		t.Fatalf("Expected 3 entries and 1 pair, got %d and %d", len(doc.Entries), len(doc.Pairs))
	}

	if doc.Entries[0]["value"] != "-100" || doc.Entries[0]["type"] != "transfer" {
		t.Errorf("Unexpected first entry %v", doc.Entries[0])
	}
	// Absent value is omitted, not zero
	if _, ok := doc.Entries[2]["value"]; ok {
		t.Errorf("Expected no value on the insufficient-data entry, got %v", doc.Entries[2]["value"])
	}

	if formatter.FileExtension() != "json" {
		t.Errorf("Expected json extension, got %s", formatter.FileExtension())
	}
}

func TestJSONFormatter_Pretty(t *testing.T) {
	data, err := report.NewJSONFormatter(true).Format(sampleResult())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"run_id\"") {
		t.Errorf("Expected indented output, got %s", data[:40])
	}
}

func TestTextFormatter(t *testing.T) {
	data, err := report.NewTextFormatter().Format(sampleResult())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	text := string(data)
	for _, want := range []string{
		"Reconciliation run run-1",
		"ACCOUNT",
		"matched-transfer",
		"b-t2",
		"insufficient-data",
		"Matched transfers:  2 (1 pairs, 100.00 moved)",
		"Insufficient data:  1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q\n%s", want, text)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, err := report.NewFormatter("text", false); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := report.NewFormatter("xml", false); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}
