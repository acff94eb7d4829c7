package report

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// TextFormatter renders a result as an aligned table followed by a summary
type TextFormatter struct{}

func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format implements the OutputFormatter interface for plain text
func (f *TextFormatter) Format(result *domain.ReconciliationResult) ([]byte, error) {
	doc := NewDocument(result)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Reconciliation run %s\n\n", doc.RunID)

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tTRANSACTION\tDATE\tVALUE DATE\tVALUE\tTYPE\tCLASSIFICATION\tCOUNTERPART\tTIER")
	for _, e := range doc.Entries {
		value := "-"
		if e.Value != nil {
			value = *e.Value
		}

		counterpart := "-"
		if e.Counterpart != nil {
			counterpart = e.Counterpart.String()
		}

		classification := string(e.Classification)
		if e.UnpairedTransfer {
			classification += " (unpaired transfer)"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.AccountID, e.TransactionID, e.Date, orDash(e.ValueDate), value,
			e.Type, classification, counterpart, orDash(e.Tier))
	}
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("writing table: %w", err)
	}

	s := doc.Summary
	fmt.Fprintf(&buf, "\nProcessed:          %d\n", s.TotalTxnsProcessed)
	fmt.Fprintf(&buf, "Matched transfers:  %d (%d pairs, %s moved)\n", s.MatchedTransfers, s.Pairs, s.TotalTransferred.StringFixed(2))
	fmt.Fprintf(&buf, "Unmatched credits:  %d\n", s.UnmatchedCredits)
	fmt.Fprintf(&buf, "Unmatched debits:   %d\n", s.UnmatchedDebits)
	fmt.Fprintf(&buf, "Insufficient data:  %d\n", s.InsufficientData)

	return buf.Bytes(), nil
}

func (f *TextFormatter) FileExtension() string {
	return "txt"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
