// Package prompt asks the operator to settle ambiguous matches on a terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
	"golang.org/x/term"
)

// Prompt is an interactive domain.Disambiguator. It lists the candidates and reads
// a choice; 0 declines. End of input declines every remaining choice.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
	eof bool
}

var _ domain.Disambiguator = (*Prompt)(nil)

// New creates a prompt reading answers from in and writing questions to out
func New(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// IsInteractive reports whether f is attached to a terminal
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Resolve implements domain.Disambiguator
func (p *Prompt) Resolve(ctx context.Context, origin domain.Leg, candidates []domain.Leg) (domain.Leg, bool, error) {
	if len(candidates) == 0 || p.eof {
		return domain.Leg{}, false, nil
	}

	fmt.Fprintln(p.out, "\nMultiple matches found for transaction:")
	describe(p.out, "  ", origin)

	fmt.Fprintln(p.out, "\nPossible matches:")
	for i, candidate := range candidates {
		fmt.Fprintf(p.out, "  %d.\n", i+1)
		describe(p.out, "     ", candidate)
	}
	fmt.Fprintln(p.out, "  0. No match (skip this transaction)")

	for {
		if err := ctx.Err(); err != nil {
			return domain.Leg{}, false, err
		}

		fmt.Fprintf(p.out, "Choose a match (0-%d): ", len(candidates))

		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return domain.Leg{}, false, fmt.Errorf("reading choice: %w", err)
		}
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
			p.eof = true
			fmt.Fprintln(p.out)
			return domain.Leg{}, false, nil
		}

		choice, selErr := parseChoice(line, len(candidates))
		switch {
		case selErr != nil:
			fmt.Fprintln(p.out, selErr)
		case choice == 0:
			return domain.Leg{}, false, nil
		default:
			return candidates[choice-1], true, nil
		}

		if errors.Is(err, io.EOF) {
			p.eof = true
			return domain.Leg{}, false, nil
		}
	}
}

// parseChoice validates an answer against n candidates; 0 declines
func parseChoice(line string, n int) (int, error) {
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: Please enter a valid number", domain.ErrInvalidSelection)
	}
	if choice < 0 || choice > n {
		return 0, fmt.Errorf("%w: Please enter a number between 0 and %d", domain.ErrInvalidSelection, n)
	}
	return choice, nil
}

func describe(w io.Writer, indent string, leg domain.Leg) {
	txn := leg.Transaction

	account := leg.Account.Name
	if leg.Account.HasNumber() {
		account += " (" + leg.Account.Number + ")"
	}
	fmt.Fprintf(w, "%sAccount: %s\n", indent, strings.TrimSpace(account))

	if txn.Value.Valid {
		fmt.Fprintf(w, "%sAmount: %s %s\n", indent, txn.Value.Decimal.StringFixed(2), leg.Account.Currency)
	}
	fmt.Fprintf(w, "%sDate: %s\n", indent, txn.Date.Format("2006-01-02"))
	if txn.ValueDate != nil {
		fmt.Fprintf(w, "%sValue date: %s\n", indent, txn.ValueDate.Format("2006-01-02"))
	}
	if txn.Description != "" {
		fmt.Fprintf(w, "%sWording: %s\n", indent, txn.Description)
	}
	if id := txn.CounterpartyIdentifier(); id != "" {
		fmt.Fprintf(w, "%sCounterparty: %s\n", indent, id)
	}
}
