package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

type match struct {
	counterpart domain.TransactionKey
	tier        string
}

// Pairing is the outcome of a Resolver pass: every committed match, in both directions
type Pairing struct {
	matches map[domain.TransactionKey]match
	pairs   []domain.Pair
}

func newPairing() *Pairing {
	return &Pairing{matches: make(map[domain.TransactionKey]match)}
}

// MatchOf returns the counterpart committed for key
func (p *Pairing) MatchOf(key domain.TransactionKey) (domain.TransactionKey, bool) {
	if p == nil {
		return domain.TransactionKey{}, false
	}
	m, ok := p.matches[key]
	return m.counterpart, ok
}

// Pairs returns each physical transfer once, in discovery order
func (p *Pairing) Pairs() []domain.Pair {
	if p == nil {
		return nil
	}
	return p.pairs
}

func (p *Pairing) commit(origin, counterpart domain.TransactionKey, tier string) {
	p.matches[origin] = match{counterpart: counterpart, tier: tier}
	p.matches[counterpart] = match{counterpart: origin, tier: tier}
	p.pairs = append(p.pairs, domain.Pair{Origin: origin, Counterpart: counterpart, Tier: tier})
}

// Resolver walks an Index in order and commits transfer pairs
type Resolver struct {
	index         *Index
	finder        *CandidateFinder
	disambiguator domain.Disambiguator
	logger        *slog.Logger
}

// NewResolver creates a Resolver. A nil disambiguator declines every ambiguous match.
func NewResolver(index *Index, finder *CandidateFinder, disambiguator domain.Disambiguator, logger *slog.Logger) *Resolver {
	if finder == nil {
		finder = NewCandidateFinder(index)
	}
	if disambiguator == nil {
		disambiguator = DeclineAmbiguous{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		index:         index,
		finder:        finder,
		disambiguator: disambiguator,
		logger:        logger,
	}
}

// Resolve pairs transactions account by account in index order.
// A transaction already claimed by an earlier pairing is skipped, and already
// claimed transactions are never offered as candidates. A declined ambiguity
// settles its origin and every offered candidate as unmatched.
func (r *Resolver) Resolve(ctx context.Context) (*Pairing, error) {
	pairing := newPairing()
	paired := make(map[domain.TransactionKey]bool)
	declined := make(map[domain.TransactionKey]bool)
	settled := func(key domain.TransactionKey) bool { return paired[key] || declined[key] }

	r.logger.Info("Resolving transfers",
		"accounts", len(r.index.Accounts()),
		"transactions", r.index.Len())

	for _, account := range r.index.Accounts() {
		for _, txn := range r.index.TransactionsOf(account.ID) {
			origin := domain.Leg{Account: account, Transaction: txn}
			key := origin.Key()

			if settled(key) {
				continue
			}

			candidates, tier, err := r.finder.Find(origin, settled)
			if errors.Is(err, domain.ErrInsufficientData) {
				r.logger.Warn("Transaction lacks value or value-date, not matchable",
					"account", account.ID,
					"transaction", txn.ID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("finding candidates for %s: %w", key, err)
			}

			var chosen domain.Leg
			switch len(candidates) {
			case 0:
				continue

			case 1:
				chosen = candidates[0]

			default:
				r.logger.Debug("Ambiguous transfer",
					"transaction", key.String(),
					"tier", tier.Name,
					"candidates", len(candidates))

				choice, ok, err := r.disambiguator.Resolve(ctx, origin, candidates)
				if err != nil {
					return nil, fmt.Errorf("disambiguating %s: %w", key, err)
				}
				if !ok {
					declined[key] = true
					for _, candidate := range candidates {
						declined[candidate.Key()] = true
					}
					r.logger.Warn("Ambiguous transfer left unmatched",
						"transaction", key.String(),
						"candidates", len(candidates))
					continue
				}

				if !containsLeg(candidates, choice) {
					return nil, &domain.StructuralViolationError{
						Key:    key,
						Reason: fmt.Sprintf("selected counterpart %s was not among the candidates", choice.Key()),
					}
				}
				chosen = choice
			}

			pairing.commit(key, chosen.Key(), tier.Name)
			paired[key] = true
			paired[chosen.Key()] = true

			r.logger.Debug("Paired transfer",
				"origin", key.String(),
				"counterpart", chosen.Key().String(),
				"tier", tier.Name)
		}
	}

	return pairing, nil
}

func containsLeg(legs []domain.Leg, leg domain.Leg) bool {
	for _, l := range legs {
		if l.Key() == leg.Key() {
			return true
		}
	}
	return false
}
