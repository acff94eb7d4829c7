package matcher

import (
	"context"

	"github.com/tirasundara/transfer-reconciler/internal/domain"
)

// DeclineAmbiguous leaves every ambiguous transaction unmatched
type DeclineAmbiguous struct{}

// Resolve implements domain.Disambiguator
func (DeclineAmbiguous) Resolve(_ context.Context, _ domain.Leg, _ []domain.Leg) (domain.Leg, bool, error) {
	return domain.Leg{}, false, nil
}

// FirstCandidate picks the first candidate in index order
type FirstCandidate struct{}

// Resolve implements domain.Disambiguator
func (FirstCandidate) Resolve(_ context.Context, _ domain.Leg, candidates []domain.Leg) (domain.Leg, bool, error) {
	if len(candidates) == 0 {
		return domain.Leg{}, false, nil
	}
	return candidates[0], true, nil
}

// DisambiguatorFunc adapts a function to domain.Disambiguator
type DisambiguatorFunc func(ctx context.Context, origin domain.Leg, candidates []domain.Leg) (domain.Leg, bool, error)

// Resolve implements domain.Disambiguator
func (f DisambiguatorFunc) Resolve(ctx context.Context, origin domain.Leg, candidates []domain.Leg) (domain.Leg, bool, error) {
	return f(ctx, origin, candidates)
}
