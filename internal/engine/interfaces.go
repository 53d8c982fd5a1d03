package engine

import (
	"context"

	"github.com/Veraticus/txmatch/internal/model"
)

// Matcher is a single matching pass. Implementations mutate the match state
// of the transactions they are given and must not retain them between calls.
type Matcher interface {
	Name() string
	Process(ctx context.Context, transactions []*model.Transaction) error
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc struct {
	Fn    func(ctx context.Context, transactions []*model.Transaction) error
	Label string
}

// Name returns the label.
func (f MatcherFunc) Name() string { return f.Label }

// Process calls Fn.
func (f MatcherFunc) Process(ctx context.Context, transactions []*model.Transaction) error {
	return f.Fn(ctx, transactions)
}
