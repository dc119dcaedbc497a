package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Chain scores with the first backend that succeeds. A hosted classifier
// followed by the lexicon keeps scoring alive while the endpoint is down.
type Chain struct {
	scorers []Scorer
	log     *zap.Logger
}

// NewChain builds a chain over scorers, tried in the given order.
func NewChain(log *zap.Logger, scorers ...Scorer) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{scorers: scorers, log: log}
}

// Name returns the chain's backend names joined by " > ".
func (c *Chain) Name() string {
	names := make([]string, len(c.scorers))
	for i, s := range c.scorers {
		names[i] = s.Name()
	}
	return strings.Join(names, " > ")
}

// Score implements Scorer.
func (c *Chain) Score(ctx context.Context, text string) (Result, error) {
	var errs []error
	for _, s := range c.scorers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := s.Score(ctx, text)
		if err == nil {
			return res, nil
		}
		c.log.Warn("sentiment backend failed", zap.String("backend", s.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return Result{}, fmt.Errorf("all sentiment backends failed: %w", errors.Join(errs...))
}
