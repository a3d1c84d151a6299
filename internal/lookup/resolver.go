package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/vincheck-api/internal/chain"
	"github.com/jmylchreest/vincheck-api/internal/models"
)

// Resolver is the source resolution chain: dedicated providers in priority
// order, then the search fallback.
type Resolver struct {
	providers []Strategy
	fallback  Strategy
	logger    *slog.Logger
}

// NewResolver creates a resolver. fallback may be nil, in which case only the
// dedicated providers are tried.
func NewResolver(providers []Strategy, fallback Strategy, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{providers: providers, fallback: fallback, logger: logger}
}

// Strategies returns the full ordered strategy list.
func (r *Resolver) Strategies() []Strategy {
	out := make([]Strategy, 0, len(r.providers)+1)
	out = append(out, r.providers...)
	if r.fallback != nil {
		out = append(out, r.fallback)
	}
	return out
}

// Resolve normalizes raw input and runs the chain. It returns
// ErrIdentifierNotFound without any upstream call when no key can be derived,
// and an error wrapping ErrAllSourcesExhausted when every strategy missed.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*models.VehicleRecord, error) {
	key, err := NormalizeIdentifier(raw)
	if err != nil {
		return nil, err
	}
	return r.ResolveKey(ctx, key)
}

// ResolveKey runs the chain for an already normalized key.
func (r *Resolver) ResolveKey(ctx context.Context, key models.LookupKey) (*models.VehicleRecord, error) {
	logger := r.logger.With("key", key.String(), "key_kind", key.Kind())

	res, err := chain.Run(ctx, key, r.Strategies(), chain.Options{
		Label:  "lookup",
		Logger: logger,
	})
	if err != nil {
		var exhausted *chain.ExhaustedError
		if errors.As(err, &exhausted) {
			logger.Warn("all lookup sources exhausted", "misses", len(exhausted.Misses))
			return nil, fmt.Errorf("%w: %w", ErrAllSourcesExhausted, exhausted)
		}
		if errors.Is(err, chain.ErrNoStrategies) {
			return nil, fmt.Errorf("%w: %w", ErrAllSourcesExhausted, err)
		}
		return nil, err
	}

	logger.Info("vehicle record resolved",
		"source", res.Winner,
		"images", len(res.Value.Images),
		"skipped", len(res.Misses),
	)
	return res.Value, nil
}
