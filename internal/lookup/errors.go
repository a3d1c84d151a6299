// Package lookup resolves a vehicle identifier into a VehicleRecord by
// running dedicated provider strategies in order, then a filtered general
// search as the last resort.
package lookup

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jmylchreest/vincheck-api/internal/chain"
	"github.com/jmylchreest/vincheck-api/internal/models"
)

var (
	// ErrIdentifierNotFound means no lookup key could be derived from input.
	ErrIdentifierNotFound = errors.New("identifier not found")

	// ErrAllSourcesExhausted means every strategy, including search, missed.
	ErrAllSourcesExhausted = errors.New("not found in any source")
)

// Miss kinds recorded by provider strategies.
const (
	MissBlocked  = "blocked"
	MissNotFound = "not_found"
	MissError    = "error"
)

// Outcome is the result of one lookup strategy attempt.
type Outcome = chain.Outcome[*models.VehicleRecord]

// Strategy is one ranked way of resolving a key into a record.
type Strategy = chain.Strategy[models.LookupKey, *models.VehicleRecord]

func hit(r *models.VehicleRecord) Outcome { return chain.Hit(r) }

func miss(kind, reason string) Outcome {
	return chain.Miss[*models.VehicleRecord](kind, reason)
}

// FetchError describes a failed upstream fetch.
type FetchError struct {
	URL        string
	StatusCode int
	// Blocked is set when the upstream rejected the client (403/429 or a
	// challenge page) rather than answering.
	Blocked bool
	Signal  string
	Err     error
}

func (e *FetchError) Error() string {
	switch {
	case e.Blocked:
		return fmt.Sprintf("blocked fetching %s (status %d, %s): %v", e.URL, e.StatusCode, e.Signal, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetching %s: status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// missFromFetchError converts a fetch failure into a typed miss.
func missFromFetchError(err error) Outcome {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return miss(MissError, err.Error())
	}
	switch {
	case fe.Blocked:
		return miss(MissBlocked, fe.Error())
	case fe.StatusCode == http.StatusNotFound || fe.StatusCode == http.StatusGone:
		return miss(MissNotFound, fe.Error())
	default:
		return miss(MissError, fe.Error())
	}
}
