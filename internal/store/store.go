// Package store defines the persistence contract for alias and click
// collections. Both collections are owned by the store; all mutation goes
// through Append/Update operations, never through mutation of loaded copies.
package store

import (
	"errors"
	"time"

	"github.com/shortspan/shortspan/internal/model"
)

// ErrNotFound is returned when an operation targets a short code that has
// no record in the alias collection.
var ErrNotFound = errors.New("alias not found")

// Store abstracts the local persistence layer. Each call is a single
// synchronous read-modify-write against the full persisted collection;
// there is no cross-call transaction, so two writers racing across calls
// resolve last-writer-wins.
type Store interface {
	// LoadAliases returns the full alias collection in insertion order.
	LoadAliases() ([]model.ShortenedURL, error)

	// AppendAliases appends records to the alias collection in one write.
	AppendAliases(urls []model.ShortenedURL) error

	// UpdateAliasByCode applies mutate to the record whose short code
	// matches code case-insensitively, then persists the collection.
	// Returns ErrNotFound when no record matches.
	UpdateAliasByCode(code string, mutate func(*model.ShortenedURL)) error

	// LoadClicks returns the full click collection in insertion order.
	LoadClicks() ([]model.ClickData, error)

	// AppendClick appends one click record.
	AppendClick(click model.ClickData) error

	// PruneExpiredAliases removes alias records whose expiry has passed
	// and returns how many were removed. Click records are not cascaded.
	PruneExpiredAliases(now time.Time) (int, error)

	// Close releases any underlying resources.
	Close() error
}
