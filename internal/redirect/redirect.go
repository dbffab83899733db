// Package redirect implements redirect resolution as a small state machine:
// Loading transitions to exactly one of Redirecting, Expired, NotFound or
// Error; Redirecting runs a cancelable countdown that ends in a navigation
// side effect.
package redirect

import (
	"context"
	"time"

	"github.com/shortspan/shortspan/internal/alias"
	"github.com/shortspan/shortspan/internal/cache"
	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/model"
)

// Status is a state of the redirect state machine. All states other than
// Loading are terminal; only Redirecting has internal progress (the
// countdown).
type Status string

const (
	StatusLoading     Status = "loading"
	StatusRedirecting Status = "redirecting"
	StatusExpired     Status = "expired"
	StatusNotFound    Status = "not-found"
	StatusError       Status = "error"
)

// Outcome is the result of classifying a short code at a point in time.
// URL is set for Redirecting (the live record) and Expired (the stale
// record, so callers can still show the old destination).
type Outcome struct {
	Status Status
	URL    *model.ShortenedURL
}

// AliasCache is the optional resolve cache consulted before the store.
type AliasCache interface {
	Get(ctx context.Context, code string) (*model.ShortenedURL, error)
	Set(ctx context.Context, u *model.ShortenedURL) error
	Delete(ctx context.Context, code string) error
}

var _ AliasCache = (*cache.AliasCache)(nil)

// Resolver classifies short codes. The cache is optional; when present it
// short-circuits the store lookup for hot codes.
type Resolver struct {
	engine *alias.Engine
	cache  AliasCache
	log    *logger.Logger
	now    func() time.Time
}

func NewResolver(engine *alias.Engine, aliasCache AliasCache, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{
		engine: engine,
		cache:  aliasCache,
		log:    log.Component("redirect"),
		now:    time.Now,
	}
}

// Lookup resolves a code and classifies its expiry. It never returns an
// error; resolution failures map to the terminal Error status.
func (r *Resolver) Lookup(ctx context.Context, code string) Outcome {
	record, err := r.fetch(ctx, code)
	if err == alias.ErrNotFound {
		return Outcome{Status: StatusNotFound}
	}
	if err != nil {
		r.log.Error("resolution failed", "code", code, "error", err.Error())
		return Outcome{Status: StatusError}
	}

	if alias.ClassifyExpiry(record, r.now()) == alias.Expired {
		// An expired record has no business staying hot.
		if r.cache != nil {
			if err := r.cache.Delete(ctx, record.ShortCode); err != nil {
				r.log.Warn("cache invalidation failed", "code", code, "error", err.Error())
			}
		}
		return Outcome{Status: StatusExpired, URL: record}
	}
	return Outcome{Status: StatusRedirecting, URL: record}
}

func (r *Resolver) fetch(ctx context.Context, code string) (*model.ShortenedURL, error) {
	if r.cache != nil {
		if u, err := r.cache.Get(ctx, code); err == nil {
			return u, nil
		} else if err != cache.ErrCacheMiss {
			r.log.Warn("cache lookup failed", "code", code, "error", err.Error())
		}
	}

	record, err := r.engine.ResolveAlias(code)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, record); err != nil {
			r.log.Warn("cache store failed", "code", code, "error", err.Error())
		}
	}
	return record, nil
}
