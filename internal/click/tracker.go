// Package click captures redirect events: each successful redirect against
// an active alias appends one enriched click record and bumps the alias's
// click counter.
package click

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shortspan/shortspan/internal/geo"
	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/model"
	"github.com/shortspan/shortspan/internal/store"
)

// DirectSource labels clicks that arrived without a referrer.
const DirectSource = "Direct"

// Tracker records clicks against aliases.
type Tracker struct {
	store store.Store
	geo   geo.Resolver
	log   *logger.Logger
	now   func() time.Time
}

func NewTracker(st store.Store, resolver geo.Resolver, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Discard()
	}
	return &Tracker{
		store: st,
		geo:   resolver,
		log:   log.Component("click"),
		now:   time.Now,
	}
}

// TrackClick enriches and appends a click record for the alias, then
// increments the alias's click counter. The two writes are separate store
// operations with no rollback; the increment runs after the append has been
// attempted, whether or not it succeeded. Geolocation cannot fail outward,
// so a resolver problem never blocks the record.
func (t *Tracker) TrackClick(ctx context.Context, alias *model.ShortenedURL, referrer, userAgent string) (model.ClickData, error) {
	loc := t.geo.Resolve(ctx)

	source := referrer
	if source == "" {
		source = DirectSource
	}

	click := model.ClickData{
		ID:          uuid.New().String(),
		ShortCodeID: alias.ID,
		Timestamp:   t.now().Truncate(time.Millisecond),
		Source:      source,
		Location:    loc,
		UserAgent:   userAgent,
	}

	appendErr := t.store.AppendClick(click)
	if appendErr != nil {
		t.log.Error("failed to append click record",
			"shortCode", alias.ShortCode, "error", appendErr.Error())
	}

	if err := t.store.UpdateAliasByCode(alias.ShortCode, func(u *model.ShortenedURL) {
		u.ClickCount++
	}); err != nil {
		t.log.Error("failed to increment click count",
			"shortCode", alias.ShortCode, "error", err.Error())
		if appendErr == nil {
			return click, err
		}
	}
	if appendErr != nil {
		return model.ClickData{}, appendErr
	}

	t.log.Debug("click tracked",
		"shortCode", alias.ShortCode,
		"source", click.Source,
		"country", loc.Country)
	return click, nil
}
