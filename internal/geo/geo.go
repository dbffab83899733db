// Package geo produces a best-effort location guess for click enrichment.
// The production resolver tries three tiers in order: a device locator with
// a bounded timeout, a fixed table of plausible locations, and finally an
// all-Unknown placeholder. Failures fall through; Resolve never errors.
package geo

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/model"
)

// DefaultDeviceTimeout bounds the tier-1 device lookup.
const DefaultDeviceTimeout = 5 * time.Second

// Resolver yields a location for the current request. Implementations must
// always return a usable value.
type Resolver interface {
	Resolve(ctx context.Context) model.Location
}

// DeviceLocator is the tier-1 collaborator: a device-level position source
// that may be absent, deny permission, or hang.
type DeviceLocator interface {
	CurrentPosition(ctx context.Context) (lat, lon float64, err error)
}

// fallbackLocations is the tier-2 table of plausible locations, one picked
// uniformly at random per lookup.
var fallbackLocations = []model.Location{
	{Country: "United States", Region: "California", City: "San Francisco"},
	{Country: "United States", Region: "New York", City: "New York"},
	{Country: "United Kingdom", Region: "England", City: "London"},
	{Country: "Canada", Region: "Ontario", City: "Toronto"},
	{Country: "Germany", Region: "Berlin", City: "Berlin"},
	{Country: "France", Region: "Île-de-France", City: "Paris"},
	{Country: "Japan", Region: "Tokyo", City: "Tokyo"},
	{Country: "Australia", Region: "New South Wales", City: "Sydney"},
}

// unknown is the tier-3 terminal fallback.
var unknown = model.Location{Country: "Unknown", Region: "Unknown", City: "Unknown"}

// Tiered is the production Resolver.
type Tiered struct {
	device  DeviceLocator // optional
	timeout time.Duration
	log     *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTiered builds a resolver. device may be nil, in which case tier 1 is
// skipped entirely. timeout <= 0 uses DefaultDeviceTimeout.
func NewTiered(device DeviceLocator, timeout time.Duration, log *logger.Logger) *Tiered {
	if timeout <= 0 {
		timeout = DefaultDeviceTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Tiered{
		device:  device,
		timeout: timeout,
		log:     log.Component("geo"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *Tiered) Resolve(ctx context.Context) model.Location {
	if t.device != nil {
		if loc, err := t.fromDevice(ctx); err == nil {
			return loc
		} else {
			t.log.Debug("device location unavailable", "error", err.Error())
		}
	}

	if len(fallbackLocations) > 0 {
		t.mu.Lock()
		loc := fallbackLocations[t.rng.Intn(len(fallbackLocations))]
		t.mu.Unlock()
		return loc
	}

	return unknown
}

// fromDevice runs the tier-1 lookup under its timeout. The coordinates are
// mapped to a fixed placeholder location; a real deployment would feed them
// to a reverse-geocoding service instead.
func (t *Tiered) fromDevice(ctx context.Context) (model.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		lat, lon float64
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		lat, lon, err := t.device.CurrentPosition(ctx)
		ch <- result{lat, lon, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return model.Location{}, r.err
		}
		return model.Location{
			Country:   "United States",
			Region:    "California",
			City:      "San Francisco",
			Latitude:  r.lat,
			Longitude: r.lon,
		}, nil
	case <-ctx.Done():
		return model.Location{}, errors.New("device location timed out")
	}
}

// Fixed is a test double returning the same location every time.
type Fixed struct {
	Location model.Location
}

func (f Fixed) Resolve(context.Context) model.Location { return f.Location }

var (
	_ Resolver = (*Tiered)(nil)
	_ Resolver = Fixed{}
)
