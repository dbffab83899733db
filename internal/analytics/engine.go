// Package analytics computes aggregate statistics over the alias and click
// collections. Everything is recomputed on demand from a full read; there
// is no incremental state.
package analytics

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shortspan/shortspan/internal/alias"
	"github.com/shortspan/shortspan/internal/model"
	"github.com/shortspan/shortspan/internal/store"
)

const (
	topURLLimit   = 5
	topGroupLimit = 10
	drillLimit    = 5
	drillDays     = 7
)

// Engine is the read-side aggregator.
type Engine struct {
	store store.Store
	now   func() time.Time
}

func NewEngine(st store.Store) *Engine {
	return &Engine{store: st, now: time.Now}
}

// GetAnalyticsData aggregates the full collections into the dashboard view.
func (e *Engine) GetAnalyticsData() (model.AnalyticsData, error) {
	data := model.AnalyticsData{
		TopURLs:         []model.TopURL{},
		ClicksByHour:    []model.HourBucket{},
		ClicksByCountry: []model.KeyCount{},
		ClicksBySources: []model.KeyCount{},
	}

	urls, err := e.store.LoadAliases()
	if err != nil {
		return data, err
	}
	clicks, err := e.store.LoadClicks()
	if err != nil {
		return data, err
	}
	now := e.now()

	data.TotalURLs = len(urls)
	for i := range urls {
		data.TotalClicks += urls[i].ClickCount
		if alias.ClassifyExpiry(&urls[i], now) == alias.Active {
			data.ActiveURLs++
		} else {
			data.ExpiredURLs++
		}
	}

	cutoff24h := now.Add(-24 * time.Hour)
	cutoff7d := now.Add(-7 * 24 * time.Hour)
	for _, c := range clicks {
		if c.Timestamp.After(cutoff24h) {
			data.ClicksLast24h++
		}
		if c.Timestamp.After(cutoff7d) {
			data.ClicksLast7d++
		}
	}

	// Ranking is stable: ties keep original insertion order.
	ranked := make([]model.ShortenedURL, len(urls))
	copy(ranked, urls)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ClickCount > ranked[j].ClickCount
	})
	for i := 0; i < len(ranked) && i < topURLLimit; i++ {
		data.TopURLs = append(data.TopURLs, model.TopURL{URL: ranked[i], Clicks: ranked[i].ClickCount})
	}

	data.ClicksByHour = bucketByHour(clicks, now)

	byCountry := make(map[string]int)
	bySource := make(map[string]int)
	for _, c := range clicks {
		byCountry[countryOf(c)]++
		bySource[ClassifySource(c.Source)]++
	}
	data.ClicksByCountry = topCounts(byCountry, topGroupLimit)
	data.ClicksBySources = topCounts(bySource, topGroupLimit)

	if data.TotalURLs > 0 {
		data.AverageClicksPerURL = round2(float64(data.TotalClicks) / float64(data.TotalURLs))

		withClicks := 0
		for _, u := range urls {
			if u.ClickCount > 0 {
				withClicks++
			}
		}
		data.ConversionRate = round2(float64(withClicks) / float64(data.TotalURLs) * 100)
	}

	return data, nil
}

// GetURLAnalytics is the per-alias drill-down, computed like the global
// aggregates but scoped to that alias's clicks.
func (e *Engine) GetURLAnalytics(aliasID string) (model.URLAnalytics, error) {
	empty := model.URLAnalytics{
		ClicksByDay:  []model.DayBucket{},
		TopSources:   []model.KeyCount{},
		TopCountries: []model.KeyCount{},
	}

	clicks, err := e.store.LoadClicks()
	if err != nil {
		return empty, err
	}

	var scoped []model.ClickData
	for _, c := range clicks {
		if c.ShortCodeID == aliasID {
			scoped = append(scoped, c)
		}
	}
	if len(scoped) == 0 {
		return empty, nil
	}

	now := e.now()
	result := model.URLAnalytics{
		TotalClicks:         len(scoped),
		ClicksByDay:         bucketByDay(scoped, now),
		AverageClicksPerDay: round2(float64(len(scoped)) / float64(drillDays)),
	}

	bySource := make(map[string]int)
	byCountry := make(map[string]int)
	for _, c := range scoped {
		bySource[ClassifySource(c.Source)]++
		byCountry[countryOf(c)]++
	}
	result.TopSources = topCounts(bySource, drillLimit)
	result.TopCountries = topCounts(byCountry, drillLimit)

	return result, nil
}

// ClassifySource maps a raw referrer string to a display source. Known
// domains are matched by substring in priority order; an empty source is
// direct traffic; anything else falls back to the referrer's hostname.
func ClassifySource(source string) string {
	if source == "" {
		return "Direct"
	}
	known := []struct{ substr, label string }{
		{"google", "Google"},
		{"facebook", "Facebook"},
		{"twitter", "Twitter"},
		{"linkedin", "LinkedIn"},
	}
	for _, k := range known {
		if strings.Contains(source, k.substr) {
			return k.label
		}
	}
	if u, err := url.Parse(source); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "Direct"
}

// bucketByHour splits the trailing 24 hours into hour-aligned buckets,
// oldest first. The newest bucket is the hour containing now.
func bucketByHour(clicks []model.ClickData, now time.Time) []model.HourBucket {
	buckets := make([]model.HourBucket, 0, 24)
	currentHour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())

	for i := 23; i >= 0; i-- {
		start := currentHour.Add(time.Duration(-i) * time.Hour)
		end := start.Add(time.Hour)

		n := 0
		for _, c := range clicks {
			if !c.Timestamp.Before(start) && c.Timestamp.Before(end) {
				n++
			}
		}
		buckets = append(buckets, model.HourBucket{Hour: start.Hour(), Clicks: n})
	}
	return buckets
}

// bucketByDay splits the trailing 7 calendar days into day buckets, oldest
// first. The newest bucket is today.
func bucketByDay(clicks []model.ClickData, now time.Time) []model.DayBucket {
	buckets := make([]model.DayBucket, 0, drillDays)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for i := drillDays - 1; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		end := start.AddDate(0, 0, 1)

		n := 0
		for _, c := range clicks {
			if !c.Timestamp.Before(start) && c.Timestamp.Before(end) {
				n++
			}
		}
		buckets = append(buckets, model.DayBucket{Date: start.Format("2006-01-02"), Clicks: n})
	}
	return buckets
}

func countryOf(c model.ClickData) string {
	if c.Location.Country == "" {
		return "Unknown"
	}
	return c.Location.Country
}

// topCounts orders a group-by map descending by count, ties broken by key
// so output is deterministic, and keeps the first limit entries.
func topCounts(counts map[string]int, limit int) []model.KeyCount {
	out := make([]model.KeyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, model.KeyCount{Key: k, Clicks: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Clicks != out[j].Clicks {
			return out[i].Clicks > out[j].Clicks
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
