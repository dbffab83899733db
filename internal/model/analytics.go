package model

// TopURL pairs an alias with its click total for ranking output.
type TopURL struct {
	URL    ShortenedURL `json:"url"`
	Clicks int          `json:"clicks"`
}

// HourBucket is one hour-aligned slot of the trailing 24-hour window.
type HourBucket struct {
	Hour   int `json:"hour"` // hour of day, 0..23
	Clicks int `json:"clicks"`
}

// DayBucket is one calendar-day slot of the trailing 7-day window.
type DayBucket struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Clicks int    `json:"clicks"`
}

// KeyCount is a generic group-by-key click count (country or source).
type KeyCount struct {
	Key    string `json:"key"`
	Clicks int    `json:"clicks"`
}

// AnalyticsData is the full aggregate view over all aliases and clicks,
// recomputed on demand.
type AnalyticsData struct {
	TotalURLs           int          `json:"totalUrls"`
	TotalClicks         int          `json:"totalClicks"`
	ActiveURLs          int          `json:"activeUrls"`
	ExpiredURLs         int          `json:"expiredUrls"`
	ClicksLast24h       int          `json:"clicksLast24h"`
	ClicksLast7d        int          `json:"clicksLast7d"`
	TopURLs             []TopURL     `json:"topUrls"`
	ClicksByHour        []HourBucket `json:"clicksByHour"`
	ClicksByCountry     []KeyCount   `json:"clicksByCountry"`
	ClicksBySources     []KeyCount   `json:"clicksBySources"`
	AverageClicksPerURL float64      `json:"averageClicksPerUrl"`
	ConversionRate      float64      `json:"conversionRate"`
}

// URLAnalytics is the per-alias drill-down.
type URLAnalytics struct {
	TotalClicks         int         `json:"totalClicks"`
	ClicksByDay         []DayBucket `json:"clicksByDay"`
	TopSources          []KeyCount  `json:"topSources"`
	TopCountries        []KeyCount  `json:"topCountries"`
	AverageClicksPerDay float64     `json:"averageClicksPerDay"`
}
