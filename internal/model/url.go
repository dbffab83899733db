package model

import "time"

// ShortenedURL is an alias record mapping a short code to a destination URL
// for a bounded validity window.
type ShortenedURL struct {
	ID             string    `json:"id"`
	OriginalURL    string    `json:"originalUrl"`
	ShortCode      string    `json:"shortCode"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiryDate     time.Time `json:"expiryDate"`
	ValidityPeriod int       `json:"validityPeriod"` // minutes, 1..10080
	ClickCount     int       `json:"clickCount"`
	IsCustomCode   bool      `json:"isCustomShortcode"`
}

// Location is a best-effort geographic guess attached to a click.
// Coordinates are only set when the device locator produced them.
type Location struct {
	Country   string  `json:"country,omitempty"`
	Region    string  `json:"region,omitempty"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// ClickData is one observed redirect event against an alias. Records are
// immutable after creation; deleting an alias does not delete its clicks.
type ClickData struct {
	ID          string    `json:"id"`
	ShortCodeID string    `json:"shortCodeId"` // owning alias id
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"` // referrer or "Direct"
	Location    Location  `json:"geographicalLocation"`
	UserAgent   string    `json:"userAgent"`
}

// SubmissionItem is one entry of a batch shorten request.
type SubmissionItem struct {
	OriginalURL     string `json:"url"`
	ValidityPeriod  int    `json:"validityPeriod"`
	CustomShortcode string `json:"customShortcode,omitempty"`
}

// SubmissionRequest is the API request body for POST /api/shorten.
type SubmissionRequest struct {
	Items []SubmissionItem `json:"items"`
}

// SubmissionResponse returns the created aliases, or per-item errors when
// the batch was rejected. Errors[i] is "" for items that validated cleanly.
type SubmissionResponse struct {
	URLs   []ShortenedURL `json:"urls,omitempty"`
	Errors []string       `json:"errors,omitempty"`
}
