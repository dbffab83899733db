// Package alias implements the alias lifecycle: short-code generation with
// collision avoidance, record construction, case-insensitive resolution,
// expiry classification, and batch submission.
package alias

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/model"
	"github.com/shortspan/shortspan/internal/store"
	"github.com/shortspan/shortspan/internal/validation"
)

const (
	codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// CodeLength is the length of generated (non-custom) short codes.
	CodeLength = 6

	// MaxBatchSize caps how many URLs one submission may carry.
	MaxBatchSize = 5

	// maxGenerateAttempts bounds the collision-retry loop. At 62^6 codes
	// the loop terminates on the first draw in practice.
	maxGenerateAttempts = 1000
)

var (
	ErrNotFound            = errors.New("short URL not found")
	ErrGenerationExhausted = errors.New("failed to generate a unique short code")
	ErrValidation          = errors.New("batch validation failed")
	ErrBatchTooLarge       = fmt.Errorf("a submission may contain at most %d URLs", MaxBatchSize)
	ErrEmptyBatch          = errors.New("submission contains no URLs")
)

// Validation messages surfaced per item.
const (
	msgURLRequired     = "URL is required"
	msgURLInvalid      = "Please enter a valid URL (must start with http:// or https://)"
	msgValidityInvalid = "Validity period must be between 1 and 10080 minutes (1 week)"
	msgCodeInvalid     = "Custom shortcode must be 3-10 alphanumeric characters"
	msgCodeNotUnique   = "Custom shortcode must be unique"
	msgCodeTaken       = "Custom shortcode is already taken"
)

// ExpiryState classifies an alias relative to a point in time.
type ExpiryState string

const (
	Active  ExpiryState = "active"
	Expired ExpiryState = "expired"
)

// ClassifyExpiry returns Expired iff now is strictly after the record's
// expiry timestamp. Pure function of the two timestamps.
func ClassifyExpiry(u *model.ShortenedURL, now time.Time) ExpiryState {
	if now.After(u.ExpiryDate) {
		return Expired
	}
	return Active
}

// GenerateUniqueCode draws a CodeLength-character code from the 62-symbol
// alphabet, uniformly at random per character, redrawing while the
// lowercased result collides with existing (a set of lowercased codes).
// The retry loop is bounded; exhaustion yields ErrGenerationExhausted.
func GenerateUniqueCode(existing map[string]struct{}, rng *rand.Rand) (string, error) {
	buf := make([]byte, CodeLength)
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		for i := range buf {
			buf[i] = codeAlphabet[rng.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := existing[strings.ToLower(code)]; !taken {
			return code, nil
		}
	}
	return "", ErrGenerationExhausted
}

// Engine builds, stores and resolves alias records.
type Engine struct {
	store store.Store
	log   *logger.Logger
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewEngine(st store.Store, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{
		store: st,
		log:   log.Component("alias"),
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateAlias builds an alias record. Inputs must already have passed
// validation; this operation does not re-validate. Timestamps are truncated
// to millisecond precision so records round-trip the persisted shape
// exactly.
func (e *Engine) CreateAlias(originalURL, code string, validityMinutes int, isCustom bool) model.ShortenedURL {
	now := e.now().Truncate(time.Millisecond)
	return model.ShortenedURL{
		ID:             uuid.New().String(),
		OriginalURL:    originalURL,
		ShortCode:      code,
		CreatedAt:      now,
		ExpiryDate:     now.Add(time.Duration(validityMinutes) * time.Minute),
		ValidityPeriod: validityMinutes,
		ClickCount:     0,
		IsCustomCode:   isCustom,
	}
}

// ResolveAlias looks up a record by short code, case-insensitively. Expiry
// is not considered; classification is a separate step.
func (e *Engine) ResolveAlias(code string) (*model.ShortenedURL, error) {
	urls, err := e.store.LoadAliases()
	if err != nil {
		return nil, err
	}
	for i := range urls {
		if strings.EqualFold(urls[i].ShortCode, code) {
			return &urls[i], nil
		}
	}
	return nil, ErrNotFound
}

// ListAliases returns every alias record in insertion order.
func (e *Engine) ListAliases() ([]model.ShortenedURL, error) {
	return e.store.LoadAliases()
}

// AliasByID looks up a record by its id.
func (e *Engine) AliasByID(id string) (*model.ShortenedURL, error) {
	urls, err := e.store.LoadAliases()
	if err != nil {
		return nil, err
	}
	for i := range urls {
		if urls[i].ID == id {
			return &urls[i], nil
		}
	}
	return nil, ErrNotFound
}

// PruneExpired removes aliases whose expiry has passed.
func (e *Engine) PruneExpired() (int, error) {
	return e.store.PruneExpiredAliases(e.now())
}

// CreateBatch validates up to MaxBatchSize submission items and, if every
// item passes, creates all of them in one append. On validation failure it
// returns the per-item messages (empty string for clean items) together
// with ErrValidation, and creates nothing.
func (e *Engine) CreateBatch(items []model.SubmissionItem) ([]model.ShortenedURL, []string, error) {
	if len(items) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	if len(items) > MaxBatchSize {
		return nil, nil, ErrBatchTooLarge
	}

	itemErrs := make([]string, len(items))
	for i, item := range items {
		switch {
		case strings.TrimSpace(item.OriginalURL) == "":
			itemErrs[i] = msgURLRequired
		case !validation.IsValidURL(item.OriginalURL):
			itemErrs[i] = msgURLInvalid
		case !validation.IsValidValidityPeriod(item.ValidityPeriod):
			itemErrs[i] = msgValidityInvalid
		case item.CustomShortcode != "" && !validation.IsValidShortcode(item.CustomShortcode):
			itemErrs[i] = msgCodeInvalid
		}
	}

	// Custom shortcodes must be unique within the batch, compared
	// case-insensitively. A collision marks every participant, not just
	// the later occurrence.
	seen := make(map[string]int)
	for _, item := range items {
		if item.CustomShortcode != "" {
			seen[strings.ToLower(item.CustomShortcode)]++
		}
	}
	for i, item := range items {
		if item.CustomShortcode != "" && seen[strings.ToLower(item.CustomShortcode)] > 1 {
			itemErrs[i] = msgCodeNotUnique
		}
	}

	existing, err := e.existingCodes()
	if err != nil {
		return nil, nil, err
	}

	// Custom codes must also be free in the store, across active and
	// expired records alike.
	for i, item := range items {
		if itemErrs[i] == "" && item.CustomShortcode != "" {
			if _, taken := existing[strings.ToLower(item.CustomShortcode)]; taken {
				itemErrs[i] = msgCodeTaken
			}
		}
	}

	if hasErrors(itemErrs) {
		return nil, itemErrs, ErrValidation
	}

	// Reserve batch custom codes before generating, so a generated code
	// cannot collide with a custom one from the same submission.
	for _, item := range items {
		if item.CustomShortcode != "" {
			existing[strings.ToLower(item.CustomShortcode)] = struct{}{}
		}
	}

	created := make([]model.ShortenedURL, 0, len(items))
	for _, item := range items {
		code := item.CustomShortcode
		if code == "" {
			e.mu.Lock()
			code, err = GenerateUniqueCode(existing, e.rng)
			e.mu.Unlock()
			if err != nil {
				return nil, nil, err
			}
			existing[strings.ToLower(code)] = struct{}{}
		}
		created = append(created, e.CreateAlias(item.OriginalURL, code, item.ValidityPeriod, item.CustomShortcode != ""))
	}

	if err := e.store.AppendAliases(created); err != nil {
		return nil, nil, err
	}

	e.log.Info("batch created",
		"count", len(created),
		"custom", countCustom(created))
	return created, nil, nil
}

func (e *Engine) existingCodes() (map[string]struct{}, error) {
	urls, err := e.store.LoadAliases()
	if err != nil {
		return nil, err
	}
	codes := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		codes[strings.ToLower(u.ShortCode)] = struct{}{}
	}
	return codes, nil
}

func hasErrors(errs []string) bool {
	for _, e := range errs {
		if e != "" {
			return true
		}
	}
	return false
}

func countCustom(urls []model.ShortenedURL) int {
	n := 0
	for _, u := range urls {
		if u.IsCustomCode {
			n++
		}
	}
	return n
}
