package click

import (
	"context"
	"testing"
	"time"

	"github.com/shortspan/shortspan/internal/alias"
	"github.com/shortspan/shortspan/internal/geo"
	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/model"
	"github.com/shortspan/shortspan/internal/store/file"
)

var testLocation = model.Location{Country: "Canada", Region: "Ontario", City: "Toronto"}

func setupTracker(t *testing.T) (*Tracker, *alias.Engine) {
	t.Helper()
	st, err := file.New(t.TempDir(), logger.Discard())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	tr := NewTracker(st, geo.Fixed{Location: testLocation}, logger.Discard())
	return tr, alias.NewEngine(st, logger.Discard())
}

func createOne(t *testing.T, e *alias.Engine) model.ShortenedURL {
	t.Helper()
	created, _, err := e.CreateBatch([]model.SubmissionItem{
		{OriginalURL: "https://example.com", ValidityPeriod: 30},
	})
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	return created[0]
}

func TestTrackClick(t *testing.T) {
	tr, e := setupTracker(t)
	u := createOne(t, e)

	click, err := tr.TrackClick(context.Background(), &u, "https://google.com/search", "test-agent")
	if err != nil {
		t.Fatalf("TrackClick failed: %v", err)
	}

	if click.ShortCodeID != u.ID {
		t.Errorf("click references %q; want alias id %q", click.ShortCodeID, u.ID)
	}
	if click.Source != "https://google.com/search" {
		t.Errorf("source = %q; want the referrer", click.Source)
	}
	if click.Location != testLocation {
		t.Errorf("location = %+v; want %+v", click.Location, testLocation)
	}
	if click.UserAgent != "test-agent" {
		t.Errorf("user agent = %q", click.UserAgent)
	}

	// Exactly one click record appended, referencing the alias.
	clicks, _ := tr.store.LoadClicks()
	if len(clicks) != 1 || clicks[0].ShortCodeID != u.ID {
		t.Errorf("click collection = %+v; want one record for the alias", clicks)
	}

	// Counter incremented by exactly one.
	resolved, err := e.ResolveAlias(u.ShortCode)
	if err != nil {
		t.Fatalf("ResolveAlias failed: %v", err)
	}
	if resolved.ClickCount != 1 {
		t.Errorf("click count = %d; want 1", resolved.ClickCount)
	}
}

func TestTrackClick_EmptyReferrerIsDirect(t *testing.T) {
	tr, e := setupTracker(t)
	u := createOne(t, e)

	click, err := tr.TrackClick(context.Background(), &u, "", "test-agent")
	if err != nil {
		t.Fatalf("TrackClick failed: %v", err)
	}
	if click.Source != DirectSource {
		t.Errorf("source = %q; want %q", click.Source, DirectSource)
	}
}

func TestTrackClick_EachInvocationIndependent(t *testing.T) {
	tr, e := setupTracker(t)
	u := createOne(t, e)

	for i := 1; i <= 3; i++ {
		if _, err := tr.TrackClick(context.Background(), &u, "", "agent"); err != nil {
			t.Fatalf("TrackClick %d failed: %v", i, err)
		}
		resolved, _ := e.ResolveAlias(u.ShortCode)
		if resolved.ClickCount != i {
			t.Errorf("after %d clicks count = %d", i, resolved.ClickCount)
		}
		clicks, _ := tr.store.LoadClicks()
		if len(clicks) != i {
			t.Errorf("after %d clicks, %d records", i, len(clicks))
		}
	}
}

func TestTrackClick_TimestampOrder(t *testing.T) {
	tr, e := setupTracker(t)
	u := createOne(t, e)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	tr.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	for i := 0; i < 3; i++ {
		if _, err := tr.TrackClick(context.Background(), &u, "", "agent"); err != nil {
			t.Fatalf("TrackClick failed: %v", err)
		}
	}

	clicks, _ := tr.store.LoadClicks()
	for i := 1; i < len(clicks); i++ {
		if clicks[i].Timestamp.Before(clicks[i-1].Timestamp) {
			t.Errorf("timestamps not non-decreasing in insertion order: %v then %v",
				clicks[i-1].Timestamp, clicks[i].Timestamp)
		}
	}
}
