package redirect

import (
	"context"
	"sync"
	"time"

	"github.com/shortspan/shortspan/internal/click"
	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/model"
)

const (
	// DefaultCountdownTicks is how many countdown steps run before the
	// navigation fires.
	DefaultCountdownTicks = 3

	// DefaultTickInterval is the period of one countdown step.
	DefaultTickInterval = time.Second
)

// SessionConfig configures a redirect session.
type SessionConfig struct {
	Ticks    int
	Interval time.Duration
	// Navigate receives the destination URL when the countdown reaches
	// zero or the user skips ahead. Invoked at most once per session.
	Navigate func(url string)
	Log      *logger.Logger
}

// Session drives one redirect interaction: resolve, track, count down,
// navigate. The countdown is a cancelable scheduled task; Cancel and GoNow
// both release it, so it cannot fire after teardown.
type Session struct {
	resolver *Resolver
	tracker  *click.Tracker
	cfg      SessionConfig
	log      *logger.Logger

	mu        sync.Mutex
	status    Status
	url       *model.ShortenedURL
	remaining int
	cancel    context.CancelFunc
	navigated bool

	done chan struct{}
}

func NewSession(resolver *Resolver, tracker *click.Tracker, cfg SessionConfig) *Session {
	if cfg.Ticks <= 0 {
		cfg.Ticks = DefaultCountdownTicks
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.Navigate == nil {
		cfg.Navigate = func(string) {}
	}
	log := cfg.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Session{
		resolver: resolver,
		tracker:  tracker,
		cfg:      cfg,
		log:      log.Component("redirect"),
		status:   StatusLoading,
		done:     make(chan struct{}),
	}
}

// Start resolves the code and enters the terminal state. For an active
// alias it records the click and starts the countdown before returning.
// Terminal states other than Redirecting close Done immediately.
func (s *Session) Start(ctx context.Context, code, referrer, userAgent string) Status {
	outcome := s.resolver.Lookup(ctx, code)

	s.mu.Lock()
	s.status = outcome.Status
	s.url = outcome.URL
	s.mu.Unlock()

	if outcome.Status != StatusRedirecting {
		close(s.done)
		return outcome.Status
	}

	// Click capture and counter increment happen before the countdown
	// starts; a tracking failure is logged but does not stop the redirect.
	if _, err := s.tracker.TrackClick(ctx, outcome.URL, referrer, userAgent); err != nil {
		s.log.Error("click tracking failed", "code", code, "error", err.Error())
	}

	countdownCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.remaining = s.cfg.Ticks
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(countdownCtx)
	return StatusRedirecting
}

// Status returns the current state and, while redirecting, the remaining
// countdown ticks.
func (s *Session) Status() (Status, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.remaining
}

// URL returns the resolved record, also set in the Expired state so the
// stale destination can be displayed.
func (s *Session) URL() *model.ShortenedURL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// GoNow skips the rest of the countdown and navigates immediately.
func (s *Session) GoNow() {
	s.stopCountdown()
	s.fireNavigate()
}

// Cancel tears the session down without navigating.
func (s *Session) Cancel() {
	s.stopCountdown()
}

// Done is closed when the session reaches quiescence: countdown finished,
// canceled, or a terminal non-redirect state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.remaining--
			remaining := s.remaining
			s.mu.Unlock()

			if remaining <= 0 {
				s.fireNavigate()
				return
			}
		}
	}
}

func (s *Session) stopCountdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) fireNavigate() {
	s.mu.Lock()
	if s.navigated || s.status != StatusRedirecting || s.url == nil {
		s.mu.Unlock()
		return
	}
	s.navigated = true
	dest := s.url.OriginalURL
	s.mu.Unlock()

	s.cfg.Navigate(dest)
}
