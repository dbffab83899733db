package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shortspan/shortspan/internal/alias"
	"github.com/shortspan/shortspan/internal/analytics"
	"github.com/shortspan/shortspan/internal/click"
	"github.com/shortspan/shortspan/internal/errors"
	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/model"
	"github.com/shortspan/shortspan/internal/redirect"
)

// Config holds handler settings for the redirect countdown.
type Config struct {
	CountdownTicks int
	TickInterval   time.Duration
}

// Handler exposes the alias lifecycle and analytics engines over HTTP
type Handler struct {
	aliases   *alias.Engine
	clicks    *click.Tracker
	analytics *analytics.Engine
	resolver  *redirect.Resolver
	cfg       Config
	log       *logger.Logger
}

// New creates a new handler instance
func New(aliases *alias.Engine, clicks *click.Tracker, an *analytics.Engine, resolver *redirect.Resolver, cfg Config, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		aliases:   aliases,
		clicks:    clicks,
		analytics: an,
		resolver:  resolver,
		cfg:       cfg,
		log:       log.Component("http"),
	}
}

// expiredResponse is the 410 body: the error plus the stale record so
// clients can still display the old destination.
type expiredResponse struct {
	Error *errors.AppError    `json:"error"`
	URL   *model.ShortenedURL `json:"url"`
}

// ============ HANDLERS ============

// HandleShorten creates up to five short URLs in one submission
// POST /api/shorten
func (h *Handler) HandleShorten(w http.ResponseWriter, r *http.Request) {
	var req model.SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.InvalidJSON(err.Error()).WriteJSON(w)
		return
	}

	urls, itemErrs, err := h.aliases.CreateBatch(req.Items)
	if err != nil {
		switch err {
		case alias.ErrEmptyBatch:
			errors.BadRequest("Submission must contain at least one URL").WriteJSON(w)
		case alias.ErrBatchTooLarge:
			errors.BadRequest(err.Error()).WriteJSON(w)
		case alias.ErrValidation:
			errors.BatchValidation(itemErrs).WriteJSON(w)
		default:
			h.log.Error("batch creation failed", "error", err.Error())
			errors.Internal("").WriteJSON(w)
		}
		return
	}

	writeJSON(w, http.StatusCreated, model.SubmissionResponse{URLs: urls})
}

// HandleListURLs returns every alias record
// GET /api/urls
func (h *Handler) HandleListURLs(w http.ResponseWriter, r *http.Request) {
	urls, err := h.aliases.ListAliases()
	if err != nil {
		h.log.Error("listing aliases failed", "error", err.Error())
		errors.Internal("").WriteJSON(w)
		return
	}
	if urls == nil {
		urls = []model.ShortenedURL{}
	}
	writeJSON(w, http.StatusOK, urls)
}

// HandleAnalytics returns the global analytics aggregate
// GET /api/analytics
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.GetAnalyticsData()
	if err != nil {
		h.log.Error("analytics computation failed", "error", err.Error())
		errors.Internal("").WriteJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleURLAnalytics returns the per-alias drill-down
// GET /api/urls/{id}/analytics
func (h *Handler) HandleURLAnalytics(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.aliases.AliasByID(id); err != nil {
		if err == alias.ErrNotFound {
			errors.AliasNotFound(id).WriteJSON(w)
			return
		}
		h.log.Error("alias lookup failed", "id", id, "error", err.Error())
		errors.Internal("").WriteJSON(w)
		return
	}

	data, err := h.analytics.GetURLAnalytics(id)
	if err != nil {
		h.log.Error("analytics computation failed", "id", id, "error", err.Error())
		errors.Internal("").WriteJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleCleanup removes expired aliases
// POST /api/cleanup
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.aliases.PruneExpired()
	if err != nil {
		h.log.Error("prune failed", "error", err.Error())
		errors.Internal("").WriteJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// HandleRedirect resolves a short code through a redirect session: the
// click is recorded, the configured countdown runs, and the 302 fires when
// it reaches zero. A client that disconnects mid-countdown cancels it.
// GET /{code}
func (h *Handler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var dest string
	sess := redirect.NewSession(h.resolver, h.clicks, redirect.SessionConfig{
		Ticks:    h.cfg.CountdownTicks,
		Interval: h.cfg.TickInterval,
		Navigate: func(url string) { dest = url },
		Log:      h.log,
	})

	switch sess.Start(r.Context(), code, r.Referer(), r.UserAgent()) {
	case redirect.StatusNotFound:
		errors.URLNotFound(code).WriteJSON(w)
	case redirect.StatusExpired:
		// Expired aliases do not record clicks
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGone)
		json.NewEncoder(w).Encode(expiredResponse{
			Error: errors.URLExpired(code),
			URL:   sess.URL(),
		})
	case redirect.StatusRedirecting:
		go func() {
			select {
			case <-r.Context().Done():
				sess.Cancel()
			case <-sess.Done():
			}
		}()
		<-sess.Done()
		if dest == "" {
			// Canceled before the countdown finished.
			return
		}
		http.Redirect(w, r, dest, http.StatusFound)
	default:
		errors.Internal("").WriteJSON(w)
	}
}

// HandleHealth returns service health status
// GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}

// ============ ROUTER SETUP ============

// Routes configures all HTTP routes
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/shorten", h.HandleShorten).Methods(http.MethodPost)
	api.HandleFunc("/urls", h.HandleListURLs).Methods(http.MethodGet)
	api.HandleFunc("/urls/{id}/analytics", h.HandleURLAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/analytics", h.HandleAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/cleanup", h.HandleCleanup).Methods(http.MethodPost)

	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)

	// Catch-all for redirects (must be last)
	r.HandleFunc("/{code:[A-Za-z0-9]+}", h.HandleRedirect).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
