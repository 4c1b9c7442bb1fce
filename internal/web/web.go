package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bdbm/internal/agenda"
	"bdbm/internal/battery"
	"bdbm/internal/config"
	appLog "bdbm/internal/log"
)

const batteryCacheTTL = 30 * time.Second

// Server exposes the agenda and battery status over HTTP.
type Server struct {
	cfg     *config.Config
	agenda  *agenda.Service
	battery battery.Reader
	log     *appLog.Logger
	mux     *http.ServeMux
	now     func() time.Time

	// In-memory cache for battery status. This avoids running ioreg or
	// touching I2C on every single HTTP call.
	batteryMu    sync.RWMutex
	batteryCache *batteryCache
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *agenda.Service, reader battery.Reader, logger *appLog.Logger) *Server {
	if logger == nil {
		logger = appLog.Discard()
	}
	s := &Server{
		cfg:     cfg,
		agenda:  svc,
		battery: reader,
		log:     logger.With("component", "web"),
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		s.log.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="bdbm", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve listens on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/battery", s.handleBattery)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// batteryCache holds the last known battery statuses and their timestamp.
type batteryCache struct {
	statuses  []battery.Status
	updatedAt time.Time
}

// batteryResponse is the JSON response shape for /api/battery.
type batteryResponse struct {
	Devices   []battery.Status `json:"devices"`
	WarnLevel int              `json:"warn_level"`
	Low       []string         `json:"low"`
}

// handleBattery lists device charge levels. Readings are cached briefly;
// battery status does not need sub-second precision.
func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	if s.battery == nil {
		writeError(w, http.StatusServiceUnavailable, "battery reader unavailable")
		return
	}

	now := s.now()

	s.batteryMu.RLock()
	bc := s.batteryCache
	s.batteryMu.RUnlock()

	var statuses []battery.Status
	if bc != nil && now.Sub(bc.updatedAt) < batteryCacheTTL {
		statuses = bc.statuses
	} else {
		var err error
		statuses, err = s.battery.Read(r.Context())
		if err != nil {
			s.log.Error("battery read failed", err)
			writeError(w, http.StatusInternalServerError, "failed to read battery")
			return
		}

		s.batteryMu.Lock()
		s.batteryCache = &batteryCache{statuses: statuses, updatedAt: now}
		s.batteryMu.Unlock()
	}

	resp := batteryResponse{
		Devices:   statuses,
		WarnLevel: s.cfg.WarnLevel,
		Low:       []string{},
	}
	for _, st := range battery.BelowThreshold(statuses, s.cfg.WarnLevel) {
		resp.Low = append(resp.Low, st.Device)
	}
	writeJSON(w, http.StatusOK, resp)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	Failed          []failureDTO    `json:"failed,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	SourceID    string    `json:"source_id"`
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type failureDTO struct {
	SourceID string `json:"source_id"`
	UID      string `json:"uid"`
	Error    string `json:"error"`
}

// handleEvents returns expanded occurrences within a requested window.
//
// GET /api/events?days=7&backfill=1
//   - days:     number of days ahead (default horizon_days)
//   - backfill: number of past days to include (default backfill_days)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), s.cfg.HorizonDays)
	if days <= 0 {
		days = s.cfg.HorizonDays
	}
	backfill := parseIntDefault(q.Get("backfill"), s.cfg.BackfillDays)
	if backfill < 0 {
		backfill = 0
	}

	loc := s.cfg.Location()
	win := agenda.WindowAround(s.now(), backfill, days, loc)

	s.log.Info("api events request",
		"days", days,
		"backfill", backfill,
		"range_start", win.Start.Format(time.RFC3339),
		"range_end", win.End.Format(time.RFC3339),
	)

	res, err := s.agenda.Agenda(r.Context(), win)
	if err != nil {
		s.log.Error("api events: build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(res.Occurrences))
	for _, occ := range res.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			SourceID:    occ.SourceID,
			UID:         occ.UID,
			InstanceKey: occ.InstanceKey,
			Summary:     occ.Summary,
			Description: occ.Description,
			Location:    occ.Location,
			AllDay:      occ.AllDay,
			Start:       occ.Start,
			End:         occ.End,
		})
	}

	resp := eventsResponse{
		Occurrences:     dtos,
		RangeStart:      win.Start,
		RangeEnd:        win.End,
		DisplayTimeZone: loc.String(),
	}
	for _, f := range res.Failed {
		resp.Failed = append(resp.Failed, failureDTO{SourceID: f.SourceID, UID: f.UID, Error: f.Err.Error()})
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
