package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/eugenenazirov/mockgov-settings/internal/registry"
	"github.com/eugenenazirov/mockgov-settings/internal/reload"
	"github.com/eugenenazirov/mockgov-settings/internal/settings"
	"github.com/eugenenazirov/mockgov-settings/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Reloader rebuilds the active configuration on demand.
type Reloader interface {
	Reload(ctx context.Context) (*storage.Snapshot, error)
}

// Handler wires the configuration store and reloader into HTTP handlers.
type Handler struct {
	storage  storage.Storage
	reloader Reloader
	metrics  http.Handler

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithReloader enables POST /api/reload.
func WithReloader(r Reloader) HandlerOption {
	return func(h *Handler) {
		h.reloader = r
	}
}

// WithMetricsHandler serves metrics at GET /metrics.
func WithMetricsHandler(m http.Handler) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler constructs a Handler reading snapshots from store.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	snap, err := h.storage.Current()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "loading",
			Timestamp: h.clock(),
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
		Version:   snap.Version,
	})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		snapshotInfo: infoFor(snap),
		Settings:     snap.Settings.Redacted(),
	})
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w, r)
	if !ok {
		return
	}
	leaves := snap.Registry.Leaves()
	entries := make(map[string]any, len(leaves))
	for dotted, v := range leaves {
		entries[dotted] = settings.RedactValue(registry.MustParseKeyPath(dotted), v).Interface()
	}
	writeJSON(w, http.StatusOK, entriesResponse{
		snapshotInfo: infoFor(snap),
		Entries:      entries,
	})
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	path, err := registry.ParseKeyPath(r.PathValue("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid key path", err.Error(), "use dotted segments such as serviceplatformen.settings.cpr_endpoint")
		return
	}

	snap, ok := h.current(w, r)
	if !ok {
		return
	}
	value, err := snap.Registry.Get(path)
	if err != nil {
		if errors.Is(err, registry.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "Key not found", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entryResponse{
		Path:    path.String(),
		Kind:    value.Kind().String(),
		Value:   settings.RedactValue(path, value).Interface(),
		Version: snap.Version,
	})
}

func (h *Handler) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w, r)
	if !ok {
		return
	}
	provider := snap.Settings.OpenIDConnect
	if !provider.Enabled {
		writeError(w, http.StatusNotFound, "OpenID Connect disabled", "provider "+provider.Provider+" is not enabled")
		return
	}
	writeJSON(w, http.StatusOK, provider.Discovery())
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		writeError(w, http.StatusServiceUnavailable, "Reload unavailable", "no reloader configured")
		return
	}

	snap, err := h.reloader.Reload(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, reload.ErrThrottled):
			writeError(w, http.StatusTooManyRequests, "Reload throttled", err.Error(), "retry after the reload interval")
		case errors.Is(err, registry.ErrParse), errors.Is(err, registry.ErrValidation), errors.Is(err, registry.ErrSourceRead):
			writeError(w, http.StatusUnprocessableEntity, "Invalid configuration", err.Error(), "the previous configuration is still active")
		default:
			writeInternalError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, reloadResponse{
		snapshotInfo: infoFor(snap),
		Message:      "Configuration reloaded successfully",
	})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) (*storage.Snapshot, bool) {
	_ = r
	snap, err := h.storage.Current()
	if err != nil {
		if errors.Is(err, storage.ErrNotLoaded) {
			writeError(w, http.StatusServiceUnavailable, "Configuration not loaded", err.Error())
			return nil, false
		}
		writeInternalError(w, err)
		return nil, false
	}
	return snap, true
}

func infoFor(snap *storage.Snapshot) snapshotInfo {
	return snapshotInfo{
		Version:  snap.Version,
		LoadedAt: snap.LoadedAt,
		Sources:  snap.Sources,
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type snapshotInfo struct {
	Version  uint64    `json:"version"`
	LoadedAt time.Time `json:"loadedAt"`
	Sources  []string  `json:"sources"`
}

type settingsResponse struct {
	snapshotInfo
	Settings settings.Settings `json:"settings"`
}

type entriesResponse struct {
	snapshotInfo
	Entries map[string]any `json:"entries"`
}

type entryResponse struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Value   any    `json:"value"`
	Version uint64 `json:"version"`
}

type reloadResponse struct {
	snapshotInfo
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   uint64    `json:"version,omitempty"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
