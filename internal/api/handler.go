package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/stratis-storage/go-dbus-client-gen/internal/introspect"
	"github.com/stratis-storage/go-dbus-client-gen/internal/managed"
	"github.com/stratis-storage/go-dbus-client-gen/internal/proxy"
	"github.com/stratis-storage/go-dbus-client-gen/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Fetcher retrieves the managed-objects tree from the bridged service.
type Fetcher interface {
	GetManagedObjects(ctx context.Context) (managed.ManagedObjects, error)
}

// Handler wires the bus fetcher, snapshot store and interface registry into
// HTTP handlers.
type Handler struct {
	fetcher Fetcher
	store   *storage.SnapshotStore
	specs   *introspect.Registry

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

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(fetcher Fetcher, store *storage.SnapshotStore, specs *introspect.Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		fetcher: fetcher,
		store:   store,
		specs:   specs,
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
	_, updatedAt := h.store.Snapshot()
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
		Objects:   h.store.Len(),
		UpdatedAt: updatedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetObjects(w http.ResponseWriter, r *http.Request) {
	objects, updatedAt := h.store.Snapshot()

	iface := r.URL.Query().Get("interface")
	out := make(map[string]objectJSON, len(objects))
	for path, table := range objects {
		if iface != "" {
			if _, ok := table[iface]; !ok {
				continue
			}
		}
		out[string(path)] = tableJSON(table)
	}

	resp := objectsResponse{
		Objects:   out,
		Count:     len(out),
		UpdatedAt: updatedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, interfacesResponse{Interfaces: h.specs.Names()})
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if req.Interface == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "interface name is required")
		return
	}

	// With a loaded specification the searched property names are checked
	// against it; without one the query runs over the raw tables.
	if spec, ok := h.specs.Lookup(req.Interface); ok {
		probe := make(map[string]dbus.Variant, len(req.Properties))
		for name := range req.Properties {
			probe[name] = dbus.Variant{}
		}
		if _, err := managed.NewQuery(&spec, probe); err != nil {
			if errors.Is(err, managed.ErrUnknownProperty) {
				writeError(w, http.StatusBadRequest, "Unknown search property", err.Error())
				return
			}
			writeInternalError(w, err)
			return
		}
	}

	objects, updatedAt := h.store.Snapshot()
	matches, err := managed.Search(objects, &jsonMatcher{
		iface: req.Interface,
		props: req.Properties,
	})
	if err != nil {
		if errors.Is(err, managed.ErrMissingProperty) {
			writeError(w, http.StatusUnprocessableEntity, "Incomplete object table", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	out := make(map[string]objectJSON, len(matches))
	for _, m := range matches {
		out[string(m.Path)] = tableJSON(m.Table)
	}

	resp := queryResponse{
		Interface: req.Interface,
		Matches:   out,
		Count:     len(out),
		UpdatedAt: updatedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	objects, err := h.fetcher.GetManagedObjects(r.Context())
	if err != nil {
		if errors.Is(err, proxy.ErrThrottled) {
			writeError(w, http.StatusTooManyRequests, "Refresh throttled",
				"a refresh ran recently, please retry later")
			return
		}
		writeError(w, http.StatusBadGateway, "Bus unavailable", err.Error())
		return
	}

	h.store.Replace(objects)
	_, updatedAt := h.store.Snapshot()

	resp := refreshResponse{
		Objects:   h.store.Len(),
		UpdatedAt: updatedAt,
		Message:   "Snapshot refreshed successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type queryRequest struct {
	Interface  string                 `json:"interface"`
	Properties map[string]interface{} `json:"properties"`
}

// objectJSON is one object's table rendered with variants unwrapped.
type objectJSON map[string]map[string]interface{}

type objectsResponse struct {
	Objects   map[string]objectJSON `json:"objects"`
	Count     int                   `json:"count"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type queryResponse struct {
	Interface string                `json:"interface"`
	Matches   map[string]objectJSON `json:"matches"`
	Count     int                   `json:"count"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type refreshResponse struct {
	Objects   int       `json:"objects"`
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type interfacesResponse struct {
	Interfaces []string `json:"interfaces"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Objects   int       `json:"objects"`
	UpdatedAt time.Time `json:"updatedAt"`
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
