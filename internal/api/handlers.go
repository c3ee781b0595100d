// Package api exposes the read-side and administrative HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
	"github.com/the-momentum/open-wearables-sub000/internal/priority"
)

// SourceDirectory lists canonical data sources.
type SourceDirectory interface {
	ListByUser(ctx context.Context, userID string) ([]domain.DataSource, error)
}

// EventDirectory lists finalized event records.
type EventDirectory interface {
	ListByUser(ctx context.Context, userID string, from, to time.Time, limit int) ([]domain.EventRecord, error)
}

// Handler coordinates HTTP requests with the core resolvers.
type Handler struct {
	sources    SourceDirectory
	events     EventDirectory
	priorities *priority.Resolver
}

// NewHandler builds a Handler.
func NewHandler(sources SourceDirectory, events EventDirectory, priorities *priority.Resolver) *Handler {
	return &Handler{sources: sources, events: events, priorities: priorities}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/users/", h.userSubresource)
	mux.HandleFunc("/v1/priorities/providers", h.providerPriorities)
	mux.HandleFunc("/v1/priorities/providers/bulk", h.providerPrioritiesBulk)
	mux.HandleFunc("/v1/priorities/device-types", h.deviceTypePriorities)
	mux.HandleFunc("/v1/priorities/device-types/bulk", h.deviceTypePrioritiesBulk)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) userSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing user id")
		return
	}
	userID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "devices":
		h.listDevices(w, r, userID)
	case len(parts) == 3 && parts[1] == "devices" && parts[2] == "best":
		h.bestDevice(w, r, userID)
	case len(parts) == 2 && parts[1] == "events":
		h.listEvents(w, r, userID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request, userID string) {
	sources, err := h.sources.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	ranked, err := h.priorities.RankDataSources(r.Context(), sources)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	out := make([]DataSourceResponse, 0, len(ranked))
	for _, source := range ranked {
		out = append(out, toDataSourceResponse(source))
	}
	writeJSON(w, http.StatusOK, DevicesResponse{UserID: userID, Devices: out})
}

func (h *Handler) bestDevice(w http.ResponseWriter, r *http.Request, userID string) {
	sources, err := h.sources.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	best, err := h.priorities.BestDataSource(r.Context(), sources)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if best == nil {
		// No devices is a legitimate outcome, not an error.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toDataSourceResponse(*best))
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request, userID string) {
	query := r.URL.Query()

	from := time.Time{}
	to := time.Now().UTC().Add(24 * time.Hour)
	if raw := query.Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "from must be RFC3339")
			return
		}
		from = parsed
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "to must be RFC3339")
			return
		}
		to = parsed
	}

	limit := 100
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	records, err := h.events.ListByUser(r.Context(), userID, from, to, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	out := make([]EventRecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, EventRecordResponse{
			ID:           record.ID,
			DataSourceID: record.DataSourceID,
			Category:     string(record.Category),
			WorkoutType:  string(record.WorkoutType),
			StartedAt:    record.StartedAt,
			EndedAt:      record.EndedAt,
			DurationSec:  record.DurationSec,
		})
	}
	writeJSON(w, http.StatusOK, EventsResponse{UserID: userID, Events: out})
}

func (h *Handler) providerPriorities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		order, err := h.priorities.ProviderPriorityOrder(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, providerOrderResponse(order))

	case http.MethodPut:
		var req ProviderPriorityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		if err := h.priorities.SetProviderPriority(r.Context(), domain.Provider(req.Provider), req.Priority); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) providerPrioritiesBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req BulkProviderPriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if len(req.Priorities) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "priorities must not be empty")
		return
	}

	priorities := make(map[domain.Provider]int, len(req.Priorities))
	for name, value := range req.Priorities {
		priorities[domain.Provider(name)] = value
	}
	if err := h.priorities.ReplaceProviderPriorities(r.Context(), priorities); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deviceTypePriorities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		order, err := h.priorities.DeviceTypePriorityOrder(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, deviceTypeOrderResponse(order))

	case http.MethodPut:
		var req DeviceTypePriorityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		if err := h.priorities.SetDeviceTypePriority(r.Context(), domain.DeviceType(req.DeviceType), req.Priority); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) deviceTypePrioritiesBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req BulkDeviceTypePriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if len(req.Priorities) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "priorities must not be empty")
		return
	}

	priorities := make(map[domain.DeviceType]int, len(req.Priorities))
	for name, value := range req.Priorities {
		priorities[domain.DeviceType(name)] = value
	}
	if err := h.priorities.ReplaceDeviceTypePriorities(r.Context(), priorities); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
