package control

import (
	"encoding/json"
	"net/http"
	"strconv"

	"outreach/internal/browser"
	"outreach/internal/engine"
	"outreach/internal/logging"
	"outreach/internal/operation"
	"outreach/internal/types"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// StatusResponse answers GET /v1/engine/status.
type StatusResponse struct {
	OK     bool          `json:"ok"`
	Status engine.Status `json:"status"`
}

// BatchRequest is the body of POST /v1/engine/batch.
type BatchRequest struct {
	Profiles []types.Profile `json:"profiles"`
}

// OperationsResponse answers GET /v1/operations.
type OperationsResponse struct {
	OK         bool                  `json:"ok"`
	Selected   operation.ID          `json:"selected"`
	Operations []operation.Operation `json:"operations"`
}

// ConfigRequest is the body of PUT /v1/operations/{id}/config.
type ConfigRequest struct {
	Values map[string]any `json:"values"`
}

// ConfigResponse carries the values of one operation.
type ConfigResponse struct {
	OK      bool           `json:"ok"`
	Message string         `json:"message,omitempty"`
	OpID    operation.ID   `json:"opId"`
	Values  map[string]any `json:"values"`
}

// InviteRequest is the body of POST /v1/debug/invite. An empty ProfileID
// targets the first profile on the page.
type InviteRequest struct {
	ProfileID string `json:"profileId"`
	Note      string `json:"note"`
}

// TabsResponse answers GET /v1/debug/tabs.
type TabsResponse struct {
	OK        bool              `json:"ok"`
	Connected bool              `json:"connected"`
	Sessions  []browser.Session `json:"sessions"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{OK: true, Status: h.engine.Status()})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Start(r.Context()))
}

func (h *Handler) stop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stop())
}

func (h *Handler) dryRun(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.DryRun(r.Context()))
}

func (h *Handler) collect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.CollectOnce(r.Context()))
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.engine.ProfileBatch(r.Context(), req.Profiles))
}

func (h *Handler) fetchLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.engine.FetchLogs(r.Context(), limit))
}

func (h *Handler) clearLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.ClearLogs(r.Context()))
}

func (h *Handler) debugTabs(w http.ResponseWriter, _ *http.Request) {
	resp := TabsResponse{OK: true, Sessions: []browser.Session{}}
	if h.browser != nil {
		resp.Connected = h.browser.IsConnected()
		resp.Sessions = h.browser.List()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) debugScrape(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.DebugScrape(r.Context()))
}

func (h *Handler) debugInvite(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.engine.DebugInvite(r.Context(), req.ProfileID, req.Note))
}

func (h *Handler) debugNext(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.DebugNextPage(r.Context()))
}

func (h *Handler) listOperations(w http.ResponseWriter, r *http.Request) {
	selected, err := h.settings.SelectedOperation(r.Context())
	if err != nil {
		logging.ControlError("read selected operation: %v", err)
		writeError(w, http.StatusInternalServerError, "store_error", "unable to read settings")
		return
	}
	writeJSON(w, http.StatusOK, OperationsResponse{OK: true, Selected: selected, Operations: operation.Registry})
}

func (h *Handler) getOperationConfig(w http.ResponseWriter, r *http.Request) {
	op, ok := lookupOperation(w, r)
	if !ok {
		return
	}
	stored, err := h.settings.OperationConfig(r.Context(), op.ID)
	if err != nil {
		logging.ControlError("read config for %s: %v", op.ID, err)
		writeError(w, http.StatusInternalServerError, "store_error", "unable to read settings")
		return
	}
	values := operation.Defaults(op)
	for k, v := range stored {
		if v != nil {
			values[k] = v
		}
	}
	writeJSON(w, http.StatusOK, ConfigResponse{OK: true, OpID: op.ID, Values: values})
}

func (h *Handler) putOperationConfig(w http.ResponseWriter, r *http.Request) {
	op, ok := lookupOperation(w, r)
	if !ok {
		return
	}
	var req ConfigRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cleaned, fieldErrs := operation.ValidateForm(op, req.Values)
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Code:        "validation_failed",
			Message:     "Please fix the highlighted fields.",
			FieldErrors: fieldErrs,
		})
		return
	}
	if err := h.settings.SaveOperationConfig(r.Context(), op.ID, cleaned); err != nil {
		logging.ControlError("save config for %s: %v", op.ID, err)
		writeError(w, http.StatusInternalServerError, "store_error", "unable to save settings")
		return
	}
	logging.Control("saved configuration for %s", op.ID)
	writeJSON(w, http.StatusOK, ConfigResponse{OK: true, Message: "Saved.", OpID: op.ID, Values: cleaned})
}

func lookupOperation(w http.ResponseWriter, r *http.Request) (operation.Operation, bool) {
	id := operation.ID(chi.URLParam(r, "id"))
	op, ok := operation.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_operation", "unknown operation "+string(id))
	}
	return op, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return false
	}
	return true
}
