package monitor

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"sentinel/internals/modules/probe"
	"sentinel/pkg/apperror"
	"sentinel/pkg/utils"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service, validator *validator.Validate) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
	}
}

func (h *Handler) CreateMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req CreateMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	m, err := h.service.CreateMonitor(ctx, CreateMonitorCmd{
		Name:           req.Name,
		Kind:           probe.Kind(req.Kind),
		Target:         req.Target,
		IntervalSec:    req.IntervalSec,
		TimeoutSec:     req.TimeoutSec,
		ExpectedStatus: req.ExpectedStatus,
		Policy:         req.Policy.toPolicy(),
		Enabled:        req.Enabled,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, reqID, "monitor created", toResponse(m))
}

func (h *Handler) ListMonitors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	monitors, err := h.service.ListMonitors(ctx)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	resp := make([]MonitorResponse, 0, len(monitors))
	for _, m := range monitors {
		resp = append(resp, toResponse(m))
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", resp)
}

func (h *Handler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := h.monitorID(w, r, reqID)
	if !ok {
		return
	}

	m, err := h.service.GetMonitor(ctx, id)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", toResponse(m))
}

func (h *Handler) UpdateMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := h.monitorID(w, r, reqID)
	if !ok {
		return
	}

	var req UpdateMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	m, err := h.service.UpdateMonitor(ctx, id, UpdateMonitorCmd{
		Name:           req.Name,
		Target:         req.Target,
		IntervalSec:    req.IntervalSec,
		TimeoutSec:     req.TimeoutSec,
		ExpectedStatus: req.ExpectedStatus,
		Policy:         req.Policy.toPolicy(),
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "monitor updated", toResponse(m))
}

func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := h.monitorID(w, r, reqID)
	if !ok {
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	if err := h.service.SetEnabled(ctx, id, *req.Enabled); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "monitor toggled", struct{}{})
}

func (h *Handler) DeleteMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := h.monitorID(w, r, reqID)
	if !ok {
		return
	}

	if err := h.service.DeleteMonitor(ctx, id); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "monitor deleted", struct{}{})
}

func (h *Handler) RuntimeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := h.monitorID(w, r, reqID)
	if !ok {
		return
	}

	st, err := h.service.RuntimeStatus(ctx, id)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", st)
}

// GET /{monitorID}/history?limit=50
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := h.monitorID(w, r, reqID)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "limit must be an integer")
			return
		}
		limit = n
	}

	results, err := h.service.History(ctx, id, limit)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", results)
}

// GET /{monitorID}/stats?window=24h
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, ok := h.monitorID(w, r, reqID)
	if !ok {
		return
	}

	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "window must be a duration like 24h")
			return
		}
		window = d
	}

	stats, err := h.service.Stats(ctx, id, window)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", stats)
}

func (h *Handler) monitorID(w http.ResponseWriter, r *http.Request, reqID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "monitorID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "monitor id must be a uuid")
		return uuid.UUID{}, false
	}
	return id, true
}
