package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/justestif/go-stagehand/internal/room"
	"github.com/justestif/go-stagehand/internal/stage"
)

const maxPayloadBytes = 1 << 20

// Controller is the part of the stage controller driven over HTTP.
// *stage.Controller satisfies it.
type Controller interface {
	Notify(e room.Event)
	Trigger()
	SetGlued(ctx context.Context, glued bool) error
	Status() stage.Status
}

// Handlers contains HTTP handlers for the control API.
type Handlers struct {
	store     *room.Store
	ctrl      Controller
	hub       *Hub
	templates *Templates
	selfID    string
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store *room.Store, ctrl Controller, hub *Hub, templates *Templates, selfID string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:     store,
		ctrl:      ctrl,
		hub:       hub,
		templates: templates,
		selfID:    selfID,
		logger:    logger,
	}
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	stage.Status
	OnStage    bool             `json:"onStage"`
	Performers int              `json:"performers"`
	Humans     int              `json:"humans"`
	Current    *room.Track      `json:"currentTrack,omitempty"`
	History    []room.PlayEvent `json:"history"`
	Clients    int              `json:"effectClients"`
}

type eventRequest struct {
	Type        string    `json:"type"`
	PerformerID string    `json:"performerId"`
	Artist      string    `json:"artist"`
	Title       string    `json:"title"`
	At          time.Time `json:"at"`
}

type glueRequest struct {
	Glued *bool `json:"glued"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Snapshot accepts a raw room payload (POST /snapshot).
func (h *Handlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "reading body"})
		return
	}

	snap, err := room.Normalize(body, h.selfID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	h.store.Update(snap)
	h.ctrl.Trigger()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"performers": snap.PerformerCount(),
		"onStage":    snap.IsOnStage(),
	})
}

// Events accepts a discrete room event (POST /events).
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	kind, ok := room.ParseEventKind(req.Type)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown event type " + req.Type})
		return
	}

	e := room.Event{
		Kind:        kind,
		PerformerID: strings.TrimSpace(req.PerformerID),
		Track:       room.Track{Artist: strings.TrimSpace(req.Artist), Title: strings.TrimSpace(req.Title)},
		At:          req.At,
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	h.store.Apply(e)
	h.ctrl.Notify(e)

	w.WriteHeader(http.StatusAccepted)
}

// Glue sets the manual override (PUT /glue).
func (h *Handlers) Glue(w http.ResponseWriter, r *http.Request) {
	var req glueRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes)).Decode(&req); err != nil || req.Glued == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `body must be {"glued": bool}`})
		return
	}

	if err := h.ctrl.SetGlued(r.Context(), *req.Glued); err != nil {
		h.logger.Warn("setting glue", "glued", *req.Glued, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	if !*req.Glued {
		h.ctrl.Trigger()
	}

	writeJSON(w, http.StatusOK, h.status())
}

// Status returns the stage state, pending track and exclusions (GET /status).
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

// Healthz reports liveness (GET /healthz).
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// Home renders the status page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, func(t *Templates, w io.Writer, data StatusPageData) error {
		return t.Render(w, "status", data)
	})
}

// StatusPartial renders the status fragment for periodic refresh
// (GET /partials/status).
func (h *Handlers) StatusPartial(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, func(t *Templates, w io.Writer, data StatusPageData) error {
		return t.RenderPartial(w, "stage", data)
	})
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, fn func(*Templates, io.Writer, StatusPageData) error) {
	if h.templates == nil {
		http.NotFound(w, r)
		return
	}

	data := StatusPageData{
		PageData: PageData{Title: "stagehand", CurrentPath: r.URL.Path},
		Status:   h.status(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fn(h.templates, w, data); err != nil {
		h.logger.Error("rendering template", "error", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func (h *Handlers) status() StatusResponse {
	snap := h.store.Snapshot()
	resp := StatusResponse{
		Status:     h.ctrl.Status(),
		OnStage:    snap.IsOnStage(),
		Performers: snap.PerformerCount(),
		Humans:     snap.HumanPerformerCount(),
		Current:    snap.CurrentTrack,
		History:    h.store.History(10),
	}
	if h.hub != nil {
		resp.Clients = h.hub.Clients()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		slog.Default().Debug("writing response", "error", err)
	}
}
