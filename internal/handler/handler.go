// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer. It is the command
// transport of the roster: every engine operation has a route.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/content-roster/internal/display"
	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/Shivanand-hulikatti/content-roster/internal/service"
)

// RosterHandler holds all HTTP handlers for the roster API.
type RosterHandler struct {
	roster    *service.RosterService
	templates *service.TemplateService
	board     *display.Board
}

// NewRosterHandler constructs a RosterHandler. board may be nil, in which
// case the display route renders on demand.
func NewRosterHandler(roster *service.RosterService, templates *service.TemplateService, board *display.Board) *RosterHandler {
	return &RosterHandler{roster: roster, templates: templates, board: board}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// writeServiceError maps an error kind to its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
	if status == http.StatusInternalServerError && model.Kind(err) == nil {
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch model.Kind(err) {
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrNoMatch:
		return http.StatusUnprocessableEntity
	case model.ErrConflict:
		return http.StatusConflict
	case model.ErrInvalid:
		return http.StatusBadRequest
	case model.ErrStorage:
		return http.StatusServiceUnavailable
	case model.ErrDataCorruption:
		return http.StatusInternalServerError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pathParam returns a decoded URL parameter; names may contain spaces.
// chi matches against RawPath when the request has one, and only then is
// the parameter still escaped.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// resolve looks up the {ref} parameter, scoped to ?channel=.
func (h *RosterHandler) resolve(w http.ResponseWriter, r *http.Request) (*model.Content, bool) {
	c, err := h.roster.Resolve(r.Context(), pathParam(r, "ref"), r.URL.Query().Get("channel"))
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	return c, true
}

// resolveID is resolve for routes that only need the content id.
func (h *RosterHandler) resolveID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := h.roster.ResolveID(r.Context(), pathParam(r, "ref"), r.URL.Query().Get("channel"))
	if err != nil {
		writeServiceError(w, r, err)
		return 0, false
	}
	return id, true
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "userID must be a positive integer")
		return 0, false
	}
	return id, true
}

// ─── Templates ────────────────────────────────────────────────────────────────

// ListTemplates handles GET /templates?q=
// Returns template names matching q as autocomplete choices.
func (h *RosterHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	choices, err := h.templates.Choices(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

// GetTemplate handles GET /templates/{name}
func (h *RosterHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templates.Get(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// SaveTemplate handles PUT /templates/{name}
// Replaces the template wholesale from either parties or the text form.
func (h *RosterHandler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req model.SaveTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sum, err := h.templates.Save(r.Context(), pathParam(r, "name"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// EditTemplate handles GET /templates/{name}/edit
// Returns the text form, ready to be changed and sent back to PUT.
func (h *RosterHandler) EditTemplate(w http.ResponseWriter, r *http.Request) {
	text, err := h.templates.Edit(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SaveTemplateRequest{Text: text})
}

// DeleteTemplate handles DELETE /templates/{name}
func (h *RosterHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Remove(r.Context(), pathParam(r, "name")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Contents ─────────────────────────────────────────────────────────────────

// CreateContent handles POST /contents
func (h *RosterHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := h.roster.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListContents handles GET /contents?channel=&q=
// Returns the channel's contents, newest first, as "name - id" choices.
func (h *RosterHandler) ListContents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	choices, err := h.roster.ContentChoices(r.Context(), q.Get("channel"), q.Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

// GetContent handles GET /contents/{ref}?channel=
func (h *RosterHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteContent handles DELETE /contents/{ref}
func (h *RosterHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveID(w, r)
	if !ok {
		return
	}
	if err := h.roster.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Table ────────────────────────────────────────────────────────────────────

// Assign handles POST /contents/{ref}/assign
// An empty player or "-" clears every matching slot.
func (h *RosterHandler) Assign(w http.ResponseWriter, r *http.Request) {
	h.slotCommand(w, r, h.roster.Assign)
}

// Register handles POST /contents/{ref}/register
func (h *RosterHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.slotCommand(w, r, h.roster.DirectRegister)
}

func (h *RosterHandler) slotCommand(w http.ResponseWriter, r *http.Request,
	run func(ctx context.Context, id int64, query, player string) (*service.Outcome, error),
) {
	var req model.SlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id, ok := h.resolveID(w, r)
	if !ok {
		return
	}
	out, err := run(r.Context(), id, req.Role, req.Player)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Unassign handles POST /contents/{ref}/unassign
// Removes the player from every slot; "removed": 0 means they held none.
func (h *RosterHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	h.playerCommand(w, r, h.roster.Unassign)
}

// Kick handles POST /contents/{ref}/kick
// Removes waitlist entries by display name.
func (h *RosterHandler) Kick(w http.ResponseWriter, r *http.Request) {
	h.playerCommand(w, r, h.roster.Kick)
}

func (h *RosterHandler) playerCommand(w http.ResponseWriter, r *http.Request,
	run func(ctx context.Context, id int64, player string) (*service.Outcome, error),
) {
	var req model.PlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id, ok := h.resolveID(w, r)
	if !ok {
		return
	}
	out, err := run(r.Context(), id, req.Player)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── Waitlist ─────────────────────────────────────────────────────────────────

// Join handles POST /contents/{ref}/signups
func (h *RosterHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id, ok := h.resolveID(w, r)
	if !ok {
		return
	}
	out, err := h.roster.Join(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// Cancel handles DELETE /contents/{ref}/signups/{userID}
func (h *RosterHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	id, ok := h.resolveID(w, r)
	if !ok {
		return
	}
	out, err := h.roster.Cancel(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// JoinMessage handles POST /messages/{externalRef}/signups
// The sign-up button flow: content is identified by its displayed message.
func (h *RosterHandler) JoinMessage(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	out, err := h.roster.JoinByExternalRef(r.Context(), pathParam(r, "externalRef"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// CancelMessage handles DELETE /messages/{externalRef}/signups/{userID}
func (h *RosterHandler) CancelMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	out, err := h.roster.CancelByExternalRef(r.Context(), pathParam(r, "externalRef"), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── Autocomplete ─────────────────────────────────────────────────────────────

// RoleChoices handles GET /contents/{ref}/roles?q=
func (h *RosterHandler) RoleChoices(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveID(w, r)
	if !ok {
		return
	}
	choices, err := h.roster.RoleChoices(r.Context(), id, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

// PlayerChoices handles GET /contents/{ref}/players?source=table|waitlist&q=
func (h *RosterHandler) PlayerChoices(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	choices, err := h.roster.PlayerChoices(r.Context(), id, q.Get("source"), q.Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

// ─── Display ──────────────────────────────────────────────────────────────────

// Display handles GET /contents/{ref}/display
// Returns the latest pushed view, or a fresh render (version 0) when the
// board has none.
func (h *RosterHandler) Display(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveID(w, r)
	if !ok {
		return
	}
	if h.board != nil {
		if e, ok := h.board.Get(id); ok {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	v, err := h.roster.View(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, display.Entry{View: v})
}

// Refresh handles POST /contents/{ref}/refresh
func (h *RosterHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveID(w, r)
	if !ok {
		return
	}
	if err := h.roster.RefreshDisplay(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
