package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/training-erp/internal/application"
	"github.com/example/training-erp/internal/provisioning"
)

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.SessionView, error)
	UpdateSession(ctx context.Context, params application.UpdateSessionParams) (application.SessionView, error)
	DeleteSession(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string, expand application.Expand) (application.SessionView, error)
	ListSessions(ctx context.Context, params application.ListSessionsParams) ([]application.SessionView, error)
	SyncDealSessions(ctx context.Context, dealID string) (provisioning.SyncResult, error)
	PlanDealSessions(ctx context.Context, dealID string) (provisioning.Plan, error)
}

// SessionHandler serves the session endpoints, both the deal scoped form and
// the /sessions?dealId= form.
type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

// List handles GET /deals/{dealID}/sessions and GET /sessions?dealId=.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dealID, ok := h.dealID(w, r)
	if !ok {
		return
	}
	expand, err := application.ParseExpand(r.URL.Query()["expand"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views, err := h.service.ListSessions(ctx, application.ListSessionsParams{
		DealID: dealID,
		Status: r.URL.Query().Get("estado"),
		Expand: expand,
	})
	if err != nil {
		h.log(ctx, "List", "deal_id", dealID).WarnContext(ctx, "session listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"sessions": toSessionDTOs(views)})
}

// Create handles POST /deals/{dealID}/sessions and POST /sessions?dealId=.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dealID, ok := h.dealID(w, r)
	if !ok {
		return
	}
	expand, err := application.ParseExpand(r.URL.Query()["expand"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	patch, fields := decodeSessionPatch(w, r)
	if fields != nil {
		h.log(ctx, "Create", "deal_id", dealID, "error_kind", "bad_request").WarnContext(ctx, "invalid session body")
		h.responder.writeValidation(ctx, w, fields)
		return
	}

	view, err := h.service.CreateSession(ctx, application.CreateSessionParams{DealID: dealID, Input: patch, Expand: expand})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusCreated, map[string]any{"session": toSessionDTO(view)})
}

// Get handles GET /sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(r.PathValue("id"))
	expand, err := application.ParseExpand(r.URL.Query()["expand"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	view, err := h.service.GetSession(ctx, id, expand)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"session": toSessionDTO(view)})
}

// Update handles PATCH /sessions/{id}.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(r.PathValue("id"))
	expand, err := application.ParseExpand(r.URL.Query()["expand"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	patch, fields := decodeSessionPatch(w, r)
	if fields != nil {
		h.log(ctx, "Update", "session_id", id, "error_kind", "bad_request").WarnContext(ctx, "invalid session body")
		h.responder.writeValidation(ctx, w, fields)
		return
	}

	view, err := h.service.UpdateSession(ctx, application.UpdateSessionParams{SessionID: id, Input: patch, Expand: expand})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"session": toSessionDTO(view)})
}

// Delete handles DELETE /sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(r.PathValue("id"))
	if err := h.service.DeleteSession(ctx, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"deleted": id})
}

// Sync handles POST /deals/{dealID}/sessions/sync.
func (h *SessionHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dealID := strings.TrimSpace(r.PathValue("dealID"))
	result, err := h.service.SyncDealSessions(ctx, dealID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"sync": toSyncDTO(result)})
}

// Plan handles GET /deals/{dealID}/sessions/plan.
func (h *SessionHandler) Plan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dealID := strings.TrimSpace(r.PathValue("dealID"))
	plan, err := h.service.PlanDealSessions(ctx, dealID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"plan": toPlanDTO(plan)})
}

// dealID reads the deal from the path or, on /sessions, from ?dealId=.
func (h *SessionHandler) dealID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if id := strings.TrimSpace(r.PathValue("dealID")); id != "" {
		return id, true
	}
	if id := strings.TrimSpace(r.URL.Query().Get("dealId")); id != "" {
		return id, true
	}
	h.responder.writeValidation(r.Context(), w, map[string]string{"dealId": "dealId is required"})
	return "", false
}
