package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Sessions   *SessionHandler
	Deals      *DealHandler
	Resources  *ResourceHandler
	Health     *HealthHandler
	Middleware []func(http.Handler) http.Handler
}

// methods dispatches on the request method, answering anything else with a
// METHOD_NOT_ALLOWED envelope.
type methods map[string]http.HandlerFunc

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler, ok := m[r.Method]; ok {
		handler(w, r)
		return
	}
	allowed := make([]string, 0, len(m))
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete} {
		if _, ok := m[method]; ok {
			allowed = append(allowed, method)
		}
	}
	methodNotAllowed(w, r, allowed...)
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Sessions != nil {
		h := cfg.Sessions
		mux.Handle("/deals/{dealID}/sessions", methods{
			http.MethodGet:  h.List,
			http.MethodPost: h.Create,
		})
		mux.Handle("/deals/{dealID}/sessions/sync", methods{http.MethodPost: h.Sync})
		mux.Handle("/deals/{dealID}/sessions/plan", methods{http.MethodGet: h.Plan})
		mux.Handle("/sessions", methods{
			http.MethodGet:  h.List,
			http.MethodPost: h.Create,
		})
		mux.Handle("/sessions/{id}", methods{
			http.MethodGet:    h.Get,
			http.MethodPatch:  h.Update,
			http.MethodDelete: h.Delete,
		})
	}

	if cfg.Deals != nil {
		h := cfg.Deals
		mux.Handle("/deals", methods{
			http.MethodGet:  h.List,
			http.MethodPost: h.Create,
		})
		mux.Handle("/deals/{dealID}", methods{
			http.MethodGet:    h.Get,
			http.MethodDelete: h.Delete,
		})
	}

	if cfg.Resources != nil {
		h := cfg.Resources
		mux.Handle("/rooms", methods{
			http.MethodGet:  h.ListRooms,
			http.MethodPost: h.CreateRoom,
		})
		mux.Handle("/trainers", methods{
			http.MethodGet:  h.ListTrainers,
			http.MethodPost: h.CreateTrainer,
		})
		mux.Handle("/trainers/{id}", methods{http.MethodPatch: h.UpdateTrainer})
		mux.Handle("/mobile-units", methods{
			http.MethodGet:  h.ListMobileUnits,
			http.MethodPost: h.CreateMobileUnit,
		})
	}

	if cfg.Health != nil {
		mux.Handle("/healthz", methods{http.MethodGet: cfg.Health.Check})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	newResponder(LoggerFromContext(r.Context())).writeError(r.Context(), w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
