package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/genq/internal/engine"
)

// QueryHandler serves the query endpoint. The whole query string is
// the request: filters and commands are evaluated by the engine and
// the envelope always comes back with HTTP 200, carrying status=false
// on request errors. Only an unknown entity is an HTTP error.
type QueryHandler struct {
	eng *engine.Engine
}

func NewQueryHandler(eng *engine.Engine) *QueryHandler {
	return &QueryHandler{eng: eng}
}

// Query handles GET /v1/query/{entity}.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	result, err := h.eng.Evaluate(r.Context(), engine.Request{
		Entity:   entity,
		RawQuery: r.URL.RawQuery,
		User:     r.Header.Get("X-User"),
	})
	if err != nil {
		writeError(w, http.StatusNotFound, "UNKNOWN_ENTITY", "unknown entity: "+entity)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
