package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/genq/internal/engine"
	"github.com/matthewbaird/genq/internal/schema"
)

// SchemaHandler describes the registered entities so clients can
// discover what is queryable.
type SchemaHandler struct {
	eng *engine.Engine
}

func NewSchemaHandler(eng *engine.Engine) *SchemaHandler {
	return &SchemaHandler{eng: eng}
}

type fieldInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Nullable bool   `json:"nullable,omitempty"`
}

type relationInfo struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	ToMany bool   `json:"to_many"`
}

type entityInfo struct {
	Name       string         `json:"name"`
	PrimaryKey string         `json:"primary_key"`
	Fields     []fieldInfo    `json:"fields"`
	Relations  []relationInfo `json:"relations"`
}

// ListEntities handles GET /v1/schema.
func (h *SchemaHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": h.eng.Registry().EntityNames(),
	})
}

// GetEntity handles GET /v1/schema/{entity}.
func (h *SchemaHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	et := h.eng.Registry().Entity(name)
	if et == nil {
		writeError(w, http.StatusNotFound, "UNKNOWN_ENTITY", "unknown entity: "+name)
		return
	}
	writeJSON(w, http.StatusOK, describeEntity(et))
}

func describeEntity(et *schema.EntityType) entityInfo {
	info := entityInfo{
		Name:       et.Name,
		PrimaryKey: et.PrimaryKey,
		Fields:     make([]fieldInfo, 0, len(et.FieldOrder)),
		Relations:  make([]relationInfo, 0, len(et.RelationOrder)),
	}
	for _, name := range et.FieldOrder {
		f := et.Fields[name]
		info.Fields = append(info.Fields, fieldInfo{
			Name:     f.Name,
			Kind:     f.Kind.String(),
			Nullable: f.Nullable,
		})
	}
	for _, name := range et.RelationOrder {
		rel := et.Relations[name]
		info.Relations = append(info.Relations, relationInfo{
			Name:   rel.Name,
			Target: rel.Target,
			ToMany: rel.ToMany,
		})
	}
	return info
}
