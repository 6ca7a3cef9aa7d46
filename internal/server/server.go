// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/genq/internal/console"
	"github.com/matthewbaird/genq/internal/engine"
	"github.com/matthewbaird/genq/internal/handler"
)

// Config holds server configuration.
type Config struct {
	Port   int
	Engine *engine.Engine
}

// Routes builds the router with all endpoints registered.
func Routes(eng *engine.Engine) chi.Router {
	r := chi.NewRouter()
	r.Use(handler.Recovery, handler.Logging)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	qh := handler.NewQueryHandler(eng)
	r.Get("/v1/query/{entity}", qh.Query)

	sh := handler.NewSchemaHandler(eng)
	r.Get("/v1/schema", sh.ListEntities)
	r.Get("/v1/schema/{entity}", sh.GetEntity)

	r.Get("/v1/console", console.NewHandler(eng).ServeHTTP)

	return r
}

// Run starts the HTTP server and shuts it down when ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: Routes(cfg.Engine),
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	return server.ListenAndServe()
}
