package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/davinel000/highlighter-server/internal/api"
	"github.com/davinel000/highlighter-server/internal/buttons"
	"github.com/davinel000/highlighter-server/internal/config"
	"github.com/davinel000/highlighter-server/internal/document"
	"github.com/davinel000/highlighter-server/internal/forms"
	"github.com/davinel000/highlighter-server/internal/nav"
	"github.com/davinel000/highlighter-server/internal/storage"
	"github.com/davinel000/highlighter-server/internal/ws"
)

func main() {
	cfg := config.Load()

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize data directory: %v", err)
	}
	if err := os.MkdirAll(cfg.SourcesDir, 0755); err != nil {
		log.Fatalf("Failed to initialize sources directory: %v", err)
	}

	docs := document.NewStore(store, cfg.SourcesDir, cfg.DefaultDoc, cfg.DefaultSource)
	formsMgr := forms.NewManager(store)
	buttonsMgr := buttons.NewManager(store)
	hub := ws.NewHub()
	navHub := nav.NewHub()

	apiHandler := api.New(docs, formsMgr, buttonsMgr, hub, navHub)

	router := mux.NewRouter()
	apiHandler.Routes(router)

	handler := corsMiddleware(cfg.CORSOrigin, loggingMiddleware(router))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		os.Exit(0)
	}()

	log.Printf("🖍️ Highlighter server starting on %s", cfg.Addr)
	log.Printf("📁 Data: %s, sources: %s", cfg.DataDir, cfg.SourcesDir)
	log.Println("Endpoints:")
	log.Println("  - Document WS:  / (doc, client query params)")
	log.Println("  - Control WS:   /control (group query param)")
	log.Println("  - Health:       GET /health")
	log.Println("  - Documents:    GET /api/docs, /api/tokens, /api/state, /api/phrases")
	log.Println("  - Forms:        /api/forms/*")
	log.Println("  - Triggers:     /api/triggers/*")
	log.Println("  - Router:       /api/router/*")

	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.Printf("HTTP %s %s status=%d duration=%s", r.Method, r.URL.Path, m.Code, m.Duration)
	})
}

func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
