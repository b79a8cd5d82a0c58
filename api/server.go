/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route
	definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi

	Chi was chosen for:
	- Lightweight and fast
	- Context-based
	- Middleware support
	- RESTful route patterns

MIDDLEWARE STACK:
 1. Logger:     Request logging
 2. Recoverer:  Panic recovery (500 instead of crash)
 3. RequestID:  Unique ID per request for tracing
 4. CORS:       Cross-origin requests during kiosk page development

STATIC FILE SERVING:

	Serves the built kiosk page from web/dist/ when present, with an
	index.html fallback for client-side routing. Without a build, a
	placeholder page lists the API endpoints.

SECURITY NOTE:

	No authentication middleware. The server binds on a factory-floor LAN
	for a single wall display; all endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Get("/streak", h.GetStreak)
		r.Get("/holidays", h.ListHolidays)

		// Calendar routes
		r.Route("/calendar", func(r chi.Router) {
			r.Post("/cycle", h.CycleDay)
			r.Put("/day", h.SetDay)
		})

		// Announcement routes
		r.Route("/announcements", func(r chi.Router) {
			r.Get("/", h.ListAnnouncements)
			r.Post("/", h.CreateAnnouncement)
			r.Put("/{id}", h.UpdateAnnouncement)
			r.Delete("/{id}", h.DeleteAnnouncement)
		})

		// Metric routes
		r.Route("/metrics", func(r chi.Router) {
			r.Get("/", h.ListMetrics)
			r.Post("/", h.CreateMetric)
			r.Put("/{id}", h.UpdateMetric)
			r.Delete("/{id}", h.DeleteMetric)
		})

		// Target routes
		r.Route("/target", func(r chi.Router) {
			r.Get("/", h.GetTarget)
			r.Put("/vars", h.UpdateTargetVars)
			r.Put("/formulas", h.UpdateTargetFormulas)
			r.Put("/records", h.UpdateTargetRecords)
		})

		// Poster routes
		r.Route("/posters", func(r chi.Router) {
			r.Put("/{slot}", h.SetPoster)
			r.Put("/{slot}/zoom", h.SetPosterZoom)
		})

		// Preference routes
		r.Route("/prefs", func(r chi.Router) {
			r.Get("/font-scale", h.GetFontScale)
			r.Put("/font-scale", h.SetFontScale)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/rollover", h.TriggerRollover)
		})
	})

	// Serve static files (kiosk page)
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		// Try relative to executable
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Safety Board</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Safety Board API</h1>
<p>The kiosk page is not built yet. Run <code>cd web && npm install && npm run build</code></p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/state">/api/state</a> - Full board state</li>
<li><a href="/api/streak">/api/streak</a> - Accident-free streak</li>
<li><a href="/api/target">/api/target</a> - Man-hour targets</li>
<li><a href="/api/holidays">/api/holidays</a> - Holiday labels</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
