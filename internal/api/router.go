// Package api exposes the gateway's HTTP routes and the MCP tool surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/nasagw/internal/nasa"
)

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Feeds     *nasa.Feeds
	Assistant Assistant
	// Model is the chat model id sent upstream; responses show it without
	// its variant suffix.
	Model    string
	Enhancer Enhancer

	AllowedOrigins []string

	// Metrics is optional. When set, /metrics is served, guarded by
	// MetricsToken if that is non-empty.
	Metrics      *Metrics
	MetricsToken string
}

// NewHandler returns the gateway router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(securityHeaders)
	r.Use(accessLog)
	r.Use(deps.Metrics.instrument)
	r.Use(recovery)
	r.Use(cors(deps.AllowedOrigins))

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleNotFound)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth)

		r.Get("/apod", handleFeed(nasa.FeatureAPOD, apodFeed(deps.Feeds)))
		r.Get("/mars-rover", handleFeed(nasa.FeatureMarsRover, roverFeed(deps.Feeds)))
		r.Get("/earth-imagery", handleFeed(nasa.FeatureEarthImagery, earthFeed(deps.Feeds)))
		r.Get("/neo", handleFeed(nasa.FeatureNEO, neoFeed(deps.Feeds)))
		r.Get("/epic", handleFeed(nasa.FeatureEPIC, epicFeed(deps.Feeds)))
		r.Get("/donki", handleFeed(nasa.FeatureDONKI, donkiFeed(deps.Feeds)))
		r.Get("/eonet", handleFeed(nasa.FeatureEONET, eonetFeed(deps.Feeds)))

		r.Post("/assistant", handleAssistant(deps.Assistant, deps.Model, deps.Metrics))
		r.Post("/enhance-image", handleEnhance(deps.Enhancer, deps.Metrics))
	})

	if deps.Metrics != nil {
		r.Group(func(r chi.Router) {
			if deps.MetricsToken != "" {
				r.Use(BearerAuth(deps.MetricsToken))
			}
			r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
		})
	}

	return r
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	httpError(w, http.StatusNotFound, "Route not found")
}
