package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/knadh/koanf/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jpilet/mediagraph"
)

// Init logs the server configuration before Run starts serving.
func Init(config *koanf.Koanf) {
	log.Info().Msgf("Running the introspection server on port: %s", config.String("port"))
}

// NewRouter builds the introspection router for a graph:
//
//	GET  /nodeList                          node names
//	GET  /props                             graph properties
//	GET  /node/{name}                       streams, pins and connections
//	GET  /node/{name}/props                 node properties
//	GET  /node/{name}/stream/{stream}       stream properties
//	GET  /node/{name}/pin/{pin}             pin properties
//	POST .../props/{prop}                   set a property value
//	GET  /metrics                           prometheus metrics
//	GET  /health                            liveness probe
func NewRouter(graph *mediagraph.Graph) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/health"))
	router.Use(middleware.CleanPath)
	router.Use(middleware.RequestID)

	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", GraphRouter(graph))

	return router
}

// Run serves the introspection API for graph until the listener fails.
func Run(graph *mediagraph.Graph, config *koanf.Koanf) {
	serverPort := config.String("port")

	err := http.ListenAndServe(":"+serverPort, NewRouter(graph))
	log.Error().Err(err).Msg("introspection server stopped")
}
