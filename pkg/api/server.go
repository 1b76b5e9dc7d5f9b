package api

import (
	"log/slog"
	"net/http"

	"github.com/Wzesk/sd-export-server/pkg/design"
	"github.com/Wzesk/sd-export-server/pkg/export"
	"github.com/Wzesk/sd-export-server/pkg/observability"
)

// Server bundles the handlers' collaborators.
type Server struct {
	store    design.Store
	resolver *export.Resolver
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewServer creates the API server.
func NewServer(store design.Store, resolver *export.Resolver, logger *slog.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, resolver: resolver, logger: logger, metrics: metrics}
}

// Routes builds the route table. Literal segments (search, latest, versions)
// take precedence over the {id} wildcard.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/data/download", s.HandleDownload)

	mux.HandleFunc("GET /api/data", s.HandleList)
	mux.HandleFunc("POST /api/data", s.HandleUpload)
	mux.HandleFunc("GET /api/data/search", s.HandleSearch)
	mux.HandleFunc("GET /api/data/latest", s.HandleLatest)
	mux.HandleFunc("GET /api/data/versions/{name}", s.HandleVersions)
	mux.HandleFunc("GET /api/data/versions/{name}/{version}", s.HandleVersionAt)
	mux.HandleFunc("GET /api/data/{id}", s.HandleGet)
	mux.HandleFunc("PUT /api/data/{id}", s.HandleUpdate)
	mux.HandleFunc("DELETE /api/data/{id}", s.HandleDelete)

	mux.HandleFunc("GET /health", s.HandleHealth)

	return mux
}

// HandleHealth reports liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
