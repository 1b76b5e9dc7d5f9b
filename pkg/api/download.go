package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Wzesk/sd-export-server/pkg/export"
)

// downloadRequest selects which export of a stored design to resolve.
// The computation ticket is never accepted here; it is server configuration.
type downloadRequest struct {
	DesignID     string `json:"designId"`
	Endpoint     string `json:"shapediverEndpoint"`
	ExportType   string `json:"exportType"`
	NameContains string `json:"exportNameContains"`
	ContentType  string `json:"contentType"`
	BypassCache  bool   `json:"bypassCache"`
}

// HandleDownload runs the export pipeline and streams the artifact back.
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}
	if req.DesignID == "" {
		WriteBadRequest(w, "designId is required")
		return
	}

	start := time.Now()
	result, err := s.resolver.Resolve(r.Context(), export.Request{
		DesignID:             req.DesignID,
		Endpoint:             req.Endpoint,
		ExportKind:           req.ExportType,
		NameContains:         req.NameContains,
		PreferredContentType: req.ContentType,
		BypassCache:          req.BypassCache,
	})
	if err != nil {
		s.metrics.RecordResolve(r.Context(), "error", false, time.Since(start))
		WriteExportError(w, err)
		return
	}
	s.metrics.RecordResolve(r.Context(), "ok", result.CacheHit, time.Since(start))

	cacheState := "MISS"
	if result.CacheHit {
		cacheState = "HIT"
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Bytes)))
	w.Header().Set("X-Cache", cacheState)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Bytes)
}
