package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Wzesk/sd-export-server/pkg/design"
)

// versionListing is the response of the per-name version endpoint.
type versionListing struct {
	Name     string            `json:"name"`
	Count    int               `json:"count"`
	Versions []design.Document `json:"versions"`
}

// HandleVersions lists every version of a named design, newest first
// (version 0 leading).
func (s *Server) HandleVersions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	docs, err := s.store.FindByName(r.Context(), name)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	if len(docs) == 0 {
		WriteNotFound(w, fmt.Sprintf("no documents named %q", name))
		return
	}

	sorted := design.SortVersions(docs)
	writeJSON(w, http.StatusOK, versionListing{
		Name:     name,
		Count:    len(sorted),
		Versions: sorted,
	})
}

// HandleVersionAt returns one version of a named design by 0-based index,
// where 0 is the most recent upload.
func (s *Server) HandleVersionAt(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	index, err := strconv.Atoi(r.PathValue("version"))
	if err != nil {
		WriteBadRequest(w, "version must be an integer index")
		return
	}

	docs, err := s.store.FindByName(r.Context(), name)
	if err != nil {
		WriteInternal(w, err)
		return
	}

	doc, err := design.VersionAt(docs, index)
	if err != nil {
		switch {
		case errors.Is(err, design.ErrNotFound):
			WriteNotFound(w, fmt.Sprintf("no documents named %q", name))
		case errors.Is(err, design.ErrVersionOutOfRange):
			WriteNotFound(w, err.Error())
		default:
			WriteInternal(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleLatest returns the current version of every named design, annotated
// with each name's version count.
func (s *Server) HandleLatest(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List(r.Context())
	if err != nil {
		WriteInternal(w, err)
		return
	}
	entries := design.LatestPerName(docs)
	if entries == nil {
		entries = []design.LatestEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
