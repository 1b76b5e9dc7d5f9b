package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Wzesk/sd-export-server/pkg/design"
)

const maxDocumentBytes = 8 << 20 // 8MB upload limit

// readDocument decodes an uploaded document body: schema-validated raw JSON
// first, then split into reserved fields and payload.
func readDocument(w http.ResponseWriter, r *http.Request) (*design.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if err := design.ValidateUpload(raw); err != nil {
		return nil, err
	}

	var doc design.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// HandleUpload stores a new document. Re-uploading under an existing name
// creates a new version rather than overwriting.
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	doc, err := readDocument(w, r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	if _, err := s.store.Insert(r.Context(), doc); err != nil {
		WriteInternal(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// HandleList returns every stored document.
func (s *Server) HandleList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List(r.Context())
	if err != nil {
		WriteInternal(w, err)
		return
	}
	if docs == nil {
		docs = []design.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// HandleGet returns one document by id.
func (s *Server) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, design.ErrNotFound) {
			WriteNotFound(w, fmt.Sprintf("document %q not found", id))
			return
		}
		WriteInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleUpdate replaces name and payload of an existing document.
func (s *Server) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := readDocument(w, r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	ok, err := s.store.Update(r.Context(), id, doc.Name, doc.Payload)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	if !ok {
		WriteNotFound(w, fmt.Sprintf("document %q not found", id))
		return
	}

	updated, err := s.store.Get(r.Context(), id)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete removes a document.
func (s *Server) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := s.store.Delete(r.Context(), id)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	if !ok {
		WriteNotFound(w, fmt.Sprintf("document %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSearch returns documents whose name contains the given substring.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("name")
	if query == "" {
		query = r.URL.Query().Get("q")
	}
	if query == "" {
		WriteBadRequest(w, "query parameter \"name\" is required")
		return
	}

	docs, err := s.store.SearchByName(r.Context(), query)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	if docs == nil {
		docs = []design.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}
