// Package design holds the parametric-design document model and the
// document store collaborators backing it.
package design

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no document matches the given identifier
	// or name.
	ErrNotFound = errors.New("document not found")
	// ErrVersionOutOfRange is returned when a version index falls outside
	// the group's valid range.
	ErrVersionOutOfRange = errors.New("version out of range")
)

// Document is one stored design document. Documents sharing a Name are
// versions of the same logical design; ordering by UploadedAt descending
// defines version 0 as the current one. Payload carries every field of the
// uploaded JSON beyond the reserved ones.
type Document struct {
	ID         string
	Name       string
	UploadedAt time.Time
	Payload    map[string]any
}

// reserved top-level fields; everything else lives in Payload.
const (
	fieldID         = "_id"
	fieldName       = "name"
	fieldUploadedAt = "uploadedAt"
)

// MarshalJSON flattens the payload fields to the top level, the way the
// documents were uploaded.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Payload)+3)
	for k, v := range d.Payload {
		out[k] = v
	}
	out[fieldID] = d.ID
	out[fieldName] = d.Name
	if !d.UploadedAt.IsZero() {
		out[fieldUploadedAt] = d.UploadedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits reserved fields from the arbitrary payload.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw[fieldID].(string); ok {
		d.ID = v
	}
	if v, ok := raw[fieldName].(string); ok {
		d.Name = v
	}
	if v, ok := raw[fieldUploadedAt].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			d.UploadedAt = t
		}
	}
	delete(raw, fieldID)
	delete(raw, fieldName)
	delete(raw, fieldUploadedAt)
	d.Payload = raw
	return nil
}

// NormalizeID canonicalizes a document identifier. Valid UUIDs are rewritten
// to their canonical string form; anything else passes through as a plain
// string id (legacy uploads used free-form ids).
func NormalizeID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}

// SortVersions orders a name-group newest-first. The input is not modified.
func SortVersions(docs []Document) []Document {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UploadedAt.After(sorted[j].UploadedAt)
	})
	return sorted
}

// VersionAt returns the document at the given 0-based version index of a
// name-group, where index 0 is the most recently uploaded document.
func VersionAt(docs []Document, index int) (*Document, error) {
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	if index < 0 || index >= len(docs) {
		return nil, fmt.Errorf("version %d outside valid range [0, %d]: %w",
			index, len(docs)-1, ErrVersionOutOfRange)
	}
	sorted := SortVersions(docs)
	return &sorted[index], nil
}

// LatestEntry is the newest document of a name-group plus the group size.
type LatestEntry struct {
	Document
	VersionCount int
}

// MarshalJSON emits the flattened document with the version count alongside.
// Without this the promoted Document marshaler would drop the count.
func (e LatestEntry) MarshalJSON() ([]byte, error) {
	data, err := e.Document.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	out["versionCount"] = e.VersionCount
	return json.Marshal(out)
}

// LatestPerName groups documents by name and returns each group's current
// version annotated with the total version count. Output is ordered by name
// so listings are stable.
func LatestPerName(docs []Document) []LatestEntry {
	groups := make(map[string][]Document)
	for _, d := range docs {
		groups[d.Name] = append(groups[d.Name], d)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]LatestEntry, 0, len(names))
	for _, name := range names {
		sorted := SortVersions(groups[name])
		entries = append(entries, LatestEntry{
			Document:     sorted[0],
			VersionCount: len(sorted),
		})
	}
	return entries
}
