package design

import "context"

// Store is the document store collaborator. Both backends keep documents in
// a single table keyed by id, with the arbitrary payload serialized as JSON.
type Store interface {
	// List returns every stored document.
	List(ctx context.Context) ([]Document, error)
	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)
	// FindByName returns every document (version) sharing the given name.
	FindByName(ctx context.Context, name string) ([]Document, error)
	// SearchByName returns documents whose name contains the given
	// substring, case-insensitively.
	SearchByName(ctx context.Context, substr string) ([]Document, error)
	// Insert stores a new document and returns its id. A missing id is
	// generated; UploadedAt is stamped on the way in. Uploads never
	// overwrite: a re-upload under an existing name is a new version.
	Insert(ctx context.Context, doc *Document) (string, error)
	// Update replaces name and payload of an existing document and stamps
	// a fresh UploadedAt. Returns false when no document matched.
	Update(ctx context.Context, id string, name string, payload map[string]any) (bool, error)
	// Delete removes a document. Returns false when no document matched.
	Delete(ctx context.Context, id string) (bool, error)
	// Close releases the underlying connection.
	Close() error
}
