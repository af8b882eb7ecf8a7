package database

import "context"

// Document is one record from a collection: the generated id plus the raw
// field map the store returned.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Filter is an equality constraint on a single field. The remote store only
// supports equality filters at this boundary; everything richer happens
// client-side.
type Filter struct {
	Field string
	Value interface{}
}

// Query describes a read against one collection.
type Query struct {
	Filters []Filter
	// OrderBy sorts server-side by a single field when set. Combining it
	// with Filters requires a composite index, so most callers sort in
	// memory instead.
	OrderBy    string
	Descending bool
}

// Backend is the document-store boundary. Implementations: Firestore for
// production, Memory for tests.
type Backend interface {
	// Add creates a document with a generated id and returns the id.
	Add(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Get returns the document, or (nil, nil) when the id does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Set writes the full document at a caller-chosen id, creating or
	// replacing it.
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Update merge-writes the given fields into an existing document. It
	// fails if the document does not exist.
	Update(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Delete removes the document. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error
	// GetAll runs the query and returns every matching document.
	GetAll(ctx context.Context, collection string, q Query) ([]Document, error)
	// Subscribe invokes fn once with the current result set and again with
	// the full re-read result set after every remote change. The returned
	// func cancels the subscription.
	Subscribe(ctx context.Context, collection string, q Query, fn func([]Document)) (func(), error)
}

// Uploader is the blob-store boundary: write bytes under a path, get back a
// durable download URL.
type Uploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}
