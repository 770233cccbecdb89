// Package docstore is a thin document-store client. Each collection holds
// JSON documents keyed by an opaque string identifier; filters and patches
// are expressed over top-level JSON fields so callers never see store syntax.
package docstore

import (
	"context"
	"errors"
)

// IDField is the filter key that matches a document's identifier.
const IDField = "_id"

var (
	ErrNoDocuments = errors.New("no documents in result")
	ErrConstraint  = errors.New("constraint violated")
	ErrUnavailable = errors.New("store unavailable")
)

// Record is one stored document. Doc never contains the identifier.
type Record struct {
	ID  string
	Doc []byte
}

// Filter selects documents by equality on top-level fields. An empty
// filter matches every document.
type Filter map[string]any

// Patch lists top-level fields to overwrite; other fields are kept.
type Patch map[string]any

// Collection is the set of primitives the repository layer is built on.
// Single-document operations are atomic. When a filter matches several
// documents the earliest inserted one is used.
type Collection interface {
	Name() string
	InsertOne(ctx context.Context, rec Record) (Record, error)
	FindOne(ctx context.Context, filter Filter) (Record, error)
	Find(ctx context.Context, filter Filter) ([]Record, error)
	FindOneAndUpdate(ctx context.Context, filter Filter, patch Patch) (Record, error)
	FindOneAndDelete(ctx context.Context, filter Filter) (Record, error)
}
