// Package repository is the generic data-access layer every entity type
// shares. It owns identifier generation, per-call timeouts, decoding, and the
// mapping of store failures onto a small set of error kinds.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/luxsuv-reservations/pkg/docstore"
	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
)

const DefaultTimeout = 3 * time.Second

var (
	ErrNotFound            = errors.New("document not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

type (
	Filter = docstore.Filter
	Patch  = docstore.Patch
)

// Document is implemented by entity types through an embedded Base.
type Document interface {
	DocumentID() string
	SetDocumentID(id string)
}

// Base carries the store-assigned identifier. It is serialized as "_id"
// and never written into the stored body.
type Base struct {
	ID string `json:"_id,omitempty"`
}

func (b Base) DocumentID() string       { return b.ID }
func (b *Base) SetDocumentID(id string) { b.ID = id }

// ByID is the filter matching a single identifier.
func ByID(id string) Filter {
	return Filter{docstore.IDField: id}
}

// PatchOf converts a struct of optional fields into a patch. Fields that
// encode as absent (nil pointers with omitempty) are left out.
func PatchOf(v any) (Patch, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	var p Patch
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	return p, nil
}

type Option func(*options)

type options struct {
	timeout time.Duration
	newID   func() string
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// Repository serves one collection of T. PT is always *T; it lets the
// repository reach the embedded Base without reflection.
type Repository[T any, PT interface {
	*T
	Document
}] struct {
	coll    docstore.Collection
	timeout time.Duration
	newID   func() string
}

func New[T any, PT interface {
	*T
	Document
}](coll docstore.Collection, opts ...Option) *Repository[T, PT] {
	o := options{timeout: DefaultTimeout, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T, PT]{coll: coll, timeout: o.timeout, newID: o.newID}
}

// Create stores doc under a freshly generated identifier. Any identifier
// already set on doc is ignored.
func (r *Repository[T, PT]) Create(ctx context.Context, doc T) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	PT(&doc).SetDocumentID("")
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.coll.Name(), err)
	}

	rec, err := r.coll.InsertOne(ctx, docstore.Record{ID: r.newID(), Doc: body})
	if err != nil {
		return nil, r.fail(ctx, "create", nil, err)
	}
	return r.decode(rec)
}

// FindOne returns the first document matching filter or ErrNotFound.
func (r *Repository[T, PT]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := r.coll.FindOne(ctx, filter)
	if err != nil {
		return nil, r.fail(ctx, "find one", filter, err)
	}
	return r.decode(rec)
}

// Find returns every match in insertion order. No match is an empty slice.
func (r *Repository[T, PT]) Find(ctx context.Context, filter Filter) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	recs, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, r.fail(ctx, "find", filter, err)
	}

	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		doc, err := r.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

// FindOneAndUpdate applies patch to the first match and returns the
// document as it is after the update. The identifier cannot be patched.
func (r *Repository[T, PT]) FindOneAndUpdate(ctx context.Context, filter Filter, patch Patch) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	clean := make(Patch, len(patch))
	for k, v := range patch {
		if k != docstore.IDField {
			clean[k] = v
		}
	}

	var (
		rec docstore.Record
		err error
	)
	if len(clean) == 0 {
		rec, err = r.coll.FindOne(ctx, filter)
	} else {
		rec, err = r.coll.FindOneAndUpdate(ctx, filter, clean)
	}
	if err != nil {
		return nil, r.fail(ctx, "update", filter, err)
	}
	return r.decode(rec)
}

// FindOneAndDelete removes the first match and returns it. When nothing
// matches it returns nil without an error.
func (r *Repository[T, PT]) FindOneAndDelete(ctx context.Context, filter Filter) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := r.coll.FindOneAndDelete(ctx, filter)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(ctx, "delete", filter, err)
	}
	return r.decode(rec)
}

func (r *Repository[T, PT]) decode(rec docstore.Record) (*T, error) {
	var doc T
	if err := json.Unmarshal(rec.Doc, &doc); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", r.coll.Name(), rec.ID, err)
	}
	PT(&doc).SetDocumentID(rec.ID)
	return &doc, nil
}

func (r *Repository[T, PT]) fail(ctx context.Context, op string, filter Filter, err error) error {
	coll := r.coll.Name()
	switch {
	case errors.Is(err, docstore.ErrNoDocuments):
		logger.WarnContext(ctx, "Document not found", "collection", coll, "op", op, "filter", filterKeys(filter))
		return ErrNotFound
	case errors.Is(err, docstore.ErrConstraint):
		return fmt.Errorf("%s %s: %w: %w", op, coll, ErrConstraintViolation, err)
	case errors.Is(err, docstore.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		logger.ErrorContext(ctx, "Store unavailable", "collection", coll, "op", op, "error", err)
		return fmt.Errorf("%s %s: %w: %w", op, coll, ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s %s: %w", op, coll, err)
	}
}

// filterKeys lists the fields a filter uses without logging their values.
func filterKeys(filter Filter) []string {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
