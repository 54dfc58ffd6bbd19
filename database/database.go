// database/database.go

// Package database is the document-collection abstraction the mission and
// reward services persist through. Backends store raw JSON documents keyed by
// (collection, id); the generic helpers in this file handle encoding and wrap
// every failure in an *OpError naming the collection and operation.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("document not found")

// Document is one stored record.
type Document struct {
	ID   string
	Data []byte
}

// Store is implemented by each backend.
type Store interface {
	Connect(ctx context.Context) error
	Close() error
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Set(ctx context.Context, collection, id string, data []byte) error
	Delete(ctx context.Context, collection, id string) error
	// List returns every document in the collection ordered by id.
	List(ctx context.Context, collection string) ([]Document, error)
	Count(ctx context.Context, collection string) (int, error)
	Clear(ctx context.Context, collection string) error
}

// OpError is returned for any failed storage operation.
type OpError struct {
	Collection string
	Op         string
	Err        error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("database %s on %q failed: %v", e.Op, e.Collection, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(collection, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *OpError
	if errors.As(err, &existing) {
		return err
	}
	return &OpError{Collection: collection, Op: op, Err: err}
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func Get[T any](ctx context.Context, s Store, collection, id string) (*T, error) {
	raw, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, opErr(collection, "get", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, opErr(collection, "get", fmt.Errorf("decoding %s: %w", id, err))
	}
	return &out, nil
}

func Put(ctx context.Context, s Store, collection, id string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return opErr(collection, "set", fmt.Errorf("encoding %s: %w", id, err))
	}
	return opErr(collection, "set", s.Set(ctx, collection, id, raw))
}

// Update merges fields into the top level of the stored document.
func Update(ctx context.Context, s Store, collection, id string, fields map[string]any) error {
	raw, err := s.Get(ctx, collection, id)
	if err != nil {
		return opErr(collection, "update", err)
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return opErr(collection, "update", fmt.Errorf("decoding %s: %w", id, err))
	}
	for k, v := range fields {
		enc, err := json.Marshal(v)
		if err != nil {
			return opErr(collection, "update", fmt.Errorf("encoding field %s: %w", k, err))
		}
		doc[k] = enc
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return opErr(collection, "update", err)
	}
	return opErr(collection, "update", s.Set(ctx, collection, id, merged))
}

func Delete(ctx context.Context, s Store, collection, id string) error {
	return opErr(collection, "delete", s.Delete(ctx, collection, id))
}

func GetAll[T any](ctx context.Context, s Store, collection string) ([]T, error) {
	return GetWhere[T](ctx, s, collection, nil)
}

// GetWhere returns the documents matching pred. A nil pred matches everything.
func GetWhere[T any](ctx context.Context, s Store, collection string, pred func(T) bool) ([]T, error) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, opErr(collection, "getWhere", err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Data, &v); err != nil {
			return nil, opErr(collection, "getWhere", fmt.Errorf("decoding %s: %w", d.ID, err))
		}
		if pred == nil || pred(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func Count(ctx context.Context, s Store, collection string) (int, error) {
	n, err := s.Count(ctx, collection)
	if err != nil {
		return 0, opErr(collection, "count", err)
	}
	return n, nil
}

func Clear(ctx context.Context, s Store, collection string) error {
	return opErr(collection, "clear", s.Clear(ctx, collection))
}
