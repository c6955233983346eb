package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load and Patch when the key does not exist.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the persistence collaborator of the pipeline. Documents
// are addressed by slash-separated paths such as "intel_profiles/u1"; logs
// are append-only collections.
type DocumentStore interface {
	// Load decodes the document at path into out.
	Load(ctx context.Context, path string, out any) error
	// Save replaces the document at path.
	Save(ctx context.Context, path string, value any) error
	// Patch sets top-level fields on an existing document.
	Patch(ctx context.Context, path string, fields map[string]any) error
	// Append adds a record to an append-only collection.
	Append(ctx context.Context, collection string, record any) error
	// List returns the document paths that start with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Close(ctx context.Context) error
}

// Path joins path segments.
func Path(parts ...string) string {
	return strings.Join(parts, "/")
}

// splitPath returns the collection and id of a document path.
func splitPath(path string) (string, string, error) {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", fmt.Errorf("invalid document path %q", path)
	}
	return path[:idx], path[idx+1:], nil
}

// toDocument converts a value to its generic JSON object form.
func toDocument(value any) (map[string]any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	return doc, nil
}

// mergeFields applies fields onto doc after normalising them to JSON values.
func mergeFields(doc map[string]any, fields map[string]any) (map[string]any, error) {
	normalised, err := toDocument(fields)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = make(map[string]any, len(normalised))
	}
	for k, v := range normalised {
		doc[k] = v
	}
	return doc, nil
}
