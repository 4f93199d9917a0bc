package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"crm-migrate/internal/logging"
	"crm-migrate/internal/util"
)

// requiredColumns are the NOT NULL columns of each collection.
var requiredColumns = map[string][]string{
	CollectionContacts:      {"id", "first_name", "last_name"},
	CollectionOrganizations: {"id", "name", "type"},
	CollectionActivities:    {"id", "contact_id", "type", "occurred_at"},
}

// FileStore keeps collections in memory and persists each to
// <dir>/<collection>.json on Close. Existing files are loaded on open, so
// repeated runs append to the same store.
type FileStore struct {
	dir         string
	mu          sync.Mutex
	collections map[string][]Document
	dirty       map[string]bool
	closed      bool
}

// NewFileStore opens (creating if needed) a file store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	dir = util.ExpandEnvUniversal(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("FileStore failed to create directory '%s': %w", dir, err)
	}
	s := &FileStore{
		dir:         dir,
		collections: make(map[string][]Document),
		dirty:       make(map[string]bool),
	}
	for collection := range requiredColumns {
		path := s.path(collection)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("FileStore failed to read '%s': %w", path, err)
		}
		var docs []Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("FileStore failed to parse '%s': %w", path, err)
		}
		s.collections[collection] = docs
		logging.Logf(logging.Debug, "FileStore loaded %d existing documents from '%s'", len(docs), path)
	}
	return s, nil
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// checkDocument reports the first missing required column of doc.
func checkDocument(collection string, doc Document) error {
	for _, col := range requiredColumns[collection] {
		v, ok := doc[col]
		if !ok || v == nil || v == "" {
			return fmt.Errorf("null value in column \"%s\" of collection \"%s\" violates not-null constraint", col, collection)
		}
	}
	return nil
}

func (s *FileStore) checkCollection(collection string) error {
	if _, ok := requiredColumns[collection]; !ok {
		return fmt.Errorf("FileStore: unknown collection '%s'", collection)
	}
	if s.closed {
		return errors.New("FileStore: store is closed")
	}
	return nil
}

// BulkInsert stores every document, or none if any fails the column checks.
func (s *FileStore) BulkInsert(ctx context.Context, collection string, docs []Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCollection(collection); err != nil {
		return 0, err
	}
	for i, doc := range docs {
		if err := checkDocument(collection, doc); err != nil {
			return 0, fmt.Errorf("FileStore bulk insert into '%s' failed at document %d: %w", collection, i, err)
		}
	}
	s.collections[collection] = append(s.collections[collection], docs...)
	if len(docs) > 0 {
		s.dirty[collection] = true
	}
	return int64(len(docs)), nil
}

// Insert stores a single document.
func (s *FileStore) Insert(ctx context.Context, collection string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCollection(collection); err != nil {
		return err
	}
	if err := checkDocument(collection, doc); err != nil {
		return err
	}
	s.collections[collection] = append(s.collections[collection], doc)
	s.dirty[collection] = true
	return nil
}

// ListContacts returns the matching data of every stored contact.
func (s *FileStore) ListContacts(ctx context.Context) ([]ContactRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("FileStore: store is closed")
	}
	docs := s.collections[CollectionContacts]
	refs := make([]ContactRef, 0, len(docs))
	for _, doc := range docs {
		refs = append(refs, contactRefFromDocument(doc))
	}
	return refs, nil
}

// Count returns the number of documents in a collection.
func (s *FileStore) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

// Close writes every modified collection to disk. It is safe to call more than once.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	collections := make([]string, 0, len(s.dirty))
	for c := range s.dirty {
		collections = append(collections, c)
	}
	sort.Strings(collections)

	var firstErr error
	for _, collection := range collections {
		path := s.path(collection)
		data, err := json.MarshalIndent(s.collections[collection], "", "  ")
		if err == nil {
			err = os.WriteFile(path, append(data, '\n'), 0o644)
		}
		if err != nil {
			logging.Logf(logging.Error, "FileStore failed to persist '%s': %v", path, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("FileStore failed to persist '%s': %w", path, err)
			}
			continue
		}
		logging.Logf(logging.Info, "FileStore wrote %d documents to '%s'", len(s.collections[collection]), path)
	}
	return firstErr
}
