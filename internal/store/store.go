// Package store is the target system the loader writes into.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-migrate/internal/config"
	"crm-migrate/internal/logging"
)

// Collection names. They match the entity names and are the default table names.
const (
	CollectionContacts      = "contacts"
	CollectionOrganizations = "organizations"
	CollectionActivities    = "activities"
)

// ErrUnknownStoreType is returned by New for an unsupported store type.
var ErrUnknownStoreType = errors.New("unknown store type")

// Document is one record in the shape it is stored: JSON field names as keys,
// nested sections as maps and slices.
type Document map[string]interface{}

// ContactRef is the slice of a stored contact needed to resolve activity references.
type ContactRef struct {
	ID        string
	FirstName string
	LastName  string
	Emails    []string
}

// Store is the target CRM storage. BulkInsert is all-or-nothing for the
// documents it is given; Insert stores a single document.
type Store interface {
	BulkInsert(ctx context.Context, collection string, docs []Document) (int64, error)
	Insert(ctx context.Context, collection string, doc Document) error
	ListContacts(ctx context.Context) ([]ContactRef, error)
	Close() error
}

// ToDocument converts a record to its stored shape. Top-level keys starting
// with "_" carry loader-only matching data and are dropped.
func ToDocument(v interface{}) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode record as document: %w", err)
	}
	for k := range doc {
		if strings.HasPrefix(k, "_") {
			delete(doc, k)
		}
	}
	return doc, nil
}

// New opens the store selected by cfg.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = defaultTimeout
	}
	switch strings.ToLower(cfg.Type) {
	case config.StoreTypePostgres:
		return NewPostgresStore(ctx, cfg.DSN, cfg.Tables, timeout)
	case config.StoreTypeFile:
		return NewFileStore(cfg.Dir)
	default:
		logging.Logf(logging.Error, "Unsupported store type: %s", cfg.Type)
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownStoreType, cfg.Type)
	}
}

// contactRefFromDocument extracts the matching data of a stored contact.
func contactRefFromDocument(doc Document) ContactRef {
	ref := ContactRef{
		ID:        fmt.Sprint(valueOrEmpty(doc["id"])),
		FirstName: fmt.Sprint(valueOrEmpty(doc["first_name"])),
		LastName:  fmt.Sprint(valueOrEmpty(doc["last_name"])),
	}
	if emails, ok := doc["emails"].([]interface{}); ok {
		ref.Emails = emailValues(emails)
	}
	return ref
}

// emailValues returns the "value" of each email entry.
func emailValues(emails []interface{}) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		if v, ok := m["value"].(string); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}

func valueOrEmpty(v interface{}) interface{} {
	if v == nil {
		return ""
	}
	return v
}
