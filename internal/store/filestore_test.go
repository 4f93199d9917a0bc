package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func contactDoc(id, first, last, email string) Document {
	doc := Document{"id": id, "first_name": first, "last_name": last}
	if email != "" {
		doc["emails"] = []interface{}{map[string]interface{}{"value": email, "is_primary": true}}
	}
	return doc
}

func TestFileStore_BulkInsertIsAtomic(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	docs := []Document{contactDoc("1", "Jane", "Doe", ""), contactDoc("2", "John", "", ""), contactDoc("3", "Ann", "Lee", "")}
	if _, err := s.BulkInsert(ctx, CollectionContacts, docs); err == nil {
		t.Fatal("expected bulk insert to fail on the missing last_name")
	} else if !strings.Contains(err.Error(), "document 1") || !strings.Contains(err.Error(), "last_name") {
		t.Errorf("error = %q", err)
	}
	if n := s.Count(CollectionContacts); n != 0 {
		t.Errorf("failed bulk insert stored %d documents", n)
	}

	for _, d := range docs {
		_ = s.Insert(ctx, CollectionContacts, d)
	}
	if n := s.Count(CollectionContacts); n != 2 {
		t.Errorf("individual inserts stored %d documents, want 2", n)
	}
}

func TestFileStore_UnknownCollection(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(context.Background(), "deals", Document{"id": "1"}); err == nil {
		t.Error("expected unknown collection error")
	}
}

func TestFileStore_PersistAndReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	ctx := context.Background()

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.BulkInsert(ctx, CollectionContacts, []Document{contactDoc("c1", "Jane", "Doe", "jane@example.com")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "contacts.json")); err != nil {
		t.Fatalf("contacts.json not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "activities.json")); !os.IsNotExist(err) {
		t.Errorf("untouched collection should not be written, stat err = %v", err)
	}
	if err := s.Insert(ctx, CollectionContacts, contactDoc("c2", "A", "B", "")); err == nil {
		t.Error("insert after Close should fail")
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	refs, err := reopened.ListContacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].ID != "c1" || refs[0].FirstName != "Jane" || len(refs[0].Emails) != 1 || refs[0].Emails[0] != "jane@example.com" {
		t.Errorf("refs = %+v", refs)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "contacts.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(dir); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("NewFileStore() error = %v, want parse error", err)
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.BulkInsert(ctx, CollectionContacts, []Document{contactDoc("1", "A", "B", "")}); err == nil {
		t.Error("expected context error")
	}
}
