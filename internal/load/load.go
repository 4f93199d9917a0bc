// Package load writes validated records into the target store.
package load

import (
	"context"
	"fmt"
	"strings"

	"crm-migrate/internal/logging"
	"crm-migrate/internal/model"
	"crm-migrate/internal/normalize"
	"crm-migrate/internal/store"

	"github.com/google/uuid"
)

// DefaultBatchSize is the chunk size used when none is configured.
const DefaultBatchSize = 100

// newIDFunc generates record ids. Overridden in tests.
var newIDFunc = func() string { return uuid.NewString() }

// Loader inserts records chunk by chunk. A chunk whose bulk insert fails is
// retried one record at a time so that a bad record only costs itself.
type Loader struct {
	store     store.Store
	batchSize int
}

// New returns a Loader writing to s. A non-positive batchSize means DefaultBatchSize.
func New(s store.Store, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{store: s, batchSize: batchSize}
}

// pending is one record ready for insertion. index is its position in the
// batch handed to the loader.
type pending struct {
	index  int
	record interface{}
	doc    store.Document
}

// LoadContacts inserts contacts into the contacts collection.
func (l *Loader) LoadContacts(ctx context.Context, records []model.Contact, actorID string) (model.LoadResult, error) {
	return loadAll(ctx, l, store.CollectionContacts, records, actorID)
}

// LoadOrganizations inserts organizations into the organizations collection.
func (l *Loader) LoadOrganizations(ctx context.Context, records []model.Organization, actorID string) (model.LoadResult, error) {
	return loadAll(ctx, l, store.CollectionOrganizations, records, actorID)
}

func loadAll[T any](ctx context.Context, l *Loader, collection string, records []T, actorID string) (model.LoadResult, error) {
	result := newResult()
	for start := 0; start < len(records); start += l.batchSize {
		end := min(start+l.batchSize, len(records))
		chunk := make([]pending, 0, end-start)
		for i := start; i < end; i++ {
			p, err := prepare(i, records[i], actorID)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, model.LoadError{Index: i, Record: records[i], Error: err.Error()})
				continue
			}
			chunk = append(chunk, p)
		}
		if err := l.insertChunk(ctx, collection, start, chunk, &result); err != nil {
			return finish(collection, result), err
		}
	}
	return finish(collection, result), nil
}

// LoadActivities resolves each activity's contact against the contacts already
// in the store and inserts the ones that match. The email key is tried before
// the name key. Unmatched activities are skipped and reported once per chunk.
func (l *Loader) LoadActivities(ctx context.Context, records []model.Activity, actorID string) (model.LoadResult, error) {
	result := newResult()
	if len(records) == 0 {
		return finish(store.CollectionActivities, result), nil
	}

	refs, err := l.store.ListContacts(ctx)
	if err != nil {
		return finish(store.CollectionActivities, result), fmt.Errorf("failed to fetch contacts for activity matching: %w", err)
	}
	idx := newContactIndex(refs)
	logging.Logf(logging.Debug, "Activity matching: indexed %d contacts (%d emails, %d names)", len(refs), len(idx.byEmail), len(idx.byName))

	for start := 0; start < len(records); start += l.batchSize {
		end := min(start+l.batchSize, len(records))
		chunk := make([]pending, 0, end-start)
		var unmatched []int
		for i := start; i < end; i++ {
			contactID, ok := idx.resolve(records[i])
			if !ok {
				unmatched = append(unmatched, i)
				continue
			}
			p, err := prepare(i, records[i], actorID)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, model.LoadError{Index: i, Record: records[i], Error: err.Error()})
				continue
			}
			p.doc["contact_id"] = contactID
			chunk = append(chunk, p)
		}
		if len(unmatched) > 0 {
			result.Skipped += len(unmatched)
			result.Errors = append(result.Errors, model.LoadError{
				Index: start,
				Error: fmt.Sprintf("%d activities skipped: no matching contact (rows %s)", len(unmatched), joinInts(unmatched)),
			})
		}
		if err := l.insertChunk(ctx, store.CollectionActivities, start, chunk, &result); err != nil {
			return finish(store.CollectionActivities, result), err
		}
	}
	return finish(store.CollectionActivities, result), nil
}

// insertChunk tries one bulk insert and falls back to single inserts. It only
// returns an error when the context is done.
func (l *Loader) insertChunk(ctx context.Context, collection string, start int, chunk []pending, result *model.LoadResult) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("load of %s cancelled at record %d: %w", collection, start, err)
	}
	if len(chunk) == 0 {
		return nil
	}
	docs := make([]store.Document, len(chunk))
	for i, p := range chunk {
		docs[i] = p.doc
	}

	n, err := l.store.BulkInsert(ctx, collection, docs)
	if err == nil {
		result.Inserted += int(n)
		logging.Logf(logging.Debug, "Bulk inserted %d %s starting at record %d", n, collection, start)
		return nil
	}

	logging.Logf(logging.Warning, "Bulk insert of %d %s starting at record %d failed, retrying individually: %v", len(chunk), collection, start, err)
	for _, p := range chunk {
		if err := l.store.Insert(ctx, collection, p.doc); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, model.LoadError{Index: p.index, Record: p.record, Error: err.Error()})
			logging.Logf(logging.Debug, "Insert of %s record %d failed: %v", collection, p.index, err)
			continue
		}
		result.Inserted++
	}
	return nil
}

// prepare converts a record into a document with a fresh id and created_by.
func prepare(index int, record interface{}, actorID string) (pending, error) {
	doc, err := store.ToDocument(record)
	if err != nil {
		return pending{}, err
	}
	doc["id"] = newIDFunc()
	doc["created_by"] = actorID
	return pending{index: index, record: record, doc: doc}, nil
}

func newResult() model.LoadResult {
	return model.LoadResult{Errors: make([]model.LoadError, 0)}
}

func finish(collection string, result model.LoadResult) model.LoadResult {
	result.Success = len(result.Errors) == 0
	level := logging.Info
	if !result.Success {
		level = logging.Warning
	}
	logging.WithFields(level, logging.Fields{"entity": collection},
		"Load finished: %d inserted, %d failed, %d skipped", result.Inserted, result.Failed, result.Skipped)
	return result
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

// contactIndex maps activity contact keys to stored contact ids. The first
// contact seen wins on a shared key.
type contactIndex struct {
	byEmail map[string]string
	byName  map[string]string
}

func newContactIndex(refs []store.ContactRef) contactIndex {
	idx := contactIndex{byEmail: make(map[string]string), byName: make(map[string]string)}
	for _, ref := range refs {
		for _, e := range ref.Emails {
			key := strings.ToLower(strings.TrimSpace(e))
			if _, exists := idx.byEmail[key]; key != "" && !exists {
				idx.byEmail[key] = ref.ID
			}
		}
		key := normalize.MatchKey(ref.FirstName + " " + ref.LastName)
		if _, exists := idx.byName[key]; key != "" && !exists {
			idx.byName[key] = ref.ID
		}
	}
	return idx
}

func (idx contactIndex) resolve(a model.Activity) (string, bool) {
	if a.ContactEmail != "" {
		if id, ok := idx.byEmail[strings.ToLower(strings.TrimSpace(a.ContactEmail))]; ok {
			return id, true
		}
	}
	if a.ContactName != "" {
		if id, ok := idx.byName[normalize.MatchKey(a.ContactName)]; ok {
			return id, true
		}
	}
	return "", false
}
