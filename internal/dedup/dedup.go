// Package dedup partitions ordered batches into first occurrences and repeats.
package dedup

import (
	"regexp"
	"strings"

	"crm-migrate/internal/model"
)

// Duplicate is a repeated item together with its key and the position of the
// occurrence that was kept.
type Duplicate[T any] struct {
	Item       T
	Key        string
	Index      int // position in the input
	FirstIndex int // position of the kept occurrence in the input
}

// Result is the partition of an input batch.
type Result[T any] struct {
	Unique     []T
	Duplicates []Duplicate[T]
}

// Partition keeps the first item per key in input order and collects every later
// occurrence as a duplicate. Items whose key is empty are never treated as
// duplicates. len(Unique)+len(Duplicates) always equals len(items).
func Partition[T any](items []T, key func(T) string) Result[T] {
	res := Result[T]{Unique: make([]T, 0, len(items))}
	seen := make(map[string]int, len(items))
	for i, item := range items {
		k := key(item)
		if k == "" {
			res.Unique = append(res.Unique, item)
			continue
		}
		if first, dup := seen[k]; dup {
			res.Duplicates = append(res.Duplicates, Duplicate[T]{Item: item, Key: k, Index: i, FirstIndex: first})
			continue
		}
		seen[k] = i
		res.Unique = append(res.Unique, item)
	}
	return res
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// ContactKey is lower(first)_lower(last), plus _lower(primary email) when present.
func ContactKey(c model.Contact) string {
	key := strings.ToLower(c.FirstName) + "_" + strings.ToLower(c.LastName)
	if email := c.PrimaryEmail(); email != "" {
		key += "_" + strings.ToLower(email)
	}
	return key
}

// OrganizationKey is the lower-cased name with runs of non-alphanumerics collapsed
// to a single underscore, so "Acme, Inc." and "ACME Inc" collide.
func OrganizationKey(o model.Organization) string {
	return strings.Trim(nonAlnumRun.ReplaceAllString(strings.ToLower(o.Name), "_"), "_")
}

// ActivityKey treats two activities as the same when type, timestamp, subject,
// notes and contact keys all agree. Date-only rows share a timestamp, so notes
// keep distinct same-day activities apart.
func ActivityKey(a model.Activity) string {
	return strings.Join([]string{
		a.Type,
		a.OccurredAt,
		strings.ToLower(a.Subject),
		strings.TrimSpace(a.Notes),
		strings.ToLower(a.ContactEmail),
		strings.ToLower(a.ContactName),
	}, "|")
}
