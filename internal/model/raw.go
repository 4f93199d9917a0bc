package model

import (
	"sort"
	"strings"
	"unicode"
)

// RawRecord is one row of a legacy export, keyed by the free-text column header
// exactly as it appeared in the file. Values are kept as strings; a missing column
// and a blank cell are treated the same by transformers.
type RawRecord map[string]string

// HeaderKey reduces a column header to the form used for lookups: lower-case,
// letters and digits only. "First Name", "first_name" and "FIRSTNAME" share a key.
func HeaderKey(header string) string {
	var b strings.Builder
	b.Grow(len(header))
	for _, r := range header {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Get returns the trimmed value of the first alias that is present with a
// non-blank value. Aliases are matched by HeaderKey.
func (r RawRecord) Get(aliases ...string) string {
	if len(r) == 0 {
		return ""
	}
	// Earlier aliases win over later ones regardless of column order.
	want := make(map[string]int, len(aliases))
	for i, alias := range aliases {
		if _, seen := want[HeaderKey(alias)]; !seen {
			want[HeaderKey(alias)] = i
		}
	}
	best, bestRank := "", len(aliases)
	for _, header := range r.headers() {
		rank, ok := want[HeaderKey(header)]
		if !ok || rank >= bestRank {
			continue
		}
		if v := strings.TrimSpace(r[header]); v != "" {
			best, bestRank = v, rank
		}
	}
	return best
}

// headers returns the column headers in sorted order. Headers sharing a HeaderKey
// ("Email", "E-mail") then resolve the same way on every call.
func (r RawRecord) headers() []string {
	headers := make([]string, 0, len(r))
	for h := range r {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return headers
}

// Fields converts the record into the parameter map used by filter expressions.
// Keys are the HeaderKey of each column so expressions can name columns without spaces.
func (r RawRecord) Fields() map[string]interface{} {
	params := make(map[string]interface{}, len(r))
	for _, header := range r.headers() {
		key, v := HeaderKey(header), strings.TrimSpace(r[header])
		if prev, ok := params[key]; ok && (prev != "" || v == "") {
			continue
		}
		params[key] = v
	}
	return params
}
