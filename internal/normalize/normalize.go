// Package normalize converts raw legacy field values into canonical forms.
//
// Every function is total: malformed input yields ok=false (or an empty result),
// never a panic or an error. All normalizers are idempotent on their own output.
package normalize

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the canonical date format.
const DateLayout = "2006-01-02"

// extensionRegex finds a trailing phone extension ("x12", "ext. 12", "extension 12").
var extensionRegex = regexp.MustCompile(`(?i)\s*(?:extension|ext\.?|x)\s*\.?\s*(\d+)\s*$`)

// emailRegex is deliberately permissive: something@something.tld, no whitespace.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Phone strips everything but digits and '+', keeping a trailing extension
// as " x<digits>". Returns ok=false when no digits remain.
func Phone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	ext := ""
	if m := extensionRegex.FindStringSubmatchIndex(s); m != nil {
		ext = s[m[2]:m[3]]
		s = s[:m[0]]
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	number := b.String()
	if strings.Trim(number, "+") == "" {
		return "", false
	}
	if ext != "" {
		number += " x" + ext
	}
	return number, true
}

// Digits counts the decimal digits of a phone value, ignoring any extension.
func Digits(phone string) int {
	if i := strings.Index(phone, " x"); i >= 0 {
		phone = phone[:i]
	}
	n := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// Email lower-cases and trims an address and checks it has a local@domain.tld shape.
func Email(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || !emailRegex.MatchString(s) {
		return "", false
	}
	return s, true
}

// URL returns an absolute http(s) URL. Values without a scheme get "https://".
func URL(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || strings.ContainsAny(u.Host, " \t") {
		return "", false
	}
	return u.String(), true
}

// dateOnlyLayouts are tried first, in order. US month-first forms win over
// day-first ones; legacy exports come from a US-locale system.
var dateOnlyLayouts = []string{
	DateLayout,
	"1/2/2006",
	"1-2-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"1/2/06",
	"20060102",
}

// dateTimeLayouts carry a time of day.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
}

// ParseDateTime parses a date or date-time value. hasTime reports whether the
// input carried a time of day. Zone-less values are taken as UTC.
func ParseDateTime(raw string) (t time.Time, hasTime bool, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false, false
	}
	for _, layout := range dateOnlyLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, false, true
		}
	}
	upper := strings.ToUpper(s)
	for _, layout := range dateTimeLayouts {
		if parsed, err := time.Parse(layout, upper); err == nil {
			return parsed.UTC(), true, true
		}
	}
	return time.Time{}, false, false
}

// Date normalizes a date (or date-time, whose time part is dropped) to YYYY-MM-DD.
func Date(raw string) (string, bool) {
	t, _, ok := ParseDateTime(raw)
	if !ok {
		return "", false
	}
	return t.Format(DateLayout), true
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04:05 PM", "3 PM", "3PM"}

// Clock parses a time of day such as "14:30", "2:30 pm" or "2PM".
func Clock(raw string) (hour, minute, second int, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return 0, 0, 0, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}

// Timestamp combines a date and an optional separate time-of-day column into an
// RFC 3339 UTC timestamp. A date-time value keeps its own time. A date-only value
// uses clock when it parses and noon UTC otherwise.
func Timestamp(date, clock string) (string, bool) {
	t, hasTime, ok := ParseDateTime(date)
	if !ok {
		return "", false
	}
	if !hasTime {
		h, m, sec, clockOK := Clock(clock)
		if !clockOK {
			h, m, sec = 12, 0, 0
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), h, m, sec, 0, time.UTC)
	}
	return t.UTC().Format(time.RFC3339), true
}

var (
	trueValues  = map[string]bool{"true": true, "yes": true, "1": true, "y": true, "on": true}
	falseValues = map[string]bool{"false": true, "no": true, "0": true, "n": true, "off": true}
)

// Bool maps yes/no style values to a boolean. Anything else is absent.
func Bool(raw string) (bool, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case trueValues[s]:
		return true, true
	case falseValues[s]:
		return false, true
	default:
		return false, false
	}
}

// Number parses a plain decimal number. NaN and infinities are absent.
func Number(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Tags splits a comma-separated list, trimming entries and dropping empties.
// The result is never nil.
func Tags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// MatchKey folds a string for case-insensitive identity comparison: Unicode
// case folding, NFC composition and collapsed whitespace.
func MatchKey(s string) string {
	folded := cases.Fold().String(strings.Join(strings.Fields(s), " "))
	return norm.NFC.String(folded)
}

// enumKey reduces enum input to lower-case letters and digits.
func enumKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
