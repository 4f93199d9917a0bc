package normalize

// EnumMap maps free-text legacy values onto a closed set of canonical values.
// Lookups ignore case, spacing and punctuation. Unmapped non-blank input yields
// the fallback.
type EnumMap struct {
	table    map[string]string
	fallback string
}

// NewEnumMap builds an EnumMap from canonical value -> legacy synonyms. Each
// canonical value is also a synonym of itself.
func NewEnumMap(fallback string, synonyms map[string][]string) *EnumMap {
	m := &EnumMap{table: make(map[string]string), fallback: fallback}
	for canonical, words := range synonyms {
		m.table[enumKey(canonical)] = canonical
		for _, w := range words {
			m.table[enumKey(w)] = canonical
		}
	}
	if fallback != "" {
		m.table[enumKey(fallback)] = fallback
	}
	return m
}

// Map returns the canonical value for raw. ok is false only for blank input.
// matched reports whether raw was a known synonym rather than a fallback.
func (m *EnumMap) Map(raw string) (value string, matched bool, ok bool) {
	key := enumKey(raw)
	if key == "" {
		return "", false, false
	}
	if v, found := m.table[key]; found {
		return v, true, true
	}
	return m.fallback, false, true
}

// Fallback returns the value used for unknown input.
func (m *EnumMap) Fallback() string {
	return m.fallback
}

// OrganizationType maps legacy account types to organization types.
var OrganizationType = NewEnumMap("other", map[string][]string{
	"customer":   {"client", "account", "active customer", "current customer", "existing customer"},
	"prospect":   {"lead", "potential", "prospective", "target", "opportunity"},
	"partner":    {"alliance", "affiliate", "strategic partner"},
	"vendor":     {"supplier", "provider", "contractor"},
	"competitor": {"competition", "rival"},
	"investor":   {"investors", "vc", "shareholder"},
	"reseller":   {"distributor", "var", "channel partner", "dealer"},
})

// ActivityType maps legacy activity kinds to activity types.
var ActivityType = NewEnumMap("note", map[string][]string{
	"call":    {"phone", "phone call", "outbound call", "inbound call", "logged call", "voicemail"},
	"email":   {"e-mail", "mail", "sent email", "received email"},
	"meeting": {"appointment", "demo", "visit", "lunch", "conference"},
	"task":    {"todo", "to-do", "follow up", "follow-up", "reminder"},
	"note":    {"notes", "comment", "memo"},
	"sms":     {"text", "text message", "txt"},
})

// PhoneLabel maps legacy phone type columns to phone labels.
var PhoneLabel = NewEnumMap("other", map[string][]string{
	"mobile": {"cell", "cellular", "cell phone", "mobile phone", "iphone"},
	"main":   {"primary", "phone", "default", "main phone"},
	"work":   {"office", "business", "direct", "work phone"},
	"home":   {"personal", "residence", "home phone"},
	"fax":    {"facsimile"},
})
