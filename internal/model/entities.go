package model

// Entity names a legacy export type. The value doubles as the target collection
// name and the artifact file stem.
type Entity string

const (
	EntityContacts      Entity = "contacts"
	EntityOrganizations Entity = "organizations"
	EntityActivities    Entity = "activities"
)

// Entities lists every entity type in load order. Activities come last because
// their contact references are resolved against already-loaded contacts.
var Entities = []Entity{EntityContacts, EntityOrganizations, EntityActivities}

// EmailAddress is one contact email.
type EmailAddress struct {
	Value     string `json:"value" validate:"required,email"`
	Label     string `json:"label"`
	IsPrimary bool   `json:"is_primary"`
}

// PhoneNumber is one contact phone number. Value holds digits and an optional
// leading '+', optionally followed by " x<extension>".
type PhoneNumber struct {
	Value     string `json:"value" validate:"required"`
	Label     string `json:"label"`
	IsPrimary bool   `json:"is_primary"`
}

// Address is a postal address.
type Address struct {
	Street1    string `json:"street1,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Label      string `json:"label,omitempty"`
}

// IsEmpty reports whether no address line is set. The label alone does not count.
func (a Address) IsEmpty() bool {
	return a.Street1 == "" && a.Street2 == "" && a.City == "" && a.State == "" && a.PostalCode == "" && a.Country == ""
}

// GeoPoint holds coordinates carried over from the legacy system.
type GeoPoint struct {
	Lat *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// --- Contact ---

// Contact is the normalized target record for a person.
type Contact struct {
	FirstName        string                   `json:"first_name" validate:"required"`
	LastName         string                   `json:"last_name" validate:"required"`
	Emails           []EmailAddress           `json:"emails" validate:"dive"`
	Phones           []PhoneNumber            `json:"phones" validate:"dive"`
	Addresses        []Address                `json:"addresses"`
	JobTitle         string                   `json:"job_title,omitempty"`
	Description      string                   `json:"description,omitempty"`
	Tags             []string                 `json:"tags"`
	CustomAttributes *ContactCustomAttributes `json:"custom_attributes,omitempty"`

	// Carried through for downstream owner/employer mapping; never stored.
	LegacyOwner    string `json:"_legacy_owner,omitempty"`
	LegacyEmployer string `json:"_legacy_employer,omitempty"`
}

// PrimaryEmail returns the value of the primary email, or "" when there is none.
func (c Contact) PrimaryEmail() string {
	for _, e := range c.Emails {
		if e.IsPrimary {
			return e.Value
		}
	}
	return ""
}

type ContactCustomAttributes struct {
	Personal    *ContactPersonal    `json:"personal,omitempty"`
	Social      *ContactSocial      `json:"social,omitempty"`
	Preferences *ContactPreferences `json:"preferences,omitempty"`
	Geo         *GeoPoint           `json:"geo,omitempty"`
	Legacy      *ContactLegacy      `json:"legacy,omitempty"`
}

type ContactPersonal struct {
	Birthday    string `json:"birthday,omitempty"`
	Anniversary string `json:"anniversary,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	Gender      string `json:"gender,omitempty"`
}

type ContactSocial struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Facebook string `json:"facebook,omitempty"`
	Website  string `json:"website,omitempty"`
}

type ContactPreferences struct {
	DoNotCall              *bool  `json:"do_not_call,omitempty"`
	DoNotEmail             *bool  `json:"do_not_email,omitempty"`
	Newsletter             *bool  `json:"newsletter,omitempty"`
	PreferredContactMethod string `json:"preferred_contact_method,omitempty"`
}

type ContactLegacy struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	Source    string `json:"source,omitempty"`
	Status    string `json:"status,omitempty"`
}

// --- Organization ---

// Organization types. Unknown legacy values map to OrgTypeOther.
const (
	OrgTypeCustomer   = "customer"
	OrgTypeProspect   = "prospect"
	OrgTypePartner    = "partner"
	OrgTypeVendor     = "vendor"
	OrgTypeCompetitor = "competitor"
	OrgTypeInvestor   = "investor"
	OrgTypeReseller   = "reseller"
	OrgTypeOther      = "other"
)

// OrganizationTypes is the closed set of organization type values.
var OrganizationTypes = []string{
	OrgTypeCustomer, OrgTypeProspect, OrgTypePartner, OrgTypeVendor,
	OrgTypeCompetitor, OrgTypeInvestor, OrgTypeReseller, OrgTypeOther,
}

// Organization is the normalized target record for a company.
type Organization struct {
	Name             string                        `json:"name" validate:"required"`
	Type             string                        `json:"type" validate:"required,organization_type"`
	Industry         string                        `json:"industry,omitempty"`
	Website          string                        `json:"website,omitempty"`
	Addresses        []Address                     `json:"addresses"`
	Tags             []string                      `json:"tags"`
	CustomAttributes *OrganizationCustomAttributes `json:"custom_attributes,omitempty"`
}

type OrganizationCustomAttributes struct {
	Social      *OrganizationSocial      `json:"social,omitempty"`
	Geo         *GeoPoint                `json:"geo,omitempty"`
	Operations  *OrganizationOperations  `json:"operations,omitempty"`
	Identifiers *OrganizationIdentifiers `json:"identifiers,omitempty"`
	Contacts    *OrganizationContacts    `json:"contacts,omitempty"`
	Legacy      *OrganizationLegacy      `json:"legacy,omitempty"`
}

type OrganizationSocial struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Facebook string `json:"facebook,omitempty"`
}

type OrganizationOperations struct {
	Employees     *float64 `json:"employees,omitempty"`
	AnnualRevenue *float64 `json:"annual_revenue,omitempty"`
	Founded       string   `json:"founded,omitempty"`
	FiscalYearEnd string   `json:"fiscal_year_end,omitempty"`
}

type OrganizationIdentifiers struct {
	TaxID              string `json:"tax_id,omitempty"`
	DUNS               string `json:"duns,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
}

type OrganizationContacts struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type OrganizationLegacy struct {
	ID        string `json:"id,omitempty"`
	Owner     string `json:"owner,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// --- Activity ---

// Activity types. Unknown legacy values map to ActivityTypeNote.
const (
	ActivityTypeCall    = "call"
	ActivityTypeEmail   = "email"
	ActivityTypeMeeting = "meeting"
	ActivityTypeTask    = "task"
	ActivityTypeNote    = "note"
	ActivityTypeSMS     = "sms"
)

// ActivityTypes is the closed set of activity type values.
var ActivityTypes = []string{
	ActivityTypeCall, ActivityTypeEmail, ActivityTypeMeeting,
	ActivityTypeTask, ActivityTypeNote, ActivityTypeSMS,
}

// DefaultActivityNotes replaces blank activity notes.
const DefaultActivityNotes = "No notes recorded"

// Activity is the normalized target record for a logged interaction.
type Activity struct {
	Type       string `json:"type" validate:"required,activity_type"`
	Subject    string `json:"subject,omitempty"`
	Notes      string `json:"notes" validate:"required"`
	OccurredAt string `json:"occurred_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`

	// Matching keys used by the loader to resolve contact_id; never stored.
	ContactEmail string `json:"_contact_email,omitempty"`
	ContactName  string `json:"_contact_name,omitempty"`
}

// HasContactKey reports whether the activity carries any key the loader can match on.
func (a Activity) HasContactKey() bool {
	return a.ContactEmail != "" || a.ContactName != ""
}
