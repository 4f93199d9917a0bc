package transform

import (
	"crm-migrate/internal/dedup"
	"crm-migrate/internal/model"
	"crm-migrate/internal/normalize"
)

var (
	colFirstName          = []string{"First Name", "FirstName", "Given Name", "First"}
	colLastName           = []string{"Last Name", "LastName", "Surname", "Family Name", "Last"}
	colJobTitle           = []string{"Job Title", "Title", "Position"}
	colContactDescription = []string{"Description", "Notes", "Comments", "Background"}
	colOwner              = []string{"Owner", "Contact Owner", "Assigned To", "Account Manager"}
	colEmployer           = []string{"Company", "Company Name", "Organization", "Account Name", "Employer"}
)

// emailColumn is a source column that yields one email address.
type emailColumn struct {
	aliases []string
	field   string
	label   string
	primary bool
}

var contactEmailColumns = []emailColumn{
	{aliases: []string{"Email", "Email Address", "Primary Email"}, field: "email", label: "primary", primary: true},
	{aliases: []string{"Secondary Email", "Other Email", "Email 2", "Alternate Email"}, field: "secondary_email", label: "secondary"},
	{aliases: []string{"Work Email", "Business Email"}, field: "work_email", label: "work"},
}

// phoneColumn is a source column that yields one phone number. A labelFrom column,
// when present, overrides the default label through normalize.PhoneLabel.
type phoneColumn struct {
	aliases   []string
	field     string
	label     string
	labelFrom []string
	primary   bool
}

// Column order decides which primary candidate survives: mobile wins.
var contactPhoneColumns = []phoneColumn{
	{aliases: []string{"Mobile Phone", "Mobile", "Cell", "Cell Phone"}, field: "mobile_phone", label: "mobile", primary: true},
	{aliases: []string{"Phone", "Phone Number", "Main Phone", "Primary Phone"}, field: "phone", label: "main", labelFrom: []string{"Phone Type", "Phone Label"}, primary: true},
	{aliases: []string{"Work Phone", "Business Phone", "Office Phone"}, field: "work_phone", label: "work"},
	{aliases: []string{"Home Phone"}, field: "home_phone", label: "home"},
	{aliases: []string{"Fax", "Fax Number"}, field: "fax", label: "fax"},
}

// TransformContacts converts legacy contact rows into contacts.
func TransformContacts(rows []model.RawRecord, opts Options) model.Artifact[model.Contact] {
	return run(rows, opts, entityRules[model.Contact]{
		entity:   model.EntityContacts,
		convert:  convertContact,
		key:      dedup.ContactKey,
		keyField: "first_name,last_name,email",
		count:    countContactFields,
	})
}

func convertContact(row model.RawRecord, d *rowDiagnostics) model.Contact {
	c := model.Contact{
		FirstName: row.Get(colFirstName...),
		LastName:  row.Get(colLastName...),
	}
	if c.FirstName == "" {
		d.errorf("first_name", "", "first name is required")
	}
	if c.LastName == "" {
		d.errorf("last_name", "", "last name is required")
	}
	if d.failed {
		return c
	}

	c.Emails = contactEmails(row, d)
	c.Phones = contactPhones(row, d)
	c.Addresses = addresses(row, "main")
	c.JobTitle = row.Get(colJobTitle...)
	c.Description = row.Get(colContactDescription...)
	c.Tags = tags(row)
	c.CustomAttributes = contactAttributes(row, d)
	c.LegacyOwner = row.Get(colOwner...)
	c.LegacyEmployer = row.Get(colEmployer...)
	return c
}

func contactEmails(row model.RawRecord, d *rowDiagnostics) []model.EmailAddress {
	emails := []model.EmailAddress{}
	seen := map[string]bool{}
	for _, col := range contactEmailColumns {
		raw := row.Get(col.aliases...)
		v := d.email(col.field, raw)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		emails = append(emails, model.EmailAddress{Value: v, Label: col.label, IsPrimary: col.primary})
	}

	primary := -1
	for i := range emails {
		if !emails[i].IsPrimary {
			continue
		}
		if primary >= 0 {
			emails[i].IsPrimary = false
			d.warnf("emails", emails[i].Value, "more than one primary email; demoted")
			continue
		}
		primary = i
	}
	if primary < 0 && len(emails) > 0 {
		emails[0].IsPrimary = true
	}
	return emails
}

func contactPhones(row model.RawRecord, d *rowDiagnostics) []model.PhoneNumber {
	phones := []model.PhoneNumber{}
	for _, col := range contactPhoneColumns {
		v := d.phone(col.field, row.Get(col.aliases...))
		if v == "" {
			continue
		}
		label := col.label
		if len(col.labelFrom) > 0 {
			if mapped, _, ok := normalize.PhoneLabel.Map(row.Get(col.labelFrom...)); ok {
				label = mapped
			}
		}
		phones = append(phones, model.PhoneNumber{Value: v, Label: label, IsPrimary: col.primary})
	}

	primary := -1
	for i := range phones {
		if !phones[i].IsPrimary {
			continue
		}
		if primary >= 0 {
			phones[i].IsPrimary = false
			d.warnf("phones", phones[i].Value, "more than one primary phone; kept %s as primary", phones[primary].Label)
			continue
		}
		primary = i
	}
	if primary < 0 && len(phones) > 0 {
		phones[0].IsPrimary = true
	}
	return phones
}

// contactAttributes assembles custom_attributes, pruning empty sections and
// returning nil when nothing is left.
func contactAttributes(row model.RawRecord, d *rowDiagnostics) *model.ContactCustomAttributes {
	var attrs model.ContactCustomAttributes

	personal := model.ContactPersonal{
		Birthday:    d.date("custom_attributes.personal.birthday", row.Get("Birthday", "Birth Date", "Date of Birth", "DOB")),
		Anniversary: d.date("custom_attributes.personal.anniversary", row.Get("Anniversary")),
		Nickname:    row.Get("Nickname", "Preferred Name"),
		Gender:      row.Get("Gender"),
	}
	if personal != (model.ContactPersonal{}) {
		attrs.Personal = &personal
	}

	social := model.ContactSocial{
		LinkedIn: d.url("custom_attributes.social.linkedin", row.Get(colLinkedIn...)),
		Twitter:  row.Get(colTwitter...),
		Facebook: d.url("custom_attributes.social.facebook", row.Get(colFacebook...)),
		Website:  d.url("custom_attributes.social.website", row.Get("Website", "Personal Website", "Web")),
	}
	if social != (model.ContactSocial{}) {
		attrs.Social = &social
	}

	prefs := model.ContactPreferences{
		DoNotCall:              d.boolean("custom_attributes.preferences.do_not_call", row.Get("Do Not Call", "DNC")),
		DoNotEmail:             d.boolean("custom_attributes.preferences.do_not_email", row.Get("Do Not Email", "Email Opt Out")),
		Newsletter:             d.boolean("custom_attributes.preferences.newsletter", row.Get("Newsletter", "Newsletter Opt In", "Subscribed")),
		PreferredContactMethod: lower(row.Get("Preferred Contact Method", "Contact Preference")),
	}
	if prefs != (model.ContactPreferences{}) {
		attrs.Preferences = &prefs
	}

	attrs.Geo = d.geo(row)

	legacy := model.ContactLegacy{
		ID:        row.Get(colLegacyID...),
		CreatedAt: d.date("custom_attributes.legacy.created_at", row.Get(colCreatedAt...)),
		Source:    row.Get("Lead Source", "Source"),
		Status:    row.Get("Status", "Lead Status", "Contact Status"),
	}
	if legacy != (model.ContactLegacy{}) {
		attrs.Legacy = &legacy
	}

	if attrs == (model.ContactCustomAttributes{}) {
		return nil
	}
	return &attrs
}

func countContactFields(c model.Contact, counts map[string]int) {
	countIf(counts, "first_name", c.FirstName != "")
	countIf(counts, "last_name", c.LastName != "")
	countIf(counts, "emails", len(c.Emails) > 0)
	countIf(counts, "phones", len(c.Phones) > 0)
	countIf(counts, "addresses", len(c.Addresses) > 0)
	countIf(counts, "job_title", c.JobTitle != "")
	countIf(counts, "description", c.Description != "")
	countIf(counts, "tags", len(c.Tags) > 0)
	countIf(counts, "_legacy_owner", c.LegacyOwner != "")
	countIf(counts, "_legacy_employer", c.LegacyEmployer != "")
	if ca := c.CustomAttributes; ca != nil {
		countIf(counts, "custom_attributes.personal", ca.Personal != nil)
		countIf(counts, "custom_attributes.social", ca.Social != nil)
		countIf(counts, "custom_attributes.preferences", ca.Preferences != nil)
		countIf(counts, "custom_attributes.geo", ca.Geo != nil)
		countIf(counts, "custom_attributes.legacy", ca.Legacy != nil)
	}
}
