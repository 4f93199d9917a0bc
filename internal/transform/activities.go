package transform

import (
	"strings"

	"crm-migrate/internal/dedup"
	"crm-migrate/internal/model"
	"crm-migrate/internal/normalize"
)

var (
	colActivityType    = []string{"Type", "Activity Type", "Kind", "Category"}
	colActivitySubject = []string{"Subject", "Title", "Summary"}
	colActivityNotes   = []string{"Notes", "Description", "Details", "Body", "Comments"}
	colActivityDate    = []string{"Date", "Activity Date", "Occurred At", "Completed Date", "Due Date", "Created"}
	colActivityTime    = []string{"Time", "Activity Time", "Start Time"}
	colContactEmail    = []string{"Contact Email", "Email", "Email Address"}
	colContactName     = []string{"Contact Name", "Contact", "Related To", "Name"}
	colContactFirst    = []string{"Contact First Name", "First Name"}
	colContactLast     = []string{"Contact Last Name", "Last Name"}
)

// TransformActivities converts legacy activity rows into activities. A row without
// a usable date is dropped; a row without any contact key is kept with a warning.
func TransformActivities(rows []model.RawRecord, opts Options) model.Artifact[model.Activity] {
	return run(rows, opts, entityRules[model.Activity]{
		entity:   model.EntityActivities,
		convert:  convertActivity,
		key:      dedup.ActivityKey,
		keyField: "type,occurred_at,subject,contact",
		count:    countActivityFields,
	})
}

func convertActivity(row model.RawRecord, d *rowDiagnostics) model.Activity {
	var a model.Activity

	rawDate := row.Get(colActivityDate...)
	rawTime := row.Get(colActivityTime...)
	switch ts, ok := normalize.Timestamp(rawDate, rawTime); {
	case rawDate == "":
		d.errorf("occurred_at", "", "activity date is required")
	case !ok:
		d.errorf("occurred_at", rawDate, "unrecognized activity date")
	default:
		a.OccurredAt = ts
		if _, hasTime, _ := normalize.ParseDateTime(rawDate); !hasTime && rawTime != "" {
			if _, _, _, clockOK := normalize.Clock(rawTime); !clockOK {
				d.warnf("occurred_at", rawTime, "unrecognized time of day; using 12:00 UTC")
			}
		}
	}

	a.ContactEmail = d.email("_contact_email", row.Get(colContactEmail...))
	a.ContactName = contactName(row)
	if !a.HasContactKey() {
		d.warnf("contact", "", "no contact email or name; activity cannot be linked to a contact")
	}
	if d.failed {
		return a
	}

	a.Type, _, _ = normalize.ActivityType.Map(row.Get(colActivityType...))
	if a.Type == "" {
		a.Type = normalize.ActivityType.Fallback()
	}
	a.Subject = row.Get(colActivitySubject...)
	a.Notes = row.Get(colActivityNotes...)
	if a.Notes == "" {
		a.Notes = model.DefaultActivityNotes
	}
	return a
}

// contactName prefers an explicit full-name column over first/last columns.
func contactName(row model.RawRecord) string {
	if name := row.Get(colContactName...); name != "" {
		return strings.Join(strings.Fields(name), " ")
	}
	return strings.TrimSpace(row.Get(colContactFirst...) + " " + row.Get(colContactLast...))
}

func countActivityFields(a model.Activity, counts map[string]int) {
	countIf(counts, "type", a.Type != "")
	countIf(counts, "subject", a.Subject != "")
	countIf(counts, "notes", a.Notes != "" && a.Notes != model.DefaultActivityNotes)
	countIf(counts, "occurred_at", a.OccurredAt != "")
	countIf(counts, "_contact_email", a.ContactEmail != "")
	countIf(counts, "_contact_name", a.ContactName != "")
}
