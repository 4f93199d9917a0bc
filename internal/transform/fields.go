package transform

import (
	"strings"

	"crm-migrate/internal/model"
	"crm-migrate/internal/normalize"
)

// Column aliases shared by more than one entity. Earlier aliases win.
var (
	colLegacyID  = []string{"Legacy ID", "ID", "Record ID", "Contact ID", "Account ID"}
	colCreatedAt = []string{"Created At", "Created", "Created Date", "Date Created"}
	colTags      = []string{"Tags", "Labels", "Keywords"}
	colLinkedIn  = []string{"LinkedIn", "LinkedIn URL", "LinkedIn Profile"}
	colTwitter   = []string{"Twitter", "Twitter Handle", "X Handle"}
	colFacebook  = []string{"Facebook", "Facebook URL"}
	colLatitude  = []string{"Latitude", "Lat"}
	colLongitude = []string{"Longitude", "Lng", "Long", "Lon"}

	colStreet1    = []string{"Street 1", "Street", "Address", "Address 1", "Address Line 1", "Mailing Street", "Billing Street"}
	colStreet2    = []string{"Street 2", "Address 2", "Address Line 2"}
	colCity       = []string{"City", "Town", "Mailing City", "Billing City"}
	colState      = []string{"State", "Province", "Region", "Mailing State", "Billing State"}
	colPostalCode = []string{"Postal Code", "Zip", "Zip Code", "Postcode", "Mailing Zip", "Billing Zip"}
	colCountry    = []string{"Country", "Mailing Country", "Billing Country"}
)

// addresses returns the single address a legacy row can carry, or an empty list.
func addresses(row model.RawRecord, label string) []model.Address {
	a := model.Address{
		Street1:    row.Get(colStreet1...),
		Street2:    row.Get(colStreet2...),
		City:       row.Get(colCity...),
		State:      row.Get(colState...),
		PostalCode: row.Get(colPostalCode...),
		Country:    row.Get(colCountry...),
		Label:      label,
	}
	if a.IsEmpty() {
		return []model.Address{}
	}
	return []model.Address{a}
}

// The helpers below return the zero value for blank input without a diagnostic
// and warn when a non-blank value cannot be normalized.

func (d *rowDiagnostics) email(field, raw string) string {
	if raw == "" {
		return ""
	}
	v, ok := normalize.Email(raw)
	if !ok {
		d.warnf(field, raw, "invalid email address; ignored")
	}
	return v
}

func (d *rowDiagnostics) phone(field, raw string) string {
	if raw == "" {
		return ""
	}
	v, ok := normalize.Phone(raw)
	if !ok {
		d.warnf(field, raw, "phone number has no digits; ignored")
	}
	return v
}

func (d *rowDiagnostics) url(field, raw string) string {
	if raw == "" {
		return ""
	}
	v, ok := normalize.URL(raw)
	if !ok {
		d.warnf(field, raw, "invalid URL; ignored")
	}
	return v
}

func (d *rowDiagnostics) date(field, raw string) string {
	if raw == "" {
		return ""
	}
	v, ok := normalize.Date(raw)
	if !ok {
		d.warnf(field, raw, "unrecognized date format; ignored")
	}
	return v
}

func (d *rowDiagnostics) boolean(field, raw string) *bool {
	if raw == "" {
		return nil
	}
	v, ok := normalize.Bool(raw)
	if !ok {
		d.warnf(field, raw, "expected yes/no value; ignored")
		return nil
	}
	return &v
}

func (d *rowDiagnostics) number(field, raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, ok := normalize.Number(raw)
	if !ok {
		d.warnf(field, raw, "expected a number; ignored")
		return nil
	}
	return &v
}

// geo returns nil when neither coordinate is present.
func (d *rowDiagnostics) geo(row model.RawRecord) *model.GeoPoint {
	g := model.GeoPoint{
		Lat: d.number("custom_attributes.geo.lat", row.Get(colLatitude...)),
		Lng: d.number("custom_attributes.geo.lng", row.Get(colLongitude...)),
	}
	if g.Lat == nil && g.Lng == nil {
		return nil
	}
	return &g
}

func tags(row model.RawRecord) []string {
	return normalize.Tags(row.Get(colTags...))
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
