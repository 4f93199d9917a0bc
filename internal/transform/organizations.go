package transform

import (
	"crm-migrate/internal/dedup"
	"crm-migrate/internal/logging"
	"crm-migrate/internal/model"
	"crm-migrate/internal/normalize"
)

var (
	colOrgName     = []string{"Name", "Organization Name", "Company Name", "Account Name", "Company", "Organization"}
	colOrgType     = []string{"Type", "Account Type", "Organization Type", "Category", "Relationship"}
	colOrgIndustry = []string{"Industry", "Sector", "Vertical"}
	colOrgWebsite  = []string{"Website", "Web Site", "URL", "Homepage", "Web"}
)

// TransformOrganizations converts legacy account rows into organizations.
func TransformOrganizations(rows []model.RawRecord, opts Options) model.Artifact[model.Organization] {
	return run(rows, opts, entityRules[model.Organization]{
		entity:   model.EntityOrganizations,
		convert:  convertOrganization,
		key:      dedup.OrganizationKey,
		keyField: "name",
		count:    countOrganizationFields,
	})
}

func convertOrganization(row model.RawRecord, d *rowDiagnostics) model.Organization {
	o := model.Organization{Name: row.Get(colOrgName...)}
	if o.Name == "" {
		d.errorf("name", "", "organization name is required")
		return o
	}

	rawType := row.Get(colOrgType...)
	orgType, matched, ok := normalize.OrganizationType.Map(rawType)
	if !ok {
		orgType = normalize.OrganizationType.Fallback()
	} else if !matched {
		logging.Logf(logging.Debug, "Transform organizations: row %d type '%s' mapped to '%s'", d.row, rawType, orgType)
	}
	o.Type = orgType
	o.Industry = row.Get(colOrgIndustry...)
	o.Website = d.url("website", row.Get(colOrgWebsite...))
	o.Addresses = addresses(row, "main")
	o.Tags = tags(row)
	o.CustomAttributes = organizationAttributes(row, d)
	return o
}

func organizationAttributes(row model.RawRecord, d *rowDiagnostics) *model.OrganizationCustomAttributes {
	var attrs model.OrganizationCustomAttributes

	social := model.OrganizationSocial{
		LinkedIn: d.url("custom_attributes.social.linkedin", row.Get(colLinkedIn...)),
		Twitter:  row.Get(colTwitter...),
		Facebook: d.url("custom_attributes.social.facebook", row.Get(colFacebook...)),
	}
	if social != (model.OrganizationSocial{}) {
		attrs.Social = &social
	}

	attrs.Geo = d.geo(row)

	ops := model.OrganizationOperations{
		Employees:     d.number("custom_attributes.operations.employees", row.Get("Employees", "Employee Count", "Number of Employees")),
		AnnualRevenue: d.number("custom_attributes.operations.annual_revenue", row.Get("Annual Revenue", "Revenue")),
		Founded:       row.Get("Founded", "Year Founded"),
		FiscalYearEnd: row.Get("Fiscal Year End", "FYE"),
	}
	if ops != (model.OrganizationOperations{}) {
		attrs.Operations = &ops
	}

	ids := model.OrganizationIdentifiers{
		TaxID:              row.Get("Tax ID", "EIN", "VAT Number"),
		DUNS:               row.Get("DUNS", "DUNS Number"),
		RegistrationNumber: row.Get("Registration Number", "Company Number"),
	}
	if ids != (model.OrganizationIdentifiers{}) {
		attrs.Identifiers = &ids
	}

	contacts := model.OrganizationContacts{
		Phone: d.phone("custom_attributes.contacts.phone", row.Get("Phone", "Main Phone", "Phone Number")),
		Email: d.email("custom_attributes.contacts.email", row.Get("Email", "General Email", "Info Email")),
	}
	if contacts != (model.OrganizationContacts{}) {
		attrs.Contacts = &contacts
	}

	legacy := model.OrganizationLegacy{
		ID:        row.Get(colLegacyID...),
		Owner:     row.Get("Owner", "Account Owner", "Assigned To"),
		CreatedAt: d.date("custom_attributes.legacy.created_at", row.Get(colCreatedAt...)),
	}
	if legacy != (model.OrganizationLegacy{}) {
		attrs.Legacy = &legacy
	}

	if attrs == (model.OrganizationCustomAttributes{}) {
		return nil
	}
	return &attrs
}

func countOrganizationFields(o model.Organization, counts map[string]int) {
	countIf(counts, "name", o.Name != "")
	countIf(counts, "type", o.Type != "")
	countIf(counts, "industry", o.Industry != "")
	countIf(counts, "website", o.Website != "")
	countIf(counts, "addresses", len(o.Addresses) > 0)
	countIf(counts, "tags", len(o.Tags) > 0)
	if ca := o.CustomAttributes; ca != nil {
		countIf(counts, "custom_attributes.social", ca.Social != nil)
		countIf(counts, "custom_attributes.geo", ca.Geo != nil)
		countIf(counts, "custom_attributes.operations", ca.Operations != nil)
		countIf(counts, "custom_attributes.identifiers", ca.Identifiers != nil)
		countIf(counts, "custom_attributes.contacts", ca.Contacts != nil)
		countIf(counts, "custom_attributes.legacy", ca.Legacy != nil)
	}
}
