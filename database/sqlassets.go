package sqlassets

import _ "embed"

//go:embed schema/admin/tenants.sql
var TenantsSQL string

//go:embed schema/platform/catalog_templates.sql
var CatalogTemplatesSQL string

//go:embed schema/platform/deployments.sql
var DeploymentsSQL string

//go:embed schema/platform/hierarchy.sql
var HierarchySQL string

// Core returns the schema assets in dependency order. Applying them in this
// order bootstraps an empty database.
func Core() []string {
	return []string{TenantsSQL, CatalogTemplatesSQL, DeploymentsSQL, HierarchySQL}
}
