package messagequeue

// TenantCreatedPayload is the schema for tenants.created messages.
type TenantCreatedPayload struct {
	TenantID string `json:"tenant_id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Source   string `json:"source"` // "api", "provision" or "admin"
}

// TenantUpdatedPayload is the schema for tenants.updated messages. It carries
// the previous slug and domain so subscribers can drop stale cache keys.
type TenantUpdatedPayload struct {
	TenantID   string `json:"tenant_id"`
	Slug       string `json:"slug"`
	Domain     string `json:"domain,omitempty"`
	PrevSlug   string `json:"prev_slug,omitempty"`
	PrevDomain string `json:"prev_domain,omitempty"`
}

// PhaseSummary is one phase entry in a provisioning.completed message.
type PhaseSummary struct {
	Phase   int    `json:"phase"`
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// ProvisioningCompletedPayload is the schema for provisioning.completed messages.
type ProvisioningCompletedPayload struct {
	Complete bool           `json:"complete"`
	Degraded bool           `json:"degraded"`
	Phases   []PhaseSummary `json:"phases"`
	Warnings []string       `json:"warnings,omitempty"`
}
