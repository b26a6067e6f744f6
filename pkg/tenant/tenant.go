package tenant

// Tenant is a site served by the application.
type Tenant struct {
	ID     int64  `json:"id"`
	Domain string `json:"domain"`
	Name   string `json:"name"`

	loadedDomain string
	loaded       bool
}

// TenantID implements IDer.
func (t *Tenant) TenantID() int64 {
	return t.ID
}

// MarkLoaded records the current domain as the value the record was read with.
// Stores call it after loading a row.
func (t *Tenant) MarkLoaded() {
	t.loadedDomain = t.Domain
	t.loaded = true
}

// Loaded returns the domain the tenant was loaded with. The bool is false for
// records that did not come from a store.
func (t *Tenant) Loaded() (string, bool) {
	return t.loadedDomain, t.loaded
}

// DomainChanged reports whether Domain differs from the load-time value.
// New records never report a change.
func (t *Tenant) DomainChanged() bool {
	return t.loaded && t.loadedDomain != t.Domain
}

// Clone returns a copy that keeps the load-time state.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (t *Tenant) String() string {
	if t.Domain != "" {
		return t.Domain
	}
	return t.Name
}
