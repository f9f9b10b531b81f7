package catalog

import (
	"servicecheck/features/providers"
	"time"
)

// Catalog is one provider's service list as fetched in the current run.
type Catalog struct {
	Provider  providers.Provider
	Entries   []Entry
	FetchedAt time.Time
}

// ServiceIDs returns the resolved identifiers in first-seen order, without duplicates.
func (c *Catalog) ServiceIDs() []string {
	seen := make(map[string]struct{}, len(c.Entries))
	ids := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		if !e.Resolved {
			continue
		}
		if _, ok := seen[e.ServiceID]; ok {
			continue
		}
		seen[e.ServiceID] = struct{}{}
		ids = append(ids, e.ServiceID)
	}
	return ids
}

// Unresolved counts the entries without a usable identifier.
func (c *Catalog) Unresolved() int {
	n := 0
	for _, e := range c.Entries {
		if !e.Resolved {
			n++
		}
	}
	return n
}
