package services

const (
	StatusInactive = 0
	StatusActive   = 1
)

// Service is a local service record, optionally bound to one provider's service.
type Service struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	ProviderID        *int64  `json:"provider_id,omitempty"`
	ProviderServiceID *string `json:"provider_service_id,omitempty"`
	Min               int64   `json:"min"`
	Max               int64   `json:"max"`
	Status            int     `json:"status"`
}

// Bounds is the min/max pair a provider reports for one of its services.
type Bounds struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// IDs returns the ids of list in order.
func IDs(list []Service) []int64 {
	ids := make([]int64, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	return ids
}

// Missing returns the services of bound whose provider service id is not in
// present, keeping the order of bound.
func Missing(bound []Service, present []string) []Service {
	seen := make(map[string]struct{}, len(present))
	for _, id := range present {
		seen[id] = struct{}{}
	}

	missing := []Service{}
	for _, s := range bound {
		if s.ProviderServiceID != nil {
			if _, ok := seen[*s.ProviderServiceID]; ok {
				continue
			}
		}
		missing = append(missing, s)
	}
	return missing
}
