package providers

import (
	"net"
	"net/url"
	"strconv"

	"golang.org/x/net/publicsuffix"
)

// Provider is an external service provider whose catalog is checked each run.
// Rows are owned by another application; this system only reads them.
type Provider struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	APIKey string `json:"-"`
	Active bool   `json:"active"`
}

// IDString is the provider id as it appears in log fields.
func (p Provider) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

// Domain returns the registrable domain of the provider URL (eTLD+1), falling
// back to the raw host for IPs and single-label hosts.
func (p Provider) Domain() string {
	u, err := url.Parse(p.URL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

type Providers []Provider

func (p Providers) Names() []string {
	result := make([]string, 0, len(p))
	for _, provider := range p {
		result = append(result, provider.Name)
	}
	return result
}
