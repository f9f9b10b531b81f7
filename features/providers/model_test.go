package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderDomain(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "subdomain", url: "https://api.panel.example.co.uk/v2", expected: "example.co.uk"},
		{name: "plain", url: "https://example.com/api", expected: "example.com"},
		{name: "ip", url: "http://127.0.0.1:8080/api", expected: "127.0.0.1"},
		{name: "invalid", url: "://nope", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := Provider{URL: tc.url}
			assert.Equal(t, tc.expected, p.Domain())
		})
	}
}

func TestProvidersNames(t *testing.T) {
	ps := Providers{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	assert.Equal(t, []string{"A", "B"}, ps.Names())
	assert.Equal(t, "2", ps[1].IDString())
}
