package colly

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"servicecheck/internal/config"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"
)

var (
	client *colly.Collector
	once   sync.Once
	err    error
)

// NewCollyClient builds a collector for provider API calls. Certificate
// verification follows settings.InsecureSkipVerify.
func NewCollyClient(settings *config.FetcherConfig) *colly.Collector {
	c := colly.NewCollector(
		colly.MaxBodySize(settings.MaxBodySize),
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
		colly.UserAgent(settings.UserAgent),
		colly.ParseHTTPErrorResponse(),
	)

	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: settings.InsecureSkipVerify, //nolint:gosec // providers are trusted by configuration
		},
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	})
	c.SetRequestTimeout(settings.Timeout)

	return c
}

// InitCollyClient returns the process-wide collector, built once from the fetcher config.
func InitCollyClient() (*colly.Collector, error) {
	once.Do(func() {
		cfg := config.GetConfig()
		if cfg == nil {
			err = fmt.Errorf("failed to create colly collector: config not loaded")
			return
		}
		client = NewCollyClient(&cfg.Fetcher)
		log.Debug().
			Dur("timeout", cfg.Fetcher.Timeout).
			Bool("insecure_skip_verify", cfg.Fetcher.InsecureSkipVerify).
			Msg("Colly client initialized.")
	})
	return client, err
}
