package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"servicecheck/features/catalog/archive"
	"servicecheck/features/providers"
	"servicecheck/internal/config"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrFetchFailed      = errors.New("error fetching provider catalog")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// FetchError describes why a provider's catalog could not be used.
type FetchError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 && errors.Is(e.Err, ErrUnexpectedStatus) {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Provider, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Archiver receives the raw body of every HTTP 200 catalog response.
type Archiver interface {
	Put(ctx context.Context, snapshot archive.Snapshot) error
}

// Fetcher requests service catalogs from providers.
type Fetcher struct {
	settings    *config.FetcherConfig
	collyClient *colly.Collector
	archiver    Archiver
}

type FetcherOption func(*Fetcher)

// WithArchiver stores raw catalog bodies in a.
func WithArchiver(a Archiver) FetcherOption {
	return func(f *Fetcher) {
		f.archiver = a
	}
}

func NewFetcher(settings *config.FetcherConfig, collyClient *colly.Collector, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		settings:    settings,
		collyClient: collyClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// formData is the body of the "list services" call.
func (f *Fetcher) formData(p providers.Provider) map[string]string {
	data := map[string]string{
		"key":    p.APIKey,
		"action": f.settings.Action,
	}
	if f.settings.SendTokenField {
		data["token"] = p.APIKey
	}
	return data
}

// Fetch performs one POST against the provider. Only an HTTP 200 response with a
// JSON array body yields a Catalog; every other outcome is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, p providers.Provider) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Provider: p.Name, Err: errors.Join(ErrFetchFailed, err)}
	}

	var (
		statusCode int
		body       []byte
	)

	c := f.collyClient.Clone()
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true

	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		log.Debug().Err(err).
			Str("provider", p.Name).
			Int("status_code", statusCode).
			Msg("Colly error when fetching catalog")
	})

	startedAt := time.Now()
	log.Debug().
		Str("provider", p.Name).
		Str("provider_id", p.IDString()).
		Str("domain", p.Domain()).
		Msg("Fetching provider catalog")

	if err := c.Post(p.URL, f.formData(p)); err != nil {
		if statusCode != 0 && statusCode != http.StatusOK {
			return nil, &FetchError{Provider: p.Name, StatusCode: statusCode, Err: ErrUnexpectedStatus}
		}
		return nil, &FetchError{Provider: p.Name, Err: errors.Join(ErrFetchFailed, err)}
	}

	if statusCode != http.StatusOK {
		return nil, &FetchError{Provider: p.Name, StatusCode: statusCode, Err: ErrUnexpectedStatus}
	}

	fetchedAt := time.Now().UTC()
	f.archive(ctx, p, body, fetchedAt)

	entries, err := ParseEntries(body)
	if err != nil {
		return nil, &FetchError{Provider: p.Name, StatusCode: statusCode, Err: err}
	}

	log.Info().
		Str("provider", p.Name).
		Int("bytes", len(body)).
		Int("entries", len(entries)).
		Dur("duration", time.Since(startedAt)).
		Msg("Fetched provider catalog")

	return &Catalog{
		Provider:  p,
		Entries:   entries,
		FetchedAt: fetchedAt,
	}, nil
}

func (f *Fetcher) archive(ctx context.Context, p providers.Provider, body []byte, fetchedAt time.Time) {
	if f.archiver == nil {
		return
	}
	snapshot := archive.Snapshot{
		ProviderID:   p.ID,
		ProviderName: p.Name,
		RunID:        RunIDFromContext(ctx),
		FetchedAt:    fetchedAt,
		Body:         body,
	}
	if err := f.archiver.Put(ctx, snapshot); err != nil {
		log.Warn().Err(err).
			Str("provider", p.Name).
			Str("provider_id", p.IDString()).
			Msg("Failed to archive catalog response")
	}
}

type runIDKey struct{}

// ContextWithRunID tags ctx with the id of the run fetching catalogs.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
