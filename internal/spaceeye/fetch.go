package spaceeye

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jonboulle/clockwork"
)

// DefaultCatalogURL is the versioned location of the catalog document.
const DefaultCatalogURL = "https://config.spaceeye.app/v2/catalog.json"

const maxCatalogBytes = 8 << 20

// Fetcher retrieves a fresh catalog snapshot. prev is the snapshot currently
// held by the cache, or nil.
type Fetcher interface {
	Fetch(ctx context.Context, prev *CachedCatalog) (*CachedCatalog, error)
}

// CatalogFetcher downloads the catalog with a single GET. It never retries.
type CatalogFetcher struct {
	url        string
	httpClient *http.Client
	clock      clockwork.Clock
	metrics    *Metrics
}

func NewCatalogFetcher(url string, httpClient *http.Client, clock clockwork.Clock, metrics *Metrics) *CatalogFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CatalogFetcher{url: url, httpClient: httpClient, clock: clock, metrics: metrics}
}

func (f *CatalogFetcher) Fetch(ctx context.Context, prev *CachedCatalog) (*CachedCatalog, error) {
	start := f.clock.Now()
	snap, result, err := f.fetch(ctx, prev)
	f.metrics.catalogFetch(result, f.clock.Since(start).Seconds())
	return snap, err
}

func (f *CatalogFetcher) fetch(ctx context.Context, prev *CachedCatalog) (*CachedCatalog, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, "transport", f.fail(ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if prev != nil && prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "transport", f.fail(ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && prev != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		etag := resp.Header.Get("ETag")
		if etag == "" {
			etag = prev.ETag
		}
		return &CachedCatalog{
			Catalog:      prev.Catalog,
			ETag:         etag,
			DownloadedAt: f.clock.Now().Unix(),
		}, "not_modified", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "transport", f.fail(ErrTransport, fmt.Errorf("unexpected status %s", resp.Status))
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return nil, "missing_metadata", f.fail(ErrMissingMetadata, errors.New("no ETag header"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes+1))
	if err != nil {
		return nil, "transport", f.fail(ErrTransport, err)
	}
	if len(body) > maxCatalogBytes {
		return nil, "malformed", f.fail(ErrMalformed, fmt.Errorf("document larger than %s", formatBytes(maxCatalogBytes)))
	}
	cat, err := DecodeCatalog(body)
	if err != nil {
		return nil, "malformed", f.fail(ErrMalformed, err)
	}

	return &CachedCatalog{
		Catalog:      cat,
		ETag:         etag,
		DownloadedAt: f.clock.Now().Unix(),
	}, "ok", nil
}

func (f *CatalogFetcher) fail(kind, err error) error {
	return &FetchError{Kind: kind, URL: f.url, Err: err}
}
