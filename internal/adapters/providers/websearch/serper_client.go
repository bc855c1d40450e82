package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/config"
)

const (
	defaultBaseURL     = "https://google.serper.dev/search"
	defaultResultCount = 8
	defaultHTTPTimeout = 8 * time.Second
)

// MissingAPIKeyMessage is the snapshot error reported when no search credential is configured.
const MissingAPIKeyMessage = "search api key not configured"

// SerperClient implements providers.FreeTextSearchProvider against a Serper-compatible search API.
type SerperClient struct {
	apiKey         string
	baseURL        string
	trustedDomains []string
	defaults       providers.SearchOptions
	httpClient     *http.Client
	now            func() time.Time
}

// NewSerperClient creates a search client from configuration.
func NewSerperClient(cfg config.SearchConfig) *SerperClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := NewSerperClientWithOptions(cfg.APIKey, cfg.BaseURL, cfg.TrustedDomains, &http.Client{Timeout: timeout})
	client.defaults = providers.SearchOptions{
		Num:    cfg.ResultCount,
		Region: cfg.Region,
		Lang:   cfg.Language,
	}
	return client
}

// NewSerperClientWithOptions allows overriding base URL and HTTP client (used for tests).
func NewSerperClientWithOptions(apiKey, baseURL string, trustedDomains []string, httpClient *http.Client) *SerperClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if trustedDomains == nil {
		trustedDomains = config.DefaultTrustedDomains
	}
	return &SerperClient{
		apiKey:         strings.TrimSpace(apiKey),
		baseURL:        baseURL,
		trustedDomains: trustedDomains,
		defaults:       providers.SearchOptions{Num: defaultResultCount},
		httpClient:     httpClient,
		now:            time.Now,
	}
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	Organic []organicResult `json:"organic"`
}

// ScopedQuery wraps the seed in an OR of site: filters for the given domains.
func ScopedQuery(seed string, domains []string) string {
	seed = strings.TrimSpace(seed)
	if len(domains) == 0 {
		return seed
	}
	sites := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			sites = append(sites, "site:"+d)
		}
	}
	if len(sites) == 0 {
		return seed
	}
	return seed + " (" + strings.Join(sites, " OR ") + ")"
}

// SearchTrusted searches the trusted domains first and retries once with the
// bare seed when the scoped search comes back empty.
func (c *SerperClient) SearchTrusted(ctx context.Context, seed string, opts providers.SearchOptions) *entities.FreeTextSnapshot {
	scoped := c.Search(ctx, ScopedQuery(seed, c.trustedDomains), opts)
	if scoped.Found || scoped.Error != "" {
		scoped.Scoped = true
		return scoped
	}
	observability.LoggerFromContext(ctx).Debug().Str("seed", seed).Msg("trusted search empty, retrying unscoped")
	return c.Search(ctx, seed, opts)
}

// Search runs a single query. Failures are reported in the snapshot.
func (c *SerperClient) Search(ctx context.Context, query string, opts providers.SearchOptions) *entities.FreeTextSnapshot {
	snapshot := &entities.FreeTextSnapshot{Query: query, FetchedAt: c.now().UTC()}
	if strings.TrimSpace(query) == "" {
		return snapshot
	}
	if c.apiKey == "" {
		snapshot.Error = MissingAPIKeyMessage
		return snapshot
	}

	ctx, span := observability.StartSpan(ctx, "websearch.search")
	defer span.End()

	results, err := c.doSearch(ctx, query, c.withDefaults(opts))
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("free-text search failed")
		snapshot.Error = err.Error()
		return snapshot
	}
	observability.SetSpanAttributes(span, attribute.Int("websearch.results", len(results)))

	snapshot.Results = results
	snapshot.Found = len(results) > 0
	return snapshot
}

func (c *SerperClient) withDefaults(opts providers.SearchOptions) providers.SearchOptions {
	if opts.Num <= 0 {
		opts.Num = c.defaults.Num
	}
	if opts.Num <= 0 {
		opts.Num = defaultResultCount
	}
	if opts.Region == "" {
		opts.Region = c.defaults.Region
	}
	if opts.Lang == "" {
		opts.Lang = c.defaults.Lang
	}
	return opts
}

func (c *SerperClient) doSearch(ctx context.Context, query string, opts providers.SearchOptions) ([]entities.FreeTextResult, error) {
	body, err := json.Marshal(searchRequest{Q: query, Num: opts.Num, GL: opts.Region, HL: opts.Lang})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("search response decode failed: %w", err)
	}

	results := make([]entities.FreeTextResult, 0, len(payload.Organic))
	for _, item := range payload.Organic {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" && link == "" {
			continue
		}
		results = append(results, entities.FreeTextResult{
			Title:   title,
			Link:    link,
			Snippet: strings.TrimSpace(item.Snippet),
		})
	}
	return results, nil
}
