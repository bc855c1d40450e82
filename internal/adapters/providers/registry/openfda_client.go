package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/config"
)

const (
	defaultBaseURL     = "https://api.fda.gov"
	defaultLimit       = 5
	defaultHTTPTimeout = 10 * time.Second
	labelPath          = "/drug/label.json"
	ndcPath            = "/drug/ndc.json"
)

// errCleanMiss marks an attempt that returned no matches.
var errCleanMiss = errors.New("no matches")

// OpenFDAClient implements providers.DrugRegistryProvider against the openFDA drug APIs.
type OpenFDAClient struct {
	baseURL    string
	apiKey     string
	limit      int
	httpClient *http.Client
	now        func() time.Time
}

// NewOpenFDAClient creates a registry client from configuration.
func NewOpenFDAClient(cfg config.OpenFDAConfig) providers.DrugRegistryProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return NewOpenFDAClientWithOptions(cfg.BaseURL, cfg.APIKey, cfg.Limit, &http.Client{Timeout: timeout})
}

// NewOpenFDAClientWithOptions allows overriding base URL and HTTP client (used for tests).
func NewOpenFDAClientWithOptions(baseURL, apiKey string, limit int, httpClient *http.Client) *OpenFDAClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &OpenFDAClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limit:      limit,
		httpClient: httpClient,
		now:        time.Now,
	}
}

type attempt struct {
	name   string
	search string
}

// escapePhrase makes user text safe inside a quoted search phrase.
func escapePhrase(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

func phrase(field, value string) string {
	return field + `:"` + escapePhrase(strings.TrimSpace(value)) + `"`
}

func orClauses(clauses []string) string {
	if len(clauses) == 1 {
		return clauses[0]
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

// identifierClauses builds the identifier OR-clause for the given field names.
func identifierClauses(q entities.RegistryQuery, packageField, productField string) []string {
	var clauses []string
	if pkg := strings.TrimSpace(q.PackageNDC); pkg != "" {
		clauses = append(clauses, phrase(packageField, pkg))
	}
	if product := productCode(q); product != "" {
		clauses = append(clauses, phrase(productField, product))
	}
	return clauses
}

// labelAttempts returns the label searches ordered from most to least specific.
func labelAttempts(q entities.RegistryQuery) []attempt {
	var attempts []attempt
	brand := strings.TrimSpace(q.Brand)
	generic := strings.TrimSpace(q.Generic)

	if ids := identifierClauses(q, "openfda.package_ndc", "openfda.product_ndc"); len(ids) > 0 {
		attempts = append(attempts, attempt{name: "identifier", search: orClauses(ids)})
	}
	if brand != "" && generic != "" {
		attempts = append(attempts, attempt{
			name: "brand_and_generic",
			search: phrase("openfda.brand_name", brand) + " AND " +
				orClauses([]string{phrase("openfda.generic_name", generic), phrase("openfda.substance_name", generic)}),
		})
	}
	var names []string
	if brand != "" {
		names = append(names, phrase("openfda.brand_name", brand))
	}
	if generic != "" {
		names = append(names, phrase("openfda.generic_name", generic), phrase("openfda.substance_name", generic))
	}
	if len(names) > 0 {
		attempts = append(attempts, attempt{name: "any_name", search: orClauses(names)})
	}
	return attempts
}

// ndcAttempts returns the NDC directory searches ordered from most to least specific.
func ndcAttempts(q entities.RegistryQuery) []attempt {
	var attempts []attempt
	brand := strings.TrimSpace(q.Brand)
	generic := strings.TrimSpace(q.Generic)

	if ids := identifierClauses(q, "packaging.package_ndc", "product_ndc"); len(ids) > 0 {
		attempts = append(attempts, attempt{name: "identifier", search: orClauses(ids)})
	}
	if brand != "" && generic != "" {
		attempts = append(attempts, attempt{
			name:   "brand_and_generic",
			search: phrase("brand_name", brand) + " AND " + phrase("generic_name", generic),
		})
	}
	var names []string
	if brand != "" {
		names = append(names, phrase("brand_name", brand))
	}
	if generic != "" {
		names = append(names, phrase("generic_name", generic))
	}
	if len(names) > 0 {
		attempts = append(attempts, attempt{name: "any_name", search: orClauses(names)})
	}
	return attempts
}

// FetchLabelSnapshot looks up the best matching drug label.
func (c *OpenFDAClient) FetchLabelSnapshot(ctx context.Context, query entities.RegistryQuery) *entities.LabelSnapshot {
	snapshot := &entities.LabelSnapshot{Query: query, FetchedAt: c.now().UTC()}
	logger := observability.LoggerFromContext(ctx)

	for _, a := range labelAttempts(query) {
		var envelope labelEnvelope
		err := c.runAttempt(ctx, entities.DatasetLabel, labelPath, a, &envelope)
		if errors.Is(err, errCleanMiss) {
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Str("attempt", a.name).Msg("label lookup failed")
			snapshot.Error = err.Error()
			return snapshot
		}

		bestIdx, best := -1, entities.MatchScore{}
		for i, r := range envelope.Results {
			score := scoreLabel(query, r)
			if score.Score > best.Score {
				bestIdx, best = i, score
			}
		}
		if bestIdx < 0 {
			logger.Debug().Str("attempt", a.name).Int("results", len(envelope.Results)).Msg("label attempt scored zero")
			continue
		}

		snapshot.Found = true
		snapshot.Record = projectLabel(envelope.Results[bestIdx], best)
		logger.Debug().
			Str("attempt", a.name).
			Int("score", best.Score).
			Str("reason", best.Reason).
			Msg("label match selected")
		return snapshot
	}
	return snapshot
}

// FetchNDCSnapshot looks up the best matching NDC directory product.
func (c *OpenFDAClient) FetchNDCSnapshot(ctx context.Context, query entities.RegistryQuery) *entities.NDCSnapshot {
	snapshot := &entities.NDCSnapshot{Query: query, FetchedAt: c.now().UTC()}
	logger := observability.LoggerFromContext(ctx)

	for _, a := range ndcAttempts(query) {
		var envelope ndcEnvelope
		err := c.runAttempt(ctx, entities.DatasetNDC, ndcPath, a, &envelope)
		if errors.Is(err, errCleanMiss) {
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Str("attempt", a.name).Msg("ndc lookup failed")
			snapshot.Error = err.Error()
			return snapshot
		}

		bestIdx, best := -1, entities.MatchScore{}
		for i, r := range envelope.Results {
			score := scoreNDC(query, r)
			if score.Score > best.Score {
				bestIdx, best = i, score
			}
		}
		if bestIdx < 0 {
			logger.Debug().Str("attempt", a.name).Int("results", len(envelope.Results)).Msg("ndc attempt scored zero")
			continue
		}

		snapshot.Found = true
		snapshot.Record = projectNDC(envelope.Results[bestIdx], best)
		logger.Debug().
			Str("attempt", a.name).
			Int("score", best.Score).
			Str("reason", best.Reason).
			Msg("ndc match selected")
		return snapshot
	}
	return snapshot
}

// runAttempt issues one search. It returns errCleanMiss for a 404, an empty
// result set or a body that does not have the expected shape, and a plain
// error for anything that should stop the attempt sequence.
func (c *OpenFDAClient) runAttempt(ctx context.Context, dataset entities.RegistryDataset, path string, a attempt, out interface{}) (err error) {
	ctx, span := observability.StartSpan(ctx, "registry."+string(dataset)+".attempt")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("registry.dataset", string(dataset)),
		attribute.String("registry.attempt", a.name),
	)

	start := time.Now()
	defer func() {
		outcome := "hit"
		switch {
		case errors.Is(err, errCleanMiss):
			outcome = "miss"
		case err != nil:
			outcome = "error"
			observability.RecordError(span, err)
		}
		observability.RecordRegistryAttempt(ctx, string(dataset), a.name, outcome, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	params := url.Values{}
	params.Set("search", a.search)
	params.Set("limit", strconv.Itoa(c.limit))
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openfda %s request failed: %w", dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return errCleanMiss
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("openfda %s request failed with status %d", dataset, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openfda %s response read failed: %w", dataset, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Str("dataset", string(dataset)).Msg("unexpected registry response shape")
		return errCleanMiss
	}

	switch env := out.(type) {
	case *labelEnvelope:
		if len(env.Results) == 0 {
			return errCleanMiss
		}
	case *ndcEnvelope:
		if len(env.Results) == 0 {
			return errCleanMiss
		}
	}
	return nil
}
