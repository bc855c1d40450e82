package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/medscan/backend/internal/domain/providers"
)

type capturedRequest struct {
	apiKey string
	body   searchRequest
}

func newSearchServer(t *testing.T, handler func(req searchRequest) (int, string)) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body searchRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		captured = append(captured, capturedRequest{apiKey: r.Header.Get("X-API-KEY"), body: body})
		mu.Unlock()

		status, payload := handler(body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), captured...)
	}
}

func TestSearch_ParsesOrganicResults(t *testing.T) {
	server, calls := newSearchServer(t, func(req searchRequest) (int, string) {
		return http.StatusOK, `{"organic":[
			{"title":"Advil: Uses, Dosage - Drugs.com","link":"https://www.drugs.com/advil.html","snippet":"Advil is ibuprofen"},
			{"title":"","link":""},
			{"title":"Advil Side Effects","link":"https://example.org/advil"}
		]}`
	})
	client := NewSerperClientWithOptions("key", server.URL, []string{"drugs.com"}, server.Client())

	snapshot := client.Search(context.Background(), "Advil", providers.SearchOptions{Num: 5, Region: "us", Lang: "en"})

	require.True(t, snapshot.Found)
	assert.Empty(t, snapshot.Error)
	require.Len(t, snapshot.Results, 2)
	assert.Equal(t, "Advil: Uses, Dosage - Drugs.com", snapshot.Results[0].Title)
	assert.Equal(t, "Advil is ibuprofen", snapshot.Results[0].Snippet)

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, "key", got[0].apiKey)
	assert.Equal(t, searchRequest{Q: "Advil", Num: 5, GL: "us", HL: "en"}, got[0].body)
}

func TestSearch_MissingKeyDegrades(t *testing.T) {
	client := NewSerperClientWithOptions("", "http://127.0.0.1:1", nil, nil)

	snapshot := client.Search(context.Background(), "Advil", providers.SearchOptions{})

	assert.False(t, snapshot.Found)
	assert.Equal(t, MissingAPIKeyMessage, snapshot.Error)
}

func TestSearch_HTTPErrorDegrades(t *testing.T) {
	server, _ := newSearchServer(t, func(req searchRequest) (int, string) {
		return http.StatusTooManyRequests, `{}`
	})
	client := NewSerperClientWithOptions("key", server.URL, nil, server.Client())

	snapshot := client.Search(context.Background(), "Advil", providers.SearchOptions{})

	assert.False(t, snapshot.Found)
	assert.Contains(t, snapshot.Error, "429")
}

func TestSearch_DefaultResultCount(t *testing.T) {
	server, calls := newSearchServer(t, func(req searchRequest) (int, string) {
		return http.StatusOK, `{"organic":[]}`
	})
	client := NewSerperClientWithOptions("key", server.URL, nil, server.Client())

	snapshot := client.Search(context.Background(), "Advil", providers.SearchOptions{})

	assert.False(t, snapshot.Found)
	assert.Empty(t, snapshot.Error)
	require.Len(t, calls(), 1)
	assert.Equal(t, defaultResultCount, calls()[0].body.Num)
}

func TestSearchTrusted_FallsBackToUnscoped(t *testing.T) {
	server, calls := newSearchServer(t, func(req searchRequest) (int, string) {
		if strings.Contains(req.Q, "site:") {
			return http.StatusOK, `{"organic":[]}`
		}
		return http.StatusOK, `{"organic":[{"title":"Obscure Product","link":"https://example.org"}]}`
	})
	client := NewSerperClientWithOptions("key", server.URL, []string{"drugs.com", "nhs.uk"}, server.Client())

	snapshot := client.SearchTrusted(context.Background(), "Obscure", providers.SearchOptions{})

	require.True(t, snapshot.Found)
	assert.False(t, snapshot.Scoped)
	assert.Equal(t, "Obscure", snapshot.Query)

	got := calls()
	require.Len(t, got, 2)
	assert.Equal(t, "Obscure (site:drugs.com OR site:nhs.uk)", got[0].body.Q)
	assert.Equal(t, "Obscure", got[1].body.Q)
}

func TestSearchTrusted_ScopedHitStops(t *testing.T) {
	server, calls := newSearchServer(t, func(req searchRequest) (int, string) {
		return http.StatusOK, `{"organic":[{"title":"Advil","link":"https://www.drugs.com/advil.html"}]}`
	})
	client := NewSerperClientWithOptions("key", server.URL, []string{"drugs.com"}, server.Client())

	snapshot := client.SearchTrusted(context.Background(), "Advil", providers.SearchOptions{})

	assert.True(t, snapshot.Found)
	assert.True(t, snapshot.Scoped)
	assert.Len(t, calls(), 1)
}

func TestScopedQuery(t *testing.T) {
	assert.Equal(t, "seed", ScopedQuery(" seed ", nil))
	assert.Equal(t, "seed (site:a.com)", ScopedQuery("seed", []string{"a.com", " "}))
}
