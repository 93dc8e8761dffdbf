package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

func gammaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /markets", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("slug") {
		case "with-tags":
			_, _ = w.Write([]byte(`[{"id":"101","slug":"with-tags","closed":"false","tags":[{"id":7,"label":"Politics","slug":"politics"}]}]`))
		case "no-tags":
			_, _ = w.Write([]byte(`[{"id":102,"slug":"no-tags","closed":true}]`))
		case "":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			assert.Equal(t, "true", r.URL.Query().Get("active"))
			_, _ = w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})
	mux.HandleFunc("GET /markets/{id}/tags", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "102", r.PathValue("id"))
		_, _ = w.Write([]byte(`[{"id":"3","label":"Crypto","slug":"crypto"}]`))
	})
	mux.HandleFunc("GET /markets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "101" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":"101","question":"Who wins?"}`))
	})
	return httptest.NewServer(mux)
}

func TestGammaMarketBySlug(t *testing.T) {
	srv := gammaServer(t)
	defer srv.Close()
	g := NewGammaClient(srv.URL)

	m, err := g.MarketBySlug(context.Background(), "with-tags")
	require.NoError(t, err)
	assert.Equal(t, "101", m.ID)
	assert.False(t, m.Closed)
	assert.Equal(t, []domain.Tag{{ID: "7", Label: "Politics", Slug: "politics"}}, m.Tags)

	m, err = g.MarketBySlug(context.Background(), "no-tags")
	require.NoError(t, err)
	assert.Equal(t, "102", m.ID)
	assert.True(t, m.Closed)
	assert.Empty(t, m.Tags)

	_, err = g.MarketBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGammaMarketTags(t *testing.T) {
	srv := gammaServer(t)
	defer srv.Close()

	tags, err := NewGammaClient(srv.URL).MarketTags(context.Background(), "102")
	require.NoError(t, err)
	assert.Equal(t, []domain.Tag{{ID: "3", Label: "Crypto", Slug: "crypto"}}, tags)
}

func TestGammaPassthrough(t *testing.T) {
	srv := gammaServer(t)
	defer srv.Close()
	g := NewGammaClient(srv.URL)

	active := true
	raw, err := g.GetMarkets(context.Background(), 5, 0, &active)
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 2)

	raw, err = g.GetMarket(context.Background(), "101")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"101","question":"Who wins?"}`, string(raw))

	_, err = g.GetMarket(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, domain.StatusCode(err))
}

func TestFlexString(t *testing.T) {
	var tag APITag
	require.NoError(t, json.Unmarshal([]byte(`{"id":12,"label":"Tech"}`), &tag))
	assert.Equal(t, "12", tag.ToDomainTag().ID)
	require.NoError(t, json.Unmarshal([]byte(`{"id":null}`), &tag))
	assert.Empty(t, string(tag.ID))
}
