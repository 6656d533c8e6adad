package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	docs     map[string]map[string]any
	created  bool
	lastBody map[string]any
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "":
		_, _ = io.WriteString(w, `{"name":"fake","cluster_name":"test","version":{"number":"9.0.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
	case len(parts) == 1 && r.Method == http.MethodHead:
		if f.created {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.created = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case len(parts) == 3 && parts[1] == "_doc" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		var doc map[string]any
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.docs[parts[2]] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		if _, ok := f.docs[parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		delete(f.docs, parts[2])
		_, _ = io.WriteString(w, `{"result":"deleted"}`)
	case len(parts) == 2 && parts[1] == "_search":
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		q := f.lastBody["query"].(map[string]any)["multi_match"].(map[string]any)["query"].(string)
		var hits []string
		for id, doc := range f.docs {
			if strings.Contains(strings.ToLower(doc["name"].(string)), strings.ToLower(q)) {
				hits = append(hits, `{"_id":"`+id+`"}`)
			}
		}
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":`+itoa(len(hits))+`},"hits":[`+strings.Join(hits, ",")+`]}}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestIndex(t *testing.T) (*Index, *fakeES) {
	t.Helper()
	fake := &fakeES{docs: map[string]map[string]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "", "")
	require.NoError(t, err)
	return NewIndex(client, "products"), fake
}

func TestEnsureIndex_CreatesOnce(t *testing.T) {
	ix, fake := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.EnsureIndex(ctx))
	assert.True(t, fake.created)
	require.NoError(t, ix.EnsureIndex(ctx))
}

func TestIndexSearchDelete(t *testing.T) {
	ix, fake := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexProduct(ctx, models.Product{ID: 1, Name: "Blue Widget", Price: decimal.RequireFromString("10")}))
	require.NoError(t, ix.IndexProduct(ctx, models.Product{ID: 2, Name: "Gadget", Price: decimal.RequireFromString("5")}))
	assert.Equal(t, "10.00", fake.docs["1"]["price"])

	total, ids, err := ix.Search(ctx, "widget", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []uint{1}, ids)

	mm := fake.lastBody["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "AUTO", mm["fuzziness"])
	assert.Equal(t, []any{"name^2", "description"}, mm["fields"])

	require.NoError(t, ix.DeleteProduct(ctx, 1))
	require.NoError(t, ix.DeleteProduct(ctx, 1))
	_, ids, err = ix.Search(ctx, "widget", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNewClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", "")
	require.Error(t, err)
}
