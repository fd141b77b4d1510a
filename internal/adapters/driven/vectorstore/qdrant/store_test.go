package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStore(Config{BaseURL: srv.URL})
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("doc-1:0")
	b := PointID("doc-1:0")
	c := PointID("doc-1:1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36) // UUID string form
}

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	var createCalled bool
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/docs":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut:
			createCalled = true
		}
	})

	err := store.EnsureCollection(context.Background(), "docs", 768)
	require.NoError(t, err)
	assert.False(t, createCalled)
}

func TestEnsureCollection_CreatesWhenMissing(t *testing.T) {
	var created map[string]any
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.WriteHeader(http.StatusOK)
		}
	})

	err := store.EnsureCollection(context.Background(), "docs", 768)
	require.NoError(t, err)

	vectors, ok := created["vectors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(768), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestEnsureCollection_ValidatesInput(t *testing.T) {
	store := NewStore(Config{})

	err := store.EnsureCollection(context.Background(), "", 768)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.EnsureCollection(context.Background(), "docs", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpsert_SendsPointsWithPayload(t *testing.T) {
	var got map[string]any
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	points := []driven.VectorPoint{
		{
			ID:      "doc-1:0",
			Vector:  []float32{0.1, 0.2},
			Payload: map[string]string{"document_id": "doc-1", "text": "hello"},
		},
	}
	err := store.Upsert(context.Background(), "docs", points)
	require.NoError(t, err)

	sent, ok := got["points"].([]any)
	require.True(t, ok)
	require.Len(t, sent, 1)

	point := sent[0].(map[string]any)
	assert.Equal(t, PointID("doc-1:0"), point["id"])

	payload := point["payload"].(map[string]any)
	assert.Equal(t, "doc-1", payload["document_id"])
	assert.Equal(t, "doc-1:0", payload["chunk_id"])
}

func TestUpsert_EmptyIsNoop(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty upsert")
	})

	assert.NoError(t, store.Upsert(context.Background(), "docs", nil))
}

func TestDeleteByDocument_SendsFilter(t *testing.T) {
	var got map[string]any
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points/delete", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := store.DeleteByDocument(context.Background(), "docs", "doc-1")
	require.NoError(t, err)

	filter := got["filter"].(map[string]any)
	must := filter["must"].([]any)
	require.Len(t, must, 1)
	cond := must[0].(map[string]any)
	assert.Equal(t, "document_id", cond["key"])
	assert.Equal(t, "doc-1", cond["match"].(map[string]any)["value"])
}

func TestUpsert_ServerErrorIsTransient(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := store.Upsert(context.Background(), "docs", []driven.VectorPoint{{ID: "a", Vector: []float32{1}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVectorStore)
	assert.True(t, domain.IsTransient(err))
}

func TestUpsert_RateLimited(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := store.Upsert(context.Background(), "docs", []driven.VectorPoint{{ID: "a", Vector: []float32{1}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestPing(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, store.Ping(context.Background()))
}
