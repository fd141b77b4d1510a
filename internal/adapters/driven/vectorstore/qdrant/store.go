// Package qdrant provides a vector store adapter for the Qdrant REST API.
//
// Qdrant accepts only UUIDs or unsigned integers as point identifiers,
// so chunk ids are mapped to deterministic name-based UUIDs. The same
// chunk id always maps to the same point, which keeps upserts idempotent.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:6333"
	DefaultTimeout = 30 * time.Second
)

// pointNamespace is the UUID namespace for deriving point ids from chunk ids.
var pointNamespace = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

// Config holds configuration for the Qdrant store.
type Config struct {
	// BaseURL is the Qdrant REST API base URL (default: http://localhost:6333).
	BaseURL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Store is a Qdrant-backed vector store.
type Store struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewStore creates a new Qdrant vector store.
func NewStore(cfg Config) *Store {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// PointID derives the deterministic Qdrant point UUID for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// EnsureCollection creates the collection if it does not exist.
func (s *Store) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name is required", domain.ErrInvalidInput)
	}
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	// Existence check first so repeated runs don't error on conflict.
	status, _, err := s.do(ctx, http.MethodGet, "/collections/"+collection, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("%w: checking collection %s (status %d)", domain.ErrVectorStore, collection, status)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	status, respBody, err := s.do(ctx, http.MethodPut, "/collections/"+collection, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: creating collection %s (status %d): %s", domain.ErrVectorStore, collection, status, respBody)
	}
	return nil
}

// Upsert inserts or replaces points in the collection.
func (s *Store) Upsert(ctx context.Context, collection string, points []driven.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]map[string]any, len(points))
	for i, p := range points {
		payload := make(map[string]any, len(p.Payload)+1)
		for k, v := range p.Payload {
			payload[k] = v
		}
		// Keep the original chunk id recoverable from the payload.
		payload["chunk_id"] = p.ID

		qdrantPoints[i] = map[string]any{
			"id":      PointID(p.ID),
			"vector":  p.Vector,
			"payload": payload,
		}
	}

	body := map[string]any{"points": qdrantPoints}
	status, respBody, err := s.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: upserting %d points (status %d): %s", domain.ErrVectorStore, len(points), status, respBody)
	}
	return nil
}

// Delete removes points by ID. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]string, len(ids))
	for i, id := range ids {
		pointIDs[i] = PointID(id)
	}

	body := map[string]any{"points": pointIDs}
	status, respBody, err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: deleting %d points (status %d): %s", domain.ErrVectorStore, len(ids), status, respBody)
	}
	return nil
}

// DeleteByDocument removes every point whose payload document_id matches.
func (s *Store) DeleteByDocument(ctx context.Context, collection string, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "document_id",
					"match": map[string]any{"value": documentID},
				},
			},
		},
	}
	status, respBody, err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: deleting points for document %s (status %d): %s", domain.ErrVectorStore, documentID, status, respBody)
	}
	return nil
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	status, respBody, err := s.do(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: ping returned status %d: %s", domain.ErrVectorStore, status, respBody)
	}
	return nil
}

// do executes one REST call and returns the status code and body.
// Network failures and 5xx responses never reach the caller as plain
// status codes; they are classified here so the retry policy sees them.
func (s *Store) do(ctx context.Context, method, path string, body any) (int, string, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, "", fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", domain.Transient(fmt.Errorf("%w: %v", domain.ErrVectorStore, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", domain.Transient(fmt.Errorf("%w: reading response: %v", domain.ErrVectorStore, err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, "", fmt.Errorf("%w: qdrant: %s", domain.ErrRateLimited, respBody)
	}
	if resp.StatusCode >= 500 {
		return resp.StatusCode, "", domain.Transient(fmt.Errorf("%w: qdrant status %d: %s", domain.ErrVectorStore, resp.StatusCode, respBody))
	}

	return resp.StatusCode, string(respBody), nil
}
