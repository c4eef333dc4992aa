package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
)

// VectorIndex performs dense retrieval over the chunk collection via the
// Qdrant HTTP API. Points carry doc_id, section, source_type and text in
// their payload; search filters on source_type to enforce mode exclusivity
// at the backend rather than only post-merge.
type VectorIndex struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *VectorIndex {
	return &VectorIndex{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (v *VectorIndex) Search(ctx context.Context, vector []float32, limit int, sources []domain.SourceType) ([]domain.Candidate, error) {
	if len(vector) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "vector search", fmt.Errorf("empty query vector"))
	}
	if limit <= 0 {
		limit = 10
	}
	if len(sources) == 0 {
		return []domain.Candidate{}, nil
	}

	names := make([]string, 0, len(sources))
	for _, source := range sources {
		names = append(names, string(source))
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key": "source_type",
					"match": map[string]any{
						"any": names,
					},
				},
			},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", v.baseURL, v.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "vector search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		statusErr := fmt.Errorf("qdrant search status: %s", resp.Status)
		if msg := strings.TrimSpace(string(detail)); msg != "" {
			statusErr = fmt.Errorf("qdrant search status: %s: %s", resp.Status, msg)
		}
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "vector search", statusErr)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Candidate{
			DocumentID:  getStringPayload(r.Payload, "doc_id"),
			Text:        getStringPayload(r.Payload, "text"),
			Section:     getStringPayload(r.Payload, "section"),
			SourceType:  domain.SourceType(getStringPayload(r.Payload, "source_type")),
			VectorScore: r.Score,
		})
	}
	return out, nil
}

// EnsureCollection creates the collection when it does not exist yet.
// Qdrant answers 409 when it is already there.
func (v *VectorIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", v.baseURL, v.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(detail)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
