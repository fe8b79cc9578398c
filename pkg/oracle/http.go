package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gilchrisn/network-type-similarity/pkg/ensemble"
	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

// ClassifyRequest is the JSON body sent to a classification service
type ClassifyRequest struct {
	X             [][]float64           `json:"x"`
	Y             []string              `json:"y"`
	SubToMainType models.DomainMap      `json:"sub_to_main_type"`
	FeatureOrder  []string              `json:"feature_order"`
	IsSubType     bool                  `json:"is_sub_type"`
	Sampling      models.SamplingMethod `json:"sampling_method"`
}

// HTTPClassifier calls a remote service that trains and evaluates one
// classifier per request and answers with a RunRecord
type HTTPClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPClassifier creates a client for the service at url
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// WithClient replaces the underlying HTTP client
func (c *HTTPClassifier) WithClient(client *http.Client) *HTTPClassifier {
	c.client = client
	return c
}

// Classify posts the request and decodes the returned run
func (c *HTTPClassifier) Classify(ctx context.Context, req ensemble.Request) (*ensemble.RunOutput, error) {
	body, err := json.Marshal(ClassifyRequest{
		X:             req.X,
		Y:             req.Y,
		SubToMainType: req.SubToMainType,
		FeatureOrder:  req.FeatureOrder,
		IsSubType:     req.IsSubType,
		Sampling:      req.Sampling,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("classification service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var rec models.RunRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode classification result: %w", err)
	}
	return ensemble.FromRecord(rec)
}
