// Package embedding defines the narrow contract to the face-embedding model
// and the vector arithmetic used to aggregate and compare embeddings.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrDetectionFailed is returned when the model cannot produce an embedding
// for an image (typically no face detected). Callers must not expose the
// distinction between this and other embedding failures to end users.
var ErrDetectionFailed = errors.New("embedding: face detection failed")

// Provider produces a fixed-length embedding vector from raw image bytes.
// Implementations are expected to be safe for concurrent use; calls may be
// long-running and must honor context cancellation.
type Provider interface {
	Embed(ctx context.Context, image []byte) ([]float64, error)
}

// HTTPProvider talks to an inference sidecar over HTTP. The sidecar owns
// image decoding, face detection, and the embedding model; this client only
// moves bytes and vectors.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type embedError struct {
	Message string `json:"message"`
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (p *HTTPProvider) Embed(ctx context.Context, image []byte) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/embed", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedder: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read embedder response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		var e embedError
		_ = json.Unmarshal(body, &e)
		if e.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrDetectionFailed, e.Message)
		}
		return nil, ErrDetectionFailed
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("embedder returned status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode embedder response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedder returned empty vector")
	}
	return out.Embedding, nil
}

// Healthy probes the sidecar liveness endpoint.
func (p *HTTPProvider) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedder health status %d", resp.StatusCode)
	}
	return nil
}
