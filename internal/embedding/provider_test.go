package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProviderEmbed(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/embed" || r.Method != http.MethodPost {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2, 0.3}})
		}))
		defer srv.Close()

		p := NewHTTPProvider(srv.URL, 5*time.Second)
		vec, err := p.Embed(context.Background(), []byte("jpeg-bytes"))
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		if len(vec) != 3 || vec[0] != 0.1 {
			t.Fatalf("unexpected vector: %v", vec)
		}
	})

	t.Run("detection failure maps to sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "no face detected"})
		}))
		defer srv.Close()

		p := NewHTTPProvider(srv.URL, 5*time.Second)
		if _, err := p.Embed(context.Background(), []byte("x")); !errors.Is(err, ErrDetectionFailed) {
			t.Fatalf("expected ErrDetectionFailed, got %v", err)
		}
	})

	t.Run("server error is not a detection failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		p := NewHTTPProvider(srv.URL, 5*time.Second)
		_, err := p.Embed(context.Background(), []byte("x"))
		if err == nil || errors.Is(err, ErrDetectionFailed) {
			t.Fatalf("expected generic error, got %v", err)
		}
	})

	t.Run("empty vector rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{}})
		}))
		defer srv.Close()

		p := NewHTTPProvider(srv.URL, 5*time.Second)
		if _, err := p.Embed(context.Background(), []byte("x")); err == nil {
			t.Fatal("expected error for empty vector")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer srv.Close()
		defer close(block)

		p := NewHTTPProvider(srv.URL, time.Minute)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if _, err := p.Embed(ctx, []byte("x")); err == nil {
			t.Fatal("expected context error")
		}
	})
}
