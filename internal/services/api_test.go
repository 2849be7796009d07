package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/moodtunes/internal/shared"
	tu "github.com/desertthunder/moodtunes/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient)

			if srv.BaseURL() != "http://example.com" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.BaseURL())
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.BaseURL() != shared.DefaultBackendURL {
				t.Errorf("expected default baseURL %s, got %s", shared.DefaultBackendURL, srv.BaseURL())
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				w.Header().Set("X-Custom-Header", "test-value")
				json.NewEncoder(w).Encode(map[string]string{"message": "running"})
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			var body map[string]string
			if !resp.OK() || resp.DecodeJSON(&body) != nil || body["message"] != "running" {
				t.Errorf("expected ok JSON response, got %+v", resp)
			}
			if resp.Headers.Get("X-Custom-Header") != "test-value" {
				t.Errorf("expected custom header, got %s", resp.Headers.Get("X-Custom-Header"))
			}
		})

		t.Run("Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("plain text response"))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			var body any
			if err := resp.DecodeJSON(&body); err == nil || !strings.Contains(err.Error(), "malformed response") {
				t.Errorf("expected malformed response error, got %v", err)
			}
			if string(resp.Body) != "plain text response" {
				t.Errorf("expected raw body, got %q", resp.Body)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			_, err := NewAPIService("http://example.com", nil).Get(context.Background(), "/test\x00invalid")
			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}

			_, err := NewAPIService("http://example.com", client).Get(context.Background(), "/")
			if err == nil || !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			_, err := NewAPIService("http://example.com", client).Get(context.Background(), "/")
			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})
	})

	t.Run("PostJSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected Content-Type 'application/json', got %s", r.Header.Get("Content-Type"))
			}

			var data map[string]string
			if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
				t.Errorf("failed to decode request body: %v", err)
			}
			if data["emotion"] != "happy" {
				t.Errorf("expected emotion happy, got %v", data)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		resp, err := NewAPIService(server.URL, nil).PostJSON(context.Background(), "/recommend", map[string]string{"emotion": "happy"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.StatusCode != http.StatusCreated {
			t.Errorf("expected status 201, got %d", resp.StatusCode)
		}
	})

	t.Run("PostMultipart", func(t *testing.T) {
		t.Run("Sends File Part", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				file, header, err := r.FormFile("image")
				if err != nil {
					t.Errorf("expected image part: %v", err)
					return
				}
				defer file.Close()

				data, _ := io.ReadAll(file)
				if string(data) != "pixels" {
					t.Errorf("expected 'pixels', got %q", data)
				}
				if header.Filename != "capture.png" {
					t.Errorf("expected capture.png, got %s", header.Filename)
				}
				if header.Header.Get("Content-Type") != "image/png" {
					t.Errorf("expected image/png part, got %s", header.Header.Get("Content-Type"))
				}
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			if _, err := srv.PostMultipart(context.Background(), "/detect", "image", "capture.png", "image/png", []byte("pixels")); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Defaults Content Type", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, header, err := r.FormFile("image")
				if err != nil {
					t.Errorf("expected image part: %v", err)
					return
				}
				if header.Header.Get("Content-Type") != "application/octet-stream" {
					t.Errorf("expected octet-stream, got %s", header.Header.Get("Content-Type"))
				}
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			if _, err := srv.PostMultipart(context.Background(), "/detect", "image", "a.bin", "", []byte("x")); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	})

	t.Run("WithRateLimit", func(t *testing.T) {
		t.Run("Disabled For Non-Positive Rate", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil).WithRateLimit(0)
			if srv.limiter != nil {
				t.Error("expected no limiter")
			}
		})

		t.Run("Canceled Context While Waiting", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil).WithRateLimit(0.01)
			if _, err := srv.Get(context.Background(), "/"); err != nil {
				t.Fatalf("first request should use the burst, got %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			_, err := srv.Get(ctx, "/")
			if err == nil || !strings.Contains(err.Error(), "rate limiter") {
				t.Errorf("expected rate limiter error, got %v", err)
			}
		})
	})
}
