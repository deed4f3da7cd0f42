package gen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func fakeGeminiServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		APIKey:   "test-key",
		Model:    "gemini-2.0-flash",
		Endpoint: srv.URL,
		Timeout:  5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return srv, client
}

func candidateReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}, nil); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.cfg.Model != "gemini-2.0-flash" {
		t.Fatalf("Model default = %q", c.cfg.Model)
	}
	if c.cfg.Endpoint != "https://generativelanguage.googleapis.com" {
		t.Fatalf("Endpoint default = %q", c.cfg.Endpoint)
	}
	if c.cfg.Timeout != 60*time.Second {
		t.Fatalf("Timeout default = %v", c.cfg.Timeout)
	}
}

func TestClientGenerate(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	var gotPayload generateRequest
	_, client := fakeGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(candidateReply("generated text"))
	})

	text, err := client.Generate(context.Background(), "write about air purifiers")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "generated text" {
		t.Fatalf("Generate = %q", text)
	}
	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("unexpected key: %q", gotKey)
	}
	if len(gotPayload.Contents) != 1 || len(gotPayload.Contents[0].Parts) != 1 ||
		gotPayload.Contents[0].Parts[0].Text != "write about air purifiers" {
		t.Fatalf("unexpected payload: %+v", gotPayload)
	}
}

func TestClientGenerateConcatenatesParts(t *testing.T) {
	t.Parallel()

	_, client := fakeGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "first "}, {"text": "second"}},
				},
			}},
		})
	})

	text, err := client.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "first second" {
		t.Fatalf("Generate = %q", text)
	}
}

func TestClientGenerateErrorStatus(t *testing.T) {
	t.Parallel()

	_, client := fakeGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	})

	_, err := client.Generate(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("error should carry the body excerpt, got %v", err)
	}
}

func TestClientGenerateNoCandidates(t *testing.T) {
	t.Parallel()

	_, client := fakeGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})

	if _, err := client.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected error for empty candidate list")
	}
}

func TestClientGenerateContextCancellation(t *testing.T) {
	t.Parallel()

	_, client := fakeGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Generate(ctx, "p"); err == nil {
		t.Fatal("expected error when context expires")
	}
}
