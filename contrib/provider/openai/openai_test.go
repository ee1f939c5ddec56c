package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 2 || req.Messages[1].Content != "where is nalanda" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Near the Main Building."}}]}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	cfg.SystemPrompt = "be brief"
	p := New(cfg)

	got, err := p.Generate(context.Background(), "where is nalanda")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "Near the Main Building." {
		t.Fatalf("Generate = %q", got)
	}
	if p.Model() != "gpt-4o-mini" {
		t.Fatalf("Model = %q", p.Model())
	}
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig("k")
	cfg.BaseURL = srv.URL
	if _, err := New(cfg).Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}
