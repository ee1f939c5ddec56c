package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFit(t *testing.T) {
	if got := fit([]float64{1, 2, 3}, 2); len(got) != 2 || got[1] != 2 {
		t.Fatalf("truncate: %v", got)
	}
	if got := fit([]float64{1}, 3); len(got) != 3 || got[0] != 1 || got[2] != 0 {
		t.Fatalf("pad: %v", got)
	}
	if got := fit([]float64{1, 2}, 0); len(got) != 2 {
		t.Fatalf("zero dimension keeps length: %v", got)
	}
}

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "text-embedding-3-small" {
			t.Errorf("unexpected model %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[
				{"object":"embedding","index":1,"embedding":[0,1]},
				{"object":"embedding","index":0,"embedding":[1,0]}
			],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer srv.Close()

	e := New("test-key", srv.URL, "", 2)
	vecs, err := e.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("embeddings out of order: %v", vecs)
	}
	if e.Dimension() != 2 {
		t.Fatalf("Dimension = %d", e.Dimension())
	}
}
