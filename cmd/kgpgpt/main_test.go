package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/sweetpotato0/kgpgpt/config"
	"github.com/sweetpotato0/kgpgpt/contrib/vector/inmemory"
	"github.com/sweetpotato0/kgpgpt/conversation/store"
	"github.com/sweetpotato0/kgpgpt/rag/indexer"
	"github.com/sweetpotato0/kgpgpt/search"
)

func TestRootCommands(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	want := []string{"ask", "ingest", "mcp", "serve"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("commands = %v, want %v", names, want)
	}
}

func TestSearchProvidersFollowCredentials(t *testing.T) {
	cfg := config.FromEnv()
	cfg.Search = config.SearchConfig{TavilyAPIKey: "t", DuckDuckGoEnabled: true}

	providers := searchProviders(cfg)
	if len(providers) != 6 {
		t.Fatalf("providers = %d, want 6", len(providers))
	}
	enabled := map[string]bool{}
	for _, p := range providers {
		enabled[p.Name()] = p.Enabled()
	}
	want := map[string]bool{
		search.EngineSerper:     false,
		search.EngineBing:       false,
		search.EngineTavily:     true,
		search.EngineAcademic:   false,
		search.EngineBrightData: false,
		search.EngineDuckDuckGo: true,
	}
	if !reflect.DeepEqual(enabled, want) {
		t.Fatalf("enabled = %v, want %v", enabled, want)
	}
}

func TestNewVectorStore(t *testing.T) {
	cfg := config.FromEnv()
	var c closers

	cfg.Vector.Backend = "memory"
	s, err := newVectorStore(context.Background(), cfg, &c)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*inmemory.Store); !ok {
		t.Fatalf("memory backend built %T", s)
	}

	cfg.Vector.Backend = "faiss"
	if _, err := newVectorStore(context.Background(), cfg, &c); err == nil {
		t.Fatal("unknown backend accepted")
	}
}

func TestNewChainOrder(t *testing.T) {
	cfg := config.FromEnv()
	want := []string{"RequestLogger", "ErrorHandler", "RateLimiter", "InputValidator"}

	if got := newChain(cfg, nil).Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
	withStore := newChain(cfg, store.NewInMemoryStore()).Names()
	if len(withStore) != len(want)+1 || withStore[len(want)] != "ContextEnricher" {
		t.Fatalf("chain with store = %v", withStore)
	}
}

func TestClosersRunInReverse(t *testing.T) {
	var order []int
	var c closers
	for i := 0; i < 3; i++ {
		c.add(func(context.Context) error {
			order = append(order, i)
			if i == 1 {
				return errors.New("close failed")
			}
			return nil
		})
	}
	if err := c.close(context.Background()); err == nil {
		t.Fatal("close error swallowed")
	}
	if !reflect.DeepEqual(order, []int{2, 1, 0}) {
		t.Fatalf("order = %v", order)
	}
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	cfg := config.FromEnv()
	cfg.LLM.Provider = "llama"
	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Fatal("invalid provider accepted")
	}
}

func TestIngestCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		data := make([]string, len(req.Input))
		for i := range req.Input {
			data[i] = fmt.Sprintf(`{"object":"embedding","index":%d,"embedding":[1,%d,0]}`, i, i)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object":"list","model":"m","data":[%s],"usage":{"prompt_tokens":1,"total_tokens":1}}`,
			strings.Join(data, ","))
	}))
	defer srv.Close()

	t.Setenv("EMBEDDER", "openai")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", srv.URL)
	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("VECTOR_SIZE", "3")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "halls.txt"), []byte("Nehru Hall is a residence hall."), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", filepath.Join(dir, "missing.env"), "ingest", dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	var stats indexer.Stats
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("output %q: %v", out.String(), err)
	}
	if stats != (indexer.Stats{Files: 1, Skipped: 1, Chunks: 1}) {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestAskRequiresQuery(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"ask"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("ask without a query succeeded")
	}
}
