//go:build integration

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/FranksOps/stockists/internal/config"
	"github.com/FranksOps/stockists/internal/pipeline"
	"github.com/FranksOps/stockists/internal/results"
	"github.com/FranksOps/stockists/internal/serp"
	"github.com/FranksOps/stockists/internal/storage"
	"github.com/FranksOps/stockists/internal/storage/csvbackend"
	"github.com/FranksOps/stockists/internal/storage/sqlite"
	"github.com/FranksOps/stockists/pkg/ratelimit"
)

// fakeValueSERP answers like the search API: one organic result per brand,
// a 503 for "Flaky" and a homepage for "Home".
type fakeValueSERP struct {
	mu      sync.Mutex
	queries []string
}

func (f *fakeValueSERP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	f.queries = append(f.queries, q.Get("q"))
	f.mu.Unlock()

	if q.Get("api_key") != "integration-key" {
		http.Error(w, `{"request_info":{"success":false}}`, http.StatusUnauthorized)
		return
	}

	brand := strings.TrimSuffix(q.Get("q"), " Stockists")
	switch brand {
	case "Flaky":
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	case "Home":
		writeOrganic(w, "https://home.example/")
		return
	}
	writeOrganic(w, fmt.Sprintf("https://stockists.example/brands/%s", strings.ToLower(brand)))
}

func writeOrganic(w http.ResponseWriter, link string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"request_info": map[string]any{"success": true},
		"organic_results": []map[string]any{
			{"position": 1, "title": "Stockists", "link": link, "snippet": "Find a store"},
			{"position": 2, "title": "Other", "link": link + "/other", "snippet": "Second"},
		},
	})
}

func newPipeline(t *testing.T, srvURL string, fsys afero.Fs, backend storage.Backend) *pipeline.Pipeline {
	t.Helper()
	cfg := (&config.Config{
		APIKey:      "integration-key",
		Endpoint:    srvURL,
		QuerySuffix: config.DefaultQuerySuffix,
		BaseDir:     "/data",
		Timeout:     5 * time.Second,
	}).WithDefaults()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider, err := serp.New(cfg, logger)
	if err != nil {
		t.Fatalf("serp.New: %v", err)
	}

	return &pipeline.Pipeline{
		Config:   cfg,
		FS:       fsys,
		Provider: provider,
		Backend:  backend,
		Pacer:    ratelimit.NewPacer(ratelimit.Fixed(10*time.Millisecond), 0.5),
		Logger:   logger,
		Output:   "/data/" + cfg.OutputFile,
	}
}

func TestIntegration_CSVRun(t *testing.T) {
	fake := &fakeValueSERP{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/data/brands.txt", []byte("Nike\n\n  Flaky \nHome\nPuma\nNike\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	backend := csvbackend.New(fsys, "/data/brand_links_output.csv")
	p := newPipeline(t, srv.URL, fsys, backend)

	start := time.Now()
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(fake.queries) != 5 {
		t.Errorf("expected 5 requests, got %v", fake.queries)
	}
	// Four pauses of at least 10ms between five requests.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("run finished in %s, expected pacing", elapsed)
	}
	if summary.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", summary.FailedRequests)
	}

	got, err := backend.Query(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	want := []results.CleanedRecord{
		{Query: "Nike Stockists", URL: "https://stockists.example/brands/nike", Title: "Stockists", Description: "Find a store"},
		{Query: "Puma Stockists", URL: "https://stockists.example/brands/puma", Title: "Stockists", Description: "Find a store"},
	}
	if len(got) != len(want) {
		t.Fatalf("stored %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if summary.Dropped[results.DropPosition] != 4 || summary.Dropped[results.DropHomepage] != 1 || summary.Dropped[results.DropDuplicate] != 1 {
		t.Errorf("unexpected drops %v", summary.Dropped)
	}
}

func TestIntegration_SQLiteAcrossRuns(t *testing.T) {
	srv := httptest.NewServer(&fakeValueSERP{})
	defer srv.Close()

	backend, err := sqlite.New(filepath.Join(t.TempDir(), "stockists.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	fsys := afero.NewMemMapFs()
	for _, list := range []string{"Nike\nPuma\n", "Puma\nAdidas\n"} {
		if err := afero.WriteFile(fsys, "/data/brands.txt", []byte(list), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := newPipeline(t, srv.URL, fsys, backend).Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	got, err := backend.Query(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 distinct urls across runs, got %v", got)
	}
	if got[2].Query != "Adidas Stockists" {
		t.Errorf("expected insertion order, got %v", got)
	}
}

func TestIntegration_BadKey(t *testing.T) {
	srv := httptest.NewServer(&fakeValueSERP{})
	defer srv.Close()

	fsys := afero.NewMemMapFs()
	_ = afero.WriteFile(fsys, "/data/brands.txt", []byte("Nike\n"), 0o644)
	backend := csvbackend.New(fsys, "/data/brand_links_output.csv")

	p := newPipeline(t, srv.URL, fsys, backend)
	p.Config.APIKey = "wrong"
	p.Provider, _ = serp.New(p.Config, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FailedRequests != 1 || summary.Saved != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if ok, _ := afero.Exists(fsys, "/data/brand_links_output.csv"); ok {
		t.Error("expected no output file")
	}
}
