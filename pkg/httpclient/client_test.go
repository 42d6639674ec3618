package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := New(Config{Timeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Get(context.Background(), ts.URL, nil); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_Redirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1":
			http.Redirect(w, r, "/2", http.StatusFound)
		case "/2":
			http.Redirect(w, r, "/3", http.StatusFound)
		case "/3":
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	client, err := New(Config{MaxRedirects: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	if _, err := client.Do(context.Background(), req); err == nil {
		t.Fatal("expected redirect limit error")
	}

	clientNoRedir, _ := New(Config{MaxRedirects: -1})
	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	resp, err := clientNoRedir.Do(context.Background(), req2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302 StatusFound, got %d", resp.StatusCode)
	}
}

func TestClient_Context(t *testing.T) {
	client, _ := New(Config{})

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	//nolint:staticcheck // nil context is the case under test
	_, err := client.Do(nil, req)
	if err == nil || err.Error() != "httpclient: context cannot be nil" {
		t.Errorf("expected nil context error, got %v", err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Get(ctx, ts.URL, nil); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestClient_GetParamsAndUserAgent(t *testing.T) {
	var gotQuery url.Values
	var gotUA, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	client, _ := New(Config{UserAgent: "stockists-test/1.0"})

	body, err := client.Get(context.Background(), ts.URL+"/search?fixed=1", url.Values{"q": {"Nike Stockists"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body %q", body)
	}
	if gotQuery.Get("q") != "Nike Stockists" || gotQuery.Get("fixed") != "1" {
		t.Errorf("unexpected query %v", gotQuery)
	}
	if gotUA != "stockists-test/1.0" {
		t.Errorf("expected user agent, got %q", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("expected json accept header, got %q", gotAccept)
	}
}

func TestClient_GetStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer ts.Close()

	client, _ := New(Config{})
	_, err := client.Get(context.Background(), ts.URL, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T (%v)", err, err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", statusErr.StatusCode)
	}
	if statusErr.Body != "slow down" {
		t.Errorf("expected body detail, got %q", statusErr.Body)
	}
}

func TestClient_ErrorOmitsQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := ts.URL + "/search"
	ts.Close()

	client, err := New(Config{Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Get(context.Background(), endpoint, url.Values{"api_key": {"secret-key"}, "q": {"Nike"}})
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if strings.Contains(err.Error(), "secret-key") || strings.Contains(err.Error(), "api_key") {
		t.Errorf("error exposes query string: %v", err)
	}
	if !strings.Contains(err.Error(), "/search") {
		t.Errorf("expected error to keep the endpoint path, got %v", err)
	}

	var uerr *url.Error
	if !errors.As(err, &uerr) {
		t.Errorf("expected *url.Error in chain, got %T", err)
	}
}
