package fossa_http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/davarch/fossa-gate/internal/domain"
)

func TestSubmitBuild_PostsLocator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/revisions/build" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "token secret" {
			t.Errorf("unexpected Authorization header: %s", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected Content-Type: %s", got)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["locator"] != "git+repo$abc" {
			t.Errorf("unexpected locator: %q", body["locator"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 42, "status": "SUCCEEDED"}`))
	}))
	defer server.Close()

	c := New(server.URL+"/", "secret", time.Second)
	b, err := c.SubmitBuild(context.Background(), domain.BuildRequest{Locator: "git+repo$abc"})
	if err != nil {
		t.Fatalf("SubmitBuild() error = %v", err)
	}
	if b.ID != "42" {
		t.Errorf("ID = %q, want 42", b.ID)
	}
	if b.Status != domain.StatusSucceeded {
		t.Errorf("Status = %q, want SUCCEEDED", b.Status)
	}
}

func TestSubmitBuild_MissingIDAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	b, err := New(server.URL, "t", time.Second).SubmitBuild(context.Background(), domain.BuildRequest{Locator: "l"})
	if err != nil {
		t.Fatalf("SubmitBuild() error = %v", err)
	}
	if b.ID != "" || b.Status != "" {
		t.Errorf("expected empty build, got %+v", b)
	}
}

func TestGetBuild_ParsesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/builds/b1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"FAILED","error":"dep error","finished":"2024-03-01T10:00:00Z"}`))
	}))
	defer server.Close()

	b, err := New(server.URL, "t", time.Second).GetBuild(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	if b.ID != "b1" || b.Status != domain.StatusFailed || b.Error != "dep error" {
		t.Errorf("unexpected build: %+v", b)
	}
	if b.FinishedAt == nil || !b.FinishedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected FinishedAt: %v", b.FinishedAt)
	}
}

func TestGetScanResult_NullVersusZero(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *int
		scanned bool
	}{
		{"null", `{"unresolved_issue_count": null}`, nil, false},
		{"absent", `{}`, nil, false},
		{"zero", `{"unresolved_issue_count": 0}`, domain.IssueCount(0), true},
		{"four", `{"unresolved_issue_count": 4}`, domain.IssueCount(4), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			res, err := New(server.URL, "t", time.Second).GetScanResult(context.Background(), "l")
			if err != nil {
				t.Fatalf("GetScanResult() error = %v", err)
			}
			if res.Scanned() != tt.scanned {
				t.Errorf("Scanned() = %v, want %v", res.Scanned(), tt.scanned)
			}
			if tt.want != nil && *res.UnresolvedIssueCount != *tt.want {
				t.Errorf("count = %d, want %d", *res.UnresolvedIssueCount, *tt.want)
			}
		})
	}
}

func TestGetScanResult_EncodesLocator(t *testing.T) {
	locator := "git+https://github.com/acme/app$0a1b2c"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/api/revisions/git%2Bhttps%3A%2F%2Fgithub.com%2Facme%2Fapp%240a1b2c"
		if r.URL.EscapedPath() != want {
			t.Errorf("path = %s, want %s", r.URL.EscapedPath(), want)
		}
		_, _ = w.Write([]byte(`{"unresolved_issue_count": 0}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, "t", time.Second).GetScanResult(context.Background(), locator); err != nil {
		t.Fatalf("GetScanResult() error = %v", err)
	}
}

func TestClient_TransportErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"server error", http.StatusBadGateway, "upstream down", http.StatusBadGateway},
		{"unauthorized", http.StatusUnauthorized, "bad token", http.StatusUnauthorized},
		{"unparseable body", http.StatusOK, "<html>", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL, "t", time.Second).GetBuild(context.Background(), "b1")
			var te *domain.TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if te.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", te.StatusCode, tt.wantStatus)
			}
			if te.Op != http.MethodGet {
				t.Errorf("Op = %s, want GET", te.Op)
			}
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := New(addr, "t", time.Second).SubmitBuild(context.Background(), domain.BuildRequest{Locator: "l"})
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", te.StatusCode)
	}
}

func TestClient_RespectsContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := New(server.URL, "t", 10*time.Second).GetBuild(ctx, "b1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("request was not canceled promptly")
	}
}

func TestEncodeComponent(t *testing.T) {
	tests := map[string]string{
		"abc-_.!~*'()": "abc-_.!~*'()",
		"a b":          "a%20b",
		"git+x$1":      "git%2Bx%241",
		"a/b:c":        "a%2Fb%3Ac",
	}
	for in, want := range tests {
		if got := EncodeComponent(in); got != want {
			t.Errorf("EncodeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTrimSlash(t *testing.T) {
	if got := trimSlash("http://app.fossa.io//"); got != "http://app.fossa.io" {
		t.Errorf("trimSlash() = %q", got)
	}
	if !strings.HasPrefix(New("http://x/", "t", time.Second).baseUrl, "http://x") {
		t.Error("base url not kept")
	}
}
