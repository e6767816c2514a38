package wpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linkscout/linkscout/internal/config"
	"github.com/linkscout/linkscout/internal/database"
)

func testSetup(t *testing.T, siteURL string) (*config.Config, *database.DB) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Site.URL = siteURL
	cfg.API.Username = "editor"
	cfg.API.AppPassword = "xxxx yyyy zzzz"
	cfg.API.Mode = "read_write"

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return cfg, db
}

func seedEditablePage(t *testing.T, db *database.DB, url string, wpID int64, html string) {
	t.Helper()
	text := "text"
	_, err := db.UpsertPage(&database.Page{
		WPID:          wpID,
		URL:           url,
		NormalizedURL: "/blog/post/",
		Title:         "Post",
		ContentText:   &text,
		ContentHTML:   &html,
	})
	if err != nil {
		t.Fatalf("seeding page: %v", err)
	}
}

func TestTestConnection(t *testing.T) {
	authed := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/users/me" {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		authed = ok && user == "editor" && pass == "xxxx yyyy zzzz"
		if !authed {
			http.Error(w, "nope", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"name": "Editor"})
	}))
	defer server.Close()

	cfg, _ := testSetup(t, server.URL)
	if err := New(cfg).TestConnection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !authed {
		t.Error("expected basic auth credentials on the request")
	}
}

func TestTestConnectionRejectsBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg, _ := testSetup(t, server.URL)
	if err := New(cfg).TestConnection(context.Background()); err == nil {
		t.Error("expected authentication error")
	}

	cfg.API.AppPassword = ""
	if err := New(cfg).TestConnection(context.Background()); err == nil {
		t.Error("expected error for missing credentials")
	}
}

func TestApplyBatchSavesDraft(t *testing.T) {
	var savedBody map[string]string
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wp-json/wp/v2/users/me":
			json.NewEncoder(w).Encode(map[string]string{"name": "Editor"})
		case r.URL.Path == "/wp-json/wp/v2/posts/7" && r.Method == http.MethodPost:
			json.NewDecoder(r.Body).Decode(&savedBody)
			fmt.Fprint(w, "{}")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg, db := testSetup(t, server.URL)
	seedEditablePage(t, db, server.URL+"/blog/post/", 7,
		"<p>We recommend professional driveway installation here.</p>")

	id, _ := db.InsertSuggestion(&database.Suggestion{
		RunID:      "2026-08-23",
		SourceURL:  server.URL + "/blog/post/",
		TargetURL:  "https://example.com/driveway-pavers/",
		TargetType: "service",
		Anchor:     "professional driveway installation",
		Score:      0.8,
	})
	suggestions, _ := db.GetSuggestionsForRun("2026-08-23")

	result, err := New(cfg).ApplyBatch(context.Background(), db, suggestions, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied != 1 || result.Failed != 0 || result.Skipped != 0 {
		t.Errorf("unexpected result: %+v", result)
	}

	if savedBody["status"] != "draft" {
		t.Errorf("expected draft status, got %q", savedBody["status"])
	}
	if !strings.Contains(savedBody["content"], `<a href="https://example.com/driveway-pavers/">professional driveway installation</a>`) {
		t.Errorf("expected injected link in content, got %q", savedBody["content"])
	}

	s, _ := db.GetSuggestionByID(id)
	if s.Status != "applied" {
		t.Errorf("expected applied status, got %q", s.Status)
	}
}

func TestApplyBatchDryRunTouchesNothing(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, "{}")
	}))
	defer server.Close()

	cfg, db := testSetup(t, server.URL)
	seedEditablePage(t, db, server.URL+"/blog/post/", 7,
		"<p>We recommend professional driveway installation here.</p>")
	db.InsertSuggestion(&database.Suggestion{
		RunID:      "2026-08-23",
		SourceURL:  server.URL + "/blog/post/",
		TargetURL:  "https://example.com/driveway-pavers/",
		TargetType: "service",
		Anchor:     "professional driveway installation",
		Score:      0.8,
	})
	suggestions, _ := db.GetSuggestionsForRun("2026-08-23")

	result, err := New(cfg).ApplyBatch(context.Background(), db, suggestions, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied != 1 {
		t.Errorf("expected 1 would-apply, got %+v", result)
	}
	if requests != 0 {
		t.Errorf("dry-run must not hit the API, saw %d requests", requests)
	}

	suggestions, _ = db.GetSuggestionsForRun("2026-08-23")
	if suggestions[0].Status != "pending" {
		t.Errorf("dry-run must not change status, got %q", suggestions[0].Status)
	}
}

func TestApplyBatchRefusesReadOnlyMode(t *testing.T) {
	cfg, db := testSetup(t, "https://example.com")
	cfg.API.Mode = "read_only"

	_, err := New(cfg).ApplyBatch(context.Background(), db, []database.Suggestion{{}}, false)
	if err == nil || !strings.Contains(err.Error(), "read_write") {
		t.Errorf("expected mode error, got %v", err)
	}
}

func TestApplyBatchSkipsHeadingPlacement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{}")
	}))
	defer server.Close()

	cfg, db := testSetup(t, server.URL)
	// The only free occurrence sits inside a heading.
	seedEditablePage(t, db, server.URL+"/blog/post/", 7,
		"<h2>Why choose professional driveway installation over gravel</h2><p>Unrelated body text follows.</p>")
	db.InsertSuggestion(&database.Suggestion{
		RunID:      "2026-08-23",
		SourceURL:  server.URL + "/blog/post/",
		TargetURL:  "https://example.com/driveway-pavers/",
		TargetType: "service",
		Anchor:     "professional driveway installation",
		Score:      0.8,
	})
	suggestions, _ := db.GetSuggestionsForRun("2026-08-23")

	result, err := New(cfg).ApplyBatch(context.Background(), db, suggestions, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != 1 || result.Applied != 0 {
		t.Errorf("expected heading placement skipped, got %+v", result)
	}
}

func TestApplyBatchSkipsUnplaceable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{}")
	}))
	defer server.Close()

	cfg, db := testSetup(t, server.URL)
	// Anchor only exists already wrapped in a link.
	seedEditablePage(t, db, server.URL+"/blog/post/", 7,
		`<p>See <a href="/x/">professional driveway installation</a> there.</p>`)
	db.InsertSuggestion(&database.Suggestion{
		RunID:      "2026-08-23",
		SourceURL:  server.URL + "/blog/post/",
		TargetURL:  "https://example.com/driveway-pavers/",
		TargetType: "service",
		Anchor:     "professional driveway installation",
		Score:      0.8,
	})
	suggestions, _ := db.GetSuggestionsForRun("2026-08-23")

	result, err := New(cfg).ApplyBatch(context.Background(), db, suggestions, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != 1 || result.Applied != 0 {
		t.Errorf("expected 1 skipped, got %+v", result)
	}
}
