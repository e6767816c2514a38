package engine

import (
	"path/filepath"
	"testing"

	"github.com/linkscout/linkscout/internal/config"
	"github.com/linkscout/linkscout/internal/database"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Site.URL = "https://example-pavers.com"
	cfg.KnowledgeGraph.ServiceHubs = []config.ServiceHub{
		{
			Name:     "driveways",
			URL:      "https://example-pavers.com/driveway-pavers-miami/",
			Title:    "Driveway Pavers Miami",
			Keywords: []string{"driveway"},
		},
	}
	cfg.KnowledgeGraph.AuthorityHubs = config.AuthorityHubs{
		PermitHub: &config.PermitHub{
			URL:   "https://example-pavers.com/service-areas-map/",
			Title: "Service Areas",
		},
		PermitPages: []config.PermitPage{
			{
				URL:      "https://example-pavers.com/permits-miami-beach/",
				City:     "Miami Beach",
				GeoTerms: []string{"Miami Beach"},
			},
		},
	}
	cfg.AnchorPools = map[string][]string{
		"driveways":             {"professional driveway installation"},
		"permits_general":       {"local permit approval process guide"},
		"permits_location_safe": {"permit requirements for your area"},
	}
	cfg.PermitRules.HubURL = "https://example-pavers.com/service-areas-map/"
	cfg.PermitRules.GeoContextTerms = []string{"Miami Beach"}
	cfg.Campaigns.Primary = "driveway"
	return cfg
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPage(t *testing.T, db *database.DB, url, title, text string, links []string) {
	t.Helper()
	_, err := db.UpsertPage(&database.Page{
		URL:           url,
		NormalizedURL: "", // analyzer normalizes on demand
		Title:         title,
		ContentText:   &text,
		OutboundLinks: links,
	})
	if err != nil {
		t.Fatalf("seeding %s: %v", url, err)
	}
}

const site = "https://example-pavers.com"

func seedSite(t *testing.T, db *database.DB) {
	seedPage(t, db, site+"/", "Home", "Welcome to our paver company.",
		[]string{"/blog/a/", "/driveway-pavers-miami/"})
	seedPage(t, db, site+"/blog/a/", "Post A", "General advice about pavers.",
		[]string{"/driveway-pavers-miami/", "/blog/b/"})
	seedPage(t, db, site+"/blog/b/", "Post B", "A post with too many links.",
		[]string{"/x1/", "/x2/", "/x3/", "/x4/", "/x5/", "/x6/"})
	seedPage(t, db, site+"/driveway-pavers-miami/", "Driveway Pavers Miami",
		"Our flagship driveway service.", nil)
	seedPage(t, db, site+"/blog/c/", "Post C",
		"For any driveway in Miami Beach we suggest professional driveway installation first.", nil)
	seedPage(t, db, site+"/blog/legacy/", "Legacy", "Old content.", nil)
}

func TestAnalyzeArchitecture(t *testing.T) {
	cfg := testConfig()
	cfg.Exclusions.URLs = []string{"/blog/legacy/"}
	db := openTestDB(t)
	seedSite(t, db)

	analysis, err := NewAnalyzer(cfg, db).Analyze("2026-08-23")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.Pages != 5 {
		t.Errorf("expected 5 analyzed pages, got %d", analysis.Pages)
	}
	if analysis.Excluded != 1 {
		t.Errorf("expected 1 excluded page, got %d", analysis.Excluded)
	}

	rows := make(map[string]database.ArchitectureRow)
	for _, e := range analysis.Architecture {
		rows[e.URL] = e
	}
	if _, present := rows[site+"/blog/legacy/"]; present {
		t.Error("excluded page must not appear in the architecture map")
	}

	money := rows[site+"/driveway-pavers-miami/"]
	if money.InboundLinks != 2 {
		t.Errorf("expected 2 inbound links to money page, got %d", money.InboundLinks)
	}
	if money.Status != StatusOK {
		t.Errorf("money page with 2 inbound should be OK, got %s", money.Status)
	}
	if money.HubScore == nil || *money.HubScore != "Medium" {
		t.Errorf("expected Medium hub score, got %v", money.HubScore)
	}
	if money.ClickDepth != 1 {
		t.Errorf("expected click depth 1, got %d", money.ClickDepth)
	}

	over := rows[site+"/blog/b/"]
	if over.Status != StatusOverLinked {
		t.Errorf("page with 6 outbound should be OVER_LINKED, got %s", over.Status)
	}
	if over.ClickDepth != 2 {
		t.Errorf("expected click depth 2, got %d", over.ClickDepth)
	}

	orphan := rows[site+"/blog/c/"]
	if orphan.InboundLinks != 0 {
		t.Errorf("expected orphan with 0 inbound, got %d", orphan.InboundLinks)
	}
	if orphan.ClickDepth != -1 {
		t.Errorf("expected unreachable depth -1, got %d", orphan.ClickDepth)
	}

	if home := rows[site+"/"]; home.ClickDepth != 0 {
		t.Errorf("expected homepage depth 0, got %d", home.ClickDepth)
	}
}

func TestAnalyzeUnderlinkedMoneyPage(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)
	seedPage(t, db, site+"/driveway-pavers-miami/", "Driveway Pavers Miami", "Flagship service.", nil)
	seedPage(t, db, site+"/blog/a/", "Post A", "One mention.", []string{"/driveway-pavers-miami/"})

	analysis, err := NewAnalyzer(cfg, db).Analyze("2026-08-23")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range analysis.Architecture {
		if e.URL == site+"/driveway-pavers-miami/" && e.Status != StatusNeedsLinks {
			t.Errorf("money page with 1 inbound should be NEEDS_LINKS, got %s", e.Status)
		}
	}
}

func TestAnalyzePersistsSuggestionsAndPermits(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)
	seedSite(t, db)

	analysis, err := NewAnalyzer(cfg, db).Analyze("2026-08-23")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Post C mentions a driveway keyword with the anchor phrase present and
	// names a geo term, so both a service suggestion and a permit decision
	// must come out of it.
	var foundService, foundPermit bool
	for _, s := range analysis.Suggestions {
		if s.SourceURL == site+"/blog/c/" && s.TargetType == "service" {
			foundService = true
		}
	}
	for _, p := range analysis.Permits {
		if p.SourceURL == site+"/blog/c/" && p.Decision == "approved" {
			foundPermit = true
		}
	}
	if !foundService {
		t.Error("expected a service suggestion from post C")
	}
	if !foundPermit {
		t.Error("expected an approved permit decision from post C")
	}

	stored, err := db.GetSuggestionsForRun("2026-08-23")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != len(analysis.Suggestions) {
		t.Errorf("expected %d stored suggestions, got %d", len(analysis.Suggestions), len(stored))
	}

	permits, _ := db.GetPermitDecisionsForRun("2026-08-23")
	if len(permits) != len(analysis.Permits) {
		t.Errorf("expected %d stored permit decisions, got %d", len(analysis.Permits), len(permits))
	}

	report, _ := db.GetReport("2026-08-23")
	if report == nil {
		t.Fatal("expected a run report")
	}
	if report.PageCount != analysis.Pages {
		t.Errorf("report page count mismatch: %d vs %d", report.PageCount, analysis.Pages)
	}
}

func TestAnalyzeUpdatesStoredPageType(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)
	seedPage(t, db, site+"/blog/a/", "Post A", "Some advice.", nil)
	seedPage(t, db, site+"/driveway-pavers-miami/", "Driveway Pavers Miami", "Flagship service.", nil)

	if _, err := NewAnalyzer(cfg, db).Analyze("2026-08-23"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blog, err := db.GetPageByURL(site + "/blog/a/")
	if err != nil {
		t.Fatalf("loading page: %v", err)
	}
	if blog.PageType == nil || *blog.PageType != "blog" {
		t.Errorf("expected stored page type blog, got %v", blog.PageType)
	}

	money, _ := db.GetPageByURL(site + "/driveway-pavers-miami/")
	if money.PageType == nil || *money.PageType != "money_page" {
		t.Errorf("expected stored page type money_page, got %v", money.PageType)
	}
}

func TestAnalyzeSkipsAnchorsAlreadyLinkedOnPage(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)

	text := "Any driveway benefits from professional driveway installation."
	html := `<p>Any driveway benefits from <a href="/blog/other/">professional driveway installation</a>.</p>`
	if _, err := db.UpsertPage(&database.Page{
		URL:           site + "/blog/a/",
		Title:         "Post A",
		ContentText:   &text,
		ContentHTML:   &html,
		OutboundLinks: []string{"/blog/other/"},
	}); err != nil {
		t.Fatalf("seeding page: %v", err)
	}

	analysis, err := NewAnalyzer(cfg, db).Analyze("2026-08-23")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The only pool anchor is already the text of a link on the page, so no
	// service suggestion may reuse it.
	for _, s := range analysis.Suggestions {
		if s.TargetType == "service" {
			t.Errorf("anchor already linked on the page must suppress the suggestion, got %+v", s)
		}
	}
}

func TestAnalyzeRerunReplacesResults(t *testing.T) {
	cfg := testConfig()
	db := openTestDB(t)
	seedSite(t, db)

	a := NewAnalyzer(cfg, db)
	first, err := a.Analyze("2026-08-23")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := a.Analyze("2026-08-23")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	stored, _ := db.GetSuggestionsForRun("2026-08-23")
	if len(stored) != len(second.Suggestions) {
		t.Errorf("re-run should replace suggestions: %d stored vs %d", len(stored), len(second.Suggestions))
	}
	if len(first.Architecture) != len(second.Architecture) {
		t.Errorf("architecture should be stable across re-runs: %d vs %d",
			len(first.Architecture), len(second.Architecture))
	}
}

func TestAnalyzeEmptyDatabase(t *testing.T) {
	db := openTestDB(t)
	if _, err := NewAnalyzer(testConfig(), db).Analyze("2026-08-23"); err == nil {
		t.Error("expected an error with no crawled pages")
	}
}
