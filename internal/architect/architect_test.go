package architect

import (
	"testing"

	"github.com/linkscout/linkscout/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Site.URL = "https://example-pavers.com"
	cfg.KnowledgeGraph = config.KnowledgeGraph{
		ServiceHubs: []config.ServiceHub{
			{
				Name:     "driveways",
				URL:      "/driveways-miami/",
				Title:    "Driveway Pavers Miami",
				Keywords: []string{"driveway", "driveway installation"},
			},
		},
		Materials: []config.Material{
			{Name: "travertine", URL: "/travertine-pavers/"},
		},
		AuthorityHubs: config.AuthorityHubs{
			PermitHub: &config.PermitHub{
				URL:        "/service-areas-map/",
				Title:      "Service Areas",
				CentralHub: true,
			},
			PermitPages: []config.PermitPage{
				{URL: "/city-of-miami-beach-permit/", City: "Miami Beach", GeoTerms: []string{"Miami Beach", "South Beach"}},
			},
		},
	}
	cfg.Exclusions = config.Exclusions{
		URLs:     []string{"/privacy-policy/"},
		Patterns: []string{"/tag/*", "/category/*"},
	}
	return cfg
}

func TestNormalizeEquivalentForms(t *testing.T) {
	a := New(testConfig())

	forms := []string{
		"/foo",
		"https://example-pavers.com/foo",
		"https://example-pavers.com/foo/",
		"/Foo/",
		"/foo?utm_source=newsletter",
	}
	for _, f := range forms {
		if got := a.Normalize(f); got != "/foo/" {
			t.Errorf("Normalize(%q) = %q, want /foo/", f, got)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	a := New(testConfig())

	inputs := []string{
		"/Blog/Some-Post?gclid=abc",
		"https://example-pavers.com/Driveways-Miami",
		"/",
		"",
		"not a url at all",
	}
	for _, in := range inputs {
		once := a.Normalize(in)
		twice := a.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeRootAnomaly(t *testing.T) {
	a := New(testConfig())
	if got := a.Normalize("https://example-pavers.com/"); got != "/" {
		t.Errorf("expected /, got %q", got)
	}
	if got := a.Normalize(""); got != "/" {
		t.Errorf("expected / for empty input, got %q", got)
	}
}

func TestCleanQueryPreservesOrder(t *testing.T) {
	a := New(testConfig())

	got := a.CleanQuery("/foo?utm_source=x&color=red&gclid=1&size=large")
	if got != "color=red&size=large" {
		t.Errorf("expected surviving params in order, got %q", got)
	}
	if got := a.CleanQuery("/foo?utm_campaign=spring&fbclid=9"); got != "" {
		t.Errorf("expected empty survivors, got %q", got)
	}
}

func TestClassifyIndexHit(t *testing.T) {
	a := New(testConfig())

	c := a.Classify("https://example-pavers.com/Driveways-Miami/")
	if c.Type != TypeMoneyPage || c.Subtype != "driveways" {
		t.Errorf("expected money_page/driveways, got %s/%s", c.Type, c.Subtype)
	}
	if c.Meta.Title != "Driveway Pavers Miami" {
		t.Errorf("expected indexed title, got %q", c.Meta.Title)
	}

	if c := a.Classify("/service-areas-map/"); c.Type != TypeHub || c.Subtype != "permit_hub" {
		t.Errorf("expected hub/permit_hub, got %s/%s", c.Type, c.Subtype)
	}
	if c := a.Classify("/city-of-miami-beach-permit/"); c.Type != TypePermitPage || c.Subtype != "Miami Beach" {
		t.Errorf("expected permit_page/Miami Beach, got %s/%s", c.Type, c.Subtype)
	}
	if c := a.Classify("/travertine-pavers/"); c.Type != TypeMaterial || c.Subtype != "travertine" {
		t.Errorf("expected material/travertine, got %s/%s", c.Type, c.Subtype)
	}
}

func TestClassifyExclusions(t *testing.T) {
	a := New(testConfig())

	if c := a.Classify("/privacy-policy/"); c.Type != TypeExcluded {
		t.Errorf("exact exclusion: expected excluded, got %s", c.Type)
	}
	if c := a.Classify("/tag/pavers/"); c.Type != TypeExcluded {
		t.Errorf("glob exclusion: expected excluded, got %s", c.Type)
	}
	if c := a.Classify("/category/news/archive/"); c.Type != TypeExcluded {
		t.Errorf("glob should cross slashes, got %s", c.Type)
	}
}

func TestClassifyHeuristics(t *testing.T) {
	a := New(testConfig())

	cases := []struct {
		url  string
		want PageType
	}{
		{"/blog/travertine-guide/", TypeBlog},
		{"/guide/sealing/", TypeBlog},
		{"/projects/coral-gables-pool-deck/", TypeProject},
		{"/portfolio/2024/", TypeProject},
		{"/contact/", TypeUtility},
		{"/about-us/", TypeUtility},
		{"/random-page/", TypeUnknown},
	}
	for _, tc := range cases {
		if got := a.Classify(tc.url).Type; got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.url, got, tc.want)
		}
	}
}

func TestClassifyIndexBeatsHeuristics(t *testing.T) {
	cfg := testConfig()
	cfg.KnowledgeGraph.ServiceHubs = append(cfg.KnowledgeGraph.ServiceHubs, config.ServiceHub{
		Name: "guides", URL: "/blog/mega-guide/", Title: "The Mega Guide",
	})
	a := New(cfg)

	if c := a.Classify("/blog/mega-guide/"); c.Type != TypeMoneyPage {
		t.Errorf("index hit should win over /blog/ heuristic, got %s", c.Type)
	}
}

func TestClassifyNeverPanicsOnGarbage(t *testing.T) {
	a := New(testConfig())
	for _, in := range []string{"", "::::", "%%%", "http://", "\x00"} {
		_ = a.Classify(in)
	}
}
