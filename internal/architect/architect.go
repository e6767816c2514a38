// Package architect understands the site's structure: it canonicalizes URLs
// and classifies pages by their business role.
package architect

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/linkscout/linkscout/internal/config"
)

// PageType is the business role of a page.
type PageType string

// Page types, from most to least valuable as a link target.
const (
	TypeMoneyPage  PageType = "money_page"
	TypeHub        PageType = "hub"
	TypePermitPage PageType = "permit_page"
	TypeMaterial   PageType = "material"
	TypeBlog       PageType = "blog"
	TypeProject    PageType = "project"
	TypeUtility    PageType = "utility"
	TypeExcluded   PageType = "excluded"
	TypeUnknown    PageType = "unknown"
)

// Meta carries the knowledge-graph data attached to an indexed page.
type Meta struct {
	Priority   int
	Title      string
	Keywords   []string
	GeoTerms   []string
	CentralHub bool
}

// Classification is the result of classifying a single URL.
type Classification struct {
	Type    PageType
	Subtype string
	Meta    Meta
}

// stripParams are tracking query parameters removed during normalization.
// Any key starting with "utm_" is stripped as well.
var stripParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_content": {},
	"utm_term": {}, "gclid": {}, "fbclid": {}, "ref": {}, "source": {},
}

// Architect normalizes URLs and classifies pages against a pre-built index.
// The index is built once from configuration and read-only afterwards, so an
// Architect is safe for concurrent readers.
type Architect struct {
	siteURL      string
	index        map[string]Classification
	exclURLs     map[string]struct{}
	exclPatterns []*regexp.Regexp
}

// New builds an Architect from configuration. Missing knowledge-graph
// sections simply produce a smaller index.
func New(cfg *config.Config) *Architect {
	a := &Architect{
		siteURL:  strings.TrimRight(cfg.Site.URL, "/"),
		index:    make(map[string]Classification),
		exclURLs: make(map[string]struct{}),
	}

	kg := cfg.KnowledgeGraph
	for _, hub := range kg.ServiceHubs {
		a.index[a.Normalize(hub.URL)] = Classification{
			Type:    TypeMoneyPage,
			Subtype: hub.Name,
			Meta: Meta{
				Priority: defaultPriority(hub.Priority, 2),
				Title:    hub.Title,
				Keywords: hub.Keywords,
			},
		}
	}

	if ph := kg.AuthorityHubs.PermitHub; ph != nil {
		a.index[a.Normalize(ph.URL)] = Classification{
			Type:    TypeHub,
			Subtype: "permit_hub",
			Meta: Meta{
				Priority:   defaultPriority(ph.Priority, 1),
				Title:      ph.Title,
				CentralHub: ph.CentralHub,
			},
		}
	}

	for _, pp := range kg.AuthorityHubs.PermitPages {
		city := pp.City
		if city == "" {
			city = "unknown"
		}
		a.index[a.Normalize(pp.URL)] = Classification{
			Type:    TypePermitPage,
			Subtype: city,
			Meta: Meta{
				Priority: 3,
				GeoTerms: pp.GeoTerms,
			},
		}
	}

	for _, m := range kg.Materials {
		a.index[a.Normalize(m.URL)] = Classification{
			Type:    TypeMaterial,
			Subtype: m.Name,
			Meta:    Meta{Priority: 2},
		}
	}

	for _, u := range cfg.Exclusions.URLs {
		a.exclURLs[a.Normalize(u)] = struct{}{}
	}
	for _, p := range cfg.Exclusions.Patterns {
		a.exclPatterns = append(a.exclPatterns, compileGlob(p))
	}

	return a
}

// Normalize canonicalizes a URL to its path-only form: lowercase path,
// exactly one trailing slash, tracking parameters irrelevant (the query is
// dropped entirely from the returned value; use CleanQuery for survivors).
// Relative and absolute forms of the same resource normalize identically,
// and Normalize(Normalize(x)) == Normalize(x).
func (a *Architect) Normalize(raw string) string {
	path := rawPath(raw, a.siteURL)

	path = strings.ToLower(path)
	path = strings.TrimRight(path, "/") + "/"
	if path == "//" || !strings.HasPrefix(path, "/") {
		// Root anomaly, or a scheme-less fragment with no leading slash.
		path = "/" + strings.TrimLeft(path, "/")
	}
	return path
}

// CleanQuery returns the query parameters of a URL that survive tracking
// removal, reconstructed in their original relative order. Empty string when
// nothing survives.
func (a *Architect) CleanQuery(raw string) string {
	q := rawQuery(raw)
	if q == "" {
		return ""
	}

	var kept []string
	for _, pair := range strings.Split(q, "&") {
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		key = strings.ToLower(key)
		if _, strip := stripParams[key]; strip || strings.HasPrefix(key, "utm_") {
			continue
		}
		if pair != "" {
			kept = append(kept, pair)
		}
	}
	return strings.Join(kept, "&")
}

// Classify assigns a page type from the pre-built index, the exclusion
// rules, then path heuristics. It is a pure read and always returns a
// result, defaulting to unknown.
func (a *Architect) Classify(raw string) Classification {
	normalized := a.Normalize(raw)

	if c, ok := a.index[normalized]; ok {
		return c
	}

	if a.isExcluded(normalized) {
		return Classification{Type: TypeExcluded}
	}

	switch {
	case strings.Contains(normalized, "/blog/") || strings.Contains(normalized, "/guide/"):
		return Classification{Type: TypeBlog}
	case strings.Contains(normalized, "/project") || strings.Contains(normalized, "/portfolio/"):
		return Classification{Type: TypeProject}
	case strings.Contains(normalized, "/contact") || strings.Contains(normalized, "/about"):
		return Classification{Type: TypeUtility}
	}

	return Classification{Type: TypeUnknown}
}

// Lookup returns the index entry for a URL, if any.
func (a *Architect) Lookup(raw string) (Classification, bool) {
	c, ok := a.index[a.Normalize(raw)]
	return c, ok
}

// IsExcluded reports whether a URL matches the exclusion rules, regardless
// of how it classifies. Exclusion blocks a page as both a link source and a
// link target even when the page is indexed in the knowledge graph.
func (a *Architect) IsExcluded(raw string) bool {
	return a.isExcluded(a.Normalize(raw))
}

// IsPermitPage reports whether a URL classifies as a city permit page.
func (a *Architect) IsPermitPage(raw string) bool {
	return a.Classify(raw).Type == TypePermitPage
}

// IsMoneyPage reports whether a URL classifies as a core service page.
func (a *Architect) IsMoneyPage(raw string) bool {
	return a.Classify(raw).Type == TypeMoneyPage
}

func (a *Architect) isExcluded(normalized string) bool {
	if _, ok := a.exclURLs[normalized]; ok {
		return true
	}
	for _, re := range a.exclPatterns {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// rawPath extracts the path component without ever failing. The site base
// prefix is dropped from absolute URLs; everything after '?' or '#' is cut.
func rawPath(raw, siteURL string) string {
	if u, err := url.Parse(raw); err == nil {
		return u.Path
	}
	// Unparsable input: best-effort string surgery.
	s := raw
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if siteURL != "" && strings.HasPrefix(s, siteURL) {
		s = strings.TrimPrefix(s, siteURL)
	} else if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.IndexByte(s, '/'); j >= 0 {
			s = s[j:]
		} else {
			s = "/"
		}
	}
	return s
}

func rawQuery(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return u.RawQuery
	}
	s := raw
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// compileGlob turns a shell-style pattern into a regexp. Unlike path.Match,
// '*' crosses slash boundaries, matching fnmatch semantics.
func compileGlob(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func defaultPriority(p, fallback int) int {
	if p == 0 {
		return fallback
	}
	return p
}
