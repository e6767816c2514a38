// Package engine runs the site-wide analysis: it cross-references every
// crawled page, maps the site architecture and produces link suggestions
// and permit decisions.
package engine

import (
	"fmt"
	"log"

	"github.com/linkscout/linkscout/internal/anchor"
	"github.com/linkscout/linkscout/internal/architect"
	"github.com/linkscout/linkscout/internal/config"
	"github.com/linkscout/linkscout/internal/crawl"
	"github.com/linkscout/linkscout/internal/database"
	"github.com/linkscout/linkscout/internal/opportunity"
)

// Page health statuses in the architecture map.
const (
	StatusOK         = "OK"
	StatusNeedsLinks = "NEEDS_LINKS"
	StatusOverLinked = "OVER_LINKED"
)

// Structural thresholds for the architecture map.
const (
	minMoneyInbound = 2 // money pages under this are underlinked
	maxOutbound     = 5 // any page over this is overlinked
	hubScoreHigh    = 5
	hubScoreMedium  = 2
)

// Analysis is the outcome of one analysis run.
type Analysis struct {
	RunID        string
	Pages        int
	Excluded     int
	Suggestions  []opportunity.LinkOpportunity
	Permits      []opportunity.PermitDecision
	Architecture []database.ArchitectureRow
}

// Analyzer runs the analysis over crawled pages and persists the results.
type Analyzer struct {
	cfg  *config.Config
	db   *database.DB
	arch *architect.Architect
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg *config.Config, db *database.DB) *Analyzer {
	return &Analyzer{cfg: cfg, db: db, arch: architect.New(cfg)}
}

// pageView is one page prepared for cross-referencing.
type pageView struct {
	page     *database.Page
	norm     string
	pageType architect.PageType
	links    []string // normalized internal links, self-links dropped
}

// Analyze runs the full analysis for a run ID and stores the results,
// replacing any earlier results for the same run.
func (a *Analyzer) Analyze(runID string) (*Analysis, error) {
	pages, err := a.db.GetAllPages()
	if err != nil {
		return nil, fmt.Errorf("loading pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no crawled pages; run a crawl first")
	}

	analysis := &Analysis{RunID: runID}

	// Pass 1: classify and normalize. Excluded pages drop out of every
	// output, as sources, targets and architecture rows alike.
	var views []pageView
	for i := range pages {
		p := &pages[i]
		if a.arch.IsExcluded(p.URL) {
			analysis.Excluded++
			continue
		}
		c := a.arch.Classify(p.URL)
		if c.Type == architect.TypeExcluded {
			analysis.Excluded++
			continue
		}

		// Reclassification sticks: a knowledge-graph edit between crawls
		// must show up on the stored page, not just in this run.
		if p.PageType == nil || *p.PageType != string(c.Type) {
			if err := a.db.UpdatePageType(p.ID, string(c.Type)); err != nil {
				return nil, fmt.Errorf("updating page type for %s: %w", p.URL, err)
			}
		}

		norm := p.NormalizedURL
		if norm == "" {
			norm = a.arch.Normalize(p.URL)
		}

		var links []string
		for _, l := range p.OutboundLinks {
			ln := a.arch.Normalize(l)
			if ln == norm {
				continue
			}
			links = append(links, ln)
		}

		views = append(views, pageView{page: p, norm: norm, pageType: c.Type, links: links})
	}
	analysis.Pages = len(views)

	// Pass 2: cross-reference inbound links over the complete page set.
	inbound := make(map[string]int, len(views))
	adjacency := make(map[string][]string, len(views))
	for _, v := range views {
		for _, l := range v.links {
			inbound[l]++
		}
		adjacency[v.norm] = v.links
	}
	depths := clickDepths(adjacency)

	for _, v := range views {
		analysis.Architecture = append(analysis.Architecture, a.architectureRow(runID, &v, inbound, depths))
	}

	// Opportunity detection shares one validator and rotator across the
	// run so anchor rotation spans pages.
	validator := anchor.NewValidator(a.cfg.AnchorRules, a.cfg.Placement)
	rotator := anchor.NewRotator(a.cfg.AnchorPools)
	engine := opportunity.NewEngine(a.cfg, a.arch, validator, rotator)

	for _, v := range views {
		text := ""
		if v.page.ContentText != nil {
			text = *v.page.ContentText
		}
		var existingAnchors []string
		if v.page.ContentHTML != nil {
			existingAnchors = crawl.ExtractAnchorTexts(*v.page.ContentHTML, a.cfg.Site.URL)
		}

		opps := engine.FindOpportunities(v.page.URL, v.page.Title, text, v.page.OutboundLinks, existingAnchors)
		for _, o := range opps {
			validator.RecordAnchorUse(o.SuggestedAnchor)
		}
		analysis.Suggestions = append(analysis.Suggestions, opps...)

		if d := engine.AnalyzePermit(v.page.URL, v.pageType, text, v.page.OutboundLinks); d != nil {
			analysis.Permits = append(analysis.Permits, *d)
		}
	}

	if err := a.persist(analysis); err != nil {
		return nil, err
	}

	log.Printf("Analysis complete: %d pages, %d suggestions, %d permit decisions, %d excluded",
		analysis.Pages, len(analysis.Suggestions), len(analysis.Permits), analysis.Excluded)
	return analysis, nil
}

func (a *Analyzer) architectureRow(runID string, v *pageView, inbound map[string]int, depths map[string]int) database.ArchitectureRow {
	in := inbound[v.norm]
	out := len(v.links)

	row := database.ArchitectureRow{
		RunID:         runID,
		URL:           v.page.URL,
		PageType:      string(v.pageType),
		ClickDepth:    -1,
		InboundLinks:  in,
		OutboundLinks: out,
		Status:        StatusOK,
	}
	if d, ok := depths[v.norm]; ok {
		row.ClickDepth = d
	}

	if v.pageType == architect.TypeMoneyPage || v.pageType == architect.TypeHub {
		score := "Low"
		switch {
		case in >= hubScoreHigh:
			score = "High"
		case in >= hubScoreMedium:
			score = "Medium"
		}
		row.HubScore = &score
	}

	switch {
	case v.pageType == architect.TypeMoneyPage && in < minMoneyInbound:
		row.Status = StatusNeedsLinks
	case out > maxOutbound:
		row.Status = StatusOverLinked
	}

	return row
}

// persist replaces the run's stored results with this analysis.
func (a *Analyzer) persist(analysis *Analysis) error {
	if err := a.db.ClearRun(analysis.RunID); err != nil {
		return fmt.Errorf("clearing previous run: %w", err)
	}

	for i := range analysis.Suggestions {
		o := &analysis.Suggestions[i]
		s := &database.Suggestion{
			RunID:      analysis.RunID,
			SourceURL:  o.SourceURL,
			TargetURL:  o.TargetURL,
			TargetType: string(o.TargetType),
			Anchor:     o.SuggestedAnchor,
			Score:      o.ConfidenceScore,
		}
		if o.SourceTitle != "" {
			s.SourceTitle = &o.SourceTitle
		}
		if o.ParagraphContext != "" {
			s.Context = &o.ParagraphContext
		}
		if o.Reasoning != "" {
			s.Reasoning = &o.Reasoning
		}
		if _, err := a.db.InsertSuggestion(s); err != nil {
			return fmt.Errorf("storing suggestion: %w", err)
		}
	}

	for i := range analysis.Permits {
		d := &analysis.Permits[i]
		r := &database.PermitRecord{
			RunID:        analysis.RunID,
			SourceURL:    d.SourceURL,
			SourceType:   string(d.SourceType),
			Anchor:       d.AnchorUsed,
			TargetURL:    d.PermitTarget,
			Decision:     d.Decision,
			FallbackUsed: d.FallbackUsed,
			Confidence:   d.Confidence,
		}
		if d.GeoContext != "" {
			r.GeoContext = &d.GeoContext
		}
		if _, err := a.db.InsertPermitDecision(r); err != nil {
			return fmt.Errorf("storing permit decision: %w", err)
		}
	}

	if err := a.db.ReplaceArchitecture(analysis.RunID, analysis.Architecture); err != nil {
		return fmt.Errorf("storing architecture: %w", err)
	}

	if err := a.db.InsertReport(analysis.RunID, analysis.Pages, len(analysis.Suggestions), len(analysis.Permits)); err != nil {
		return fmt.Errorf("storing run report: %w", err)
	}

	return nil
}

// clickDepths walks the internal link graph breadth-first from the homepage.
// Unreachable pages are absent from the result.
func clickDepths(adjacency map[string][]string) map[string]int {
	const home = "/"

	depths := map[string]int{home: 0}
	queue := []string{home}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current] {
			if _, seen := depths[next]; seen {
				continue
			}
			depths[next] = depths[current] + 1
			queue = append(queue, next)
		}
	}

	return depths
}
