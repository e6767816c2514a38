// Package opportunity detects and scores internal linking opportunities.
package opportunity

import (
	"fmt"
	"sort"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/linkscout/linkscout/internal/anchor"
	"github.com/linkscout/linkscout/internal/architect"
	"github.com/linkscout/linkscout/internal/config"
)

// TargetType is the kind of page an opportunity points at.
type TargetType string

// Target types.
const (
	TargetService    TargetType = "service"
	TargetPermitHub  TargetType = "permit_hub"
	TargetPermitCity TargetType = "permit_city"
	TargetMaterial   TargetType = "material"
	TargetBlog       TargetType = "blog"
)

// Anchor pool categories for permit links.
const (
	poolPermitsGeneral      = "permits_general"
	poolPermitsLocationSafe = "permits_location_safe"
)

// LinkOpportunity is a detected internal linking opportunity.
type LinkOpportunity struct {
	SourceURL         string     `json:"source_url"`
	SourceTitle       string     `json:"source_title"`
	TargetURL         string     `json:"target_url"`
	TargetType        TargetType `json:"target_type"`
	SuggestedAnchor   string     `json:"suggested_anchor"`
	ParagraphContext  string     `json:"paragraph_context"`
	SentenceContext   string     `json:"sentence_context"`
	ConfidenceScore   float64    `json:"confidence_score"`
	Reasoning         string     `json:"reasoning"`
	PositionInContent int        `json:"-"`
}

// PermitDecision records how the permit-linking rules resolved for a page.
type PermitDecision struct {
	SourceURL    string             `json:"source_url"`
	SourceType   architect.PageType `json:"source_type"`
	AnchorUsed   string             `json:"anchor_used"`
	PermitTarget string             `json:"permit_target"`
	Decision     string             `json:"permit_decision"` // "approved" or "hub_fallback"
	GeoContext   string             `json:"geo_context_detected,omitempty"`
	FallbackUsed bool               `json:"fallback_used"`
	Confidence   float64            `json:"confidence"`
}

// Permit decision outcomes.
const (
	DecisionApproved    = "approved"
	DecisionHubFallback = "hub_fallback"
)

// Engine finds and scores candidate links for one source page at a time.
// Construct one Engine per analysis run; it shares the run's validator and
// rotator, so it is not safe for concurrent use.
type Engine struct {
	cfg       *config.Config
	architect *architect.Architect
	validator *anchor.Validator
	rotator   *anchor.Rotator

	// Keyword automatons, built once over the lowercased vocabulary.
	kwMatcher  *ahocorasick.Matcher
	kwPatterns []string
	geoMatcher *ahocorasick.Matcher
	geoTerms   []string
}

// NewEngine builds an Engine over the configured knowledge graph. Empty
// configuration sections yield an engine that simply finds nothing.
func NewEngine(cfg *config.Config, arch *architect.Architect, validator *anchor.Validator, rotator *anchor.Rotator) *Engine {
	e := &Engine{
		cfg:       cfg,
		architect: arch,
		validator: validator,
		rotator:   rotator,
	}

	seen := make(map[string]struct{})
	for _, hub := range cfg.KnowledgeGraph.ServiceHubs {
		for _, kw := range hub.Keywords {
			lower := strings.ToLower(strings.TrimSpace(kw))
			if lower == "" {
				continue
			}
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			e.kwPatterns = append(e.kwPatterns, lower)
		}
	}
	if len(e.kwPatterns) > 0 {
		e.kwMatcher = ahocorasick.NewStringMatcher(e.kwPatterns)
	}

	for _, term := range cfg.PermitRules.GeoContextTerms {
		if t := strings.TrimSpace(term); t != "" {
			e.geoTerms = append(e.geoTerms, t)
		}
	}
	if len(e.geoTerms) > 0 {
		lowered := make([]string, len(e.geoTerms))
		for i, t := range e.geoTerms {
			lowered[i] = strings.ToLower(t)
		}
		e.geoMatcher = ahocorasick.NewStringMatcher(lowered)
	}

	return e
}

// FindOpportunities scans one page's content and returns scored, ranked
// opportunities capped at the page's remaining link slots. existingAnchors
// are the anchor texts already linked on the page; candidates too similar to
// one of them are rejected. It never fails: absent configuration just
// produces fewer opportunities.
func (e *Engine) FindOpportunities(sourceURL, sourceTitle, contentText string, existingLinks, existingAnchors []string) []LinkOpportunity {
	source := e.architect.Classify(sourceURL)
	if source.Type == architect.TypeExcluded || e.architect.IsExcluded(sourceURL) {
		return nil
	}

	slots := e.cfg.Limits.MaxLinksPerPage - len(existingLinks)
	if slots <= 0 {
		return nil
	}

	contentLower := strings.ToLower(contentText)
	hits := e.keywordHits(contentLower)

	var opps []LinkOpportunity
	opps = append(opps, e.serviceOpportunities(sourceURL, sourceTitle, contentText, contentLower, existingLinks, existingAnchors, hits)...)
	opps = append(opps, e.permitOpportunities(sourceURL, sourceTitle, contentLower, existingLinks, source.Type)...)

	for i := range opps {
		opps[i].ConfidenceScore = e.score(&opps[i])
	}

	kept := opps[:0]
	for _, o := range opps {
		if o.ConfidenceScore >= e.cfg.Scoring.Thresholds.MinScoreToSuggest {
			kept = append(kept, o)
		}
	}

	sortByScoreDesc(kept)
	if len(kept) > slots {
		kept = kept[:slots]
	}
	return kept
}

// keywordHits runs the service-keyword automaton once over the content and
// returns the set of matched patterns.
func (e *Engine) keywordHits(contentLower string) map[string]struct{} {
	if e.kwMatcher == nil {
		return nil
	}
	hits := make(map[string]struct{})
	for _, idx := range e.kwMatcher.Match([]byte(contentLower)) {
		if idx < len(e.kwPatterns) {
			hits[e.kwPatterns[idx]] = struct{}{}
		}
	}
	return hits
}

// serviceOpportunities emits at most one opportunity per configured service
// hub, for the first hub keyword mentioned in the content.
func (e *Engine) serviceOpportunities(sourceURL, sourceTitle, contentText, contentLower string, existingLinks, existingAnchors []string, hits map[string]struct{}) []LinkOpportunity {
	if len(hits) == 0 {
		return nil
	}

	sourceNorm := e.architect.Normalize(sourceURL)
	linked := e.normalizedSet(existingLinks)

	var opps []LinkOpportunity
	for _, hub := range e.cfg.KnowledgeGraph.ServiceHubs {
		targetNorm := e.architect.Normalize(hub.URL)
		if targetNorm == sourceNorm {
			continue
		}
		if _, already := linked[targetNorm]; already {
			continue
		}
		if e.architect.IsExcluded(hub.URL) {
			continue
		}

		pool := e.cfg.AnchorPools[hub.Name]
		if len(pool) == 0 || len(hub.Keywords) == 0 {
			continue
		}

		for _, kw := range hub.Keywords {
			kwLower := strings.ToLower(strings.TrimSpace(kw))
			if _, found := hits[kwLower]; !found {
				continue
			}

			pos, context, sentence := keywordContext(contentText, contentLower, kwLower)
			if pos < 0 {
				continue
			}

			best, ok := e.validator.BestAnchor(pool, hub.Title, hub.Keywords[0], existingAnchors)
			if !ok || !strings.Contains(contentLower, strings.ToLower(best)) {
				continue
			}

			opps = append(opps, LinkOpportunity{
				SourceURL:         sourceURL,
				SourceTitle:       sourceTitle,
				TargetURL:         hub.URL,
				TargetType:        TargetService,
				SuggestedAnchor:   best,
				ParagraphContext:  truncate(context, 100),
				SentenceContext:   sentence,
				Reasoning:         fmt.Sprintf("content mentions %q, relevant to %s", kw, hub.Name),
				PositionInContent: pos,
			})
			break // one opportunity per service hub
		}
	}
	return opps
}

// permitOpportunities emits at most one permit-link opportunity, applying
// the source allowlist, the per-page permit cap, and geo-context targeting.
func (e *Engine) permitOpportunities(sourceURL, sourceTitle, contentLower string, existingLinks []string, sourceType architect.PageType) []LinkOpportunity {
	rules := e.cfg.PermitRules

	if !sourceAllowed(rules.AllowedSources, sourceType) {
		return nil
	}
	if rules.NoPermitToPermit && sourceType == architect.TypePermitPage {
		return nil
	}
	if e.existingPermitLinks(existingLinks) >= e.cfg.Limits.MaxPermitLinksPerPage {
		return nil
	}

	targetURL, targetType, reasoning := e.resolvePermitTarget(contentLower)
	if targetURL == "" {
		return nil
	}
	if e.architect.IsExcluded(targetURL) {
		return nil
	}

	targetNorm := e.architect.Normalize(targetURL)
	if _, already := e.normalizedSet(existingLinks)[targetNorm]; already {
		return nil
	}

	poolName := poolPermitsGeneral
	if targetType == TargetPermitCity {
		poolName = poolPermitsLocationSafe
	}
	pool := e.cfg.AnchorPools[poolName]
	if len(pool) == 0 {
		return nil
	}

	return []LinkOpportunity{{
		SourceURL:       sourceURL,
		SourceTitle:     sourceTitle,
		TargetURL:       targetURL,
		TargetType:      targetType,
		SuggestedAnchor: pool[0], // rotation happens at emission time
		Reasoning:       reasoning,
	}}
}

// resolvePermitTarget decides between the permit hub and a city-specific
// permit page. An empty URL means no permit opportunity exists.
func (e *Engine) resolvePermitTarget(contentLower string) (targetURL string, targetType TargetType, reasoning string) {
	rules := e.cfg.PermitRules

	if !rules.RequiresGeoContext {
		return rules.HubURL, TargetPermitHub, "default to hub (no geo-context required)"
	}

	if geo := e.DetectGeo(contentLower); geo != "" {
		for _, pp := range e.cfg.KnowledgeGraph.AuthorityHubs.PermitPages {
			if containsFold(pp.GeoTerms, geo) {
				return pp.URL, TargetPermitCity, fmt.Sprintf("geo-context detected: %s", geo)
			}
		}
	}

	if rules.HubPriority {
		return rules.HubURL, TargetPermitHub, "hub priority (no specific geo-context)"
	}
	return "", "", ""
}

// DetectGeo returns the first configured geo term mentioned in the content,
// in configured list order, or empty when none match.
func (e *Engine) DetectGeo(contentLower string) string {
	if e.geoMatcher == nil {
		return ""
	}
	matched := make(map[int]struct{})
	for _, idx := range e.geoMatcher.Match([]byte(contentLower)) {
		matched[idx] = struct{}{}
	}
	for i, term := range e.geoTerms {
		if _, ok := matched[i]; ok {
			return term
		}
	}
	return ""
}

// AnalyzePermit runs the permit decision rules for one page, independent of
// the general opportunity flow, and returns nil when no permit link should
// be placed. Anchors come from the run's rotator so repeated decisions
// spread across the pools.
func (e *Engine) AnalyzePermit(sourceURL string, sourceType architect.PageType, contentText string, existingLinks []string) *PermitDecision {
	rules := e.cfg.PermitRules

	if !sourceAllowed(rules.AllowedSources, sourceType) {
		return nil
	}
	if rules.NoPermitToPermit && sourceType == architect.TypePermitPage {
		return nil
	}
	if e.existingPermitLinks(existingLinks) >= e.cfg.Limits.MaxPermitLinksPerPage {
		return nil
	}

	contentLower := strings.ToLower(contentText)
	geo := e.DetectGeo(contentLower)

	if geo != "" {
		for _, pp := range e.cfg.KnowledgeGraph.AuthorityHubs.PermitPages {
			if !containsFold(pp.GeoTerms, geo) {
				continue
			}
			if e.architect.IsExcluded(pp.URL) {
				return nil
			}
			return &PermitDecision{
				SourceURL:    sourceURL,
				SourceType:   sourceType,
				AnchorUsed:   e.permitAnchor(poolPermitsLocationSafe, fmt.Sprintf("permit requirements in %s", geo)),
				PermitTarget: pp.URL,
				Decision:     DecisionApproved,
				GeoContext:   geo,
				FallbackUsed: false,
				Confidence:   0.90,
			}
		}
	}

	if !rules.HubPriority {
		return nil
	}
	if e.architect.IsExcluded(rules.HubURL) {
		return nil
	}
	return &PermitDecision{
		SourceURL:    sourceURL,
		SourceType:   sourceType,
		AnchorUsed:   e.permitAnchor(poolPermitsGeneral, "local permit approval process"),
		PermitTarget: rules.HubURL,
		Decision:     DecisionHubFallback,
		FallbackUsed: true,
		Confidence:   0.75,
	}
}

// permitAnchor takes the next rotated anchor from a pool, falling back to a
// fixed phrase when the pool is not configured.
func (e *Engine) permitAnchor(category, fallback string) string {
	if e.rotator != nil {
		if a, ok := e.rotator.NextAnchor(category); ok {
			e.rotator.RecordUsage(category, a)
			return a
		}
	}
	return fallback
}

// score computes the confidence for one opportunity: 0.5 base, campaign
// alignment for service targets, flat authority bonuses for permit targets,
// clamped to 1.0.
func (e *Engine) score(o *LinkOpportunity) float64 {
	score := 0.5

	if o.TargetType == TargetService {
		target := strings.ToLower(o.TargetURL)
		weight := e.cfg.Scoring.Weights.CampaignAlignment
		primary := strings.ToLower(e.cfg.Campaigns.Primary)
		secondary := strings.ToLower(e.cfg.Campaigns.Secondary)

		switch {
		case primary != "" && strings.Contains(target, primary):
			score += weight * e.cfg.Campaigns.BoostMultiplier
		case secondary != "" && strings.Contains(target, secondary):
			score += weight
		}
	}

	switch o.TargetType {
	case TargetPermitHub:
		score += 0.1
	case TargetPermitCity:
		score += 0.15
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// existingPermitLinks counts links on the page that point at permit pages.
func (e *Engine) existingPermitLinks(existingLinks []string) int {
	n := 0
	for _, link := range existingLinks {
		if e.architect.IsPermitPage(link) {
			n++
		}
	}
	return n
}

func (e *Engine) normalizedSet(links []string) map[string]struct{} {
	set := make(map[string]struct{}, len(links))
	for _, l := range links {
		set[e.architect.Normalize(l)] = struct{}{}
	}
	return set
}

// keywordContext locates the first occurrence of a lowercased keyword and
// returns its position, a ±50 character snippet, and the containing
// sentence. pos is -1 when the keyword is absent.
func keywordContext(content, contentLower, kwLower string) (pos int, context, sentence string) {
	pos = strings.Index(contentLower, kwLower)
	if pos < 0 {
		return -1, "", ""
	}

	start := max(0, pos-50)
	end := min(len(content), pos+len(kwLower)+50)
	context = content[start:end]

	sentStart := strings.LastIndex(content[:pos], ".")
	if sentStart == -1 {
		sentStart = 0
	} else {
		sentStart++
	}
	sentEnd := strings.Index(content[pos:], ".")
	if sentEnd == -1 {
		sentEnd = len(content)
	} else {
		sentEnd += pos + 1
	}
	sentence = strings.TrimSpace(content[sentStart:sentEnd])
	return pos, context, sentence
}

func sortByScoreDesc(opps []LinkOpportunity) {
	// Stable so equal-score opportunities keep discovery order.
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ConfidenceScore > opps[j].ConfidenceScore
	})
}

func sourceAllowed(allowed []string, t architect.PageType) bool {
	for _, a := range allowed {
		if a == string(t) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
