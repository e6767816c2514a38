// Package anchor enforces anchor-text safety: length and similarity rules,
// recency rotation, and placement restrictions.
package anchor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/linkscout/linkscout/internal/config"
)

// forbiddenExact are generic anchors that are never safe, regardless of the
// configured rules.
var forbiddenExact = []string{
	"click here",
	"read more",
	"learn more",
	"this page",
	"here",
}

// samePageThreshold rejects an anchor too similar to one already used on the
// same source page.
const samePageThreshold = 0.9

// minContextWords is the minimum surrounding text required for a placement.
const minContextWords = 5

// Validator applies anchor safety rules and tracks recent anchor usage for
// one analysis run. It is owned by a single run and not safe for concurrent
// use.
type Validator struct {
	rules         config.AnchorRules
	forbiddenTags []string
	rotation      []string // case-folded, most-recent-last, len <= rules.RotationMemory
}

// NewValidator creates a Validator from the configured rules. The placement
// tag list defaults to headings, title, figcaption, nav, footer and button.
func NewValidator(rules config.AnchorRules, placement config.Placement) *Validator {
	tags := placement.ForbiddenTags
	if len(tags) == 0 {
		tags = []string{"h1", "h2", "h3", "h4", "h5", "h6", "title", "figcaption", "nav", "footer", "button"}
	}
	return &Validator{rules: rules, forbiddenTags: tags}
}

// IsSafeAnchor validates an anchor against all rules in order, returning the
// first failure reason. existingAnchors are anchors already used on the
// source page; pass nil when none are known.
func (v *Validator) IsSafeAnchor(anchorText, targetTitle, targetKeyword string, existingAnchors []string) (bool, string) {
	anchor := strings.ToLower(strings.TrimSpace(anchorText))

	length := utf8.RuneCountInString(anchor)
	if length < v.rules.MinLength {
		return false, fmt.Sprintf("anchor too short (<%d chars)", v.rules.MinLength)
	}
	if length > v.rules.MaxLength {
		return false, fmt.Sprintf("anchor too long (>%d chars)", v.rules.MaxLength)
	}

	for _, forbidden := range forbiddenExact {
		if anchor == forbidden {
			return false, fmt.Sprintf("forbidden generic anchor: %q", forbidden)
		}
	}

	if v.rules.NoExactMatchTitle {
		if sim := Ratio(anchor, strings.ToLower(targetTitle)); sim > v.rules.SimilarityThreshold {
			return false, fmt.Sprintf("too similar to target title (%.0f%%)", sim*100)
		}
	}

	if v.rules.NoExactMatchKeyword {
		if sim := Ratio(anchor, strings.ToLower(targetKeyword)); sim > v.rules.SimilarityThreshold {
			return false, fmt.Sprintf("too similar to primary keyword (%.0f%%)", sim*100)
		}
	}

	for _, recent := range v.rotation {
		if anchor == recent {
			return false, fmt.Sprintf("anchor used recently (within last %d uses)", v.rules.RotationMemory)
		}
	}

	for _, existing := range existingAnchors {
		if Ratio(anchor, strings.ToLower(existing)) > samePageThreshold {
			return false, "similar anchor already on this page"
		}
	}

	return true, "safe"
}

// RecordAnchorUse appends the anchor to rotation memory, evicting the oldest
// entry once the memory exceeds its configured size.
func (v *Validator) RecordAnchorUse(anchorText string) {
	v.rotation = append(v.rotation, strings.ToLower(strings.TrimSpace(anchorText)))
	if len(v.rotation) > v.rules.RotationMemory {
		v.rotation = v.rotation[1:]
	}
}

// BestAnchor returns the first pool entry that passes validation, preserving
// pool order. ok is false when no entry is safe.
func (v *Validator) BestAnchor(pool []string, targetTitle, targetKeyword string, existingAnchors []string) (string, bool) {
	for _, candidate := range pool {
		if safe, _ := v.IsSafeAnchor(candidate, targetTitle, targetKeyword, existingAnchors); safe {
			return candidate, true
		}
	}
	return "", false
}

// ValidatePlacement rejects placements inside forbidden tags (detected by a
// raw substring search for the opening tag) or with too little surrounding
// text.
func (v *Validator) ValidatePlacement(anchorText, surroundingText, htmlContext string) (bool, string) {
	htmlLower := strings.ToLower(htmlContext)
	for _, tag := range v.forbiddenTags {
		if strings.Contains(htmlLower, "<"+tag) {
			return false, fmt.Sprintf("cannot place in <%s> tag", tag)
		}
	}

	if len(strings.Fields(surroundingText)) < minContextWords {
		return false, fmt.Sprintf("not enough context (need %d+ words)", minContextWords)
	}

	return true, "valid placement"
}
