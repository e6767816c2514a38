// Package report exports an analysis run as CSV files and a markdown
// action checklist for manual link placement.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/linkscout/linkscout/internal/database"
)

// Files lists the artifacts written for one run.
type Files struct {
	SuggestionsCSV  string
	PermitsCSV      string
	ArchitectureCSV string
	ChecklistMD     string
}

// Generate writes all report files for a run into outDir.
func Generate(db *database.DB, runID, outDir string) (*Files, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	suggestions, err := db.GetSuggestionsForRun(runID)
	if err != nil {
		return nil, fmt.Errorf("loading suggestions: %w", err)
	}
	permits, err := db.GetPermitDecisionsForRun(runID)
	if err != nil {
		return nil, fmt.Errorf("loading permit decisions: %w", err)
	}
	architecture, err := db.GetArchitectureForRun(runID)
	if err != nil {
		return nil, fmt.Errorf("loading architecture: %w", err)
	}

	files := &Files{
		SuggestionsCSV:  filepath.Join(outDir, fmt.Sprintf("suggestions_%s.csv", runID)),
		PermitsCSV:      filepath.Join(outDir, fmt.Sprintf("permit_decisions_%s.csv", runID)),
		ArchitectureCSV: filepath.Join(outDir, fmt.Sprintf("architecture_%s.csv", runID)),
		ChecklistMD:     filepath.Join(outDir, fmt.Sprintf("action_checklist_%s.md", runID)),
	}

	if err := writeSuggestionsCSV(files.SuggestionsCSV, suggestions); err != nil {
		return nil, err
	}
	if err := writePermitsCSV(files.PermitsCSV, permits); err != nil {
		return nil, err
	}
	if err := writeArchitectureCSV(files.ArchitectureCSV, architecture); err != nil {
		return nil, err
	}
	if err := os.WriteFile(files.ChecklistMD, []byte(Checklist(runID, suggestions, permits, architecture)), 0o644); err != nil {
		return nil, fmt.Errorf("writing checklist: %w", err)
	}

	return files, nil
}

func writeSuggestionsCSV(path string, suggestions []database.Suggestion) error {
	return writeCSV(path,
		[]string{"source_url", "source_title", "target_url", "target_type", "anchor", "score", "status", "context", "reasoning"},
		len(suggestions),
		func(i int) []string {
			s := suggestions[i]
			return []string{
				s.SourceURL, deref(s.SourceTitle), s.TargetURL, s.TargetType, s.Anchor,
				strconv.FormatFloat(s.Score, 'f', 2, 64), s.Status, deref(s.Context), deref(s.Reasoning),
			}
		})
}

func writePermitsCSV(path string, permits []database.PermitRecord) error {
	return writeCSV(path,
		[]string{"source_url", "source_type", "target_url", "anchor", "decision", "geo_context", "fallback_used", "confidence"},
		len(permits),
		func(i int) []string {
			p := permits[i]
			return []string{
				p.SourceURL, p.SourceType, p.TargetURL, p.Anchor, p.Decision,
				deref(p.GeoContext), strconv.FormatBool(p.FallbackUsed),
				strconv.FormatFloat(p.Confidence, 'f', 2, 64),
			}
		})
}

func writeArchitectureCSV(path string, entries []database.ArchitectureRow) error {
	return writeCSV(path,
		[]string{"url", "page_type", "click_depth", "inbound_links", "outbound_links", "hub_score", "status"},
		len(entries),
		func(i int) []string {
			e := entries[i]
			return []string{
				e.URL, e.PageType, strconv.Itoa(e.ClickDepth),
				strconv.Itoa(e.InboundLinks), strconv.Itoa(e.OutboundLinks),
				deref(e.HubScore), e.Status,
			}
		})
}

func writeCSV(path string, header []string, n int, row func(int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Checklist renders the run as a markdown action checklist: pending link
// placements grouped by source page, permit decisions, and pages needing
// structural attention.
func Checklist(runID string, suggestions []database.Suggestion, permits []database.PermitRecord, architecture []database.ArchitectureRow) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Internal Linking Checklist (%s)\n\n", runID)
	fmt.Fprintf(&b, "%d suggestions, %d permit decisions, %d pages mapped.\n\n",
		len(suggestions), len(permits), len(architecture))

	b.WriteString("## Link Placements\n\n")
	if len(suggestions) == 0 {
		b.WriteString("No suggestions for this run.\n\n")
	} else {
		bySource := make(map[string][]database.Suggestion)
		var order []string
		for _, s := range suggestions {
			if _, seen := bySource[s.SourceURL]; !seen {
				order = append(order, s.SourceURL)
			}
			bySource[s.SourceURL] = append(bySource[s.SourceURL], s)
		}
		sort.Strings(order)

		for _, src := range order {
			fmt.Fprintf(&b, "### %s\n\n", src)
			for _, s := range bySource[src] {
				mark := " "
				if s.Status == "applied" {
					mark = "x"
				}
				fmt.Fprintf(&b, "- [%s] Link to `%s` with anchor **%s** (score %.2f)\n",
					mark, s.TargetURL, s.Anchor, s.Score)
				if s.Context != nil && *s.Context != "" {
					fmt.Fprintf(&b, "  - context: %s\n", *s.Context)
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Permit Links\n\n")
	if len(permits) == 0 {
		b.WriteString("No permit decisions for this run.\n\n")
	} else {
		for _, p := range permits {
			detail := p.Decision
			if p.GeoContext != nil && *p.GeoContext != "" {
				detail = fmt.Sprintf("%s (geo: %s)", p.Decision, *p.GeoContext)
			}
			fmt.Fprintf(&b, "- [ ] `%s` -> `%s` with anchor **%s**, %s, confidence %.2f\n",
				p.SourceURL, p.TargetURL, p.Anchor, detail, p.Confidence)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Pages Needing Attention\n\n")
	flagged := 0
	for _, e := range architecture {
		if e.Status != "OK" {
			flagged++
			fmt.Fprintf(&b, "- `%s`: %s (%d inbound, %d outbound)\n",
				e.URL, e.Status, e.InboundLinks, e.OutboundLinks)
			continue
		}
		if e.ClickDepth < 0 {
			flagged++
			fmt.Fprintf(&b, "- `%s`: orphaned, unreachable from the homepage (%d inbound)\n",
				e.URL, e.InboundLinks)
		}
	}
	if flagged == 0 {
		b.WriteString("All pages within structural limits.\n")
	}

	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
