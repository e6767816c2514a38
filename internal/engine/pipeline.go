package engine

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/linkscout/linkscout/internal/architect"
	"github.com/linkscout/linkscout/internal/config"
	"github.com/linkscout/linkscout/internal/crawl"
	"github.com/linkscout/linkscout/internal/database"
	"github.com/linkscout/linkscout/internal/report"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID string
	Steps []StepResult
}

// Pipeline orchestrates the crawl -> analyze -> report sequence.
type Pipeline struct {
	cfg *config.Config
	db  *database.DB
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{cfg: cfg, db: db}
}

// Run executes the full pipeline for a run ID.
func (p *Pipeline) Run(ctx context.Context, runID string) *Result {
	r := &Result{RunID: runID}

	step := p.runCrawl(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	step = p.runAnalyze(runID)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	r.Steps = append(r.Steps, p.runReport(runID))
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun(runID string) *Result {
	r := &Result{RunID: runID}

	pages, _ := p.db.CountPages()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Crawl",
		Summary: fmt.Sprintf("[dry-run] %d pages already in DB, budget %d", pages, p.cfg.Crawl.MaxItems),
	})

	existing, _ := p.db.GetReport(runID)
	if existing != nil {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Analyze",
			Summary: fmt.Sprintf("[dry-run] Run %s exists (%d suggestions); analysis would replace it", runID, existing.SuggestionCount),
		})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Analyze",
			Summary: fmt.Sprintf("[dry-run] Would analyze %d pages for run %s", pages, runID),
		})
	}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("[dry-run] Would write reports to %s", p.reportDir()),
	})
	return r
}

func (p *Pipeline) runCrawl(ctx context.Context) StepResult {
	log.Println("Step 1/3: Crawling site...")
	crawler := crawl.New(p.cfg, p.db, architect.New(p.cfg))
	result, err := crawler.Crawl(ctx)
	if err != nil {
		return StepResult{Name: "Crawl", Err: err}
	}
	summary := fmt.Sprintf("Stored %d items (%d posts, %d pages, %d failed)",
		result.Stored, result.Posts, result.Pages, result.Failed)
	if result.UsedFeed {
		summary += ", via feed fallback"
	}
	return StepResult{Name: "Crawl", Summary: summary}
}

func (p *Pipeline) runAnalyze(runID string) StepResult {
	log.Println("Step 2/3: Analyzing link opportunities...")
	analysis, err := NewAnalyzer(p.cfg, p.db).Analyze(runID)
	if err != nil {
		return StepResult{Name: "Analyze", Err: err}
	}
	return StepResult{
		Name: "Analyze",
		Summary: fmt.Sprintf("%d pages: %d suggestions, %d permit decisions, %d excluded",
			analysis.Pages, len(analysis.Suggestions), len(analysis.Permits), analysis.Excluded),
	}
}

func (p *Pipeline) runReport(runID string) StepResult {
	log.Println("Step 3/3: Writing reports...")
	files, err := report.Generate(p.db, runID, p.reportDir())
	if err != nil {
		return StepResult{Name: "Report", Err: err}
	}
	return StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Wrote %s and 3 CSV files", files.ChecklistMD),
	}
}

func (p *Pipeline) reportDir() string {
	return filepath.Join(p.cfg.GetDataDir(), "reports")
}
