// Package wpclient writes approved link suggestions back into WordPress.
// Modified posts are saved as drafts so every change gets a human review
// in the WordPress editor before publishing.
package wpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/linkscout/linkscout/internal/anchor"
	"github.com/linkscout/linkscout/internal/config"
	"github.com/linkscout/linkscout/internal/crawl"
	"github.com/linkscout/linkscout/internal/database"
)

// Writes are budgeted tighter than reads.
const writesPerMinute = 20

// Client talks to the WordPress REST API with write credentials.
type Client struct {
	cfg       *config.Config
	client    *http.Client
	limiter   *crawl.RateLimiter
	validator *anchor.Validator
}

// New creates a write client for the configured site.
func New(cfg *config.Config) *Client {
	return &Client{
		cfg:       cfg,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   crawl.NewRateLimiter(writesPerMinute),
		validator: anchor.NewValidator(cfg.AnchorRules, cfg.Placement),
	}
}

// BatchResult summarizes an apply run.
type BatchResult struct {
	Applied int
	Skipped int
	Failed  int
}

// TestConnection verifies the configured credentials against the
// authenticated /users/me endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	if c.cfg.API.Username == "" || c.cfg.API.AppPassword == "" {
		return fmt.Errorf("api.username and api.app_password are required for write access")
	}

	status, body, err := c.request(ctx, http.MethodGet, "/wp-json/wp/v2/users/me", nil)
	if err != nil {
		return fmt.Errorf("connecting to WordPress: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("authentication failed: HTTP %d", status)
	}

	var user struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &user); err == nil && user.Name != "" {
		log.Printf("Authenticated as %s", user.Name)
	}
	return nil
}

// ApplyBatch injects each suggestion's link into its source post and saves
// the result as a draft. Dry-run reports what would change without touching
// the site. Suggestions whose anchor cannot be placed are skipped, not
// failed: content may have changed since the crawl.
func (c *Client) ApplyBatch(ctx context.Context, db *database.DB, suggestions []database.Suggestion, dryRun bool) (*BatchResult, error) {
	if !dryRun && c.cfg.API.Mode != "read_write" {
		return nil, fmt.Errorf("api.mode is %q; set it to read_write to apply changes", c.cfg.API.Mode)
	}
	if !dryRun {
		if err := c.TestConnection(ctx); err != nil {
			return nil, err
		}
	}

	result := &BatchResult{}
	for i := range suggestions {
		s := &suggestions[i]

		page, err := db.GetPageByURL(s.SourceURL)
		if err != nil {
			return result, fmt.Errorf("loading page %s: %w", s.SourceURL, err)
		}
		if page == nil || page.WPID == 0 || page.ContentHTML == nil {
			log.Printf("Skipping %s: no editable post on record", s.SourceURL)
			result.Skipped++
			continue
		}

		html := *page.ContentHTML
		trimmed := strings.TrimSpace(s.Anchor)
		pos, free := findPlacement(html, trimmed)
		if !free {
			log.Printf("Skipping %s: anchor %q not placeable", s.SourceURL, s.Anchor)
			result.Skipped++
			continue
		}

		surrounding, elem := placementContext(html, pos, len(trimmed))
		if ok, reason := c.validator.ValidatePlacement(s.Anchor, surrounding, elem); !ok {
			log.Printf("Skipping %s: %s", s.SourceURL, reason)
			result.Skipped++
			continue
		}

		updated, ok := InjectLink(html, s.Anchor, s.TargetURL)
		if !ok {
			log.Printf("Skipping %s: anchor %q not placeable", s.SourceURL, s.Anchor)
			result.Skipped++
			continue
		}

		if dryRun {
			log.Printf("[dry-run] Would link %q -> %s in %s", s.Anchor, s.TargetURL, s.SourceURL)
			result.Applied++
			continue
		}

		if err := c.saveDraft(ctx, page.WPID, updated); err != nil {
			log.Printf("Failed to update %s: %v", s.SourceURL, err)
			result.Failed++
			continue
		}
		if err := db.UpdateSuggestionStatus(s.ID, "applied"); err != nil {
			return result, fmt.Errorf("marking suggestion applied: %w", err)
		}
		log.Printf("Linked %q -> %s in %s (saved as draft)", s.Anchor, s.TargetURL, s.SourceURL)
		result.Applied++
	}

	return result, nil
}

// saveDraft pushes new content for a post and flips it to draft status.
func (c *Client) saveDraft(ctx context.Context, postID int64, html string) error {
	payload, err := json.Marshal(map[string]string{
		"content": html,
		"status":  "draft",
	})
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/wp-json/wp/v2/posts/%d", postID)
	status, body, err := c.request(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", status, truncateBody(body))
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	endpoint := strings.TrimRight(c.cfg.Site.URL, "/") + path
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	req.SetBasicAuth(c.cfg.API.Username, c.cfg.API.AppPassword)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
