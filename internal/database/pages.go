package database

import (
	"database/sql"
	"encoding/json"
)

// UpsertPage inserts a page or refreshes it when the URL already exists.
// Returns the page's ID.
func (db *DB) UpsertPage(p *Page) (int64, error) {
	links, err := marshalLinks(p.OutboundLinks)
	if err != nil {
		return 0, err
	}

	_, err = db.conn.Exec(
		`INSERT INTO pages (wp_id, url, normalized_url, title, page_type, content_text, content_html, outbound_links, word_count, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			wp_id = excluded.wp_id,
			normalized_url = excluded.normalized_url,
			title = excluded.title,
			page_type = excluded.page_type,
			content_text = excluded.content_text,
			content_html = excluded.content_html,
			outbound_links = excluded.outbound_links,
			word_count = excluded.word_count,
			modified = excluded.modified,
			crawled_at = datetime('now')`,
		p.WPID, p.URL, p.NormalizedURL, p.Title, p.PageType,
		p.ContentText, p.ContentHTML, links, p.WordCount, p.Modified,
	)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := db.conn.QueryRow("SELECT id FROM pages WHERE url = ?", p.URL).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetPageByURL returns a single page by exact URL, nil when absent.
func (db *DB) GetPageByURL(url string) (*Page, error) {
	row := db.conn.QueryRow(
		`SELECT id, wp_id, url, normalized_url, title, page_type, content_text, content_html, outbound_links, word_count, modified, crawled_at
		FROM pages WHERE url = ?`, url,
	)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetAllPages returns every crawled page, newest crawl first.
func (db *DB) GetAllPages() ([]Page, error) {
	rows, err := db.conn.Query(
		`SELECT id, wp_id, url, normalized_url, title, page_type, content_text, content_html, outbound_links, word_count, modified, crawled_at
		FROM pages ORDER BY crawled_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPages(rows)
}

// UpdatePageType stores the classification result for a page.
func (db *DB) UpdatePageType(pageID int64, pageType string) error {
	_, err := db.conn.Exec("UPDATE pages SET page_type = ? WHERE id = ?", pageType, pageID)
	return err
}

// CountPages returns the number of crawled pages.
func (db *DB) CountPages() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM pages").Scan(&n)
	return n, err
}

func scanPages(rows *sql.Rows) ([]Page, error) {
	var pages []Page
	for rows.Next() {
		var p Page
		var links *string
		if err := rows.Scan(&p.ID, &p.WPID, &p.URL, &p.NormalizedURL, &p.Title, &p.PageType,
			&p.ContentText, &p.ContentHTML, &links, &p.WordCount, &p.Modified, &p.CrawledAt); err != nil {
			return nil, err
		}
		if err := unmarshalLinks(links, &p.OutboundLinks); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func scanPage(row *sql.Row) (*Page, error) {
	var p Page
	var links *string
	if err := row.Scan(&p.ID, &p.WPID, &p.URL, &p.NormalizedURL, &p.Title, &p.PageType,
		&p.ContentText, &p.ContentHTML, &links, &p.WordCount, &p.Modified, &p.CrawledAt); err != nil {
		return nil, err
	}
	if err := unmarshalLinks(links, &p.OutboundLinks); err != nil {
		return nil, err
	}
	return &p, nil
}

func marshalLinks(links []string) (*string, error) {
	if len(links) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(links)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func unmarshalLinks(raw *string, out *[]string) error {
	if raw == nil || *raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(*raw), out)
}
