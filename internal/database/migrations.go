package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    wp_id INTEGER DEFAULT 0,
    url TEXT UNIQUE NOT NULL,
    normalized_url TEXT NOT NULL,
    title TEXT NOT NULL,
    page_type TEXT,
    content_text TEXT,
    content_html TEXT,
    outbound_links TEXT,
    word_count INTEGER DEFAULT 0,
    modified TEXT,
    crawled_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS suggestions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    source_url TEXT NOT NULL,
    source_title TEXT,
    target_url TEXT NOT NULL,
    target_type TEXT NOT NULL,
    anchor TEXT NOT NULL,
    context TEXT,
    reasoning TEXT,
    score REAL NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'applied', 'rejected')),
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS permit_decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    source_url TEXT NOT NULL,
    source_type TEXT NOT NULL,
    anchor TEXT NOT NULL,
    target_url TEXT NOT NULL,
    decision TEXT NOT NULL,
    geo_context TEXT,
    fallback_used INTEGER DEFAULT 0,
    confidence REAL NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS architecture (
    run_id TEXT NOT NULL,
    url TEXT NOT NULL,
    page_type TEXT NOT NULL,
    click_depth INTEGER DEFAULT -1,
    inbound_links INTEGER DEFAULT 0,
    outbound_links INTEGER DEFAULT 0,
    hub_score TEXT,
    status TEXT NOT NULL,
    PRIMARY KEY (run_id, url)
);

CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT UNIQUE NOT NULL,
    generated_at TEXT DEFAULT (datetime('now')),
    page_count INTEGER DEFAULT 0,
    suggestion_count INTEGER DEFAULT 0,
    permit_count INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_pages_normalized ON pages(normalized_url);
CREATE INDEX IF NOT EXISTS idx_suggestions_run ON suggestions(run_id);
CREATE INDEX IF NOT EXISTS idx_suggestions_status ON suggestions(status);
CREATE INDEX IF NOT EXISTS idx_permit_decisions_run ON permit_decisions(run_id);
CREATE INDEX IF NOT EXISTS idx_architecture_run ON architecture(run_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
