package database

import "database/sql"

// ReplaceArchitecture atomically swaps a run's architecture map for a new one.
func (db *DB) ReplaceArchitecture(runID string, entries []ArchitectureRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM architecture WHERE run_id = ?", runID); err != nil {
		tx.Rollback()
		return err
	}

	for _, e := range entries {
		_, err := tx.Exec(
			`INSERT INTO architecture (run_id, url, page_type, click_depth, inbound_links, outbound_links, hub_score, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, e.URL, e.PageType, e.ClickDepth, e.InboundLinks, e.OutboundLinks, e.HubScore, e.Status,
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// GetArchitectureForRun returns a run's architecture map, most-linked first.
func (db *DB) GetArchitectureForRun(runID string) ([]ArchitectureRow, error) {
	rows, err := db.conn.Query(
		`SELECT run_id, url, page_type, click_depth, inbound_links, outbound_links, hub_score, status
		FROM architecture WHERE run_id = ? ORDER BY inbound_links DESC, url ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArchitecture(rows)
}

func scanArchitecture(rows *sql.Rows) ([]ArchitectureRow, error) {
	var entries []ArchitectureRow
	for rows.Next() {
		var e ArchitectureRow
		if err := rows.Scan(&e.RunID, &e.URL, &e.PageType, &e.ClickDepth,
			&e.InboundLinks, &e.OutboundLinks, &e.HubScore, &e.Status); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
