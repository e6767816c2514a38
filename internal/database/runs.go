package database

import (
	"database/sql"
	"time"
)

// GetToday returns today's date as a run ID in YYYY-MM-DD format.
func GetToday() string {
	return time.Now().Format("2006-01-02")
}

// InsertReport records a completed run, replacing any earlier report for the
// same run ID.
func (db *DB) InsertReport(runID string, pageCount, suggestionCount, permitCount int) error {
	_, err := db.conn.Exec(
		`INSERT INTO run_reports (run_id, page_count, suggestion_count, permit_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			generated_at = datetime('now'),
			page_count = excluded.page_count,
			suggestion_count = excluded.suggestion_count,
			permit_count = excluded.permit_count`,
		runID, pageCount, suggestionCount, permitCount,
	)
	return err
}

// GetLastRunDate returns the most recent run ID, or empty string when no run
// has completed yet.
func (db *DB) GetLastRunDate() (string, error) {
	var runID string
	err := db.conn.QueryRow(
		"SELECT run_id FROM run_reports ORDER BY run_id DESC LIMIT 1",
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return runID, nil
}

// GetAllReports returns every run report, newest run first.
func (db *DB) GetAllReports() ([]RunReport, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, generated_at, page_count, suggestion_count, permit_count
		FROM run_reports ORDER BY run_id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []RunReport
	for rows.Next() {
		var r RunReport
		if err := rows.Scan(&r.ID, &r.RunID, &r.GeneratedAt, &r.PageCount, &r.SuggestionCount, &r.PermitCount); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetReport returns the report for a run, nil when absent.
func (db *DB) GetReport(runID string) (*RunReport, error) {
	row := db.conn.QueryRow(
		`SELECT id, run_id, generated_at, page_count, suggestion_count, permit_count
		FROM run_reports WHERE run_id = ?`, runID,
	)
	var r RunReport
	err := row.Scan(&r.ID, &r.RunID, &r.GeneratedAt, &r.PageCount, &r.SuggestionCount, &r.PermitCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ClearRun removes a run's suggestions, permit decisions and architecture so
// the analysis can be repeated from fresh crawl data.
func (db *DB) ClearRun(runID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	for _, stmt := range []string{
		"DELETE FROM suggestions WHERE run_id = ?",
		"DELETE FROM permit_decisions WHERE run_id = ?",
		"DELETE FROM architecture WHERE run_id = ?",
	} {
		if _, err := tx.Exec(stmt, runID); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetStats returns aggregate counts across the database.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM pages", &s.TotalPages},
		{"SELECT COUNT(*) FROM pages WHERE page_type IS NOT NULL AND page_type != ''", &s.ClassifiedPages},
		{"SELECT COUNT(*) FROM suggestions", &s.TotalSuggestions},
		{"SELECT COUNT(*) FROM suggestions WHERE status = 'pending'", &s.PendingSuggestions},
		{"SELECT COUNT(*) FROM suggestions WHERE status = 'applied'", &s.AppliedSuggestions},
		{"SELECT COUNT(*) FROM run_reports", &s.Runs},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
