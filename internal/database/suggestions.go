package database

import "database/sql"

// InsertSuggestion stores one link suggestion for a run.
func (db *DB) InsertSuggestion(s *Suggestion) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO suggestions (run_id, source_url, source_title, target_url, target_type, anchor, context, reasoning, score, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
		s.RunID, s.SourceURL, s.SourceTitle, s.TargetURL, s.TargetType,
		s.Anchor, s.Context, s.Reasoning, s.Score,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetSuggestionsForRun returns a run's suggestions, best score first.
func (db *DB) GetSuggestionsForRun(runID string) ([]Suggestion, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, source_url, source_title, target_url, target_type, anchor, context, reasoning, score, status, created_at
		FROM suggestions WHERE run_id = ? ORDER BY score DESC, id ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

// GetPendingSuggestions returns every suggestion still awaiting review,
// best score first.
func (db *DB) GetPendingSuggestions() ([]Suggestion, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, source_url, source_title, target_url, target_type, anchor, context, reasoning, score, status, created_at
		FROM suggestions WHERE status = 'pending' ORDER BY score DESC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

// UpdateSuggestionStatus marks a suggestion applied or rejected.
func (db *DB) UpdateSuggestionStatus(id int64, status string) error {
	_, err := db.conn.Exec("UPDATE suggestions SET status = ? WHERE id = ?", status, id)
	return err
}

// GetSuggestionByID returns a single suggestion, nil when absent.
func (db *DB) GetSuggestionByID(id int64) (*Suggestion, error) {
	row := db.conn.QueryRow(
		`SELECT id, run_id, source_url, source_title, target_url, target_type, anchor, context, reasoning, score, status, created_at
		FROM suggestions WHERE id = ?`, id,
	)
	var s Suggestion
	err := row.Scan(&s.ID, &s.RunID, &s.SourceURL, &s.SourceTitle, &s.TargetURL, &s.TargetType,
		&s.Anchor, &s.Context, &s.Reasoning, &s.Score, &s.Status, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSuggestions(rows *sql.Rows) ([]Suggestion, error) {
	var suggestions []Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.ID, &s.RunID, &s.SourceURL, &s.SourceTitle, &s.TargetURL, &s.TargetType,
			&s.Anchor, &s.Context, &s.Reasoning, &s.Score, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}
