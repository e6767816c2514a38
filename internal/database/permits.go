package database

import "database/sql"

// InsertPermitDecision stores one permit-link decision for a run.
func (db *DB) InsertPermitDecision(p *PermitRecord) (int64, error) {
	fallback := 0
	if p.FallbackUsed {
		fallback = 1
	}
	result, err := db.conn.Exec(
		`INSERT INTO permit_decisions (run_id, source_url, source_type, anchor, target_url, decision, geo_context, fallback_used, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RunID, p.SourceURL, p.SourceType, p.Anchor, p.TargetURL,
		p.Decision, p.GeoContext, fallback, p.Confidence,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetPermitDecisionsForRun returns a run's permit decisions in insertion order.
func (db *DB) GetPermitDecisionsForRun(runID string) ([]PermitRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, source_url, source_type, anchor, target_url, decision, geo_context, fallback_used, confidence, created_at
		FROM permit_decisions WHERE run_id = ? ORDER BY id ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermits(rows)
}

func scanPermits(rows *sql.Rows) ([]PermitRecord, error) {
	var records []PermitRecord
	for rows.Next() {
		var p PermitRecord
		var fallback int
		if err := rows.Scan(&p.ID, &p.RunID, &p.SourceURL, &p.SourceType, &p.Anchor, &p.TargetURL,
			&p.Decision, &p.GeoContext, &fallback, &p.Confidence, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.FallbackUsed = fallback != 0
		records = append(records, p)
	}
	return records, rows.Err()
}
