package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

// InsertAnalysis stores an analysis result, replacing any earlier analysis of
// the same capture. captureID and provider may be empty; analyses without a
// capture share one slot. An analysis tied to a capture is removed when that
// capture is evicted.
func (db *DB) InsertAnalysis(captureID, provider string, result feed.AnalysisResult, reportMarkdown string) (int64, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("encoding analysis: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if captureID == "" {
		_, err = tx.Exec(`DELETE FROM analyses WHERE capture_id IS NULL`)
	} else {
		_, err = tx.Exec(`DELETE FROM analyses WHERE capture_id = ?`, captureID)
	}
	if err != nil {
		return 0, fmt.Errorf("replacing analysis: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO analyses
		(capture_id, provider, total_analyzed, shortlisted_count, result_json, report_markdown)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullString(captureID), nullString(provider),
		result.TotalAnalyzed, len(result.Shortlisted), string(data), reportMarkdown,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting analysis: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// LatestAnalysis returns the most recent analysis, or nil if there is none.
func (db *DB) LatestAnalysis() (*Analysis, error) {
	row := db.conn.QueryRow(
		`SELECT id, capture_id, provider, total_analyzed, shortlisted_count,
		result_json, report_markdown, created_at
		FROM analyses ORDER BY id DESC LIMIT 1`,
	)

	var a Analysis
	var resultJSON string
	if err := row.Scan(&a.ID, &a.CaptureID, &a.Provider, &a.TotalAnalyzed, &a.ShortlistedCount,
		&resultJSON, &a.ReportMarkdown, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(resultJSON), &a.Result); err != nil {
		return nil, fmt.Errorf("decoding analysis %d: %w", a.ID, err)
	}
	return &a, nil
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest any
	}{
		{"SELECT COUNT(*) FROM captures", &s.Captures},
		{"SELECT COALESCE(SUM(post_count), 0) FROM captures", &s.CapturedPosts},
		{"SELECT COUNT(*) FROM analyses", &s.Analyses},
		{"SELECT COALESCE(SUM(shortlisted_count), 0) FROM analyses", &s.ShortlistedPosts},
		{"SELECT MAX(created_at) FROM captures", &s.LatestCaptureAt},
		{"SELECT MAX(created_at) FROM analyses", &s.LatestAnalysisAt},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
