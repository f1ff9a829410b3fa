package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
)

// SaveCapture stores posts as a new capture and evicts the oldest captures
// beyond the retention limit. It returns the new capture id.
func (db *DB) SaveCapture(source string, posts []feed.Post) (string, error) {
	if posts == nil {
		posts = []feed.Post{}
	}
	if source == "" {
		source = "extension"
	}
	data, err := json.Marshal(posts)
	if err != nil {
		return "", fmt.Errorf("encoding posts: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	if _, err := tx.Exec(
		`INSERT INTO captures (id, source, post_count, posts_json) VALUES (?, ?, ?, ?)`,
		id, source, len(posts), string(data),
	); err != nil {
		return "", fmt.Errorf("inserting capture: %w", err)
	}

	if _, err := tx.Exec(
		`DELETE FROM captures WHERE seq NOT IN (
			SELECT seq FROM captures ORDER BY seq DESC LIMIT ?
		)`, db.retention,
	); err != nil {
		return "", fmt.Errorf("pruning captures: %w", err)
	}

	return id, tx.Commit()
}

// LatestCapture returns the newest capture with its posts, or nil if there is none.
func (db *DB) LatestCapture() (*Capture, error) {
	return db.scanCapture(db.conn.QueryRow(
		`SELECT id, source, post_count, created_at, posts_json
		FROM captures ORDER BY seq DESC LIMIT 1`,
	))
}

// GetCapture returns a capture by id, or nil if it does not exist (or was evicted).
func (db *DB) GetCapture(id string) (*Capture, error) {
	return db.scanCapture(db.conn.QueryRow(
		`SELECT id, source, post_count, created_at, posts_json
		FROM captures WHERE id = ?`, id,
	))
}

func (db *DB) scanCapture(row *sql.Row) (*Capture, error) {
	var c Capture
	var postsJSON string
	if err := row.Scan(&c.ID, &c.Source, &c.PostCount, &c.CreatedAt, &postsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(postsJSON), &c.Posts); err != nil {
		return nil, fmt.Errorf("decoding capture %s: %w", c.ID, err)
	}
	return &c, nil
}

// ListCaptures returns capture metadata, newest first, without posts.
// A limit below 1 returns every retained capture.
func (db *DB) ListCaptures(limit int) ([]Capture, error) {
	if limit < 1 {
		limit = -1
	}
	rows, err := db.conn.Query(
		`SELECT id, source, post_count, created_at
		FROM captures ORDER BY seq DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []Capture
	for rows.Next() {
		var c Capture
		if err := rows.Scan(&c.ID, &c.Source, &c.PostCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}
