package storage

import "fmt"

// MessageStats counts contact submissions by outcome.
type MessageStats struct {
	Total     int64 `json:"total"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// RecordMessage logs a contact submission. The message body is not kept.
func (db *DB) RecordMessage(name, email, subject, status string) error {
	_, err := db.sql.Exec(`
		INSERT INTO contact_messages (name, email, subject, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, name, email, subject, status, db.now().Unix())
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

func (db *DB) MessageStats() (MessageStats, error) {
	var stats MessageStats
	err := db.sql.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0)
		FROM contact_messages
	`).Scan(&stats.Total, &stats.Delivered, &stats.Failed)
	if err != nil {
		return stats, fmt.Errorf("message stats: %w", err)
	}
	return stats, nil
}
