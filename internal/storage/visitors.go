package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// VisitorMetric is one recorded page view. Only a salted hash of the
// client address is kept.
type VisitorMetric struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
	Messages         MessageStats    `json:"messages"`
	Theme            ThemeStats      `json:"theme"`
}

// HashIP hashes an address with salt and truncates it; stable per salt.
func HashIP(ip, salt string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + salt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

// RecordVisit stores one page view.
func (db *DB) RecordVisit(hashedIP, userAgent, path string) error {
	_, err := db.sql.Exec(`
		INSERT INTO visitors (hashed_ip, user_agent, path, visited_at)
		VALUES (?, ?, ?, ?)
	`, hashedIP, userAgent, path, db.now().Unix())
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// CleanupVisits deletes visits older than retention and returns how many
// rows went.
func (db *DB) CleanupVisits(retention time.Duration) (int64, error) {
	cutoff := db.now().Add(-retention).Unix()
	result, err := db.sql.Exec(`DELETE FROM visitors WHERE visited_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup visits: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// RecentVisits returns the latest limit visits, newest first.
func (db *DB) RecentVisits(limit int) ([]VisitorMetric, error) {
	rows, err := db.sql.Query(`
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), visited_at
		FROM visitors
		ORDER BY visited_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visits: %w", err)
	}
	defer rows.Close()

	var visits []VisitorMetric
	for rows.Next() {
		var (
			v  VisitorMetric
			at int64
		)
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &at); err != nil {
			continue
		}
		v.Timestamp = time.Unix(at, 0).UTC()
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Stats gathers everything the admin dashboard shows.
func (db *DB) Stats() (*Stats, error) {
	stats := &Stats{}
	now := db.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Unix()
	weekAgo := now.Add(-7 * 24 * time.Hour).Unix()

	counts := []struct {
		query string
		args  []any
		dest  *int64
	}{
		{query: `SELECT COUNT(*) FROM visitors`, dest: &stats.TotalVisitors},
		{query: `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, dest: &stats.UniqueVisitors},
		{query: `SELECT COUNT(*) FROM visitors WHERE visited_at >= ?`, args: []any{startOfDay}, dest: &stats.VisitorsToday},
		{query: `SELECT COUNT(*) FROM visitors WHERE visited_at >= ?`, args: []any{weekAgo}, dest: &stats.VisitorsThisWeek},
	}
	for _, c := range counts {
		if err := db.sql.QueryRow(c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("visitor stats: %w", err)
		}
	}

	recent, err := db.RecentVisits(50)
	if err != nil {
		return nil, err
	}
	stats.RecentVisitors = recent

	if stats.Messages, err = db.MessageStats(); err != nil {
		return nil, err
	}
	if stats.Theme, err = db.ThemeStats(); err != nil {
		return nil, err
	}
	return stats, nil
}
