package database

import (
	"time"
)

// EvictionStats summarizes history over a period
type EvictionStats struct {
	StartDate           time.Time
	EndDate             time.Time
	TotalEvicted        int
	TotalFailed         int
	TotalDryRun         int
	TotalSpaceReclaimed int64
	ByAction            map[string]int
}

// GetRecentEvictions returns the N most recent eviction events
func (d *EvictionDB) GetRecentEvictions(limit int) ([]EvictionRecord, error) {
	query := `
	SELECT id, timestamp, action, path, file_name, size, duration_ms, error_message
	FROM evictions
	ORDER BY timestamp DESC
	LIMIT ?
	`

	return d.queryEvictions(query, limit)
}

// GetEvictionsByAction returns events filtered by action type
func (d *EvictionDB) GetEvictionsByAction(action string) ([]EvictionRecord, error) {
	query := `
	SELECT id, timestamp, action, path, file_name, size, duration_ms, error_message
	FROM evictions
	WHERE action = ?
	ORDER BY timestamp DESC
	`

	return d.queryEvictions(query, action)
}

// GetEvictionsByPath returns events matching a path pattern (SQL LIKE)
func (d *EvictionDB) GetEvictionsByPath(pathPattern string) ([]EvictionRecord, error) {
	query := `
	SELECT id, timestamp, action, path, file_name, size, duration_ms, error_message
	FROM evictions
	WHERE path LIKE ?
	ORDER BY timestamp DESC
	`

	return d.queryEvictions(query, pathPattern)
}

// GetLargestEvictions returns the N largest successful evictions by size
func (d *EvictionDB) GetLargestEvictions(limit int) ([]EvictionRecord, error) {
	query := `
	SELECT id, timestamp, action, path, file_name, size, duration_ms, error_message
	FROM evictions
	WHERE action = 'EVICT'
	ORDER BY size DESC
	LIMIT ?
	`

	return d.queryEvictions(query, limit)
}

// GetTotalSpaceReclaimed returns total bytes reclaimed in a time range
func (d *EvictionDB) GetTotalSpaceReclaimed(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0)
	FROM evictions
	WHERE action = 'EVICT' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := d.db.QueryRow(query, start, end).Scan(&total)
	return total, err
}

// GetEvictionStats returns aggregate statistics for the last N days
func (d *EvictionDB) GetEvictionStats(days int) (*EvictionStats, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	stats := &EvictionStats{
		StartDate: start,
		EndDate:   end,
		ByAction:  make(map[string]int),
	}

	rows, err := d.db.Query(`
	SELECT action, COUNT(*)
	FROM evictions
	WHERE timestamp BETWEEN ? AND ?
	GROUP BY action
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		stats.ByAction[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.TotalEvicted = stats.ByAction[ActionEvict]
	stats.TotalFailed = stats.ByAction[ActionError]
	stats.TotalDryRun = stats.ByAction[ActionDryRun]

	reclaimed, err := d.GetTotalSpaceReclaimed(start, end)
	if err != nil {
		return nil, err
	}
	stats.TotalSpaceReclaimed = reclaimed

	return stats, nil
}

// queryEvictions executes a query and scans results into EvictionRecords
func (d *EvictionDB) queryEvictions(query string, args ...interface{}) ([]EvictionRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []EvictionRecord
	for rows.Next() {
		var r EvictionRecord
		var fileName, errorMsg *string
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Action, &r.Path, &fileName, &r.Size, &r.DurationMS, &errorMsg); err != nil {
			return nil, err
		}
		if fileName != nil {
			r.FileName = *fileName
		}
		if errorMsg != nil {
			r.ErrorMessage = *errorMsg
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
