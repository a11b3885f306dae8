package provider

import (
	"database/sql"
	"time"
)

func buildCreatePayloadsTable() string {
	return `CREATE TABLE IF NOT EXISTS payloads (
		path TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		fetched_at INTEGER NOT NULL);`
}

func buildSelectPayloadCommand(path string) (string, []interface{}, func(*sql.Rows) ([]byte, bool, error)) {
	return `SELECT payload FROM payloads WHERE path = ?`, []interface{}{path}, processSelectPayloadRows
}

func processSelectPayloadRows(rows *sql.Rows) ([]byte, bool, error) {
	defer rows.Close()

	// only can be one row
	if rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, false, err
		}
		return payload, true, nil
	}
	return nil, false, rows.Err()
}

func buildUpsertPayloadCommand(path string, payload []byte, fetchedAt time.Time) (string, []interface{}) {
	return `INSERT OR REPLACE INTO payloads (path, payload, fetched_at) VALUES (?, ?, ?)`,
		[]interface{}{path, payload, fetchedAt.Unix()}
}

func buildStatsCommand() (string, func(*sql.Rows) (CacheStats, error)) {
	return `SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM payloads`, processStatsRows
}

func processStatsRows(rows *sql.Rows) (CacheStats, error) {
	defer rows.Close()

	var stats CacheStats
	if rows.Next() {
		if err := rows.Scan(&stats.Entries, &stats.Bytes); err != nil {
			return stats, err
		}
	}
	return stats, rows.Err()
}
