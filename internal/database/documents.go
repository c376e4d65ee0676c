package database

import "database/sql"

// UpsertDocument inserts or replaces the document for a date key.
func (db *DB) UpsertDocument(dateKey string, generatedAt *string, body string, sectionCount, itemCount int) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO documents
		(date_key, generated_at, body, section_count, item_count)
		VALUES (?, ?, ?, ?, ?)`,
		dateKey, generatedAt, body, sectionCount, itemCount,
	)
	return err
}

// GetDocument returns the document for a date key, or nil if none exists.
func (db *DB) GetDocument(dateKey string) (*StoredDocument, error) {
	row := db.conn.QueryRow(
		`SELECT date_key, generated_at, body, section_count, item_count, imported_at
		FROM documents WHERE date_key = ?`, dateKey,
	)

	var d StoredDocument
	if err := row.Scan(&d.DateKey, &d.GeneratedAt, &d.Body,
		&d.SectionCount, &d.ItemCount, &d.ImportedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// ListDocumentDates returns every stored date key in ascending order.
// The sample document is excluded.
func (db *DB) ListDocumentDates() ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT date_key FROM documents WHERE date_key != 'sample' ORDER BY date_key ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// DeleteDocument removes the document for a date key.
func (db *DB) DeleteDocument(dateKey string) error {
	_, err := db.conn.Exec(`DELETE FROM documents WHERE date_key = ?`, dateKey)
	return err
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest any
	}{
		{"SELECT COUNT(*) FROM documents WHERE date_key != 'sample'", &s.Documents},
		{"SELECT COALESCE(SUM(item_count), 0) FROM documents WHERE date_key != 'sample'", &s.Items},
		{"SELECT COALESCE(MIN(date_key), '') FROM documents WHERE date_key != 'sample'", &s.FirstDate},
		{"SELECT COALESCE(MAX(date_key), '') FROM documents WHERE date_key != 'sample'", &s.LastDate},
		{"SELECT COUNT(*) FROM settings", &s.Settings},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
