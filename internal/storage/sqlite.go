package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/jobnorm/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS keywords (
		keyword TEXT PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS lexicon (
		word TEXT PRIMARY KEY,
		keyword TEXT NOT NULL,
		cosine REAL NOT NULL,
		leven INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_lexicon_keyword ON lexicon(keyword);

	CREATE TABLE IF NOT EXISTS lexicon_keywords (
		keyword TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS postings (
		id TEXT PRIMARY KEY,
		date TEXT,
		title TEXT,
		company TEXT,
		label TEXT,
		data TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_postings_created_at ON postings(created_at);
	CREATE INDEX IF NOT EXISTS idx_postings_label ON postings(label);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// AddKeywords inserts keywords that are not stored yet and returns how many were new.
func (s *SQLiteStorage) AddKeywords(ctx context.Context, keywords []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added, err := insertKeywords(ctx, tx, keywords)
	if err != nil {
		return 0, err
	}
	return added, tx.Commit()
}

func insertKeywords(ctx context.Context, tx *sql.Tx, keywords []string) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO keywords (keyword, created_at) VALUES (?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now()
	added := 0
	for _, k := range keywords {
		if k == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, k, now)
		if err != nil {
			return 0, fmt.Errorf("insert keyword %q: %w", k, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	return added, nil
}

// ListKeywords returns all stored keywords in lexicographic order.
func (s *SQLiteStorage) ListKeywords(ctx context.Context) ([]string, error) {
	return queryKeywords(ctx, s.db, `SELECT keyword FROM keywords ORDER BY keyword`)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryKeywords(ctx context.Context, q queryer, query string) ([]string, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// SaveLexicon replaces the lexicon snapshot in one transaction. keywords is the keyword set
// the entries were computed against. It is recorded with the snapshot and merged into the
// stored keywords; keywords stored by others are kept.
func (s *SQLiteStorage) SaveLexicon(ctx context.Context, keywords []string, entries []models.LexiconEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := insertKeywords(ctx, tx, keywords); err != nil {
		return err
	}
	for _, table := range []string{"lexicon_keywords", "lexicon"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}

	kwStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO lexicon_keywords (keyword) VALUES (?)`)
	if err != nil {
		return err
	}
	defer kwStmt.Close()
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if _, err := kwStmt.ExecContext(ctx, k); err != nil {
			return fmt.Errorf("save snapshot keyword %q: %w", k, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO lexicon (word, keyword, cosine, leven, updated_at) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Word, e.Keyword, e.Cosine, e.Leven, now); err != nil {
			return fmt.Errorf("save lexicon entry %q: %w", e.Word, err)
		}
	}
	return tx.Commit()
}

// LoadLexicon returns the saved snapshot: the keyword set its records were computed against
// and every record ordered by word.
func (s *SQLiteStorage) LoadLexicon(ctx context.Context) ([]string, []models.LexiconEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	keywords, err := queryKeywords(ctx, tx, `SELECT keyword FROM lexicon_keywords ORDER BY keyword`)
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT word, keyword, cosine, leven FROM lexicon ORDER BY word`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var out []models.LexiconEntry
	for rows.Next() {
		var e models.LexiconEntry
		if err := rows.Scan(&e.Word, &e.Keyword, &e.Cosine, &e.Leven); err != nil {
			return nil, nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return keywords, out, tx.Commit()
}

// CreatePosting inserts a posting. CreatedAt is set when zero.
func (s *SQLiteStorage) CreatePosting(ctx context.Context, p *models.Posting) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal posting: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO postings (id, date, title, company, label, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Date, p.Title, p.Company, p.Label, string(data), p.CreatedAt,
	)
	return err
}

// BatchCreatePostings inserts postings in a transaction, replacing any with the same id.
func (s *SQLiteStorage) BatchCreatePostings(ctx context.Context, ps []*models.Posting) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO postings (id, date, title, company, label, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range ps {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal posting %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Date, p.Title, p.Company, p.Label, string(data), p.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func decodePosting(data string) (*models.Posting, error) {
	var p models.Posting
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal posting: %w", err)
	}
	return &p, nil
}

// GetPosting returns a posting by ID.
func (s *SQLiteStorage) GetPosting(ctx context.Context, id string) (*models.Posting, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM postings WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("posting %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decodePosting(data)
}

// ListPostings returns postings, newest first, with offset and limit.
func (s *SQLiteStorage) ListPostings(ctx context.Context, offset, limit int) ([]*models.Posting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM postings ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Posting
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		p, err := decodePosting(data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePosting removes a posting by ID.
func (s *SQLiteStorage) DeletePosting(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("posting %w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStorage) count(ctx context.Context, table string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count)
	return count, err
}

// CountPostings returns the total number of postings.
func (s *SQLiteStorage) CountPostings(ctx context.Context) (int64, error) {
	return s.count(ctx, "postings")
}

// CountKeywords returns the number of stored keywords.
func (s *SQLiteStorage) CountKeywords(ctx context.Context) (int64, error) {
	return s.count(ctx, "keywords")
}

// CountWords returns the number of stored lexicon records.
func (s *SQLiteStorage) CountWords(ctx context.Context) (int64, error) {
	return s.count(ctx, "lexicon")
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
