package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const recordColumns = `id, title, url, image_id, prompt, seed, image_url, thumbnail_url,
	date, timestamp, error_message, tags, comments, last_edited`

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string

	initMu sync.Mutex
	ready  atomic.Bool
}

func NewSQLiteDatabase(connectionString string) (RecordStore, error) {
	db, err := sql.Open("sqlite", withPragmas(connectionString))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	// every pooled connection to ":memory:" would see its own empty database
	if isMemoryDSN(connectionString) {
		db.SetMaxOpenConns(1)
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

// withPragmas applies per-connection pragmas to file databases. WAL lets readers run
// alongside the single writer; busy_timeout makes writers wait for the lock instead
// of failing with SQLITE_BUSY.
func withPragmas(dsn string) string {
	if isMemoryDSN(dsn) || strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func (s *SQLiteDatabase) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready.Load() {
		return nil
	}

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than supported version %d",
			ErrStorageUnavailable, version, SchemaVersion)
	}

	if err := s.createSchema(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if version < SchemaVersion {
		slog.Info("sqlite schema created", "version", SchemaVersion)
	}

	s.ready.Store(true)
	return nil
}

func (s *SQLiteDatabase) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after a successful commit
	}()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS images (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			image_id TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL DEFAULT '',
			seed TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			tags TEXT,
			comments TEXT NOT NULL DEFAULT '',
			last_edited TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_prompt ON images (prompt)`,
		`CREATE INDEX IF NOT EXISTS idx_images_seed ON images (seed)`,
		`CREATE INDEX IF NOT EXISTS idx_images_date ON images (date)`,
		// one record per source page; records without a url are exempt
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_images_url ON images (url) WHERE url <> ''`,
		fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion),
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) checkReady() error {
	if !s.ready.Load() {
		return ErrStorageUnavailable
	}
	return nil
}

func (s *SQLiteDatabase) Add(ctx context.Context, record *ImageRecord) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	args, err := recordArgs(record)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO images (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	return translateError(err)
}

func (s *SQLiteDatabase) Update(ctx context.Context, record *ImageRecord) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	args, err := recordArgs(record)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after a successful commit
	}()

	// columns after id, then id for the WHERE clause
	updateArgs := append(append([]any{}, args[1:]...), record.ID)
	result, err := tx.ExecContext(ctx, `UPDATE images SET
		title = ?, url = ?, image_id = ?, prompt = ?, seed = ?, image_url = ?, thumbnail_url = ?,
		date = ?, timestamp = ?, error_message = ?, tags = ?, comments = ?, last_edited = ?
		WHERE id = ?`, updateArgs...)
	if err != nil {
		return translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO images (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
			return translateError(err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteDatabase) GetByID(ctx context.Context, id string) (*ImageRecord, bool, error) {
	if err := s.checkReady(); err != nil {
		return nil, false, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM images WHERE id = ?`, id)
	return scanOne(row)
}

func (s *SQLiteDatabase) FindByURL(ctx context.Context, url string) (*ImageRecord, bool, error) {
	if err := s.checkReady(); err != nil {
		return nil, false, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM images WHERE url = ? LIMIT 1`, url)
	return scanOne(row)
}

func (s *SQLiteDatabase) FindBySeed(ctx context.Context, seed string) ([]*ImageRecord, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return s.query(ctx, `SELECT `+recordColumns+` FROM images WHERE seed = ?`, seed)
}

func (s *SQLiteDatabase) GetAll(ctx context.Context) ([]*ImageRecord, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return s.query(ctx, `SELECT `+recordColumns+` FROM images`)
}

func (s *SQLiteDatabase) query(ctx context.Context, query string, args ...any) ([]*ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	records := []*ImageRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteDatabase) Delete(ctx context.Context, id string) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM images WHERE id = ?", id)
	return err
}

func (s *SQLiteDatabase) Clear(ctx context.Context) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM images"); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*ImageRecord, bool, error) {
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

func scanRecord(row rowScanner) (*ImageRecord, error) {
	var r ImageRecord
	var tags sql.NullString
	if err := row.Scan(&r.ID, &r.Title, &r.URL, &r.ImageID, &r.Prompt, &r.Seed, &r.ImageURL,
		&r.ThumbnailURL, &r.Date, &r.Timestamp, &r.ErrorMessage, &tags, &r.Comments, &r.LastEdited); err != nil {
		return nil, err
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &r.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of record %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

func recordArgs(r *ImageRecord) ([]any, error) {
	var tags any
	if len(r.Tags) > 0 {
		encoded, err := json.Marshal(r.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		tags = string(encoded)
	}
	return []any{r.ID, r.Title, r.URL, r.ImageID, r.Prompt, r.Seed, r.ImageURL, r.ThumbnailURL,
		r.Date, r.Timestamp, r.ErrorMessage, tags, r.Comments, r.LastEdited}, nil
}

// translateError maps constraint violations to the store's sentinel errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	if sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	switch {
	case strings.Contains(sqliteErr.Error(), "images.url"):
		return fmt.Errorf("%w: %w", ErrDuplicateSource, err)
	case sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		strings.Contains(sqliteErr.Error(), "images.id"):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return err
}
