package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SqliteStore keeps track records in a single SQLite database.
type SqliteStore struct {
	sync.RWMutex
	db *sql.DB
}

// OpenSqliteStore opens (or creates) <dir>/tracks.sqlite.
func OpenSqliteStore(dir string) (*SqliteStore, error) {
	handleErr := func(err error) (*SqliteStore, error) {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return handleErr(err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "tracks.sqlite"))
	if err != nil {
		return handleErr(err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	s := &SqliteStore{db: db}
	if err := s.create(); err != nil {
		db.Close()
		return handleErr(err)
	}
	return s, nil
}

func (s *SqliteStore) create() error {
	defer s.lock()()
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS track (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		length_ms  INTEGER NOT NULL,
		channel_id TEXT NOT NULL,
		channel    TEXT NOT NULL,
		thumbnails TEXT NOT NULL
	)`)
	return err
}

func (s *SqliteStore) LoadTrack(ctx context.Context, id string) (TrackRecord, error) {
	defer s.rlock()()
	handleErr := func(err error) (TrackRecord, error) {
		return TrackRecord{}, fmt.Errorf("sqlite: load track %q: %w", id, err)
	}
	if !ValidID(id) {
		return handleErr(ErrInvalidID)
	}
	const q = `SELECT title, length_ms, channel_id, channel, thumbnails FROM track WHERE id = ?`
	rec := TrackRecord{ID: id}
	var thumbs string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&rec.Title, &rec.LengthMS, &rec.Channel.ID, &rec.Channel.Name, &thumbs)
	if errors.Is(err, sql.ErrNoRows) {
		return handleErr(ErrNotFound)
	}
	if err != nil {
		return handleErr(err)
	}
	if err := json.Unmarshal([]byte(thumbs), &rec.Thumbnails); err != nil {
		return handleErr(err)
	}
	return rec, nil
}

func (s *SqliteStore) SaveTrack(ctx context.Context, rec TrackRecord) error {
	defer s.lock()()
	handleErr := func(err error) error {
		return fmt.Errorf("sqlite: save track %q: %w", rec.ID, err)
	}
	if !ValidID(rec.ID) {
		return handleErr(ErrInvalidID)
	}
	thumbs, err := json.Marshal(rec.Thumbnails)
	if err != nil {
		return handleErr(err)
	}
	return s.tx(func(tx *sql.Tx) error {
		const q = `INSERT INTO track (id, title, length_ms, channel_id, channel, thumbnails)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				title = excluded.title,
				length_ms = excluded.length_ms,
				channel_id = excluded.channel_id,
				channel = excluded.channel,
				thumbnails = excluded.thumbnails`
		if _, err := tx.ExecContext(ctx, q, rec.ID, rec.Title, rec.LengthMS, rec.Channel.ID, rec.Channel.Name, string(thumbs)); err != nil {
			return handleErr(err)
		}
		return nil
	})
}

// Close closes the database.
func (s *SqliteStore) Close() error {
	defer s.lock()()
	return s.db.Close()
}

func (s *SqliteStore) rlock() func() {
	s.RLock()
	return func() {
		s.RUnlock()
	}
}

func (s *SqliteStore) lock() func() {
	s.Lock()
	return func() {
		s.Unlock()
	}
}

func (s *SqliteStore) tx(run func(tx *sql.Tx) error) error {
	handleErr := func(err error) error {
		return fmt.Errorf("sqlite tx: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return handleErr(err)
	}
	if err := run(tx); err != nil {
		if er := tx.Rollback(); er != nil {
			return handleErr(fmt.Errorf("rollback: %v: %w", er, err))
		}
		return handleErr(err)
	}
	if er := tx.Commit(); er != nil {
		return handleErr(er)
	}
	return nil
}
