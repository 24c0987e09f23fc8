// Package storage provides SQLite-backed persistence for the seen-video
// cache used by incremental discovery runs.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/autoinvest/internal/models"
)

// Storage wraps a SQLite database recording which videos a previous run has
// already processed. The matching key is the video ID.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/autoinvest/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "autoinvest", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seen_videos (
			video_id      TEXT PRIMARY KEY,
			channel_id    TEXT NOT NULL,
			published_at  INTEGER NOT NULL,
			first_seen_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_seen_videos_first_seen ON seen_videos(first_seen_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// MarkSeen records a discovered video. Re-marking an already seen video is
// a no-op.
func (s *Storage) MarkSeen(ref models.VideoRef) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO seen_videos (video_id, channel_id, published_at, first_seen_at)
		VALUES (?,?,?,?)`,
		ref.VideoID, ref.ChannelID, ref.PublishedAt.UnixNano(), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark video seen: %w", err)
	}
	return nil
}

// Seen reports whether a video was recorded by a previous run.
func (s *Storage) Seen(videoID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM seen_videos WHERE video_id = ?`, videoID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query seen video: %w", err)
	}
	return true, nil
}

// FilterUnseen returns the refs not yet recorded, preserving input order.
func (s *Storage) FilterUnseen(refs []models.VideoRef) ([]models.VideoRef, error) {
	var unseen []models.VideoRef
	for _, ref := range refs {
		seen, err := s.Seen(ref.VideoID)
		if err != nil {
			return nil, err
		}
		if !seen {
			unseen = append(unseen, ref)
		}
	}
	return unseen, nil
}

// Prune removes entries first seen before the cutoff and returns how many
// rows were deleted.
func (s *Storage) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM seen_videos WHERE first_seen_at < ?`, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune seen videos: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
