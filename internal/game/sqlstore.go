package game

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
	"github.com/user/elemelon/internal/interfaces"
	"github.com/user/elemelon/internal/types"
)

const createSavesTable = `
CREATE TABLE IF NOT EXISTS saves (
	slot       TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	kind       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	payload    BLOB NOT NULL
)`

// createdAtLayout is fixed width so rows sort chronologically as text
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore keeps saves in a SQLite database
type SQLStore struct {
	db        *sql.DB
	stateLock sync.Mutex
}

var _ interfaces.SaveStore = (*SQLStore)(nil)

// NewSQLStore opens (and if needed creates) the database at dsn
func NewSQLStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open save database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSavesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create saves table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Save upserts rec into slot
func (s *SQLStore) Save(slot string, rec *types.SaveRecord) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	payload, err := EncodeSaveRecord(rec)
	if err != nil {
		return err
	}

	s.stateLock.Lock()
	defer s.stateLock.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO saves (slot, id, kind, created_at, payload) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			id = excluded.id,
			kind = excluded.kind,
			created_at = excluded.created_at,
			payload = excluded.payload`,
		slot, rec.ID, string(rec.Kind), rec.Timestamp.UTC().Format(createdAtLayout), payload)
	if err != nil {
		return fmt.Errorf("failed to write save: %w", err)
	}
	return nil
}

// Load returns the raw payload of slot
func (s *SQLStore) Load(slot string) ([]byte, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}

	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM saves WHERE slot = ?`, slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: slot %s", ErrNoSave, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read save: %w", err)
	}
	return payload, nil
}

// List returns every stored save, newest first
func (s *SQLStore) List() ([]types.SaveSummary, error) {
	rows, err := s.db.Query(`SELECT slot, id, kind, created_at FROM saves ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	summaries := make([]types.SaveSummary, 0)
	for rows.Next() {
		var (
			sum       types.SaveSummary
			kind      string
			createdAt string
		)
		if err := rows.Scan(&sum.Slot, &sum.ID, &kind, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan save: %w", err)
		}
		sum.Kind = types.SaveKind(kind)
		if sum.Timestamp, err = time.Parse(createdAtLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse save time: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
