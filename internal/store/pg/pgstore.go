package pg

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store holds the shared PostgreSQL handle. Domain access goes through the
// Profiles and Leads views plus the pitch recorder in this package.
// String-list columns are JSONB to stay driver-agnostic.
type Store struct {
	db *sql.DB
}

// Open connects with pooled defaults tuned for a small API fleet.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle (tests).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Profiles returns the profile store view.
func (s *Store) Profiles() *Profiles { return &Profiles{db: s.db} }

// Leads returns the lead store view.
func (s *Store) Leads() *Leads { return &Leads{db: s.db} }

// --- helpers shared by the views ---

type rowScanner interface {
	Scan(dest ...any) error
}

func marshalList(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

func unmarshalList(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}
