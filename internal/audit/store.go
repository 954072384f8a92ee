// Package audit records every mode transition in a small SQLite database so
// an operator can see what the device did while it was unreachable.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
)

// Outcomes of a recorded operation.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Step is the recorded result of one pipeline step.
type Step struct {
	Name       string `json:"name"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Event represents a single audit log entry.
type Event struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	Operation  string    `json:"operation"`
	Interface  string    `json:"interface"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Steps      []Step    `json:"steps,omitempty"`
}

// Store provides persistent storage for audit events.
type Store struct {
	mu            sync.RWMutex
	db            *sql.DB
	retentionDays int
	logger        *logging.Logger
}

// NewStore creates a new audit store at the given path.
func NewStore(dbPath string, retentionDays int, logger *logging.Logger) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			request_id TEXT,
			operation TEXT NOT NULL,
			interface TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			duration_ms INTEGER DEFAULT 0,
			steps TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_transitions_timestamp ON transitions(timestamp);
		CREATE INDEX IF NOT EXISTS idx_transitions_operation ON transitions(operation);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}

	if retentionDays <= 0 {
		retentionDays = 30
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Store{
		db:            db,
		retentionDays: retentionDays,
		logger:        logger.WithComponent("audit"),
	}, nil
}

// Write persists an audit event and mirrors it to the log.
func (s *Store) Write(evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	stepsJSON, err := json.Marshal(evt.Steps)
	if err != nil {
		stepsJSON = []byte("[]")
	}

	_, err = s.db.Exec(`
		INSERT INTO transitions (timestamp, request_id, operation, interface, outcome, error, duration_ms, steps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, evt.Timestamp.UTC(), evt.RequestID, evt.Operation, evt.Interface, evt.Outcome, evt.Error, evt.DurationMS, string(stepsJSON))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	s.logger.Audit(evt.Operation, evt.Interface, evt.Outcome,
		"request_id", evt.RequestID,
		"steps", len(evt.Steps))
	return nil
}

// Query returns the newest events first. An empty operation matches all;
// limit <= 0 means no limit.
func (s *Store) Query(ctx context.Context, operation string, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, timestamp, request_id, operation, interface, outcome, error, duration_ms, steps
		FROM transitions`
	var args []any
	if operation != "" {
		query += " WHERE operation = ?"
		args = append(args, operation)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var evt Event
		var requestID, errText, stepsJSON sql.NullString

		err := rows.Scan(&evt.ID, &evt.Timestamp, &requestID, &evt.Operation, &evt.Interface,
			&evt.Outcome, &errText, &evt.DurationMS, &stepsJSON)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		evt.RequestID = requestID.String
		evt.Error = errText.String
		if stepsJSON.Valid && stepsJSON.String != "" {
			if err := json.Unmarshal([]byte(stepsJSON.String), &evt.Steps); err != nil {
				s.logger.Warn("corrupt audit steps", "id", evt.ID, "error", err)
			}
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Prune removes events older than the retention period.
func (s *Store) Prune() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	result, err := s.db.Exec("DELETE FROM transitions WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the total number of events in the store.
func (s *Store) Count() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM transitions").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
