package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/portfolio"
)

// EventStore handles persistent storage of events and closed positions in
// SQLite. A single Trader run writes to it sequentially; the WAL journal
// keeps writes cheap enough for the hotpath.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new SQLite event store with WAL mode enabled.
func NewEventStore(dbPath string) (*EventStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Configure SQLite for high-performance deterministic logging
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// Metadata table for KV storage
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	// Events table: the append-only log a replay run reads back.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind INTEGER NOT NULL,
			trace TEXT NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	// Closed positions table: the trading history record.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exchange TEXT NOT NULL,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			result_pnl REAL NOT NULL,
			exited_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create positions table: %w", err)
	}

	return &EventStore{db: db}, nil
}

// SaveEvent appends an event to the log.
func (s *EventStore) SaveEvent(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (kind, trace, ts, payload) VALUES (?, ?, ?, ?)",
		ev.Kind(), ev.TraceID().String(), ev.Time().UnixMicro(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// LoadMarketEvents loads every stored market event in insertion order.
// Used by the replayer to reconstruct a run deterministically.
func (s *EventStore) LoadMarketEvents(ctx context.Context) ([]*event.MarketEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, payload FROM events WHERE kind = ? ORDER BY id ASC",
		event.KindMarket,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*event.MarketEvent
	for rows.Next() {
		var id int64
		var payload []byte

		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		var ev event.MarketEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %d: %w", id, err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return events, nil
}

// SavePosition records a closed position in the history table.
func (s *EventStore) SavePosition(ctx context.Context, position *portfolio.Position) error {
	payload, err := json.Marshal(position)
	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO positions (exchange, symbol, direction, result_pnl, exited_at, payload) VALUES (?, ?, ?, ?, ?, ?)",
		position.Exchange, position.Symbol, string(position.Direction),
		position.ResultProfitLoss, position.Meta.ExitBarTime.UnixMicro(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}

	return nil
}

// SaveClosedPosition implements portfolio.PositionSink.
func (s *EventStore) SaveClosedPosition(position *portfolio.Position) error {
	return s.SavePosition(context.Background(), position)
}

// LoadClosedPositions returns the recorded trading history, oldest first.
func (s *EventStore) LoadClosedPositions(ctx context.Context) ([]portfolio.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, payload FROM positions ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []portfolio.Position
	for rows.Next() {
		var id int64
		var payload []byte

		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}

		var position portfolio.Position
		if err := json.Unmarshal(payload, &position); err != nil {
			return nil, fmt.Errorf("failed to unmarshal position %d: %w", id, err)
		}
		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return positions, nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *EventStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table.
func (s *EventStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}
