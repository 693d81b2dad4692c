package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/portfolio"
)

// Snapshot is a point-in-time capture of portfolio state. Used to resume
// a run without replaying the entire event log.
type Snapshot struct {
	TsUnix        int64                 `json:"ts"` // Snapshot creation timestamp (Unix seconds)
	Cash          float64               `json:"cash"`
	Equity        portfolio.EquityPoint `json:"equity"`
	OpenPositions []portfolio.Position  `json:"open_positions"`

	// rawPositions keeps the undecoded open_positions array from a loaded
	// file, so RestorePositions can tell an absent key from a zero value.
	rawPositions []json.RawMessage
}

// UnmarshalJSON retains the raw open_positions entries alongside the
// decoded ones.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	var aux struct {
		plain
		OpenPositions []json.RawMessage `json:"open_positions"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*s = Snapshot(aux.plain)
	s.rawPositions = aux.OpenPositions

	s.OpenPositions = make([]portfolio.Position, len(aux.OpenPositions))
	for i, msg := range aux.OpenPositions {
		if err := json.Unmarshal(msg, &s.OpenPositions[i]); err != nil {
			return err
		}
	}
	return nil
}

// SnapshotManager handles saving and loading snapshots.
type SnapshotManager struct {
	dir string
}

// NewSnapshotManager creates a new snapshot manager.
// dir: directory to store snapshot files.
func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// Save writes a snapshot to disk.
func (sm *SnapshotManager) Save(snap *Snapshot) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	filename := fmt.Sprintf("snapshot_%d.json", snap.TsUnix)
	path := filepath.Join(sm.dir, filename)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Snapshot saved",
		slog.Int64("ts", snap.TsUnix),
		slog.String("path", path))

	return nil
}

// LoadLatest loads the most recent snapshot from disk.
// Returns nil if no snapshot exists.
func (sm *SnapshotManager) LoadLatest() (*Snapshot, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No snapshots yet
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	var latestPath string
	var latestTs int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d.json", &ts); err != nil {
			continue // Not a snapshot file
		}

		if ts > latestTs {
			latestTs = ts
			latestPath = filepath.Join(sm.dir, entry.Name())
		}
	}

	if latestPath == "" {
		return nil, nil // No snapshots found
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	slog.Info("Snapshot loaded",
		slog.Int64("ts", snap.TsUnix),
		slog.String("path", latestPath))

	return &snap, nil
}

// CreateSnapshot captures the current portfolio state. Positions are
// copied so later mutation cannot corrupt the snapshot.
func CreateSnapshot(cash float64, equity portfolio.EquityPoint, open []portfolio.Position) *Snapshot {
	openCopy := make([]portfolio.Position, len(open))
	copy(openCopy, open)

	return &Snapshot{
		TsUnix:        time.Now().Unix(),
		Cash:          cash,
		Equity:        equity,
		OpenPositions: openCopy,
	}
}

// positionRecord stages a decoded position. The pointer fields record
// which keys the snapshot actually carried: only those reach the builder,
// so a truncated or hand-edited file fails Build instead of resurrecting
// a half-empty Position.
type positionRecord struct {
	Meta               *portfolio.PositionMeta `json:"meta"`
	Exchange           *string                 `json:"exchange"`
	Symbol             *string                 `json:"symbol"`
	Direction          *portfolio.Direction    `json:"direction"`
	Quantity           *float64                `json:"quantity"`
	EnterFees          *event.Fees             `json:"enter_fees"`
	EnterFeesTotal     *float64                `json:"enter_fees_total"`
	EnterAvgPriceGross *float64                `json:"enter_avg_price_gross"`
	EnterValueGross    *float64                `json:"enter_value_gross"`
	ExitFees           *event.Fees             `json:"exit_fees"`
	ExitFeesTotal      *float64                `json:"exit_fees_total"`
	ExitAvgPriceGross  *float64                `json:"exit_avg_price_gross"`
	ExitValueGross     *float64                `json:"exit_value_gross"`
	CurrentSymbolPrice *float64                `json:"current_symbol_price"`
	CurrentValueGross  *float64                `json:"current_value_gross"`
	UnrealProfitLoss   *float64                `json:"unreal_profit_loss"`
	ResultProfitLoss   *float64                `json:"result_profit_loss"`
}

func restorePosition(data []byte) (*portfolio.Position, error) {
	var rec positionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	b := portfolio.NewPositionBuilder()
	if rec.Meta != nil {
		b.Meta(*rec.Meta)
	}
	if rec.Exchange != nil {
		b.Exchange(*rec.Exchange)
	}
	if rec.Symbol != nil {
		b.Symbol(*rec.Symbol)
	}
	if rec.Direction != nil {
		b.Direction(*rec.Direction)
	}
	if rec.Quantity != nil {
		b.Quantity(*rec.Quantity)
	}
	if rec.EnterFees != nil {
		b.EnterFees(*rec.EnterFees)
	}
	if rec.EnterFeesTotal != nil {
		b.EnterFeesTotal(*rec.EnterFeesTotal)
	}
	if rec.EnterAvgPriceGross != nil {
		b.EnterAvgPriceGross(*rec.EnterAvgPriceGross)
	}
	if rec.EnterValueGross != nil {
		b.EnterValueGross(*rec.EnterValueGross)
	}
	if rec.ExitFees != nil {
		b.ExitFees(*rec.ExitFees)
	}
	if rec.ExitFeesTotal != nil {
		b.ExitFeesTotal(*rec.ExitFeesTotal)
	}
	if rec.ExitAvgPriceGross != nil {
		b.ExitAvgPriceGross(*rec.ExitAvgPriceGross)
	}
	if rec.ExitValueGross != nil {
		b.ExitValueGross(*rec.ExitValueGross)
	}
	if rec.CurrentSymbolPrice != nil {
		b.CurrentSymbolPrice(*rec.CurrentSymbolPrice)
	}
	if rec.CurrentValueGross != nil {
		b.CurrentValueGross(*rec.CurrentValueGross)
	}
	if rec.UnrealProfitLoss != nil {
		b.UnrealProfitLoss(*rec.UnrealProfitLoss)
	}
	if rec.ResultProfitLoss != nil {
		b.ResultProfitLoss(*rec.ResultProfitLoss)
	}

	return b.Build()
}

// RestorePositions rebuilds the snapshot's open positions through the
// validated builder. Snapshots created in-process are re-encoded first so
// both paths take the same presence-checked route.
func (s *Snapshot) RestorePositions() ([]portfolio.Position, error) {
	raw := s.rawPositions
	if raw == nil {
		for i := range s.OpenPositions {
			data, err := json.Marshal(&s.OpenPositions[i])
			if err != nil {
				return nil, fmt.Errorf("encode position %d: %w", i, err)
			}
			raw = append(raw, data)
		}
	}

	restored := make([]portfolio.Position, 0, len(raw))
	for i, msg := range raw {
		rebuilt, err := restorePosition(msg)
		if err != nil {
			return nil, fmt.Errorf("restore position %d: %w", i, err)
		}
		restored = append(restored, *rebuilt)
	}

	return restored, nil
}

// Cleanup removes old snapshots, keeping only the latest N.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		return err
	}

	type snapFile struct {
		path string
		ts   int64
	}
	var files []snapFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d.json", &ts); err == nil {
			files = append(files, snapFile{
				path: filepath.Join(sm.dir, entry.Name()),
				ts:   ts,
			})
		}
	}

	if len(files) <= keepCount {
		return nil
	}

	// Simple bubble sort (small N)
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].ts > files[i].ts {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path))
		} else {
			slog.Info("Removed old snapshot", slog.String("path", files[i].path))
		}
	}

	return nil
}
