package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a local SQLite database. Inventories are
// kept as a JSON object column, mirroring how small per-player item maps are
// cheapest to store.
type SQLiteStore struct {
	db           *sql.DB
	startBalance int
}

// OpenSQLite opens (or creates) the ledger database at dbPath. New players
// are seeded with startBalance on first sight.
func OpenSQLite(dbPath string, startBalance int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	// modernc's driver is not safe for concurrent writers on one connection
	// pool entry; serialize at the pool level.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			room_id   TEXT NOT NULL,
			player_id TEXT NOT NULL,
			name      TEXT NOT NULL,
			balance   INTEGER NOT NULL,
			items     TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (room_id, player_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create players table: %w", err)
	}

	return &SQLiteStore{db: db, startBalance: startBalance}, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetOrCreatePlayer implements Store.
func (s *SQLiteStore) GetOrCreatePlayer(ctx context.Context, roomID, playerID, name string) (*Player, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO players(room_id, player_id, name, balance, items)
		 VALUES(?, ?, ?, ?, '{}')
		 ON CONFLICT(room_id, player_id) DO UPDATE SET name=excluded.name`,
		roomID, playerID, name, s.startBalance,
	); err != nil {
		return nil, fmt.Errorf("upsert player: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT name, balance, items FROM players WHERE room_id = ? AND player_id = ?`,
		roomID, playerID,
	)
	p := &Player{RoomID: roomID, ID: playerID, Items: map[string]int{}}
	var itemsJSON string
	if err := row.Scan(&p.Name, &p.Balance, &itemsJSON); err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &p.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return p, nil
}

// AdjustBalance implements Store. The guard lives in the WHERE clause so the
// check and the write are a single statement.
func (s *SQLiteStore) AdjustBalance(ctx context.Context, roomID, playerID string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET balance = balance + ?
		 WHERE room_id = ? AND player_id = ? AND balance + ? >= 0`,
		delta, roomID, playerID, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance result: %w", err)
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// HasItem implements Store.
func (s *SQLiteStore) HasItem(ctx context.Context, roomID, playerID, itemID string, qty int) (bool, error) {
	items, err := s.loadItems(ctx, roomID, playerID)
	if err != nil {
		return false, err
	}
	return items[itemID] >= qty, nil
}

// ConsumeItem implements Store.
func (s *SQLiteStore) ConsumeItem(ctx context.Context, roomID, playerID, itemID string, delta int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin consume: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT items FROM players WHERE room_id = ? AND player_id = ?`,
		roomID, playerID,
	)
	var itemsJSON string
	if err := row.Scan(&itemsJSON); err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	items := map[string]int{}
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return fmt.Errorf("decode items: %w", err)
	}

	next := items[itemID] + delta
	if next < 0 {
		return ErrInsufficientItems
	}
	if next == 0 {
		delete(items, itemID)
	} else {
		items[itemID] = next
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE players SET items = ? WHERE room_id = ? AND player_id = ?`,
		string(encoded), roomID, playerID,
	); err != nil {
		return fmt.Errorf("store items: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit consume: %w", err)
	}
	return nil
}

// GrantItem adds qty of an item to a player's inventory. It exists for the
// shop layer and for seeding test fixtures; the engine itself only consumes.
func (s *SQLiteStore) GrantItem(ctx context.Context, roomID, playerID, itemID string, qty int) error {
	return s.ConsumeItem(ctx, roomID, playerID, itemID, qty)
}

func (s *SQLiteStore) loadItems(ctx context.Context, roomID, playerID string) (map[string]int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT items FROM players WHERE room_id = ? AND player_id = ?`,
		roomID, playerID,
	)
	var itemsJSON string
	if err := row.Scan(&itemsJSON); err != nil {
		if err == sql.ErrNoRows {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("load items: %w", err)
	}
	items := map[string]int{}
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}
