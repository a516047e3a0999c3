package session

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/wricardo/mars-rovers/game/service"
)

// schema.sql creates the mission_sessions table. Each row holds the session
// JSON plus a few columns that can be queried without decoding it.
//
//go:embed schema.sql
var schemaSQL string

// SQLitePersistence implements SessionPersistence on a SQLite database
type SQLitePersistence struct {
	db            *sql.DB
	configManager service.ConfigManager
}

// NewSQLitePersistence opens (or creates) the database at path and applies the schema
func NewSQLitePersistence(path string, configManager service.ConfigManager) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	// one connection, so ":memory:" databases are shared by every query
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply session schema: %w", err)
	}

	service.Logf("initialized session database at %s", path)

	return &SQLitePersistence{
		db:            db,
		configManager: configManager,
	}, nil
}

// Close closes the underlying database
func (sp *SQLitePersistence) Close() error {
	return sp.db.Close()
}

// Save upserts a session row
func (sp *SQLitePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	configID := configIDFromName(sp.configManager, session.Config.Name)
	jsonData, err := encodeSession(session, configID)
	if err != nil {
		return err
	}

	state := session.Engine.GetState()
	query := `
		INSERT INTO mission_sessions (id, config_name, created_at, last_accessed_at, total_rovers, lost_rovers, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_name = excluded.config_name,
			last_accessed_at = excluded.last_accessed_at,
			total_rovers = excluded.total_rovers,
			lost_rovers = excluded.lost_rovers,
			data = excluded.data
	`

	_, err = sp.db.Exec(query,
		strings.ToLower(session.ID),
		configID,
		session.CreatedAt.UnixNano(),
		session.LastAccessedAt.UnixNano(),
		state.TotalRovers,
		state.LostRovers,
		string(jsonData),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// Load retrieves a session row by ID
func (sp *SQLitePersistence) Load(id string) (*service.Session, error) {
	var data string
	err := sp.db.QueryRow(`SELECT data FROM mission_sessions WHERE id = ?`, strings.ToLower(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	return decodeSession([]byte(data), sp.configManager)
}

// Delete removes a session row
func (sp *SQLitePersistence) Delete(id string) error {
	result, err := sp.db.Exec(`DELETE FROM mission_sessions WHERE id = ?`, strings.ToLower(id))
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted session IDs, most recently used first
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := sp.db.Query(`SELECT id FROM mission_sessions ORDER BY last_accessed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a session row exists
func (sp *SQLitePersistence) Exists(id string) bool {
	var n int
	err := sp.db.QueryRow(`SELECT COUNT(*) FROM mission_sessions WHERE id = ?`, strings.ToLower(id)).Scan(&n)
	return err == nil && n > 0
}
