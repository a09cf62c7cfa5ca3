// Package sqlitehost provides a persistent Host backend on embedded SQLite.
//
// The store lives in a single database file (default .tokensync/store.db)
// opened in WAL mode, so a CLI invocation sees the state the previous one
// left behind. The schema mirrors the live object model one table per
// entity kind, with per-mode values in their own table keyed by
// (variable, mode).
package sqlitehost

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/oklog/ulid/v2"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/token"
)

// Host is a SQLite-backed implementation of host.Host.
type Host struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the store database at path and ensures the
// schema exists. The caller must Close when done.
func Open(path string) (*Host, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store database: %w", err)
	}

	h := &Host{conn: conn, path: path}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := h.initSchema(); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

// Close releases the database connection.
func (h *Host) Close() error {
	return h.conn.Close()
}

// Path returns the database file path.
func (h *Host) Path() string {
	return h.path
}

func (h *Host) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS collections (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	remote   INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS modes (
	id            TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	position      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS variables (
	id            TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	path          TEXT NOT NULL,
	type          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	scopes        TEXT NOT NULL DEFAULT '[]',
	position      INTEGER NOT NULL,
	UNIQUE(collection_id, path)
);
CREATE TABLE IF NOT EXISTS var_values (
	variable_id TEXT NOT NULL REFERENCES variables(id) ON DELETE CASCADE,
	mode_id     TEXT NOT NULL,
	kind        TEXT NOT NULL,
	payload     TEXT NOT NULL,
	PRIMARY KEY (variable_id, mode_id)
);
CREATE TABLE IF NOT EXISTS styles (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL,
	bound_vars  TEXT NOT NULL DEFAULT '{}',
	position    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS images (
	hash TEXT PRIMARY KEY,
	data BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS fonts (
	family TEXT NOT NULL,
	style  TEXT NOT NULL,
	PRIMARY KEY (family, style)
);
CREATE INDEX IF NOT EXISTS idx_variables_collection ON variables(collection_id, position);
CREATE INDEX IF NOT EXISTS idx_modes_collection ON modes(collection_id, position);
`
	if _, err := h.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func newID() string {
	return ulid.Make().String()
}

// Collections implements host.Host.
func (h *Host) Collections(ctx context.Context) ([]*host.Collection, error) {
	rows, err := h.conn.QueryContext(ctx,
		`SELECT id, name, remote FROM collections ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var out []*host.Collection
	for rows.Next() {
		var c host.Collection
		var remote int
		if err := rows.Scan(&c.ID, &c.Name, &remote); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		c.Remote = remote != 0
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, c := range out {
		modes, err := h.modesOf(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Modes = modes
	}
	return out, nil
}

func (h *Host) modesOf(ctx context.Context, collectionID string) ([]host.Mode, error) {
	rows, err := h.conn.QueryContext(ctx,
		`SELECT id, name FROM modes WHERE collection_id = ? ORDER BY position`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modes: %w", err)
	}
	defer rows.Close()

	var modes []host.Mode
	for rows.Next() {
		var m host.Mode
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan mode: %w", err)
		}
		modes = append(modes, m)
	}
	return modes, rows.Err()
}

// CreateCollection implements host.Host.
func (h *Host) CreateCollection(ctx context.Context, name string) (*host.Collection, error) {
	var exists int
	err := h.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE name = ? AND remote = 0`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection name: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("collection %q already exists", name)
	}

	c := &host.Collection{ID: newID(), Name: name}
	modeID := newID()
	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (id, name, remote, position)
		 VALUES (?, ?, 0, (SELECT COALESCE(MAX(position), 0) + 1 FROM collections))`,
		c.ID, name); err != nil {
		return nil, fmt.Errorf("failed to insert collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO modes (id, collection_id, name, position) VALUES (?, ?, ?, 1)`,
		modeID, c.ID, host.DefaultModeName); err != nil {
		return nil, fmt.Errorf("failed to insert default mode: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit collection: %w", err)
	}
	c.Modes = []host.Mode{{ID: modeID, Name: host.DefaultModeName}}
	return c, nil
}

// AddRemoteCollection registers a collection belonging to an external
// library: readable for alias wiring, excluded from export and clearing.
func (h *Host) AddRemoteCollection(ctx context.Context, name string, modes ...string) (*host.Collection, error) {
	if len(modes) == 0 {
		modes = []string{host.DefaultModeName}
	}
	c := &host.Collection{ID: newID(), Name: name, Remote: true}
	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (id, name, remote, position)
		 VALUES (?, ?, 1, (SELECT COALESCE(MAX(position), 0) + 1 FROM collections))`,
		c.ID, name); err != nil {
		return nil, fmt.Errorf("failed to insert remote collection: %w", err)
	}
	for i, m := range modes {
		mode := host.Mode{ID: newID(), Name: m}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO modes (id, collection_id, name, position) VALUES (?, ?, ?, ?)`,
			mode.ID, c.ID, m, i+1); err != nil {
			return nil, fmt.Errorf("failed to insert remote mode: %w", err)
		}
		c.Modes = append(c.Modes, mode)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit remote collection: %w", err)
	}
	return c, nil
}

// RemoveCollection implements host.Host. Variables, modes, and values
// cascade through foreign keys.
func (h *Host) RemoveCollection(ctx context.Context, id string) error {
	res, err := h.conn.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("collection %s: %w", id, host.ErrNotFound)
	}
	return nil
}

// AddMode implements host.Host, backfilling zero values for existing
// variables so no variable is left without a slot.
func (h *Host) AddMode(ctx context.Context, collectionID, name string) (*host.Mode, error) {
	var dup int
	err := h.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM modes WHERE collection_id = ? AND name = ?`,
		collectionID, name).Scan(&dup)
	if err != nil {
		return nil, fmt.Errorf("failed to check mode name: %w", err)
	}
	if dup > 0 {
		return nil, fmt.Errorf("mode %q already exists", name)
	}

	m := &host.Mode{ID: newID(), Name: name}
	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO modes (id, collection_id, name, position)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM modes WHERE collection_id = ?))`,
		m.ID, collectionID, name, collectionID); err != nil {
		return nil, fmt.Errorf("failed to insert mode: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, type FROM variables WHERE collection_id = ?`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variables: %w", err)
	}
	type varRow struct {
		id  string
		typ token.VariableType
	}
	var vars []varRow
	for rows.Next() {
		var v varRow
		if err := rows.Scan(&v.id, &v.typ); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan variable: %w", err)
		}
		vars = append(vars, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, v := range vars {
		kind, payload, err := marshalValue(host.ZeroValue(v.typ))
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO var_values (variable_id, mode_id, kind, payload) VALUES (?, ?, ?, ?)`,
			v.id, m.ID, kind, payload); err != nil {
			return nil, fmt.Errorf("failed to backfill mode value: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mode: %w", err)
	}
	return m, nil
}

// RenameMode implements host.Host.
func (h *Host) RenameMode(ctx context.Context, collectionID, modeID, newName string) error {
	res, err := h.conn.ExecContext(ctx,
		`UPDATE modes SET name = ? WHERE id = ? AND collection_id = ?`,
		newName, modeID, collectionID)
	if err != nil {
		return fmt.Errorf("failed to rename mode: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("mode %s: %w", modeID, host.ErrNotFound)
	}
	return nil
}

const variableColumns = `id, collection_id, path, type, description, scopes`

func scanVariable(scan func(...any) error) (*host.Variable, error) {
	var v host.Variable
	var scopes string
	if err := scan(&v.ID, &v.CollectionID, &v.Path, &v.Type, &v.Description, &scopes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scopes), &v.Scopes); err != nil {
		return nil, fmt.Errorf("failed to decode scopes: %w", err)
	}
	return &v, nil
}

// Variables implements host.Host.
func (h *Host) Variables(ctx context.Context, collectionID string) ([]*host.Variable, error) {
	rows, err := h.conn.QueryContext(ctx,
		`SELECT `+variableColumns+` FROM variables WHERE collection_id = ? ORDER BY position`,
		collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variables: %w", err)
	}
	defer rows.Close()

	var out []*host.Variable
	for rows.Next() {
		v, err := scanVariable(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// VariableByID implements host.Host.
func (h *Host) VariableByID(ctx context.Context, id string) (*host.Variable, error) {
	row := h.conn.QueryRowContext(ctx,
		`SELECT `+variableColumns+` FROM variables WHERE id = ?`, id)
	v, err := scanVariable(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("variable %s: %w", id, host.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateVariable implements host.Host.
func (h *Host) CreateVariable(ctx context.Context, collectionID, path string, typ token.VariableType) (*host.Variable, error) {
	modes, err := h.modesOf(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("collection %s: %w", collectionID, host.ErrNotFound)
	}

	v := &host.Variable{ID: newID(), CollectionID: collectionID, Path: path, Type: typ}
	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO variables (id, collection_id, path, type, description, scopes, position)
		 VALUES (?, ?, ?, ?, '', '[]',
		         (SELECT COALESCE(MAX(position), 0) + 1 FROM variables WHERE collection_id = ?))`,
		v.ID, collectionID, path, string(typ), collectionID); err != nil {
		return nil, fmt.Errorf("variable %q already exists or insert failed: %w", path, err)
	}
	kind, payload, err := marshalValue(host.ZeroValue(typ))
	if err != nil {
		return nil, err
	}
	for _, m := range modes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO var_values (variable_id, mode_id, kind, payload) VALUES (?, ?, ?, ?)`,
			v.ID, m.ID, kind, payload); err != nil {
			return nil, fmt.Errorf("failed to seed mode value: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit variable: %w", err)
	}
	return v, nil
}

// RemoveVariable implements host.Host.
func (h *Host) RemoveVariable(ctx context.Context, id string) error {
	res, err := h.conn.ExecContext(ctx, `DELETE FROM variables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete variable: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("variable %s: %w", id, host.ErrNotFound)
	}
	return nil
}

// SetVariableMeta implements host.Host.
func (h *Host) SetVariableMeta(ctx context.Context, id, description string, scopes []string) error {
	if scopes == nil {
		scopes = []string{}
	}
	encoded, err := json.Marshal(scopes)
	if err != nil {
		return err
	}
	res, err := h.conn.ExecContext(ctx,
		`UPDATE variables SET description = ?, scopes = ? WHERE id = ?`,
		description, string(encoded), id)
	if err != nil {
		return fmt.Errorf("failed to update variable meta: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("variable %s: %w", id, host.ErrNotFound)
	}
	return nil
}

// Value implements host.Host.
func (h *Host) Value(ctx context.Context, variableID, modeID string) (host.Value, error) {
	var kind, payload string
	err := h.conn.QueryRowContext(ctx,
		`SELECT kind, payload FROM var_values WHERE variable_id = ? AND mode_id = ?`,
		variableID, modeID).Scan(&kind, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("value %s/%s: %w", variableID, modeID, host.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query value: %w", err)
	}
	return unmarshalValue(kind, payload)
}

// SetValue implements host.Host.
func (h *Host) SetValue(ctx context.Context, variableID, modeID string, v host.Value) error {
	variable, err := h.VariableByID(ctx, variableID)
	if err != nil {
		return err
	}
	if err := host.CheckValue(variable.Type, v); err != nil {
		return err
	}
	kind, payload, err := marshalValue(v)
	if err != nil {
		return err
	}
	if _, err := h.conn.ExecContext(ctx,
		`INSERT INTO var_values (variable_id, mode_id, kind, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT (variable_id, mode_id) DO UPDATE SET kind = excluded.kind, payload = excluded.payload`,
		variableID, modeID, kind, payload); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	return nil
}

// Styles implements host.Host.
func (h *Host) Styles(ctx context.Context, kind token.StyleKind) ([]*host.Style, error) {
	rows, err := h.conn.QueryContext(ctx,
		`SELECT id, kind, name, description, payload, bound_vars FROM styles
		 WHERE kind = ? ORDER BY position`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query styles: %w", err)
	}
	defer rows.Close()

	var out []*host.Style
	for rows.Next() {
		s, err := scanStyle(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanStyle(scan func(...any) error) (*host.Style, error) {
	var s host.Style
	var payload, boundVars string
	if err := scan(&s.ID, &s.Kind, &s.Name, &s.Description, &payload, &boundVars); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(boundVars), &s.BoundVars); err != nil {
		return nil, fmt.Errorf("failed to decode bound vars: %w", err)
	}
	var destErr error
	switch s.Kind {
	case token.StyleColor:
		s.Color = &token.ColorStyle{}
		destErr = json.Unmarshal([]byte(payload), s.Color)
	case token.StyleText:
		s.Text = &token.TextStyle{}
		destErr = json.Unmarshal([]byte(payload), s.Text)
	case token.StyleEffect:
		s.Effect = &token.EffectStyle{}
		destErr = json.Unmarshal([]byte(payload), s.Effect)
	case token.StyleGrid:
		s.Grid = &token.GridStyle{}
		destErr = json.Unmarshal([]byte(payload), s.Grid)
	default:
		destErr = fmt.Errorf("unknown style kind %q", s.Kind)
	}
	if destErr != nil {
		return nil, fmt.Errorf("failed to decode style payload: %w", destErr)
	}
	return &s, nil
}

// SaveStyle implements host.Host.
func (h *Host) SaveStyle(ctx context.Context, s *host.Style) (*host.Style, error) {
	var payloadSrc any
	switch s.Kind {
	case token.StyleColor:
		payloadSrc = s.Color
	case token.StyleText:
		payloadSrc = s.Text
	case token.StyleEffect:
		payloadSrc = s.Effect
	case token.StyleGrid:
		payloadSrc = s.Grid
	default:
		return nil, fmt.Errorf("unknown style kind %q", s.Kind)
	}
	payload, err := json.Marshal(payloadSrc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode style payload: %w", err)
	}
	boundVars := s.BoundVars
	if boundVars == nil {
		boundVars = map[string]string{}
	}
	bound, err := json.Marshal(boundVars)
	if err != nil {
		return nil, err
	}

	stored := *s
	if stored.ID == "" {
		stored.ID = newID()
		if _, err := h.conn.ExecContext(ctx,
			`INSERT INTO styles (id, kind, name, description, payload, bound_vars, position)
			 VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM styles))`,
			stored.ID, string(stored.Kind), stored.Name, stored.Description,
			string(payload), string(bound)); err != nil {
			return nil, fmt.Errorf("failed to insert style: %w", err)
		}
		return &stored, nil
	}
	res, err := h.conn.ExecContext(ctx,
		`UPDATE styles SET name = ?, description = ?, payload = ?, bound_vars = ? WHERE id = ?`,
		stored.Name, stored.Description, string(payload), string(bound), stored.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update style: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("style %s: %w", stored.ID, host.ErrNotFound)
	}
	return &stored, nil
}

// RemoveStyle implements host.Host.
func (h *Host) RemoveStyle(ctx context.Context, id string) error {
	res, err := h.conn.ExecContext(ctx, `DELETE FROM styles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete style: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("style %s: %w", id, host.ErrNotFound)
	}
	return nil
}

// HasFont implements host.Host. An empty fonts table means no inventory is
// kept and every font is reported available.
func (h *Host) HasFont(ctx context.Context, family, style string) (bool, error) {
	var total int
	if err := h.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM fonts`).Scan(&total); err != nil {
		return false, fmt.Errorf("failed to count fonts: %w", err)
	}
	if total == 0 {
		return true, nil
	}
	var n int
	err := h.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fonts WHERE family = ? AND style = ?`, family, style).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query font: %w", err)
	}
	return n > 0, nil
}

// ImageData implements host.Host.
func (h *Host) ImageData(ctx context.Context, hash string) ([]byte, error) {
	var data []byte
	err := h.conn.QueryRowContext(ctx, `SELECT data FROM images WHERE hash = ?`, hash).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", hash, host.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query image: %w", err)
	}
	return data, nil
}

// StoreImage implements host.Host.
func (h *Host) StoreImage(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:8])
	if _, err := h.conn.ExecContext(ctx,
		`INSERT INTO images (hash, data) VALUES (?, ?) ON CONFLICT (hash) DO NOTHING`,
		hash, data); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return hash, nil
}

// value serialization: kind + JSON payload per variant.

type colorPayload struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

type aliasPayload struct {
	Target string `json:"target"`
}

func marshalValue(v host.Value) (kind, payload string, err error) {
	var data []byte
	switch val := v.(type) {
	case host.ColorValue:
		kind = "color"
		data, err = json.Marshal(colorPayload{R: val.R, G: val.G, B: val.B, A: val.A})
	case host.FloatValue:
		kind = "float"
		data, err = json.Marshal(float64(val))
	case host.StringValue:
		kind = "string"
		data, err = json.Marshal(string(val))
	case host.BoolValue:
		kind = "boolean"
		data, err = json.Marshal(bool(val))
	case host.AliasValue:
		kind = "alias"
		data, err = json.Marshal(aliasPayload{Target: val.TargetID})
	default:
		return "", "", fmt.Errorf("unknown value variant %T", v)
	}
	if err != nil {
		return "", "", err
	}
	return kind, string(data), nil
}

func unmarshalValue(kind, payload string) (host.Value, error) {
	switch kind {
	case "color":
		var c colorPayload
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, err
		}
		return host.ColorValue{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	case "float":
		var f float64
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			return nil, err
		}
		return host.FloatValue(f), nil
	case "string":
		var s string
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, err
		}
		return host.StringValue(s), nil
	case "boolean":
		var b bool
		if err := json.Unmarshal([]byte(payload), &b); err != nil {
			return nil, err
		}
		return host.BoolValue(b), nil
	case "alias":
		var a aliasPayload
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, err
		}
		return host.AliasValue{TargetID: a.Target}, nil
	}
	return nil, fmt.Errorf("unknown value kind %q", kind)
}
