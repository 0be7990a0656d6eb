package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the SQLite-backed implementation of Storer. Locking
// follows the teacher's single sync.RWMutex-guards-the-handle discipline,
// narrowed where a method needs compare-and-set semantics (CASTrust).
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	dim int
}

// schemaTemplate defines the unified data layer: memories, contradictions, events,
// trust_history, plus a vec0 virtual table mirroring memories.vector for
// kNN candidate search.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    thread_id TEXT NOT NULL,
    text TEXT NOT NULL,
    slot TEXT,
    value TEXT,
    lane TEXT NOT NULL,
    source TEXT NOT NULL,
    vector BLOB,
    trust REAL NOT NULL,
    confidence REAL NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_thread ON memories(thread_id);
CREATE INDEX IF NOT EXISTS idx_memories_slot ON memories(thread_id, slot);

CREATE VIRTUAL TABLE IF NOT EXISTS memory_vectors USING vec0(
    memory_id TEXT PRIMARY KEY,
    embedding FLOAT[%d]
);

CREATE TABLE IF NOT EXISTS contradictions (
    ledger_id TEXT PRIMARY KEY,
    thread_id TEXT NOT NULL,
    old_memory_id TEXT NOT NULL,
    new_memory_id TEXT NOT NULL,
    topology TEXT NOT NULL,
    status TEXT NOT NULL,
    drift REAL NOT NULL,
    confidence_delta REAL NOT NULL,
    summary TEXT,
    created_at INTEGER NOT NULL,
    resolved_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_contradictions_thread ON contradictions(thread_id);
CREATE INDEX IF NOT EXISTS idx_contradictions_old ON contradictions(old_memory_id);
CREATE INDEX IF NOT EXISTS idx_contradictions_new ON contradictions(new_memory_id);
CREATE INDEX IF NOT EXISTS idx_contradictions_status ON contradictions(status, topology);

CREATE TABLE IF NOT EXISTS events (
    event_id TEXT PRIMARY KEY,
    thread_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    payload BLOB,
    timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_thread ON events(thread_id, timestamp);

CREATE TABLE IF NOT EXISTS trust_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    memory_id TEXT NOT NULL,
    old_trust REAL NOT NULL,
    new_trust REAL NOT NULL,
    reason TEXT NOT NULL,
    at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trust_history_memory ON trust_history(memory_id);
`

// NewSQLiteStore opens (or creates) a store at dsn. dim is the embedding
// dimension the vec0 virtual table is declared with; it must match every
// Embedder the process will use.
func NewSQLiteStore(dsn string, dim int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	schema := fmt.Sprintf(schemaTemplate, dim)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLiteStore{db: db, dim: dim}, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// serializeVector packs a float32 vector as little-endian bytes, the raw
// blob layout vec0 accepts without going through vec_f32(json).
func serializeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : i*4+4]))
	}
	return v
}

// PutMemory inserts a new, immutable memory row and mirrors its vector into
// memory_vectors for kNN search. Memories are never updated after insert
// (invariant 1), so there is no corresponding UpdateMemory.
func (s *SQLiteStore) PutMemory(m *Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin put memory: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO memories (id, thread_id, text, slot, value, lane, source, vector, trust, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ThreadID, m.Text, nullableString(m.Slot), nullableString(m.Value),
		string(m.Lane), string(m.Source), serializeVector(m.Vector), m.Trust, m.Confidence, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert memory: %w", err)
	}

	if len(m.Vector) > 0 {
		_, err = tx.Exec(`INSERT INTO memory_vectors (memory_id, embedding) VALUES (?, ?)`,
			m.ID, serializeVector(m.Vector))
		if err != nil {
			return fmt.Errorf("store: insert memory vector: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit put memory: %w", err)
	}
	return nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func scanMemory(row interface {
	Scan(dest ...any) error
}) (*Memory, error) {
	var m Memory
	var slot, value sql.NullString
	var lane, source string
	var vec []byte

	err := row.Scan(&m.ID, &m.ThreadID, &m.Text, &slot, &value, &lane, &source,
		&vec, &m.Trust, &m.Confidence, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if slot.Valid {
		m.Slot = slot.String
	}
	if value.Valid {
		m.Value = value.String
	}
	m.Lane = MemoryLane(lane)
	m.Source = MemorySource(source)
	m.Vector = deserializeVector(vec)
	return &m, nil
}

const memoryColumns = `id, thread_id, text, slot, value, lane, source, vector, trust, confidence, created_at`

// GetMemory returns ErrNotFound when id is unknown; callers deciding
// "absent, not an error" per spec.md §4.C should test against that
// sentinel explicitly rather than treating any error as fatal.
func (s *SQLiteStore) GetMemory(id string) (*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get memory: %w", err)
	}
	return m, nil
}

// RetrieveCandidates returns the nearest memories to queryVector by the
// vec0 virtual table's built-in distance ordering. It performs no weighting
// by trust or recency; that re-scoring is pkg/memstore's job (§4.C).
func (s *SQLiteStore) RetrieveCandidates(threadID string, queryVector []float32, limit int) ([]*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}
	if len(queryVector) == 0 {
		return s.recentLocked(threadID, limit)
	}

	rows, err := s.db.Query(`
		SELECT m.`+memoryColumns+`
		FROM memory_vectors v
		JOIN memories m ON m.id = v.memory_id
		WHERE v.embedding MATCH ? AND v.k = ? AND m.thread_id = ?
		ORDER BY v.distance
	`, serializeVector(queryVector), limit, threadID)
	if err != nil {
		return nil, fmt.Errorf("store: retrieve candidates: %w", err)
	}
	defer rows.Close()
	return collectMemories(rows)
}

func collectMemories(rows *sql.Rows) ([]*Memory, error) {
	var out []*Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan memory row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RetrieveBySlot returns every memory for (threadID, slot), newest first,
// used by the contradiction pathway (§4.H step 3b).
func (s *SQLiteStore) RetrieveBySlot(threadID, slot string) ([]*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+memoryColumns+` FROM memories
		WHERE thread_id = ? AND slot = ?
		ORDER BY created_at DESC
	`, threadID, slot)
	if err != nil {
		return nil, fmt.Errorf("store: retrieve by slot: %w", err)
	}
	defer rows.Close()
	return collectMemories(rows)
}

// RecentMemories returns a thread's newest memories, newest first.
// pkg/memstore falls back to it when vector search returns no candidates.
func (s *SQLiteStore) RecentMemories(threadID string, limit int) ([]*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentLocked(threadID, limit)
}

func (s *SQLiteStore) recentLocked(threadID string, limit int) ([]*Memory, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT `+memoryColumns+` FROM memories
		WHERE thread_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent memories: %w", err)
	}
	defer rows.Close()
	return collectMemories(rows)
}

// CASTrust performs the compare-and-set update backing evolve_trust and
// reinforcement (§4.C), appending the audit row in the same transaction.
// It returns ErrConflict, not the underlying SQL error, on a lost race so
// pkg/memstore can decide whether to retry.
func (s *SQLiteStore) CASTrust(memoryID string, oldTrust, newTrust float64, reason string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin cas trust: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE memories SET trust = ? WHERE id = ? AND trust = ?`,
		newTrust, memoryID, oldTrust)
	if err != nil {
		return fmt.Errorf("store: cas trust: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: cas trust rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}

	_, err = tx.Exec(`
		INSERT INTO trust_history (memory_id, old_trust, new_trust, reason, at)
		VALUES (?, ?, ?, ?, ?)
	`, memoryID, oldTrust, newTrust, reason, at)
	if err != nil {
		return fmt.Errorf("store: insert trust history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit cas trust: %w", err)
	}
	return nil
}

// InsertLedgerEntry is the ledger's only write path for a brand new entry;
// topology and the old/new memory ids are set once here and never again
// (invariant 4).
func (s *SQLiteStore) InsertLedgerEntry(e *ContradictionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO contradictions (ledger_id, thread_id, old_memory_id, new_memory_id, topology, status, drift, confidence_delta, summary, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`, e.LedgerID, e.ThreadID, e.OldMemoryID, e.NewMemoryID, string(e.Topology),
		string(e.Status), e.Drift, e.ConfidenceDelta, e.Summary, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert ledger entry: %w", err)
	}
	return nil
}

const ledgerColumns = `ledger_id, thread_id, old_memory_id, new_memory_id, topology, status, drift, confidence_delta, summary, created_at, resolved_at`

func scanLedgerEntry(row interface {
	Scan(dest ...any) error
}) (*ContradictionEntry, error) {
	var e ContradictionEntry
	var topology, status string
	var resolvedAt sql.NullInt64

	err := row.Scan(&e.LedgerID, &e.ThreadID, &e.OldMemoryID, &e.NewMemoryID,
		&topology, &status, &e.Drift, &e.ConfidenceDelta, &e.Summary, &e.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	e.Topology = Topology(topology)
	e.Status = LedgerStatus(status)
	if resolvedAt.Valid {
		e.ResolvedAt = &resolvedAt.Int64
	}
	return &e, nil
}

func (s *SQLiteStore) GetLedgerEntry(id string) (*ContradictionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+ledgerColumns+` FROM contradictions WHERE ledger_id = ?`, id)
	e, err := scanLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get ledger entry: %w", err)
	}
	return e, nil
}

// OpenConflictsForMemory backs has_open_conflict and the
// reintroduced_claim derivation: true iff this slice is non-empty.
func (s *SQLiteStore) OpenConflictsForMemory(memoryID string) ([]*ContradictionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+ledgerColumns+` FROM contradictions
		WHERE status = 'OPEN' AND topology = 'CONFLICT'
		AND (old_memory_id = ? OR new_memory_id = ?)
	`, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("store: open conflicts for memory: %w", err)
	}
	defer rows.Close()
	return collectLedgerEntries(rows)
}

func collectLedgerEntries(rows *sql.Rows) ([]*ContradictionEntry, error) {
	var out []*ContradictionEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan ledger row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UnresolvedForThread(threadID string) ([]*ContradictionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+ledgerColumns+` FROM contradictions
		WHERE thread_id = ? AND status = 'OPEN'
		ORDER BY created_at DESC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("store: unresolved for thread: %w", err)
	}
	defer rows.Close()
	return collectLedgerEntries(rows)
}

// ResolveLedgerEntry touches only status and resolved_at, never topology
// or the memory ids (invariant 4), and is idempotent: resolving an
// already-resolved entry again just overwrites the same status/timestamp.
func (s *SQLiteStore) ResolveLedgerEntry(id string, status LedgerStatus, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE contradictions SET status = ?, resolved_at = ? WHERE ledger_id = ?`,
		string(status), at, id)
	if err != nil {
		return fmt.Errorf("store: resolve ledger entry: %w", err)
	}
	return nil
}

// AppendEvent is the Event Log's only write path; there is no update
// method on this interface by design (§4.I: never mutated).
func (s *SQLiteStore) AppendEvent(e *EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("store: marshal event payload: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO events (event_id, thread_id, kind, payload, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, e.EventID, e.ThreadID, string(e.Kind), payload, e.Timestamp)
	if err != nil {
		return fmt.Errorf("store: append event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) EventsForThread(threadID string, limit int) ([]*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT event_id, thread_id, kind, payload, timestamp FROM events
		WHERE thread_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: events for thread: %w", err)
	}
	defer rows.Close()

	var out []*EventRecord
	for rows.Next() {
		var e EventRecord
		var kind string
		var payload []byte
		if err := rows.Scan(&e.EventID, &e.ThreadID, &kind, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan event row: %w", err)
		}
		e.Kind = EventKind(kind)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("store: unmarshal event payload: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
