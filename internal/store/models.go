// Package store provides SQLite-backed persistence for the CRT engine.
// This is the unified data layer for memories, contradictions, events, and
// trust history.
package store

import "errors"

// ErrNotFound is returned by GetX lookups that found nothing. Callers that
// treat "unknown id" as a normal outcome (not an error) should compare
// against this sentinel rather than checking for a non-nil error.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a compare-and-set write loses its race
// (the row changed between read and write). It is retryable.
var ErrConflict = errors.New("store: write conflict")

// MemoryLane separates grounded fact from conversational filler.
type MemoryLane string

const (
	LaneBelief MemoryLane = "BELIEF"
	LaneSpeech MemoryLane = "SPEECH"
)

// MemorySource identifies who/what produced a memory.
type MemorySource string

const (
	SourceUser     MemorySource = "USER"
	SourceSystem   MemorySource = "SYSTEM"
	SourceDoc      MemorySource = "DOC"
	SourceExternal MemorySource = "EXTERNAL"
)

// Memory is the engine's atomic unit of recall. Text is immutable once
// inserted (invariant 1); trust evolves only through the rules in
// pkg/memstore (invariant 2).
type Memory struct {
	ID         string       `json:"memoryId"`
	ThreadID   string       `json:"threadId"`
	Text       string       `json:"text"`
	Slot       string       `json:"slot,omitempty"`
	Value      string       `json:"value,omitempty"`
	Lane       MemoryLane   `json:"lane"`
	Source     MemorySource `json:"source"`
	Vector     []float32    `json:"-"`
	Trust      float64      `json:"trust"`
	Confidence float64      `json:"confidence"`
	CreatedAt  int64        `json:"createdAt"`

	// ReintroducedClaim is derived, never persisted: true iff an OPEN
	// CONFLICT ledger entry references this memory. Computed on read by
	// pkg/memstore, per invariant 3; SQLiteStore's own reads leave it false.
	ReintroducedClaim bool `json:"reintroducedClaim"`
}

// Topology classifies the relationship between an old and new fact on the
// same slot.
type Topology string

const (
	TopologyRefinement Topology = "REFINEMENT"
	TopologyRevision   Topology = "REVISION"
	TopologyTemporal   Topology = "TEMPORAL"
	TopologyConflict   Topology = "CONFLICT"
)

// LedgerStatus is the lifecycle state of a ContradictionEntry.
type LedgerStatus string

const (
	StatusOpen              LedgerStatus = "OPEN"
	StatusResolvedByUser    LedgerStatus = "RESOLVED_BY_USER"
	StatusResolvedByRecency LedgerStatus = "RESOLVED_BY_RECENCY"
	StatusSuperseded        LedgerStatus = "SUPERSEDED"
)

// ContradictionEntry records the relationship detected between two
// memories on the same slot. Topology and the old/new memory ids are
// immutable after insert (invariant 4); only Status and ResolvedAt change.
type ContradictionEntry struct {
	LedgerID         string       `json:"ledgerId"`
	ThreadID         string       `json:"threadId"`
	OldMemoryID      string       `json:"oldMemoryId"`
	NewMemoryID      string       `json:"newMemoryId"`
	Topology         Topology     `json:"topology"`
	Status           LedgerStatus `json:"status"`
	Drift            float64      `json:"drift"`
	ConfidenceDelta  float64      `json:"confidenceDelta"`
	Summary          string       `json:"summary"`
	CreatedAt        int64        `json:"createdAt"`
	ResolvedAt       *int64       `json:"resolvedAt,omitempty"`
}

// EventKind categorizes an EventRecord.
type EventKind string

const (
	EventGateDecision  EventKind = "GATE_DECISION"
	EventContradiction EventKind = "CONTRADICTION"
	EventResolution    EventKind = "RESOLUTION"
	EventRetrieval     EventKind = "RETRIEVAL"
)

// EventRecord is an append-only entry consumed by the (out-of-scope)
// active-learning collaborator. Payload is a flat scalar/id map, stored as
// JSON.
type EventRecord struct {
	EventID   string         `json:"eventId"`
	ThreadID  string         `json:"threadId"`
	Kind      EventKind      `json:"kind"`
	Payload   map[string]any `json:"payload"`
	Timestamp int64          `json:"timestamp"`
}

// TrustHistoryEntry audits a single trust mutation on a memory, so
// evolve_trust and reinforcement are independently verifiable (P4).
type TrustHistoryEntry struct {
	ID        int64   `json:"id"`
	MemoryID  string  `json:"memoryId"`
	OldTrust  float64 `json:"oldTrust"`
	NewTrust  float64 `json:"newTrust"`
	Reason    string  `json:"reason"`
	At        int64   `json:"at"`
}

// Storer is the persistence abstraction backing the Memory Store, the
// Contradiction Ledger, and the Event Log. SQLiteStore is the sole
// implementation.
type Storer interface {
	// Memories
	PutMemory(m *Memory) error
	GetMemory(id string) (*Memory, error)
	RetrieveCandidates(threadID string, queryVector []float32, limit int) ([]*Memory, error)
	RetrieveBySlot(threadID, slot string) ([]*Memory, error)
	RecentMemories(threadID string, limit int) ([]*Memory, error)
	// CASTrust performs a compare-and-set trust update, appending a
	// trust_history row in the same transaction. Returns ErrConflict if
	// oldTrust no longer matches the stored value.
	CASTrust(memoryID string, oldTrust, newTrust float64, reason string, at int64) error

	// Ledger
	InsertLedgerEntry(e *ContradictionEntry) error
	GetLedgerEntry(id string) (*ContradictionEntry, error)
	OpenConflictsForMemory(memoryID string) ([]*ContradictionEntry, error)
	UnresolvedForThread(threadID string) ([]*ContradictionEntry, error)
	ResolveLedgerEntry(id string, status LedgerStatus, at int64) error

	// Events
	AppendEvent(e *EventRecord) error
	EventsForThread(threadID string, limit int) ([]*EventRecord, error)

	Close() error
}
