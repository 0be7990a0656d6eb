// Package response provides JSON response builders that expose only the
// fields the HTTP façade contract (§6) requires — every response that
// includes memories must surface the derived reintroduced_claim boolean.
// Grounded in this codebase's slim-response builder shape.
package response

import (
	"encoding/json"

	"github.com/kittclouds/crtengine/internal/store"
)

// SlimMemory is the wire shape for a Memory: text is immutable and
// always present; reintroduced_claim is always derived, never stored.
type SlimMemory struct {
	MemoryID          string  `json:"memoryId"`
	ThreadID          string  `json:"threadId"`
	Text              string  `json:"text"`
	Slot              string  `json:"slot,omitempty"`
	Value             string  `json:"value,omitempty"`
	Lane              string  `json:"lane"`
	Trust             float64 `json:"trust"`
	Confidence        float64 `json:"confidence"`
	CreatedAt         int64   `json:"createdAt"`
	ReintroducedClaim bool    `json:"reintroducedClaim"`
}

// SlimContradiction is the wire shape for a ContradictionEntry.
type SlimContradiction struct {
	LedgerID        string  `json:"ledgerId"`
	OldMemoryID     string  `json:"oldMemoryId"`
	NewMemoryID     string  `json:"newMemoryId"`
	Topology        string  `json:"topology"`
	Status          string  `json:"status"`
	Drift           float64 `json:"drift"`
	ConfidenceDelta float64 `json:"confidenceDelta"`
	Summary         string  `json:"summary"`
	CreatedAt       int64   `json:"createdAt"`
	ResolvedAt      *int64  `json:"resolvedAt,omitempty"`
}

// FromMemory converts a store.Memory to its wire shape.
func FromMemory(m *store.Memory) SlimMemory {
	return SlimMemory{
		MemoryID: m.ID, ThreadID: m.ThreadID, Text: m.Text, Slot: m.Slot, Value: m.Value,
		Lane: string(m.Lane), Trust: m.Trust, Confidence: m.Confidence, CreatedAt: m.CreatedAt,
		ReintroducedClaim: m.ReintroducedClaim,
	}
}

// FromMemories converts a slice, preserving order.
func FromMemories(memories []*store.Memory) []SlimMemory {
	out := make([]SlimMemory, len(memories))
	for i, m := range memories {
		out[i] = FromMemory(m)
	}
	return out
}

// FromContradiction converts a store.ContradictionEntry to its wire
// shape.
func FromContradiction(e *store.ContradictionEntry) SlimContradiction {
	return SlimContradiction{
		LedgerID: e.LedgerID, OldMemoryID: e.OldMemoryID, NewMemoryID: e.NewMemoryID,
		Topology: string(e.Topology), Status: string(e.Status), Drift: e.Drift,
		ConfidenceDelta: e.ConfidenceDelta, Summary: e.Summary, CreatedAt: e.CreatedAt, ResolvedAt: e.ResolvedAt,
	}
}

// FromContradictions converts a slice, preserving order.
func FromContradictions(entries []*store.ContradictionEntry) []SlimContradiction {
	out := make([]SlimContradiction, len(entries))
	for i, e := range entries {
		out[i] = FromContradiction(e)
	}
	return out
}

// TurnResponse is the send(thread_id, message) façade's JSON shape.
type TurnResponse struct {
	Answer       string       `json:"answer"`
	ResponseType string       `json:"responseType"`
	GatesPassed  bool         `json:"gatesPassed"`
	GateReason   string       `json:"gateReason,omitempty"`
	Memories     []SlimMemory `json:"memories"`
}

// MarshalTurnResponse builds the send() façade response.
func MarshalTurnResponse(answer, responseType string, gatesPassed bool, gateReason string, memories []*store.Memory) ([]byte, error) {
	resp := TurnResponse{
		Answer: answer, ResponseType: responseType, GatesPassed: gatesPassed,
		GateReason: gateReason, Memories: FromMemories(memories),
	}
	return json.Marshal(resp)
}
