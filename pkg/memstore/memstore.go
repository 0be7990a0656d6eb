// Package memstore is the Memory Store: put/get/retrieve plus trust
// evolution, wrapping internal/store.Storer with the scoring and
// evolve_trust rules. Grounded in this codebase's extractor-over-Storer
// composition shape, with cosine similarity and the weighted retrieval
// score adapted from this codebase's pairwise conflict scorer.
package memstore

import (
	"fmt"
	"math"
	"sort"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/classify"
	"github.com/kittclouds/crtengine/pkg/config"
	"go.uber.org/zap"
)

// MemoryStore is the sole component allowed to mutate trust and compute
// the derived reintroduced_claim field on read.
type MemoryStore struct {
	db  store.Storer
	cfg config.Config
	log *zap.Logger
}

func New(db store.Storer, cfg config.Config, log *zap.Logger) *MemoryStore {
	return &MemoryStore{db: db, cfg: cfg, log: log}
}

// Put inserts utterance/fact text as a new memory and checks for
// near-duplicate reinforcement against the most recent prior memory on
// the same slot (cosine >= ReinforceSimilarity and same slot/value).
// Returns the new memory's id.
func (s *MemoryStore) Put(threadID, text, slot, value string, lane store.MemoryLane, source store.MemorySource, vector []float32, confidence float64, now int64) (string, error) {
	if slot != "" {
		prior, err := s.db.RetrieveBySlot(threadID, slot)
		if err != nil {
			return "", fmt.Errorf("memstore: put: lookup prior for reinforcement: %w", err)
		}
		if len(prior) > 0 {
			p := prior[0]
			if p.Value == value && classify.CosineSimilarity(p.Vector, vector) >= s.cfg.ReinforceSimilarity {
				if err := s.reinforce(p, now); err != nil {
					return "", err
				}
			}
		}
	}

	// Initial trust is 0.5 regardless of source; only user facts are named
	// explicitly by the spec, but nothing distinguishes another starting
	// point for SYSTEM/DOC/EXTERNAL-sourced memories.
	m := &store.Memory{
		ID: generateID(), ThreadID: threadID, Text: text, Slot: slot, Value: value,
		Lane: lane, Source: source, Vector: vector, Trust: 0.5,
		Confidence: confidence, CreatedAt: now,
	}
	if err := s.db.PutMemory(m); err != nil {
		return "", fmt.Errorf("memstore: put: %w", err)
	}
	return m.ID, nil
}

// reinforce raises a memory's trust toward the ceiling on repeated
// confirmation (§4.C reinforcement rule). Reinforcement never decreases
// trust (P4). A lost CAS race is logged and the reinforcement is skipped,
// not retried, since reinforcement is best-effort, not integrity-critical.
func (s *MemoryStore) reinforce(m *store.Memory, now int64) error {
	newTrust := math.Min(s.cfg.TrustCeiling, m.Trust+s.cfg.ReinforceStep)
	if newTrust <= m.Trust {
		return nil
	}
	err := s.db.CASTrust(m.ID, m.Trust, newTrust, "reinforcement", now)
	if err == store.ErrConflict {
		s.log.Warn("memstore: reinforcement CAS lost race, skipping", zap.String("memory_id", m.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("memstore: reinforce: %w", err)
	}
	return nil
}

// EvolveTrust applies the CONFLICT/REVISION trust-degradation rule to an
// old memory. REFINEMENT and TEMPORAL never change trust, so callers
// should not invoke this for those topologies.
func (s *MemoryStore) EvolveTrust(old *store.Memory, drift float64, topology store.Topology, now int64) error {
	var lambda float64
	switch topology {
	case store.TopologyConflict:
		lambda = s.cfg.ConflictLambda
	case store.TopologyRevision:
		lambda = s.cfg.RevisionLambda
	default:
		return nil
	}

	newTrust := math.Max(s.cfg.TrustFloor, old.Trust*(1-lambda*drift))
	err := s.db.CASTrust(old.ID, old.Trust, newTrust, string(topology), now)
	if err == store.ErrConflict {
		return fmt.Errorf("memstore: evolve trust: %w: concurrent update to memory %s", store.ErrConflict, old.ID)
	}
	if err != nil {
		return fmt.Errorf("memstore: evolve trust: %w", err)
	}
	return nil
}

// Get returns a memory with reintroduced_claim populated, or ErrNotFound.
func (s *MemoryStore) Get(id string) (*store.Memory, error) {
	m, err := s.db.GetMemory(id)
	if err != nil {
		return nil, err
	}
	if err := s.annotate(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MemoryStore) annotate(m *store.Memory) error {
	open, err := s.db.OpenConflictsForMemory(m.ID)
	if err != nil {
		return fmt.Errorf("memstore: annotate reintroduced_claim: %w", err)
	}
	m.ReintroducedClaim = len(open) > 0
	return nil
}

func (s *MemoryStore) annotateAll(memories []*store.Memory) error {
	for _, m := range memories {
		if err := s.annotate(m); err != nil {
			return err
		}
	}
	return nil
}

// RetrieveOptions configures a Retrieve call.
type RetrieveOptions struct {
	K             int
	MinTrust      float64
	BeliefLane    bool // penalize SPEECH memories when true
	QueryVector   []float32
	Now           int64
}

// Retrieve returns the top-K memories by weighted score
// alpha*cos + beta*trust + gamma*recency_decay, filtered by MinTrust.
// k=0 returns an empty list (§4.C failure mode).
func (s *MemoryStore) Retrieve(threadID string, opts RetrieveOptions) ([]*store.Memory, error) {
	if opts.K <= 0 {
		return nil, nil
	}

	candidates, err := s.db.RetrieveCandidates(threadID, opts.QueryVector, opts.K*4)
	if err != nil {
		return nil, fmt.Errorf("memstore: retrieve: %w", err)
	}
	if len(candidates) == 0 {
		candidates, err = s.db.RecentMemories(threadID, opts.K*4)
		if err != nil {
			return nil, fmt.Errorf("memstore: retrieve fallback: %w", err)
		}
	}

	type scored struct {
		m     *store.Memory
		score float64
	}
	var ranked []scored
	for _, m := range candidates {
		if m.Trust < opts.MinTrust {
			continue
		}
		score := s.score(m, opts)
		ranked = append(ranked, scored{m, score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		// Deterministic, insertion-order-independent tiebreak (P8): fall
		// back to memory id, never to retrieval/candidate order.
		return ranked[i].m.ID < ranked[j].m.ID
	})

	if len(ranked) > opts.K {
		ranked = ranked[:opts.K]
	}

	out := make([]*store.Memory, len(ranked))
	for i, r := range ranked {
		out[i] = r.m
	}
	if err := s.annotateAll(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MemoryStore) score(m *store.Memory, opts RetrieveOptions) float64 {
	cos := classify.CosineSimilarity(m.Vector, opts.QueryVector)
	age := float64(opts.Now - m.CreatedAt)
	if age < 0 {
		age = 0
	}
	recency := recencyDecay(age, s.cfg.RecencyHalfLifeSeconds)

	score := s.cfg.Alpha*cos + s.cfg.Beta*m.Trust + s.cfg.Gamma*recency
	if opts.BeliefLane && m.Lane == store.LaneSpeech {
		score *= s.cfg.SpeechLanePenalty
	}
	return score
}

func recencyDecay(ageSeconds, halfLife float64) float64 {
	if halfLife <= 0 {
		return 0
	}
	return math.Pow(0.5, ageSeconds/halfLife)
}

// RetrieveBySlot returns every memory for (threadID, slot), newest
// first, annotated with reintroduced_claim, used by the contradiction
// pathway.
func (s *MemoryStore) RetrieveBySlot(threadID, slot string) ([]*store.Memory, error) {
	memories, err := s.db.RetrieveBySlot(threadID, slot)
	if err != nil {
		return nil, fmt.Errorf("memstore: retrieve by slot: %w", err)
	}
	if err := s.annotateAll(memories); err != nil {
		return nil, err
	}
	return memories, nil
}
