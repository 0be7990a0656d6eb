// Package orchestrator implements the top-level control flow on a user
// utterance (§4.H): extract-or-retrieve, classify, gate, disclose. It
// owns the per-thread serialization policy: a turn holds its thread's
// lock end to end, including the embedder and generator calls, while the
// store's own write lock is taken only around each database call.
// Grounded in this codebase's service-layer
// composition shape, with per-thread locking generalized from the
// teacher's sync.RWMutex-guarded store.
package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/classify"
	"github.com/kittclouds/crtengine/pkg/collaborator"
	"github.com/kittclouds/crtengine/pkg/config"
	"github.com/kittclouds/crtengine/pkg/disclosure"
	"github.com/kittclouds/crtengine/pkg/eventlog"
	"github.com/kittclouds/crtengine/pkg/extract"
	"github.com/kittclouds/crtengine/pkg/gates"
	"github.com/kittclouds/crtengine/pkg/ledger"
	"github.com/kittclouds/crtengine/pkg/memstore"
	"github.com/kittclouds/crtengine/pkg/pool"
	"go.uber.org/zap"
)

// ResponseType mirrors pkg/gates.ResponseType at the orchestrator
// boundary, since a question's shape (not its gate outcome) decides it.
type ResponseType string

const (
	ResponseFactual        ResponseType = "factual"
	ResponseExplanatory    ResponseType = "explanatory"
	ResponseConversational ResponseType = "conversational"
)

// Result is what Turn returns to the caller: the final answer, its
// classification, the gate outcome, and metadata exposing every
// retrieved memory tagged with reintroduced_claim, per §6's façade
// contract.
type Result struct {
	Answer       string
	ResponseType ResponseType
	GatesPassed  bool
	GateReason   string
	Metadata     map[string]any
}

// Orchestrator wires every component named in §4 into the single Turn
// entry point.
type Orchestrator struct {
	cfg config.Config
	log *zap.Logger

	db         store.Storer
	memories   *memstore.MemoryStore
	ledger     *ledger.Ledger
	classifier *classify.Classifier
	gates      *gates.Gates
	disclosure *disclosure.Disclosure
	events     *eventlog.EventLog

	embedder  collaborator.Embedder
	generator collaborator.Generator

	threadLocksMu sync.Mutex
	threadLocks   map[string]*sync.Mutex
}

// New builds an Orchestrator over an already-open store. Callers that
// need config hot-reload construct pkg/config.Watcher separately and
// pass its Current() value to Reload.
func New(db store.Storer, cfg config.Config, embedder collaborator.Embedder, generator collaborator.Generator, log *zap.Logger) (*Orchestrator, error) {
	classifier, err := classify.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: new: %w", err)
	}
	disc, err := disclosure.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: new: %w", err)
	}

	return &Orchestrator{
		cfg:         cfg,
		log:         log,
		db:          db,
		memories:    memstore.New(db, cfg, log),
		ledger:      ledger.New(db),
		classifier:  classifier,
		gates:       gates.New(cfg),
		disclosure:  disc,
		events:      eventlog.New(db),
		embedder:    embedder,
		generator:   generator,
		threadLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Reload swaps in a hot-reloaded config for every config-dependent
// component. It does not affect turns already in flight.
func (o *Orchestrator) Reload(cfg config.Config) error {
	classifier, err := classify.New(cfg)
	if err != nil {
		return fmt.Errorf("orchestrator: reload: %w", err)
	}
	disc, err := disclosure.New(cfg)
	if err != nil {
		return fmt.Errorf("orchestrator: reload: %w", err)
	}
	o.cfg = cfg
	o.classifier = classifier
	o.gates = gates.New(cfg)
	o.disclosure = disc
	o.memories = memstore.New(o.db, cfg, o.log)
	return nil
}

// threadLock returns the serialization lock for one thread_id, creating
// it on first use. Operations within one thread_id are serialized
// end-to-end; distinct thread_ids proceed in parallel (§5).
func (o *Orchestrator) threadLock(threadID string) *sync.Mutex {
	o.threadLocksMu.Lock()
	defer o.threadLocksMu.Unlock()
	l, ok := o.threadLocks[threadID]
	if !ok {
		l = &sync.Mutex{}
		o.threadLocks[threadID] = l
	}
	return l
}

// Turn runs one pass for a single utterance under the thread's lock,
// routing it to the question pathway or the statement pathway.
func (o *Orchestrator) Turn(ctx context.Context, threadID, utterance string, now int64) (Result, error) {
	lock := o.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	extractor := extract.NewExtractor()

	if extractor.IsQuestion(utterance) {
		return o.handleQuestion(ctx, threadID, utterance, now)
	}
	return o.handleStatement(ctx, threadID, utterance, extractor, now)
}

// embedOrFallback embeds text, degrading to a deterministic keyword
// vector on embedder failure (§4.H failure semantics) rather than
// failing the turn.
func (o *Orchestrator) embedOrFallback(ctx context.Context, text string) []float32 {
	embedCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.EmbedderTimeoutSeconds)*time.Second)
	defer cancel()

	vec, err := o.embedder.Embed(embedCtx, text)
	if err != nil {
		o.log.Warn("orchestrator: embedder failed, degrading to keyword fallback", zap.Error(err))
		fallback := collaborator.NewKeywordEmbedder(o.embedder.Dimension())
		vec, _ = fallback.Embed(ctx, text)
	}
	return vec
}

// handleStatement implements §4.H step 3 for an utterance that is not a
// question: extract facts, store each, classify against prior memories on
// the same slot, and record the ledger outcome. It calls no generator and
// runs no gates; it appends one CONTRADICTION event per ledger entry and
// no event when no entry is created.
func (o *Orchestrator) handleStatement(ctx context.Context, threadID, utterance string, extractor *extract.Extractor, now int64) (Result, error) {
	facts := extractor.Extract(utterance)

	var stored []*store.Memory
	var opened []*store.ContradictionEntry

	for _, f := range facts {
		vec := o.embedOrFallback(ctx, utterance)

		prior, err := o.memories.RetrieveBySlot(threadID, f.Slot)
		if err != nil {
			return Result{}, fmt.Errorf("orchestrator: lookup prior for %s: %w", f.Slot, err)
		}

		id, err := o.memories.Put(threadID, utterance, f.Slot, f.Value, store.LaneBelief, store.SourceUser, vec, f.Confidence, now)
		if err != nil {
			return Result{}, fmt.Errorf("orchestrator: store fact: %w", err)
		}
		newMem, err := o.memories.Get(id)
		if err != nil {
			return Result{}, fmt.Errorf("orchestrator: reload stored fact: %w", err)
		}
		stored = append(stored, newMem)

		for _, p := range prior {
			if p.ID == newMem.ID {
				continue
			}
			result := o.classifier.Classify(classify.Input{
				Slot: f.Slot, OldText: p.Text, NewText: utterance,
				OldValue: p.Value, NewValue: f.Value,
				OldVector: p.Vector, NewVector: newMem.Vector,
			})

			confDelta := f.Confidence - p.Confidence
			ledgerID := generateID()
			if err := o.ledger.Record(ledgerID, threadID, p.ID, newMem.ID, result.Topology, result.Drift, confDelta, result.Summary, now); err != nil {
				// Ledger write failure aborts the write pathway (§4.H
				// failure semantics): never silently drop a contradiction.
				return Result{}, fmt.Errorf("orchestrator: record ledger entry: %w", err)
			}
			if result.Topology == store.TopologyConflict || result.Topology == store.TopologyRevision {
				if err := o.memories.EvolveTrust(p, result.Drift, result.Topology, now); err != nil {
					return Result{}, fmt.Errorf("orchestrator: evolve trust: %w", err)
				}
			}
			if result.Topology == store.TopologyConflict {
				opened = append(opened, &store.ContradictionEntry{LedgerID: ledgerID, Topology: result.Topology})
			}

			if err := o.events.Append(&store.EventRecord{
				EventID: generateID(), ThreadID: threadID,
				Kind: store.EventContradiction,
				Payload: map[string]any{
					"ledger_id": ledgerID, "topology": string(result.Topology),
					"old_memory_id": p.ID, "new_memory_id": newMem.ID,
				},
				Timestamp: now,
			}); err != nil {
				return Result{}, fmt.Errorf("orchestrator: append contradiction event: %w", err)
			}
		}
	}

	meta := pool.GetMap()
	meta["stored_memories"] = annotateForMetadata(stored)
	meta["opened_conflicts"] = len(opened)

	return Result{
		Answer:       "noted",
		ResponseType: ResponseConversational,
		GatesPassed:  true,
		GateReason:   "",
		Metadata:     meta,
	}, nil
}

// handleQuestion implements §4.H steps 4-10 for a question utterance:
// retrieve, generate, gate, disclose.
func (o *Orchestrator) handleQuestion(ctx context.Context, threadID, utterance string, now int64) (Result, error) {
	queryVec := o.embedOrFallback(ctx, utterance)

	retrieved, err := o.memories.Retrieve(threadID, memstore.RetrieveOptions{
		K: o.cfg.DefaultRetrieveK, MinTrust: 0, BeliefLane: true, QueryVector: queryVec, Now: now,
	})
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: retrieve: %w", err)
	}

	ids := make([]string, len(retrieved))
	for i, m := range retrieved {
		ids[i] = m.ID
	}
	overlap, err := o.ledger.Overlaps(ids)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: overlaps: %w", err)
	}

	prompt := composePrompt(utterance, retrieved, o.cfg.PIIAnonymization)

	genCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.GeneratorTimeoutSeconds)*time.Second)
	defer cancel()

	answer, genErr := o.generator.Generate(genCtx, prompt, collaborator.GenerateOptions{MaxTokens: 256, Temperature: 0.2})
	isErrorResponse := genErr != nil
	if isErrorResponse {
		o.log.Warn("orchestrator: generator failed", zap.Error(genErr))
		answer = "I could not reach the model."
	}

	respType := classifyResponseType(utterance)

	var gateResult gates.Result
	if !isErrorResponse {
		answerVec := o.embedOrFallback(ctx, answer)
		var answerValue string
		if len(retrieved) > 0 {
			// The top-ranked memory is retrieval's best candidate for what
			// the answer should assert; used only for the substring
			// short-circuit in memory_alignment.
			answerValue = retrieved[0].Value
		}
		gateResult = o.gates.Evaluate(gates.Input{
			ResponseType: gates.ResponseType(respType), AnswerText: answer, AnswerValue: answerValue,
			AnswerVector: answerVec, QueryVector: queryVec,
			RetrievedMemories: retrieved, Blocking: overlap > 0 && hasBlockingConflict(retrieved),
		})
	}

	decision := o.disclosure.Decide(disclosure.Input{
		RetrievedMemories: retrieved, OverlapCount: overlap, GatePass: gateResult.Pass,
		GeneratedAnswer: answer, IsErrorResponse: isErrorResponse,
	})

	if err := o.events.Append(&store.EventRecord{
		EventID: generateID(), ThreadID: threadID,
		Kind: store.EventGateDecision,
		Payload: map[string]any{
			"mode": string(decision.Mode), "gates_passed": gateResult.Pass,
			"gate_reason": gateResult.Reason, "overlap": overlap,
		},
		Timestamp: now,
	}); err != nil {
		return Result{}, fmt.Errorf("orchestrator: append gate event: %w", err)
	}

	meta := pool.GetMap()
	meta["retrieved_memories"] = annotateForMetadata(retrieved)
	meta["disclosure_mode"] = string(decision.Mode)

	return Result{
		Answer:       decision.Answer,
		ResponseType: respType,
		GatesPassed:  gateResult.Pass,
		GateReason:   gateResult.Reason,
		Metadata:     meta,
	}, nil
}

func hasBlockingConflict(memories []*store.Memory) bool {
	for _, m := range memories {
		if m.ReintroducedClaim {
			return true
		}
	}
	return false
}

// classifyResponseType is a coarse substring heuristic over the question
// text itself: text containing "why", "how do", "how does" or "explain"
// is explanatory; text containing "what", "where", "who", "when",
// "how many", "how much" or "do i" is factual; everything else (including
// other "how" questions) falls back to conversational. The gates table has no entry finer than
// these three types.
func classifyResponseType(utterance string) ResponseType {
	lower := strings.ToLower(utterance)
	for _, w := range []string{"why", "how does", "how do", "explain"} {
		if strings.Contains(lower, w) {
			return ResponseExplanatory
		}
	}
	for _, w := range []string{"what", "where", "who", "when", "how many", "how much", "do i"} {
		if strings.Contains(lower, w) {
			return ResponseFactual
		}
	}
	return ResponseConversational
}

// composePrompt builds the generator prompt from retrieved memories.
// When redact is true (config PIIAnonymization), PII is redacted from the
// memory text that reaches the prompt; persisted Memory.text is left
// untouched either way (invariant 1).
func composePrompt(question string, memories []*store.Memory, redact bool) string {
	prompt := "Question: " + question + "\nKnown facts:\n"
	for _, m := range memories {
		text := m.Text
		if redact {
			text = extract.RedactPII(text)
		}
		prompt += "- " + text + "\n"
	}
	return prompt
}

// annotateForMetadata copies each memory's id/value/trust/reintroduced
// fields into the plain-map shape the façade contract (§6) requires:
// every response that includes memories must include reintroduced_claim.
func annotateForMetadata(memories []*store.Memory) []map[string]any {
	out := make([]map[string]any, len(memories))
	for i, m := range memories {
		out[i] = map[string]any{
			"memory_id":         m.ID,
			"slot":              m.Slot,
			"value":             m.Value,
			"trust":             m.Trust,
			"reintroduced_claim": m.ReintroducedClaim,
		}
	}
	return out
}

// generateID creates a random hex id, the same scheme pkg/memstore uses
// for memory ids.
func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
