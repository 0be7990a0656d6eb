// Package config holds the engine's runtime-reloadable settings: lane
// weights, gate thresholds, retention, and collaborator identifiers, as
// described by the storage/runtime configuration contract. Mirrors the
// flat Config/UpdateConfig/IsConfigured shape the rest of this codebase's
// service constructors use.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GateThresholds are the per-response-type pass bars for the
// Reconstruction Gates (intent_alignment, memory_alignment, grounding).
// A zero Grounding threshold (conversational) means grounding is not
// evaluated for that type.
type GateThresholds struct {
	Intent    float64 `yaml:"intent"`
	Memory    float64 `yaml:"memory"`
	Grounding float64 `yaml:"grounding"`
}

// Config is the flat, hot-reloadable configuration surface. Every
// component receives it by construction (passed in, never looked up
// ambiently), per the re-architecture note against global mutable state.
type Config struct {
	ThetaContra float64 `yaml:"theta_contra"`
	ThetaMem    float64 `yaml:"theta_mem"`

	// Retrieval scoring weights: alpha*cos + beta*trust + gamma*recency.
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Gamma float64 `yaml:"gamma"`

	// SpeechLanePenalty multiplies a SPEECH memory's score when retrieval
	// was requested for the belief lane.
	SpeechLanePenalty float64 `yaml:"speech_lane_penalty"`

	// RecencyHalfLifeSeconds controls recency_decay(now - created_at) =
	// 0.5^(age/halfLife); not named by the external spec, but retrieval's
	// weighted score needs a concrete decay shape.
	RecencyHalfLifeSeconds float64 `yaml:"recency_half_life_seconds"`

	GateFactual        GateThresholds `yaml:"gate_factual"`
	GateExplanatory    GateThresholds `yaml:"gate_explanatory"`
	GateConversational GateThresholds `yaml:"gate_conversational"`

	// RefinementSimLow/High bound the cosine-similarity band that, for a
	// hierarchical slot, classifies as REFINEMENT instead of CONFLICT.
	RefinementSimLow  float64 `yaml:"refinement_sim_low"`
	RefinementSimHigh float64 `yaml:"refinement_sim_high"`

	// Trust evolution.
	TrustFloor          float64 `yaml:"trust_floor"`
	TrustCeiling        float64 `yaml:"trust_ceiling"`
	ConflictLambda      float64 `yaml:"conflict_lambda"`
	RevisionLambda      float64 `yaml:"revision_lambda"`
	ReinforceSimilarity float64 `yaml:"reinforce_similarity"`
	ReinforceStep       float64 `yaml:"reinforce_step"`

	RetentionDays     int  `yaml:"retention_days"`
	PIIAnonymization  bool `yaml:"pii_anonymization"`
	DefaultRetrieveK  int  `yaml:"default_retrieve_k"`

	EmbedderModel  string `yaml:"embedder_model"`
	GeneratorModel string `yaml:"generator_model"`

	EmbedderTimeoutSeconds  int `yaml:"embedder_timeout_seconds"`
	GeneratorTimeoutSeconds int `yaml:"generator_timeout_seconds"`

	// CaveatPhrases is the shared vocabulary built once into an
	// Aho-Corasick automaton by pkg/disclosure, so detection and
	// generation never drift apart (open question resolution, §9).
	CaveatPhrases []string `yaml:"caveat_phrases"`

	// RevisionKeywords and TemporalKeywords feed pkg/classify's
	// Aho-Corasick keyword matchers.
	RevisionKeywords []string `yaml:"revision_keywords"`
	TemporalKeywords []string `yaml:"temporal_keywords"`
}

// Default returns the configuration described in the external interfaces
// contract: theta_contra 0.42, theta_mem 0.37, default lane weights
// 0.6/0.3/0.1, gate thresholds per response type, retention 90 days,
// PII-anonymization on.
func Default() Config {
	return Config{
		ThetaContra:       0.42,
		ThetaMem:          0.37,
		Alpha:             0.6,
		Beta:              0.3,
		Gamma:             0.1,
		SpeechLanePenalty:      0.5,
		RecencyHalfLifeSeconds: 7 * 24 * 3600,

		GateFactual:        GateThresholds{Intent: 0.35, Memory: 0.35, Grounding: 0.40},
		GateExplanatory:    GateThresholds{Intent: 0.40, Memory: 0.25, Grounding: 0.30},
		GateConversational: GateThresholds{Intent: 0.30, Memory: 0.20, Grounding: 0},

		RefinementSimLow:  0.7,
		RefinementSimHigh: 0.9,

		TrustFloor:          0.3,
		TrustCeiling:        0.95,
		ConflictLambda:      0.5,
		RevisionLambda:      0.3,
		ReinforceSimilarity: 0.9,
		ReinforceStep:       0.1,

		RetentionDays:    90,
		PIIAnonymization: true,
		DefaultRetrieveK: 6,

		EmbedderModel:  "keyword-fallback-v1",
		GeneratorModel: "unset",

		EmbedderTimeoutSeconds:  5,
		GeneratorTimeoutSeconds: 30,

		CaveatPhrases: []string{
			"most recent update", "latest", "though i have conflicting records",
			"according to latest information", "updated", "previously",
		},
		RevisionKeywords: []string{
			"actually", "correction", "i meant", "not", "wrong", "mistake",
		},
		TemporalKeywords: []string{
			"now", "currently", "promoted", "became", "these days", "as of",
		},
	}
}

// Load reads a YAML config file, applying its fields on top of Default()
// so a partial file is always valid.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// GateThresholdsFor returns the thresholds for a named response type.
func (c Config) GateThresholdsFor(responseType string) GateThresholds {
	switch responseType {
	case "factual":
		return c.GateFactual
	case "explanatory":
		return c.GateExplanatory
	default:
		return c.GateConversational
	}
}
