package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyVersion is bumped whenever the meaning of a Policy field changes.
const PolicyVersion = 1

// Policy is the single source of keyword tiers, weights and cascade thresholds.
// It is injected into the gate, the scorer and the orchestrator.
type Policy struct {
	Version    int              `yaml:"version"`
	Prefilter  PrefilterPolicy  `yaml:"prefilter"`
	Keywords   KeywordTiers     `yaml:"keywords"`
	Weights    KeywordWeights   `yaml:"weights"`
	Thresholds CascadeThreshold `yaml:"thresholds"`
}

type PrefilterPolicy struct {
	Approve []string `yaml:"approve"`
	Reject  []string `yaml:"reject"`
}

type KeywordTiers struct {
	StrongInclude []string `yaml:"strong_include"`
	StrongExclude []string `yaml:"strong_exclude"`
	MediumInclude []string `yaml:"medium_include"`
	MediumExclude []string `yaml:"medium_exclude"`
}

type KeywordWeights struct {
	Strong            float64 `yaml:"strong"`
	Medium            float64 `yaml:"medium"`
	MediumFactor      float64 `yaml:"medium_factor"`
	ExcludeMultiplier float64 `yaml:"exclude_multiplier"`
}

// ConfidenceStep maps |score| >= MinScore to Confidence.
type ConfidenceStep struct {
	MinScore   float64 `yaml:"min_score"`
	Confidence float64 `yaml:"confidence"`
}

type CascadeThreshold struct {
	// Steps must be ordered by MinScore descending.
	ConfidenceSteps     []ConfidenceStep `yaml:"confidence_steps"`
	AmbiguousConfidence float64          `yaml:"ambiguous_confidence"`

	PrefilterConfidence float64 `yaml:"prefilter_confidence"`

	ModelAccept        float64 `yaml:"model_accept"`
	ConsensusBoost     float64 `yaml:"consensus_boost"`
	ConsensusCap       float64 `yaml:"consensus_cap"`
	ConflictConfidence float64 `yaml:"conflict_confidence"`

	KeywordAccept          float64 `yaml:"keyword_accept"`
	JudgeConfidence        float64 `yaml:"judge_confidence"`
	ConservativeMinScore   float64 `yaml:"conservative_min_score"`
	ConservativeConfidence float64 `yaml:"conservative_confidence"`
}

// DefaultPolicy returns the dinosaur/paleontology policy.
func DefaultPolicy() *Policy {
	return &Policy{
		Version: PolicyVersion,
		Prefilter: PrefilterPolicy{
			Approve: []string{
				"dinosaur", "paleontology", "공룡", "고생물학",
			},
			Reject: []string{
				"nasa", "spacex", "mars rover", "spacecraft", "astronaut", "space station",
				"telescope", "exoplanet", "black hole", "neutron star", "supernova", "galaxy", "galaxies",
				"rocket launch", "solar system", "james webb", "jwst", "lunar",
				"covid", "vaccine", "clinical trial", "cancer treatment", "pharmaceutical",
				"election", "stock market", "cryptocurrency",
				"우주", "로켓", "블랙홀", "은하",
			},
		},
		Keywords: KeywordTiers{
			StrongInclude: []string{
				"dinosaur", "fossil", "paleontology", "paleontologist",
				"cretaceous", "jurassic", "triassic", "mesozoic", "extinct reptile", "tyrannosaur",
				"sauropod", "theropod", "ceratopsian", "hadrosau", "triceratops",
				"stegosaurus", "velociraptor", "pterosaur", "archaeopteryx", "prehistoric reptile",
				"paleocene", "brachiosaurus", "allosaurus", "spinosaurus", "iguanodon",
				"공룡", "화석", "고생물학", "백악기", "쥐라기", "트라이아스기",
			},
			StrongExclude: []string{
				"cancer treatment", "human disease", "covid", "vaccine", "clinical trial",
				"patient study", "medical diagnosis", "pharmaceutical", "hospital", "therapy",
				"human skull", "human remains", "modern medicine", "drug",
				"politics", "stock market", "economic", "business", "cryptocurrency", "election",
				"smartphone", "ai technology", "nanotechnology", "quantum computing",
				"rocket launch", "space mission", "satellite", "mars rover", "spacecraft",
				"black hole", "neutron star", "supernova", "galaxy", "galaxies",
				"exoplanet", "planet", "asteroid", "comet", "meteor", "solar system",
				"jupiter", "saturn", "neptune", "lunar", "astronaut", "space station",
				"telescope", "hubble", "james webb", "jwst", "observatory",
				"orbit", "celestial", "cosmic", "cosmos", "stellar", "nebula",
				"dark matter", "dark energy", "big bang", "cosmology", "astrophysics", "astronomy",
				"light year", "gravitational wave", "space exploration", "nasa", "spacex",
				"우주", "행성", "위성", "로켓", "천문학", "블랙홀", "은하", "목성",
				"homo sapiens", "homo erectus", "primates", "neanderthal", "denisovan",
				"human evolution", "anthropology", "neutrino", "particle physics",
			},
			MediumInclude: []string{
				"ancient", "prehistoric", "extinct", "evolution", "specimen", "excavation",
				"discovery", "bone", "skeleton", "species", "vertebrate", "reptile",
				"sedimentary", "geological", "stratigraphy",
			},
			MediumExclude: []string{
				"modern animal", "human archaeology", "medical research", "technology",
				"engineering", "plant biology", "marine biology", "cell biology",
				"molecular biology", "genetics study", "climate model", "weather",
				"ocean current", "volcano", "earthquake",
			},
		},
		Weights: KeywordWeights{
			Strong:            4,
			Medium:            1,
			MediumFactor:      0.5,
			ExcludeMultiplier: 1.5,
		},
		Thresholds: CascadeThreshold{
			ConfidenceSteps: []ConfidenceStep{
				{MinScore: 3, Confidence: 0.95},
				{MinScore: 2, Confidence: 0.85},
				{MinScore: 1, Confidence: 0.75},
			},
			AmbiguousConfidence:    0.3,
			PrefilterConfidence:    0.99,
			ModelAccept:            0.7,
			ConsensusBoost:         0.15,
			ConsensusCap:           0.85,
			ConflictConfidence:     0.75,
			KeywordAccept:          0.85,
			JudgeConfidence:        0.8,
			ConservativeMinScore:   2,
			ConservativeConfidence: 0.6,
		},
	}
}

// LoadPolicy reads a YAML policy file and overlays it on DefaultPolicy.
// Keyword lists present in the file replace the defaults; absent ones are kept.
func LoadPolicy(path string) (*Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}

	return policy, nil
}

func (p *Policy) Validate() error {
	if p.Version != PolicyVersion {
		return fmt.Errorf("unsupported policy version %d (expected %d)", p.Version, PolicyVersion)
	}
	if len(p.Keywords.StrongInclude) == 0 {
		return fmt.Errorf("strong_include keywords are required")
	}

	nonNegative := map[string]float64{
		"weights.strong":             p.Weights.Strong,
		"weights.medium":             p.Weights.Medium,
		"weights.medium_factor":      p.Weights.MediumFactor,
		"weights.exclude_multiplier": p.Weights.ExcludeMultiplier,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}

	unit := map[string]float64{
		"thresholds.ambiguous_confidence":    p.Thresholds.AmbiguousConfidence,
		"thresholds.prefilter_confidence":    p.Thresholds.PrefilterConfidence,
		"thresholds.model_accept":            p.Thresholds.ModelAccept,
		"thresholds.consensus_cap":           p.Thresholds.ConsensusCap,
		"thresholds.conflict_confidence":     p.Thresholds.ConflictConfidence,
		"thresholds.keyword_accept":          p.Thresholds.KeywordAccept,
		"thresholds.judge_confidence":        p.Thresholds.JudgeConfidence,
		"thresholds.conservative_confidence": p.Thresholds.ConservativeConfidence,
	}
	for name, value := range unit {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be within [0,1]", name)
		}
	}

	if len(p.Thresholds.ConfidenceSteps) == 0 {
		return fmt.Errorf("at least one confidence_steps entry is required")
	}
	for i := 1; i < len(p.Thresholds.ConfidenceSteps); i++ {
		prev, cur := p.Thresholds.ConfidenceSteps[i-1], p.Thresholds.ConfidenceSteps[i]
		if cur.MinScore >= prev.MinScore {
			return fmt.Errorf("confidence_steps must be ordered by min_score descending (index %d)", i)
		}
		if cur.Confidence > prev.Confidence {
			return fmt.Errorf("confidence_steps must not increase as min_score decreases (index %d)", i)
		}
	}

	return nil
}
