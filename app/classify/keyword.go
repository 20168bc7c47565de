package classify

import "math"

// KeywordScore is the outcome of the keyword tier scoring.
type KeywordScore struct {
	Score        float64
	Confidence   float64
	Decision     bool
	IncludeScore float64
	ExcludeScore float64
	Matched      []string
}

type KeywordScorer struct {
	strongInclude *keywordSet
	strongExclude *keywordSet
	mediumInclude *keywordSet
	mediumExclude *keywordSet
	weights       KeywordWeights
	steps         []ConfidenceStep
	ambiguous     float64
}

func NewKeywordScorer(policy *Policy) *KeywordScorer {
	return &KeywordScorer{
		strongInclude: newKeywordSet(policy.Keywords.StrongInclude),
		strongExclude: newKeywordSet(policy.Keywords.StrongExclude),
		mediumInclude: newKeywordSet(policy.Keywords.MediumInclude),
		mediumExclude: newKeywordSet(policy.Keywords.MediumExclude),
		weights:       policy.Weights,
		steps:         policy.Thresholds.ConfidenceSteps,
		ambiguous:     policy.Thresholds.AmbiguousConfidence,
	}
}

func (s *KeywordScorer) Score(title, summary string) KeywordScore {
	text := combinedText(title, summary)

	strongInc := s.strongInclude.Match(text)
	strongExc := s.strongExclude.Match(text)
	mediumInc := s.mediumInclude.Match(text)
	mediumExc := s.mediumExclude.Match(text)

	strongIncTotal := float64(len(strongInc)) * s.weights.Strong
	strongExcTotal := float64(len(strongExc)) * s.weights.Strong
	mediumIncTotal := float64(len(mediumInc)) * s.weights.Medium
	mediumExcTotal := float64(len(mediumExc)) * s.weights.Medium

	include := strongIncTotal + mediumIncTotal*s.weights.MediumFactor
	exclude := (strongExcTotal + mediumExcTotal*s.weights.MediumFactor) * s.weights.ExcludeMultiplier
	score := include - exclude

	matched := make([]string, 0, len(strongInc)+len(mediumInc))
	matched = append(matched, strongInc...)
	matched = append(matched, mediumInc...)

	return KeywordScore{
		Score:        score,
		Confidence:   s.confidence(score),
		Decision:     score > 0,
		IncludeScore: include,
		ExcludeScore: exclude,
		Matched:      matched,
	}
}

// confidence is a step function of |score|, non-decreasing in magnitude.
func (s *KeywordScorer) confidence(score float64) float64 {
	magnitude := math.Abs(score)
	for _, step := range s.steps {
		if magnitude >= step.MinScore {
			return step.Confidence
		}
	}
	return s.ambiguous
}
