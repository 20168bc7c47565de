package classify

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func TestKeywordScorer_StrongInclude(t *testing.T) {
	scorer := NewKeywordScorer(DefaultPolicy())

	score := scorer.Score("New Tyrannosaurus rex fossil found in Montana",
		"Paleontologists uncovered a nearly complete skeleton.")

	// tyrannosaur, fossil, paleontologist = 12, skeleton = 0.5
	if score.Score != 12.5 {
		t.Errorf("Expected score 12.5, got %v", score.Score)
	}
	if score.Confidence != 0.95 {
		t.Errorf("Expected confidence 0.95, got %v", score.Confidence)
	}
	if !score.Decision {
		t.Error("Expected positive decision")
	}
	if len(score.Matched) != 4 {
		t.Errorf("Expected 4 matched keywords, got %v", score.Matched)
	}
}

func TestKeywordScorer_MediumOnly(t *testing.T) {
	scorer := NewKeywordScorer(DefaultPolicy())

	score := scorer.Score("Ancient bones reveal new species", "Researchers described the find in a new paper.")

	if score.Score != 1.5 {
		t.Errorf("Expected score 1.5, got %v", score.Score)
	}
	if score.Confidence != 0.75 {
		t.Errorf("Expected confidence 0.75, got %v", score.Confidence)
	}
}

func TestKeywordScorer_ExcludeMultiplier(t *testing.T) {
	scorer := NewKeywordScorer(DefaultPolicy())

	score := scorer.Score("Asteroid spotted", "")

	// asteroid = 4 * 1.5
	if score.Score != -6 {
		t.Errorf("Expected score -6, got %v", score.Score)
	}
	if score.Decision {
		t.Error("Expected negative decision")
	}
	if score.Confidence != 0.95 {
		t.Errorf("Expected confidence 0.95, got %v", score.Confidence)
	}
}

func TestKeywordScorer_NoMatches(t *testing.T) {
	scorer := NewKeywordScorer(DefaultPolicy())

	score := scorer.Score("Local bakery wins award", "")

	if score.Score != 0 {
		t.Errorf("Expected score 0, got %v", score.Score)
	}
	if score.Decision {
		t.Error("Expected negative decision for zero score")
	}
	if score.Confidence != 0.3 {
		t.Errorf("Expected ambiguous confidence 0.3, got %v", score.Confidence)
	}
}

func TestKeywordScorer_KeywordCountedOnce(t *testing.T) {
	scorer := NewKeywordScorer(DefaultPolicy())

	score := scorer.Score("Fossil fossil FOSSIL", "another fossil")

	if score.Score != 4 {
		t.Errorf("Expected repeated keyword to count once (4), got %v", score.Score)
	}
}

func TestKeywordScorer_ConfidenceMonotonic(t *testing.T) {
	scorer := NewKeywordScorer(DefaultPolicy())

	previous := 0.0
	for _, magnitude := range []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 10} {
		confidence := scorer.confidence(magnitude)
		if confidence < previous {
			t.Errorf("Confidence decreased at |score|=%v: %v < %v", magnitude, confidence, previous)
		}
		if scorer.confidence(-magnitude) != confidence {
			t.Errorf("Confidence should depend on magnitude only at %v", magnitude)
		}
		previous = confidence
	}
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("T-Rex, ＦＯＳＳＩＬ!")
	if got != "t rex  fossil " {
		t.Errorf("Expected normalized text, got %q", got)
	}
}

func TestPrefilterGate(t *testing.T) {
	gate := NewPrefilterGate(DefaultPolicy())

	tests := []struct {
		title    string
		summary  string
		expected Verdict
	}{
		{"New dinosaur species from Argentina", "", Approve},
		{"NASA launches new Mars mission", "", Reject},
		{"Dinosaur fossil scanned with NASA instrument", "", Approve},
		{"새로운 공룡 화석 발견", "", Approve},
		{"Ancient bones reveal new species", "", Undecided},
		{"Weekly roundup", "covid vaccine update", Reject},
	}

	for _, test := range tests {
		got := gate.Check(test.title, test.summary)
		if got != test.expected {
			t.Errorf("Check(%q): expected %s, got %s", test.title, test.expected, got)
		}
	}
}

func TestLoadPolicy_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yml")
	content := `version: 1
keywords:
  strong_include: ["trilobite"]
thresholds:
  judge_confidence: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write policy: %v", err)
	}

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if len(policy.Keywords.StrongInclude) != 1 || policy.Keywords.StrongInclude[0] != "trilobite" {
		t.Errorf("Expected strong_include to be replaced, got %v", policy.Keywords.StrongInclude)
	}
	if policy.Thresholds.JudgeConfidence != 0.7 {
		t.Errorf("Expected judge_confidence 0.7, got %v", policy.Thresholds.JudgeConfidence)
	}
	if policy.Thresholds.KeywordAccept != 0.85 {
		t.Errorf("Expected default keyword_accept to be kept, got %v", policy.Thresholds.KeywordAccept)
	}
	if len(policy.Keywords.MediumInclude) == 0 {
		t.Error("Expected default medium_include to be kept")
	}
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := map[string]string{
		"version":   "version: 2\n",
		"range":     "version: 1\nthresholds:\n  model_accept: 1.5\n",
		"steps":     "version: 1\nthresholds:\n  confidence_steps:\n    - {min_score: 1, confidence: 0.7}\n    - {min_score: 2, confidence: 0.9}\n",
		"malformed": "version: [\n",
		"no steps":  "version: 1\nthresholds:\n  confidence_steps: []\n",
	}

	for name, content := range tests {
		path := filepath.Join(t.TempDir(), name+".yml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write policy: %v", err)
		}
		if _, err := LoadPolicy(path); err == nil {
			t.Errorf("Expected error for %s policy", name)
		}
	}
}

func TestLoadPolicy_EmptyPathUsesDefaults(t *testing.T) {
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := policy.Validate(); err != nil {
		t.Errorf("Default policy should be valid: %v", err)
	}
}

func TestValidate_RequiresConfidenceSteps(t *testing.T) {
	policy := DefaultPolicy()
	policy.Thresholds.ConfidenceSteps = nil

	if err := policy.Validate(); err == nil {
		t.Error("Expected error for policy without confidence steps")
	}
}

func TestKeywordScorer_ConcurrentScore(t *testing.T) {
	scorer := NewKeywordScorer(DefaultPolicy())
	title := "New Tyrannosaurus fossil unearthed"
	summary := "A Cretaceous sauropod skeleton and a bone specimen were found nearby."

	want := scorer.Score(title, summary)

	var wg sync.WaitGroup
	errs := make(chan KeywordScore, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := scorer.Score(title, summary)
				if got.Score != want.Score || !reflect.DeepEqual(got.Matched, want.Matched) {
					errs <- got
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for got := range errs {
		t.Errorf("Expected %v with %v, got %v with %v", want.Score, want.Matched, got.Score, got.Matched)
	}
}
