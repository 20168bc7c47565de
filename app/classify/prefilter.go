package classify

type Verdict int

const (
	Undecided Verdict = iota
	Approve
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Approve:
		return "approve"
	case Reject:
		return "reject"
	default:
		return "undecided"
	}
}

// PrefilterGate short-circuits clearly on- and off-domain items before any
// heavier stage runs. Approve keywords win over reject keywords.
type PrefilterGate struct {
	approve *keywordSet
	reject  *keywordSet
}

func NewPrefilterGate(policy *Policy) *PrefilterGate {
	return &PrefilterGate{
		approve: newKeywordSet(policy.Prefilter.Approve),
		reject:  newKeywordSet(policy.Prefilter.Reject),
	}
}

func (g *PrefilterGate) Check(title, summary string) Verdict {
	text := combinedText(title, summary)

	if g.approve.Any(text) {
		return Approve
	}
	if g.reject.Any(text) {
		return Reject
	}
	return Undecided
}
