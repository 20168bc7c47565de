package classify

// Method names the cascade stage that produced a decision.
type Method string

const (
	MethodPrefilter                  Method = "prefilter"
	MethodModelOnly                  Method = "model_only"
	MethodModelKeywordConsensus      Method = "model_keyword_consensus"
	MethodKeywordOnly                Method = "keyword_only"
	MethodRemoteJudge                Method = "remote_judge"
	MethodModelKeywordConflictRemote Method = "model_keyword_conflict_remote"
	MethodConservativeKeyword        Method = "conservative_keyword"
)

// AllMethods lists every outcome of the cascade in cascade order.
func AllMethods() []Method {
	return []Method{
		MethodPrefilter,
		MethodModelOnly,
		MethodModelKeywordConsensus,
		MethodModelKeywordConflictRemote,
		MethodKeywordOnly,
		MethodRemoteJudge,
		MethodConservativeKeyword,
	}
}

type Result struct {
	Decision     bool    `json:"decision"`
	Confidence   float64 `json:"confidence"`
	Method       Method  `json:"method"`
	KeywordScore float64 `json:"keyword_score"`

	// JudgeConsulted is set whenever the remote judge was called, whether or
	// not it returned a verdict.
	JudgeConsulted bool `json:"judge_consulted"`
}
