package classify

import (
	"context"
	"errors"
	"log/slog"
	"math"
)

// Orchestrator runs the relevance cascade:
// prefilter → model (optional) → keywords → remote judge → conservative default.
type Orchestrator struct {
	gate       *PrefilterGate
	scorer     *KeywordScorer
	model      Model
	judge      Judge
	thresholds CascadeThreshold
}

// NewOrchestrator builds the cascade. model and judge may be nil.
func NewOrchestrator(policy *Policy, model Model, judge Judge) *Orchestrator {
	return &Orchestrator{
		gate:       NewPrefilterGate(policy),
		scorer:     NewKeywordScorer(policy),
		model:      model,
		judge:      judge,
		thresholds: policy.Thresholds,
	}
}

func (o *Orchestrator) HasModel() bool {
	return o.model != nil
}

func (o *Orchestrator) HasJudge() bool {
	return o.judge != nil
}

func (o *Orchestrator) Classify(ctx context.Context, title, summary string) Result {
	t := o.thresholds

	switch o.gate.Check(title, summary) {
	case Approve:
		return Result{Decision: true, Confidence: t.PrefilterConfidence, Method: MethodPrefilter}
	case Reject:
		slog.Debug("Prefilter rejected item", "title", title)
		return Result{Decision: false, Confidence: t.PrefilterConfidence, Method: MethodPrefilter}
	}

	if o.model != nil {
		if result, ok := o.classifyWithModel(ctx, title, summary); ok {
			return result
		}
	}

	keyword := o.scorer.Score(title, summary)
	if keyword.Confidence >= t.KeywordAccept {
		return Result{
			Decision:     keyword.Decision,
			Confidence:   keyword.Confidence,
			Method:       MethodKeywordOnly,
			KeywordScore: keyword.Score,
		}
	}

	relevant, err := o.askJudge(ctx, title, summary)
	if err == nil {
		return Result{
			Decision:       relevant,
			Confidence:     t.JudgeConfidence,
			Method:         MethodRemoteJudge,
			KeywordScore:   keyword.Score,
			JudgeConsulted: true,
		}
	}

	return Result{
		Decision:       keyword.Score >= t.ConservativeMinScore,
		Confidence:     t.ConservativeConfidence,
		Method:         MethodConservativeKeyword,
		KeywordScore:   keyword.Score,
		JudgeConsulted: o.judge != nil,
	}
}

// classifyWithModel returns ok=false when the model could not produce a
// verdict, in which case the caller continues on the keyword path.
func (o *Orchestrator) classifyWithModel(ctx context.Context, title, summary string) (Result, bool) {
	t := o.thresholds

	verdict, err := o.model.Infer(ctx, title, summary)
	if err != nil {
		slog.Warn("Model inference failed, continuing without model", "error", err)
		return Result{}, false
	}

	if verdict.Confidence >= t.ModelAccept {
		return Result{
			Decision:   verdict.Decision,
			Confidence: verdict.Confidence,
			Method:     MethodModelOnly,
		}, true
	}

	keyword := o.scorer.Score(title, summary)
	if verdict.Decision == keyword.Decision {
		return Result{
			Decision:     verdict.Decision,
			Confidence:   math.Min(t.ConsensusCap, verdict.Confidence+t.ConsensusBoost),
			Method:       MethodModelKeywordConsensus,
			KeywordScore: keyword.Score,
		}, true
	}

	slog.Debug("Model and keywords disagree, asking remote judge", "title", title,
		"model_decision", verdict.Decision, "keyword_score", keyword.Score)

	relevant, err := o.askJudge(ctx, title, summary)
	if err == nil {
		return Result{
			Decision:       relevant,
			Confidence:     t.ConflictConfidence,
			Method:         MethodModelKeywordConflictRemote,
			KeywordScore:   keyword.Score,
			JudgeConsulted: true,
		}, true
	}

	return Result{
		Decision:       verdict.Decision,
		Confidence:     verdict.Confidence,
		Method:         MethodModelOnly,
		KeywordScore:   keyword.Score,
		JudgeConsulted: o.judge != nil,
	}, true
}

func (o *Orchestrator) askJudge(ctx context.Context, title, summary string) (bool, error) {
	if o.judge == nil {
		return false, ErrNoVerdict
	}

	relevant, err := o.judge.Judge(ctx, title, summary)
	if err != nil {
		if !errors.Is(err, ErrNoVerdict) {
			err = errors.Join(ErrNoVerdict, err)
		}
		slog.Info("Remote judge unavailable, falling back", "title", title, "error", err)
		return false, err
	}
	return relevant, nil
}

// Score exposes the keyword stage on its own, for dry runs.
func (o *Orchestrator) Score(title, summary string) KeywordScore {
	return o.scorer.Score(title, summary)
}

func (o *Orchestrator) Prefilter(title, summary string) Verdict {
	return o.gate.Check(title, summary)
}
