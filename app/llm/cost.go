package llm

// Pricing per 1M tokens in USD.
var modelPricing = map[string]struct {
	InputPer1M  float64
	OutputPer1M float64
}{
	"gpt-4o-mini":               {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4o":                    {InputPer1M: 2.50, OutputPer1M: 10.00},
	"claude-3-5-haiku-20241022": {InputPer1M: 0.80, OutputPer1M: 4.00},
	"claude-sonnet-4-20250514":  {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-haiku-4-5-20251001": {InputPer1M: 1.00, OutputPer1M: 5.00},
}

// CalculateCost estimates the cost of one call. Unknown models cost 0.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}

	inputCost := float64(inputTokens) / 1_000_000 * pricing.InputPer1M
	outputCost := float64(outputTokens) / 1_000_000 * pricing.OutputPer1M

	return inputCost + outputCost
}

func (r Response) Cost() float64 {
	return CalculateCost(r.Model, r.InputTokens, r.OutputTokens)
}
