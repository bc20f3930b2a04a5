package litellm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voxcheck/voxcheck/internal/domain/verdict"
	"github.com/voxcheck/voxcheck/internal/port/evaluator"
)

const evaluatorSystemPrompt = `You are a strict QA judge for a voice assistant.
Given the user's utterance, what the assistant did, and what the test script
expected, decide whether the assistant's behavior was correct.

Respond with ONLY a JSON object, no prose around it:
{"score": <float 0.0-1.0>, "decision": "pass"|"fail"|"needs_review", "reasoning": "<one or two sentences>", "confidence": "high"|"medium"|"low"}`

const curatorSystemPrompt = `You are the senior arbiter for a voice assistant QA
panel. Two judges disagreed on the case below; their verdicts are included.
Weigh both and issue the final ruling.

Respond with ONLY a JSON object, no prose around it:
{"score": <float 0.0-1.0>, "decision": "pass"|"fail"|"needs_review", "reasoning": "<one or two sentences>", "confidence": "high"|"medium"|"low"}`

// Evaluate implements evaluator.Client: one model call returning a parsed
// verdict. When in.PriorVerdicts is non-empty the call is a curator
// tie-break and the disagreeing verdicts are included in the prompt.
func (c *Client) Evaluate(ctx context.Context, model string, in evaluator.Input) (verdict.EvaluatorVerdict, error) {
	system := evaluatorSystemPrompt
	if len(in.PriorVerdicts) > 0 {
		system = curatorSystemPrompt
	}

	resp, err := c.ChatCompletion(ctx, ChatCompletionRequest{
		Model: model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: buildCasePrompt(in)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return verdict.EvaluatorVerdict{}, fmt.Errorf("evaluate with %s: %w", model, err)
	}

	v, err := parseVerdict(resp.Content)
	if err != nil {
		return verdict.EvaluatorVerdict{}, fmt.Errorf("evaluate with %s: %w", model, err)
	}
	v.Evaluator = model
	return v, nil
}

// SetCompletionParams overrides the sampling parameters for Evaluate calls.
func (c *Client) SetCompletionParams(temperature float64, maxTokens int) {
	c.temperature = temperature
	c.maxTokens = maxTokens
}

func buildCasePrompt(in evaluator.Input) string {
	var b strings.Builder

	if len(in.History) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range in.History {
			fmt.Fprintf(&b, "  [%s] %s\n", t.Role, t.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Step %d.\n", in.StepOrder)
	fmt.Fprintf(&b, "User said: %q\n", in.Transcript)
	fmt.Fprintf(&b, "Assistant replied: %q\n", in.SpokenResponse)
	fmt.Fprintf(&b, "Assistant resolved command: %q (expected %q)\n",
		in.ActualCommandKind, in.ExpectedCommandKind)

	if len(in.ExpectedEntities) > 0 {
		b.WriteString("Expected entities:\n")
		for k, v := range in.ExpectedEntities {
			fmt.Fprintf(&b, "  %s = %q\n", k, v)
		}
	}

	if len(in.PriorVerdicts) > 0 {
		b.WriteString("\nDisagreeing judge verdicts:\n")
		for _, pv := range in.PriorVerdicts {
			fmt.Fprintf(&b, "  %s: score=%.2f decision=%s confidence=%s reasoning=%q\n",
				pv.Evaluator, pv.Score, pv.Decision, pv.Tier, pv.Reasoning)
		}
	}

	return b.String()
}

// parseVerdict extracts the verdict JSON from a model response. Models wrap
// JSON in markdown fences or preamble often enough that we scan for the
// outermost object instead of unmarshaling the raw content.
func parseVerdict(content string) (verdict.EvaluatorVerdict, error) {
	raw := extractJSON(content)
	if raw == "" {
		return verdict.EvaluatorVerdict{}, fmt.Errorf("no JSON object in model response: %s", truncate(content, 200))
	}

	var parsed struct {
		Score      float64 `json:"score"`
		Decision   string  `json:"decision"`
		Reasoning  string  `json:"reasoning"`
		Confidence string  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return verdict.EvaluatorVerdict{}, fmt.Errorf("parse verdict JSON: %w", err)
	}

	v := verdict.EvaluatorVerdict{
		Score:     clamp01(parsed.Score),
		Reasoning: parsed.Reasoning,
	}

	switch verdict.Decision(strings.ToLower(strings.TrimSpace(parsed.Decision))) {
	case verdict.DecisionPass:
		v.Decision = verdict.DecisionPass
	case verdict.DecisionFail:
		v.Decision = verdict.DecisionFail
	case verdict.DecisionNeedsReview:
		v.Decision = verdict.DecisionNeedsReview
	default:
		return verdict.EvaluatorVerdict{}, fmt.Errorf("unknown decision %q in model response", parsed.Decision)
	}

	switch verdict.Tier(strings.ToLower(strings.TrimSpace(parsed.Confidence))) {
	case verdict.TierHigh:
		v.Tier = verdict.TierHigh
	case verdict.TierLow:
		v.Tier = verdict.TierLow
	default:
		v.Tier = verdict.TierMedium
	}

	return v, nil
}

// extractJSON returns the first balanced top-level JSON object in s.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
