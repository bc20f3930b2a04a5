package validation

import (
	"fmt"
	"strings"
)

// CheckResult reports the deterministic rule checks for one request.
// Every failing sub-check is reported individually for diagnostics.
type CheckResult struct {
	Passed           bool     `json:"passed"`
	CommandKindMatch float64  `json:"command_kind_match"`
	ASRConfidenceOK  bool     `json:"asr_confidence_ok"`
	PhraseViolations []string `json:"phrase_violations,omitempty"`
}

// Check runs the rule-based checks against the structured platform response:
// exact command-kind match, ASR confidence floor, required phrases present,
// forbidden phrases absent.
func Check(req *Request) CheckResult {
	res := CheckResult{}

	if strings.EqualFold(strings.TrimSpace(req.Response.CommandKind), strings.TrimSpace(req.Expected.CommandKind)) {
		res.CommandKindMatch = 1.0
	}

	res.ASRConfidenceOK = req.Response.ASRConfidence >= req.Expected.MinASRConfidence

	spoken := strings.ToLower(req.Response.SpokenResponse)
	for _, phrase := range req.Expected.RequiredPhrases {
		if !strings.Contains(spoken, strings.ToLower(phrase)) {
			res.PhraseViolations = append(res.PhraseViolations,
				fmt.Sprintf("required phrase %q not found in response", phrase))
		}
	}
	for _, phrase := range req.Expected.ForbiddenPhrases {
		if strings.Contains(spoken, strings.ToLower(phrase)) {
			res.PhraseViolations = append(res.PhraseViolations,
				fmt.Sprintf("forbidden phrase %q present in response", phrase))
		}
	}

	res.Passed = res.CommandKindMatch == 1.0 && res.ASRConfidenceOK && len(res.PhraseViolations) == 0
	return res
}
