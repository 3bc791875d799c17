package main

import "strings"

// composeVerdict implements the total decision tree of spec.md §4.7:
// any combination of check flags maps to exactly one Verdict. email
// is the already-trimmed input address; probeMessage is the free-form
// text that accompanied checks.SMTPStatus, if any probe ran.
func composeVerdict(email string, checks CheckFlags, probeMessage string, provider string) Verdict {
	if !checks.Syntax {
		return finalize(email, StatusInvalid, "Syntax Error", 0, RiskHigh, checks, provider)
	}
	if !checks.MX {
		return finalize(email, StatusInvalid, "Invalid Domain (No MX)", 10, RiskHigh, checks, provider)
	}
	if checks.Disposable {
		return finalize(email, StatusInvalid, "Disposable Domain", 0, RiskCritical, checks, provider)
	}

	status, reason := provisionalStatus(checks.SMTPStatus, probeMessage)

	if status == StatusUnknown {
		status, reason = refineUnknown(checks.SMTPStatus, reason)
	}

	if checks.CatchAll {
		status = StatusCatchAll
		reason = "Accept-All Domain (Cannot verify specific user)"
	}

	risk := riskForStatus(status)
	score := scoreFor(checks, status)
	return finalize(email, status, reason, score, risk, checks, provider)
}

// provisionalStatus derives the pre-catch-all, pre-refinement status
// directly from the user probe's outcome.
func provisionalStatus(outcome ProbeOutcome, message string) (FinalStatus, string) {
	switch outcome {
	case ProbeValid:
		return StatusValid, "Deliverable"
	case ProbeInvalid:
		return StatusInvalid, "User does not exist"
	default:
		return StatusUnknown, message
	}
}

// refineUnknown re-tags a provisional "unknown" using the probe
// outcome's tag, per spec.md §4.7 step 6.
func refineUnknown(outcome ProbeOutcome, reason string) (FinalStatus, string) {
	tag := string(outcome)
	switch {
	case strings.Contains(tag, "timeout"), strings.Contains(tag, "refused"), strings.Contains(tag, "connect"), strings.Contains(tag, "block"):
		return StatusBlocked, "Network/Policy Blocked: " + reason
	case strings.Contains(tag, "auth"):
		return StatusRisky, "Authentication Required: " + reason
	default:
		return StatusUnknown, reason
	}
}

func riskForStatus(status FinalStatus) RiskLevel {
	switch status {
	case StatusValid:
		return RiskLow
	case StatusCatchAll, StatusRisky:
		return RiskMedium
	case StatusBlocked, StatusUnknown, StatusInvalid:
		return RiskHigh
	default:
		return RiskHigh
	}
}

// scoreFor implements the §4.7 score formula. blocked shares unknown's
// +10 bucket (an explicit, documented open-question resolution — see
// DESIGN.md).
func scoreFor(checks CheckFlags, status FinalStatus) int {
	if checks.Disposable || status == StatusInvalid {
		return 0
	}

	score := 0
	if checks.Syntax {
		score += 20
	}
	if checks.MX {
		score += 30
	}

	switch status {
	case StatusValid:
		score += 50
	case StatusCatchAll:
		score += 30
	case StatusRisky:
		score += 25
	case StatusUnknown, StatusBlocked:
		score += 10
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func finalize(email string, status FinalStatus, reason string, score int, risk RiskLevel, checks CheckFlags, provider string) Verdict {
	return Verdict{
		Email:     email,
		Status:    status,
		Reason:    reason,
		Score:     score,
		Provider:  provider,
		RiskLevel: risk,
		Checks:    checks,
	}
}
