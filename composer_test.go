package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeVerdictSyntaxError(t *testing.T) {
	v := composeVerdict("not-an-email", CheckFlags{}, "", "Unknown")
	assert.Equal(t, StatusInvalid, v.Status)
	assert.Equal(t, 0, v.Score)
	assert.Equal(t, RiskHigh, v.RiskLevel)
}

func TestComposeVerdictNoMX(t *testing.T) {
	checks := CheckFlags{Syntax: true}
	v := composeVerdict("user@nonexistent-domain.invalid", checks, "", "Unknown")
	assert.Equal(t, StatusInvalid, v.Status)
	assert.Equal(t, 10, v.Score)
}

func TestComposeVerdictDisposable(t *testing.T) {
	checks := CheckFlags{Syntax: true, Domain: true, MX: true, Disposable: true}
	v := composeVerdict("user@mailinator.com", checks, "", "Custom/Private Server")
	assert.Equal(t, StatusInvalid, v.Status)
	assert.Equal(t, 0, v.Score)
	assert.Equal(t, RiskCritical, v.RiskLevel)
}

func TestComposeVerdictValid(t *testing.T) {
	checks := CheckFlags{Syntax: true, Domain: true, MX: true, SMTPStatus: ProbeValid}
	v := composeVerdict("user@example.com", checks, "SMTP OK", "Google Workspace")
	assert.Equal(t, StatusValid, v.Status)
	assert.Equal(t, 100, v.Score)
	assert.Equal(t, RiskLow, v.RiskLevel)
}

func TestComposeVerdictCatchAllOverridesValid(t *testing.T) {
	checks := CheckFlags{Syntax: true, Domain: true, MX: true, SMTPStatus: ProbeValid, CatchAll: true}
	v := composeVerdict("user@example.com", checks, "SMTP OK", "Google Workspace")
	assert.Equal(t, StatusCatchAll, v.Status)
	assert.Equal(t, RiskMedium, v.RiskLevel)
	assert.Equal(t, 80, v.Score)
}

func TestComposeVerdictInvalidUser(t *testing.T) {
	checks := CheckFlags{Syntax: true, Domain: true, MX: true, SMTPStatus: ProbeInvalid}
	v := composeVerdict("nouser@example.com", checks, "User does not exist (550)", "Google Workspace")
	assert.Equal(t, StatusInvalid, v.Status)
	assert.Equal(t, 0, v.Score)
}

func TestComposeVerdictBlockedRefinement(t *testing.T) {
	checks := CheckFlags{Syntax: true, Domain: true, MX: true, SMTPStatus: ProbeUnknownTimeout}
	v := composeVerdict("user@example.com", checks, "connect to mx:25 failed: i/o timeout", "Custom/Private Server")
	assert.Equal(t, StatusBlocked, v.Status)
	assert.Equal(t, RiskHigh, v.RiskLevel)
	assert.Equal(t, 60, v.Score)
}

func TestComposeVerdictAuthRefinesToRisky(t *testing.T) {
	checks := CheckFlags{Syntax: true, Domain: true, MX: true, SMTPStatus: ProbeUnknownAuth}
	v := composeVerdict("user@example.com", checks, "Authentication Required (code 530)", "Custom/Private Server")
	assert.Equal(t, StatusRisky, v.Status)
	assert.Equal(t, RiskMedium, v.RiskLevel)
	assert.Equal(t, 75, v.Score)
}

// TestScoreAlwaysInBounds exercises invariant P1: score is always in [0,100].
func TestScoreAlwaysInBounds(t *testing.T) {
	statuses := []FinalStatus{StatusValid, StatusInvalid, StatusCatchAll, StatusRisky, StatusBlocked, StatusUnknown}
	for _, disposable := range []bool{true, false} {
		for _, syntax := range []bool{true, false} {
			for _, mx := range []bool{true, false} {
				for _, status := range statuses {
					checks := CheckFlags{Syntax: syntax, MX: mx, Disposable: disposable}
					score := scoreFor(checks, status)
					assert.True(t, score >= 0 && score <= 100, "score %d out of bounds for %+v / %s", score, checks, status)
				}
			}
		}
	}
}

// TestInvalidImpliesLowScore exercises invariant P2: status=invalid implies
// score is 0 or 10.
func TestInvalidImpliesLowScore(t *testing.T) {
	v := composeVerdict("bad", CheckFlags{}, "", "Unknown")
	assert.Contains(t, []int{0, 10}, v.Score)

	v = composeVerdict("user@nonexistent.invalid", CheckFlags{Syntax: true}, "", "Unknown")
	assert.Contains(t, []int{0, 10}, v.Score)
}
