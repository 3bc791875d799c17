package main

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// CatchAllDetector re-probes a domain with a synthesized, almost
// certainly nonexistent local-part to see whether the MX accepts any
// address. It must only ever be invoked after the user probe comes
// back valid, and it reuses the same MX host sequentially (never
// concurrently with the user probe) to avoid doubling IP-reputation
// risk on the same connection family.
type CatchAllDetector struct {
	prober *SMTPProber
}

func NewCatchAllDetector(prober *SMTPProber) *CatchAllDetector {
	return &CatchAllDetector{prober: prober}
}

// Detect returns true if the synthesized probe address is also
// accepted by mxHost for domain.
func (d *CatchAllDetector) Detect(ctx context.Context, domain, mxHost string) bool {
	probeAddress := "verify_" + randomHexToken() + "@" + domain
	result := d.prober.Probe(ctx, probeAddress, mxHost)
	return result.Outcome == ProbeValid
}

// randomHexToken draws an 8-hex-digit, high-entropy token from a UUIDv4,
// giving at least 32 bits of entropy per call with no practical risk
// of repeats within a process.
func randomHexToken() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}
