package main

import "context"

// Pipeline runs the staged, cheap-to-expensive inspection described in
// spec.md §2 for a single address, without touching the cache — cache
// lookup/write is the Request Orchestrator's job (orchestrator.go).
type Pipeline struct {
	resolver *MXResolver
	prober   *SMTPProber
	catchAll *CatchAllDetector
}

func NewPipeline(resolver *MXResolver, prober *SMTPProber, catchAll *CatchAllDetector) *Pipeline {
	return &Pipeline{resolver: resolver, prober: prober, catchAll: catchAll}
}

// Evaluate runs the full decision tree for one already-cache-missed
// address and returns a composed Verdict.
func (p *Pipeline) Evaluate(ctx context.Context, rawAddress string) Verdict {
	address := normalizeAddress(rawAddress)

	checks := CheckFlags{SMTPStatus: ProbeSkipped}

	if !isValidSyntax(address) {
		return composeVerdict(address, checks, "", "Unknown")
	}
	checks.Syntax = true

	_, domain := splitAddress(address)
	checks.Domain = domain != ""

	records, ok := p.resolver.Resolve(ctx, domain)
	if !ok {
		return composeVerdict(address, checks, "", "Unknown")
	}
	checks.MX = true

	provider := identifyProvider(records)
	checks.Disposable = isDisposableDomain(domain)
	if checks.Disposable {
		return composeVerdict(address, checks, "", provider)
	}

	mxHost := records[0].Exchange
	probeResult := p.prober.Probe(ctx, address, mxHost)
	checks.SMTPStatus = probeResult.Outcome

	if probeResult.Outcome == ProbeValid {
		checks.CatchAll = p.catchAll.Detect(ctx, domain, mxHost)
	}

	return composeVerdict(address, checks, probeResult.Message, provider)
}
