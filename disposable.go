package main

import "strings"

// disposableDomains is the compile-time-loaded registry of known
// disposable-mail domains. ExtendDisposableRegistry may add to it at
// config-load time; it is never modified per-request.
var disposableDomains = map[string]bool{
	"mailinator.com":     true,
	"guerrillamail.com":  true,
	"yopmail.com":        true,
	"10minutemail.com":   true,
	"sharklasers.com":    true,
	"tempmail.com":       true,
	"throwawaymail.com":  true,
}

// ExtendDisposableRegistry merges additional domains into the static
// registry. Intended to be called once at startup from the config
// loader, never per-request.
func ExtendDisposableRegistry(domains []string) {
	for _, d := range domains {
		disposableDomains[strings.ToLower(strings.TrimSpace(d))] = true
	}
}

// isDisposableDomain reports whether domain belongs to a known
// disposable-mail provider. Comparison is case-insensitive.
func isDisposableDomain(domain string) bool {
	return disposableDomains[strings.ToLower(domain)]
}
