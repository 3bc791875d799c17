package main

import (
	"regexp"
	"strings"
)

// emailRegex is applied to the full trimmed address. A literal dot in
// the domain is required, so single-label (intranet) domains are
// rejected by design.
var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// normalizeAddress trims surrounding whitespace. Case is preserved.
func normalizeAddress(address string) string {
	return strings.TrimSpace(address)
}

// isValidSyntax checks the trimmed address against emailRegex.
func isValidSyntax(address string) bool {
	return emailRegex.MatchString(address)
}

// splitAddress returns the local-part and domain of an address already
// known to be syntactically valid: the domain is everything after the
// last '@'.
func splitAddress(address string) (localPart, domain string) {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return address, ""
	}
	return address[:at], address[at+1:]
}
