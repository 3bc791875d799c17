package main

import "strings"

// providerRule is one entry of the ordered substring table. Order
// encodes precedence: the first pattern that matches wins, so entries
// must never be reordered.
type providerRule struct {
	pattern string
	label   string
}

var providerTable = []providerRule{
	{"google", "Google Workspace"},
	{"gmail", "Google Workspace"},
	{"outlook", "Microsoft Office 365"},
	{"microsoft", "Microsoft Office 365"},
	{"hotmail", "Microsoft Office 365"},
	{"pp.hosted", "Proofpoint (Enterprise)"},
	{"proofpoint", "Proofpoint (Enterprise)"},
	{"mimecast", "Mimecast (Enterprise)"},
	{"yandex", "Yandex"},
	{"zoho", "Zoho Mail"},
	{"yahoo", "Yahoo/AOL"},
	{"icloud", "Apple iCloud"},
	{"apple", "Apple iCloud"},
	{"proton", "ProtonMail"},
	{"fastmail", "FastMail"},
	{"gmx", "GMX Mail"},
	{"mail.ru", "Mail.ru"},
	{"mailru", "Mail.ru"},
	{"mailgun", "Mailgun"},
	{"sendgrid", "SendGrid"},
	{"rackspace", "Rackspace Email"},
	{"1and1", "IONOS (1&1)"},
	{"ionos", "IONOS (1&1)"},
	{"godaddy", "GoDaddy"},
}

// identifyProvider maps an MX record set to a human provider label by
// scanning the concatenated lowercased exchange names against
// providerTable in order. Empty input returns "Unknown".
func identifyProvider(records []MXRecord) string {
	if len(records) == 0 {
		return "Unknown"
	}

	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(strings.ToLower(r.Exchange))
		sb.WriteByte(' ')
	}
	joined := sb.String()

	for _, rule := range providerTable {
		if strings.Contains(joined, rule.pattern) {
			return rule.label
		}
	}
	return "Custom/Private Server"
}
