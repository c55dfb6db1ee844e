package harvest

import "strings"

// excludedDomains are consumer mailbox providers. An address there is almost
// never the business's own contact.
var excludedDomains = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
	"live.com":    {},
	"msn.com":     {},
	"aol.com":     {},
	"icloud.com":  {},
}

// rolePatterns mark automated or shared role mailboxes
var rolePatterns = []string{
	"noreply",
	"no-reply",
	"donotreply",
	"support@",
	"info@",
	"contact@",
	"hello@",
	"admin@",
}

// Accept reports whether email should be kept. Matching is case-insensitive.
// Strings without a local part and domain are rejected.
func Accept(email string) bool {
	lower := strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndexByte(lower, '@')
	if at <= 0 || at == len(lower)-1 {
		return false
	}

	if _, excluded := excludedDomains[lower[at+1:]]; excluded {
		return false
	}
	for _, p := range rolePatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}
