package keys

import (
	"net/url"
	"strings"
)

// DomainAllowed reports whether a request origin passes a domain allow-list.
// A nil or empty list allows every origin. Matching runs against the origin's
// hostname: "*" allows everything, "*.suffix" allows any hostname ending in
// suffix, anything else requires exact equality. An origin that does not
// parse as a URL, or parses without a hostname, is denied.
func DomainAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	parsed, errParse := url.Parse(strings.TrimSpace(origin))
	if errParse != nil {
		return false
	}
	hostname := parsed.Hostname()
	if hostname == "" {
		return false
	}
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "*":
			return true
		case strings.HasPrefix(entry, "*."):
			if strings.HasSuffix(hostname, entry[2:]) {
				return true
			}
		case hostname == entry:
			return true
		}
	}
	return false
}

// IPAllowed reports whether a source address passes an IP allow-list.
// A nil or empty list allows every address; "*" is a wildcard; all other
// entries require literal equality.
func IPAllowed(allowed []string, ip string) bool {
	if len(allowed) == 0 {
		return true
	}
	ip = strings.TrimSpace(ip)
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "*" || entry == ip {
			return true
		}
	}
	return false
}
