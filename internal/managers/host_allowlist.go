package managers

import (
	"net/url"
	"strings"
)

// maxURLLength caps caller-supplied URLs before parsing.
const maxURLLength = 2000

// IsAllowedHost reports whether rawURL's scheme://host pair is a member of
// allowedHosts. The match is exact and case-sensitive, with no wildcarding;
// the port is ignored. Any parse failure fails closed.
func IsAllowedHost(rawURL string, allowedHosts []string) bool {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || len(allowedHosts) == 0 {
		return false
	}

	if len(rawURL) > maxURLLength {
		rawURL = rawURL[:maxURLLength]
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if parsed.Scheme == "" || parsed.Hostname() == "" {
		return false
	}

	hostName := parsed.Scheme + "://" + parsed.Hostname()
	for _, allowed := range allowedHosts {
		if hostName == allowed {
			return true
		}
	}

	return false
}
