package logging

import "strings"

// RedactEmail keeps the first two characters of the local part and the domain.
func RedactEmail(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	runes := []rune(local)
	if len(runes) > 2 {
		local = string(runes[:2]) + "***"
	} else {
		local = "***"
	}
	return local + "@" + domain
}
