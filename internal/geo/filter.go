package geo

import (
	"regexp"
	"strings"
)

// Private, loopback, and link-local prefixes are never looked up and never
// cached.
var privateRe = regexp.MustCompile(`^(127\.|10\.|172\.(1[6-9]|2[0-9]|3[01])\.|192\.168\.|::1$|fe80:|fc00:|fd00:)`)

// IsPrivateOrLocal reports whether the address must be skipped before any
// network call.
func IsPrivateOrLocal(addr string) bool {
	clean := strings.ToLower(strings.TrimSpace(addr))
	if clean == "" {
		return true
	}
	if clean == "localhost" || clean == "::1" {
		return true
	}
	return privateRe.MatchString(clean)
}

// Host extracts the host part of a peer address, dropping a trailing
// numeric port and IPv6 bracket notation.
func Host(addr string) string {
	host := strings.TrimSpace(addr)
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		port := host[idx+1:]
		if port != "" && isDigits(port) {
			host = host[:idx]
		}
	}
	return strings.NewReplacer("[", "", "]", "").Replace(host)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
