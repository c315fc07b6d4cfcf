package ratelimit

import (
	"strings"
)

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Path matching supports prefix matching (e.g., "/api/resumes/" matches "/api/resumes/{id}").
// Static assets and health checks are unlimited.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if isUnlimited(path, method) {
		return &EndpointConfig{
			Limit:  0, // Unlimited
			Window: 0,
			Burst:  0,
		}
	}

	// Try exact match first
	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	// Try prefix match (for paths ending with "/")
	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") {
			if strings.HasPrefix(path, config.Path) {
				return config
			}
		}
	}

	// No match found
	return nil
}

// isUnlimited reports whether a request never counts against a limit.
func isUnlimited(path, method string) bool {
	if method != "GET" && method != "HEAD" {
		return false
	}
	if path == "/health" {
		return true
	}
	for _, prefix := range []string{"/css/", "/icons/", "/js/"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
