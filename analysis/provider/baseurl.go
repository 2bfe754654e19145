package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeBaseURL fills in the default endpoint and guarantees a trailing slash,
// which the SDK needs to resolve "chat/completions" under the API root.
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + "/"
}

// ValidateBaseURL rejects endpoints that could leak the API key: relative URLs,
// embedded credentials, query strings and plain http to anything but loopback.
func ValidateBaseURL(baseURL string) error {
	baseURL = NormalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if !u.IsAbs() || u.Hostname() == "" {
		return fmt.Errorf("invalid base url %q: absolute URL with host is required", baseURL)
	}
	if u.User != nil {
		return fmt.Errorf("invalid base url %q: userinfo is not allowed", baseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid base url %q: query and fragment are not allowed", baseURL)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		return nil
	case "http":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return fmt.Errorf("invalid base url %q: https is required for non-local hosts", baseURL)
	default:
		return fmt.Errorf("invalid base url %q: unsupported scheme %q", baseURL, u.Scheme)
	}
}

func isLoopback(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
