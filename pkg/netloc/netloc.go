package netloc

import (
	"fmt"
	"net"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// Wildcard is the catch-all pattern that matches any host.
const Wildcard = "*"

var hostPattern = regexp.MustCompile(`^[a-z0-9_]([a-z0-9_-]*[a-z0-9_])?(\.[a-z0-9_]([a-z0-9_-]*[a-z0-9_])?)*$`)

// Expand returns match candidates for host, most specific first.
// A port <= 0 means the netloc has no port.
func Expand(host string, port int) ([]string, error) {
	if host == "" {
		return nil, ErrInvalidHost
	}

	var labels []string
	if IsIPv4(host) {
		labels = []string{host}
	} else {
		labels = strings.Split(host, ".")
	}

	size := len(labels) + 1
	if port > 0 {
		size *= 2
	}
	out := make([]string, 0, size)

	for i := 0; i <= len(labels); i++ {
		var candidate string
		switch {
		case i == 0:
			candidate = host
		case i == len(labels):
			candidate = Wildcard
		default:
			candidate = Wildcard + "." + strings.Join(labels[i:], ".")
		}
		if port > 0 {
			out = append(out, candidate+":"+strconv.Itoa(port))
		}
		out = append(out, candidate)
	}

	return out, nil
}

// IsIPv4 reports whether host is a syntactically valid IPv4 literal.
func IsIPv4(host string) bool {
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.Is4()
}

// IsIP reports whether host is an IPv4 or IPv6 literal. Brackets are allowed.
func IsIP(host string) bool {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	_, err := netip.ParseAddr(host)
	return err == nil
}

// SplitHostPort parses a Host header value. The returned host is lower-cased and
// ASCII-encoded; port is 0 when absent.
func SplitHostPort(raw string) (string, int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0, ErrInvalidHost
	}

	host, portStr := raw, ""
	switch {
	case strings.HasPrefix(raw, "["):
		end := strings.IndexByte(raw, ']')
		if end < 0 {
			return "", 0, fmt.Errorf("%w: unterminated IPv6 literal %q", ErrInvalidHost, raw)
		}
		host = raw[1:end]
		rest := raw[end+1:]
		if rest != "" {
			if !strings.HasPrefix(rest, ":") {
				return "", 0, fmt.Errorf("%w: %q", ErrInvalidHost, raw)
			}
			portStr = rest[1:]
			if portStr == "" {
				return "", 0, fmt.Errorf("%w: empty port in %q", ErrInvalidHost, raw)
			}
		}
		if _, err := netip.ParseAddr(host); err != nil {
			return "", 0, fmt.Errorf("%w: %q", ErrInvalidHost, raw)
		}
	case strings.Count(raw, ":") == 1:
		var err error
		host, portStr, err = net.SplitHostPort(raw)
		if err != nil {
			return "", 0, fmt.Errorf("%w: %v", ErrInvalidHost, err)
		}
		if portStr == "" {
			return "", 0, fmt.Errorf("%w: empty port in %q", ErrInvalidHost, raw)
		}
	case strings.Count(raw, ":") > 1:
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidHost, raw)
	}

	port := 0
	if portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p < 1 || p > 65535 {
			return "", 0, fmt.Errorf("%w: bad port in %q", ErrInvalidHost, raw)
		}
		port = p
	}

	host, err := normalizeHost(host)
	if err != nil {
		return "", 0, err
	}

	return host, port, nil
}

// Join formats host and port back into a netloc. IPv6 hosts are bracketed.
func Join(host string, port int) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	if port <= 0 {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}

func normalizeHost(host string) (string, error) {
	if host == "" {
		return "", ErrInvalidHost
	}

	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidHost, err)
		}
		host = ascii
	}
	// A fully qualified name ("example.com.") names the same host.
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", ErrInvalidHost
	}

	if IsIP(host) {
		return host, nil
	}
	if !hostPattern.MatchString(host) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}
	return host, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
