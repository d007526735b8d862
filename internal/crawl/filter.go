package crawl

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// hostProfile maps internationalized hosts to the ASCII form browsers put
// in resolved hrefs. Underscores and other non-LDH characters stay allowed.
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
	idna.StrictDomainName(false),
)

// Hostname returns the lower-cased host of rawURL without userinfo or port,
// or "" when rawURL has no scheme or no authority. Only the scheme and
// authority are inspected, so path, query and fragment may hold anything a
// browser would accept, including stray '%' signs. Non-ASCII hosts come
// back in punycode.
func Hostname(rawURL string) string {
	scheme, rest, ok := splitScheme(strings.TrimSpace(rawURL))
	if !ok {
		return ""
	}

	special := isSpecialScheme(scheme)
	if special {
		rest = strings.ReplaceAll(rest, `\`, "/")
	}
	if !strings.HasPrefix(rest, "//") {
		return ""
	}
	authority := rest[2:]
	if i := strings.IndexAny(authority, "/?#"); i >= 0 {
		authority = authority[:i]
	}
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}

	host, port := splitPort(authority)
	if !validPort(port) {
		return ""
	}
	return normalizeHost(host)
}

func splitScheme(s string) (scheme, rest string, ok bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		case i > 0 && c == ':':
			return strings.ToLower(s[:i]), s[i+1:], true
		default:
			return "", "", false
		}
	}
	return "", "", false
}

func isSpecialScheme(scheme string) bool {
	switch scheme {
	case "http", "https", "ws", "wss", "ftp", "file":
		return true
	}
	return false
}

// splitPort separates an optional ":port" suffix. Bracketed IPv6 literals
// keep their brackets; an unterminated bracket yields an empty host.
func splitPort(authority string) (host, port string) {
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return "", ""
		}
		host, rest := authority[:end+1], authority[end+1:]
		if rest == "" {
			return host, ""
		}
		if rest[0] != ':' {
			return "", ""
		}
		return host, rest[1:]
	}
	if i := strings.LastIndexByte(authority, ':'); i >= 0 {
		return authority[:i], authority[i+1:]
	}
	return authority, ""
}

func validPort(port string) bool {
	for i := 0; i < len(port); i++ {
		if port[i] < '0' || port[i] > '9' {
			return false
		}
	}
	return true
}

func normalizeHost(host string) string {
	if host == "" {
		return ""
	}
	if strings.HasPrefix(host, "[") {
		return strings.ToLower(host)
	}
	if strings.Contains(host, "%") {
		unescaped, err := url.PathUnescape(host)
		if err != nil {
			return ""
		}
		host = unescaped
	}
	if isASCII(host) {
		return strings.ToLower(host)
	}
	ascii, err := hostProfile.ToASCII(host)
	if err != nil {
		return ""
	}
	return ascii
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// FilterLinks keeps the links that live on base's host or on one of the
// allowed hosts. Each distinct link string appears once, in order of its
// first occurrence. Links without a host are dropped.
//
// Hosts are compared exactly, so "example.com" and "www.example.com" differ.
func FilterLinks(links []string, base string, allowed ...string) []string {
	baseHost := Hostname(base)
	allowedHosts := make([]string, 0, len(allowed))
	for _, h := range allowed {
		if h = normalizeHost(h); h != "" {
			allowedHosts = append(allowedHosts, h)
		}
	}

	seen := newLinkSet()
	out := make([]string, 0, len(links))

	for _, link := range links {
		if !seen.Add(link) {
			continue
		}
		host := Hostname(link)
		if host == "" {
			continue
		}
		if host == baseHost || containsHost(allowedHosts, host) {
			out = append(out, link)
		}
	}
	return out
}

func containsHost(hosts []string, host string) bool {
	for _, h := range hosts {
		if h == host {
			return true
		}
	}
	return false
}

// linkSet records which link strings have already been seen.
type linkSet struct {
	seen map[string]struct{}
}

func newLinkSet() *linkSet {
	return &linkSet{seen: make(map[string]struct{})}
}

// Add reports whether link was new.
func (s *linkSet) Add(link string) bool {
	if _, ok := s.seen[link]; ok {
		return false
	}
	s.seen[link] = struct{}{}
	return true
}
