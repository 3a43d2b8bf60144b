package analyzer

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxURLLength bounds the raw input accepted by NormalizeURL.
const MaxURLLength = 255

var (
	hostLabel = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
	tldLabel  = regexp.MustCompile(`^([a-zA-Z]{2,63}|xn--[a-zA-Z0-9-]{1,59})$`)
)

// NormalizeURL validates raw and reduces it to scheme and authority.
// Path, query, fragment and userinfo are dropped; host case is preserved.
//
//	NormalizeURL("https://Example.com/path?x=1") // "https://Example.com"
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrURLRequired
	}
	if utf8.RuneCountInString(raw) > MaxURLLength {
		return "", ErrURLTooLong
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Opaque != "" || u.Host == "" || strings.HasSuffix(u.Host, ":") {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	host := strings.TrimSuffix(u.Hostname(), ".")
	if !isPublicHost(host) {
		return "", fmt.Errorf("%w: bad host %q", ErrInvalidURL, u.Hostname())
	}
	port := u.Port()
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return "", fmt.Errorf("%w: bad port %q", ErrInvalidURL, port)
		}
	}

	return u.Scheme + "://" + authority(host, port), nil
}

func authority(host, port string) string {
	if port != "" {
		return net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// isPublicHost accepts globally routable IP literals and dotted DNS names
// ending in a real TLD. host must already be stripped of a trailing dot.
func isPublicHost(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return isPublicIP(ip)
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 || len(host) > 253 {
		return false
	}
	for _, label := range labels[:len(labels)-1] {
		if !hostLabel.MatchString(label) {
			return false
		}
	}
	return tldLabel.MatchString(labels[len(labels)-1])
}

func isPublicIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return false
	}
	if ip4 := ip.To4(); ip4 != nil && ip4[0] == 0 {
		return false
	}
	return true
}
