package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	proxyHostMarker = "img.evbuc.com/http"
	cdnHostMarker   = "cdn.evbuc.com"
)

var proxiedImagePattern = regexp.MustCompile(`img\.evbuc\.com/(https?%3A%2F%2F[^?]+)`)

// ImageURL returns the canonical form of an image URL.
//
// Proxy-wrapped URLs (img.evbuc.com/<percent-encoded original>) are decoded to
// the original, and direct CDN URLs lose their query string. Anything else is
// returned unchanged. The result is a fixed point: ImageURL(ImageURL(u)) ==
// ImageURL(u).
func ImageURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}

	// Each proxy unwrap strictly shortens u and a CDN strip is stable on the
	// next pass, so len(u)+1 passes always reach the fixed point.
	for passes := len(u) + 1; passes > 0; passes-- {
		next := unwrapImage(u)
		if next == u {
			break
		}
		u = next
	}
	return u
}

func unwrapImage(u string) string {
	if strings.Contains(u, proxyHostMarker) {
		if m := proxiedImagePattern.FindStringSubmatch(u); m != nil {
			if decoded, err := url.PathUnescape(m[1]); err == nil && decoded != "" {
				return decoded
			}
		}
	}

	if strings.Contains(u, cdnHostMarker) {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return u
		}
		return parsed.Scheme + "://" + parsed.Host + parsed.EscapedPath()
	}

	return u
}
