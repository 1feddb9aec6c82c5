package orchestrator

import (
	"net/url"
	"slices"
	"strings"
)

// trackingParams lists, per host, the query parameters that only carry
// share/tracking data and are dropped before a URL is sent to the service.
var trackingParams = map[string][]string{
	"facebook.com":  {"mibextid", "utm_source", "utm_medium", "utm_campaign"},
	"fb.watch":      {"mibextid", "utm_source", "utm_medium", "utm_campaign"},
	"youtube.com":   {"si"},
	"youtu.be":      {"si"},
	"instagram.com": {"igsh", "igshid"},
}

// quirkyHosts get platform-specific guidance when the service rejects their
// content with a 400.
var quirkyHosts = map[string]string{
	"facebook.com": msgFacebookBadRequest,
	"fb.watch":     msgFacebookBadRequest,
}

// platformWarnings are advisory notes shown before submission.
var platformWarnings = map[string]string{
	"facebook.com":  "Facebook content may have limited support. Try using direct video links when possible.",
	"fb.watch":      "Facebook content may have limited support. Try using direct video links when possible.",
	"instagram.com": "Instagram content may require the post to be public.",
	"tiktok.com":    "TikTok content support may vary depending on privacy settings.",
}

// NormalizeURL strips known tracking parameters from URLs of known hosts.
// Input that is not an absolute URL is returned unchanged, as is every query
// pair that is not a tracking parameter. The result is a fixed point:
// NormalizeURL(NormalizeURL(s)) == NormalizeURL(s).
func NormalizeURL(raw string) string {
	u, ok := parseAbsolute(raw)
	if !ok {
		return raw
	}

	params := lookupHost(trackingParams, u.Hostname())
	if len(params) > 0 && u.RawQuery != "" {
		u.RawQuery = stripParams(u.RawQuery, params)
	}

	return u.String()
}

// stripParams drops the pairs of rawQuery whose unescaped key is in params.
// Every other pair is kept byte for byte and in order.
func stripParams(rawQuery string, params []string) string {
	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if !slices.Contains(params, key) {
			kept = append(kept, pair)
		}
	}
	return strings.Join(kept, "&")
}

// PlatformWarning returns an advisory message for platforms with known
// limitations, or "" when there is nothing to say.
func PlatformWarning(raw string) string {
	u, ok := parseAbsolute(raw)
	if !ok {
		return ""
	}
	return lookupHost(platformWarnings, u.Hostname())
}

// defaultTitle is the last path segment of the URL, or "Unknown".
func defaultTitle(normalized string) string {
	p := normalized
	if u, ok := parseAbsolute(normalized); ok {
		p = u.Path
	}
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "Unknown"
	}
	return p
}

func parseAbsolute(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, false
	}
	return u, true
}

// lookupHost matches host against the keys of m, including subdomains.
func lookupHost[V any](m map[string]V, host string) V {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for {
		if v, ok := m[host]; ok {
			return v
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			var zero V
			return zero
		}
		host = host[i+1:]
	}
}
